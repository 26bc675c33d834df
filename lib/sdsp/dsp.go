package sdsp

/* Sony S-DSP as found in the snes. Eight brr sample voices with adsr or gain
 * envelopes, gaussian interpolation, noise, pitch modulation and an echo
 * whose buffer lives in the ram shared with the spc700. Runs at 32khz.
 */

import (
    "encoding/binary"
    "errors"
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/pcm"
)

var Debug int = 0

const (
    RAMSize = 0x10000
    EmuGainBits = 8
    /* clocks of delay between key on and the voice starting */
    keyOnDelay = 8
)

var ErrRAMSize = errors.New("sdsp: shared ram must be 64k")

type voiceState struct {
    volume [2]int
    /* 12-bit fractional position, the upper bits count samples to decode */
    fraction int
    history [4]int16
    /* nibbles left in the current block */
    blockRemain int
    address uint16
    blockHeader int
    envelope Envelope
    onCount int
}

type DSP struct {
    regs Registers
    ram []byte

    voices [VoiceCount]voiceState
    fir firFilter

    /* voices that are keyed on and producing sound */
    keys byte
    echoPointer int
    noise int
    noiseAmp int
    noiseCount int

    surroundThreshold int
    muted byte
    gain int
}

func NewDSP(ram []byte) (*DSP, error) {
    if len(ram) != RAMSize {
        return nil, fmt.Errorf("%w: got %v bytes", ErrRAMSize, len(ram))
    }

    dsp := &DSP{
        ram: ram,
    }
    dsp.SetGain(1.0)
    dsp.DisableSurround(false)
    dsp.Reset()
    return dsp, nil
}

/* the shared ram, owned by the caller */
func (dsp *DSP) RAM() []byte {
    return dsp.ram
}

func (dsp *DSP) Registers() Registers {
    return dsp.regs
}

func (dsp *DSP) Reset() {
    dsp.keys = 0
    dsp.echoPointer = 0
    dsp.noiseCount = 0
    dsp.noiseAmp = 0
    dsp.noise = 1
    dsp.fir.reset()

    /* reset, mute and echo writes off */
    dsp.regs[FlagsRegister] = 0xE0
    dsp.regs[KeyOnRegister] = 0

    for i := range dsp.voices {
        voice := &dsp.voices[i]
        voice.onCount = 0
        voice.volume = [2]int{}
        voice.envelope = Envelope{Stage: EnvelopeOff}
    }
}

/* Surround is produced by volumes of opposite sign. Disabling it flips one
 * of them.
 */
func (dsp *DSP) DisableSurround(disable bool) {
    if disable {
        dsp.surroundThreshold = 0
    } else {
        dsp.surroundThreshold = -0x7FFF
    }
}

/* bit n mutes voice n */
func (dsp *DSP) MuteVoices(mask byte) {
    dsp.muted = mask
}

func (dsp *DSP) SetGain(gain float64) {
    dsp.gain = int(gain * (1 << EmuGainBits))
}

func (dsp *DSP) Read(address int) (byte, error) {
    err := checkAddress(address)
    if err != nil {
        return 0, err
    }
    return dsp.regs[address], nil
}

func (dsp *DSP) Write(address int, data byte) error {
    err := checkAddress(address)
    if err != nil {
        return err
    }

    if Debug > 0 {
        log.Printf("sdsp: write $%02x = %02x", address, data)
    }

    dsp.regs[address] = data
    high := address >> 4
    low := address & 0x0F

    switch {
        case low < 2:
            left := int(int8(dsp.regs[address & ^1]))
            right := int(int8(dsp.regs[address | 1]))
            if left * right < dsp.surroundThreshold {
                if left < 0 {
                    left = -left
                } else {
                    right = -right
                }
            }
            dsp.voices[high].volume = [2]int{left, right}
        case low == VoiceFIR:
            dsp.fir.coefficients[FIRCount - 1 - high] = int(int8(data))
    }

    return nil
}

/* Write every register in order */
func (dsp *DSP) LoadRegisters(regs *Registers) {
    for address, value := range regs {
        dsp.Write(address, value)
    }
}

func (dsp *DSP) clockNoise() {
    if dsp.regs.NoiseEnable() == 0 {
        return
    }

    if stepCounter(&dsp.noiseCount, int(dsp.regs.NoisePeriod())) {
        dsp.noiseAmp = int(int16(dsp.noise << 1))
        dsp.noise = ((dsp.noise << 13) ^ (dsp.noise << 14)) & 0x4000 | dsp.noise >> 1
    }
}

/* silence a voice whose sample ended and fill the history with count zeros */
func (dsp *DSP) endSample(index int, voice *voiceState, count int) {
    bit := byte(1) << index
    dsp.regs[EndXRegister] |= bit
    dsp.keys &^= bit
    dsp.regs[index << 4 | VoiceEnvx] = 0
    voice.envelope.Stage = EnvelopeOff
    voice.envelope.Level = 0
    for range count {
        pushHistory(&voice.history, 0)
    }
}

/* decode the samples the fraction has moved past */
func (dsp *DSP) decode(index int, voice *voiceState, directory byte, source byte) {
    bit := byte(1) << index
    for n := voice.fraction >> 12; n > 0; n-- {
        voice.blockRemain -= 1
        if voice.blockRemain == 0 {
            if voice.blockHeader & 1 != 0 {
                dsp.regs[EndXRegister] |= bit
                if voice.blockHeader & 2 == 0 {
                    /* end without loop */
                    dsp.endSample(index, voice, n)
                    return
                }
                voice.address = ReadSourceDirectory(dsp.ram, directory, source).Loop
            }
            voice.blockHeader = int(dsp.ram[voice.address])
            voice.address += 1
            voice.blockRemain = BRRSamplesPerBlock
        }

        /* the next block ends the sample, so this one stops half way */
        if voice.blockRemain == 9 && dsp.ram[uint16(voice.address + 5)] & 3 == 1 && voice.blockHeader & 3 != 3 {
            dsp.endSample(index, voice, n)
            return
        }

        raw := int(dsp.ram[voice.address])
        if voice.blockRemain & 1 != 0 {
            raw <<= 4
            voice.address += 1
        }
        nibble := int(int8(byte(raw))) >> 4

        decodeNibble(voice.blockHeader, nibble, &voice.history)
    }
}

func (dsp *DSP) runSample(out []int16) {
    if dsp.regs.ResetFlag() {
        dsp.Reset()
    }

    regs := &dsp.regs
    directory := regs.SourceDirectory()

    /* key on clears endx */
    regs[EndXRegister] &^= regs.KeyOn()

    dsp.clockNoise()

    previousOutput := 0
    echoLeft := 0
    echoRight := 0
    left := 0
    right := 0

    for index := range dsp.voices {
        bit := byte(1) << index
        voice := &dsp.voices[index]
        voiceRegs := regs.Voice(index)

        if voice.onCount > 0 {
            voice.onCount -= 1
            if voice.onCount == 0 {
                dsp.keys |= bit
                voice.address = ReadSourceDirectory(dsp.ram, directory, voiceRegs.Source()).Start
                voice.blockRemain = 1
                voice.blockHeader = 0
                /* decode three samples right away */
                voice.fraction = 0x3FFF
                voice.history[0] = 0
                voice.history[1] = 0
                voice.envelope.KeyOn()
            }
        }

        if regs.KeyOn() & bit & ^regs.KeyOff() != 0 {
            regs[KeyOnRegister] &^= bit
            voice.onCount = keyOnDelay
        }

        if dsp.keys & regs.KeyOff() & bit != 0 {
            voice.envelope.KeyOff()
            voice.onCount = 0
        }

        envx := -1
        if dsp.keys & bit != 0 {
            envx = voice.envelope.Clock(voiceRegs.ADSR1(), voiceRegs.ADSR2(), voiceRegs.Gain())
            if envx < 0 {
                dsp.keys &^= bit
            }
        }

        if envx < 0 {
            regs[index << 4 | VoiceEnvx] = 0
            regs[index << 4 | VoiceOutx] = 0
            previousOutput = 0
            continue
        }
        regs[index << 4 | VoiceEnvx] = byte(envx >> 4)

        dsp.decode(index, voice, directory, voiceRegs.Source())
        /* the sample may have ended while decoding */
        envx = voice.envelope.Level
        if dsp.keys & bit == 0 {
            envx = 0
        }

        rate := voiceRegs.Pitch()
        if regs.PitchModulation() & bit != 0 {
            rate = (rate * (previousOutput + 32768)) >> 15
        }

        fraction := voice.fraction
        voice.fraction = (fraction & 0x0FFF) + rate

        var output int
        if regs.NoiseEnable() & bit != 0 {
            output = dsp.noiseAmp
        } else {
            output = Interpolate(fraction, &voice.history)
        }

        output = (output * envx) >> 11 & ^1
        previousOutput = output
        regs[index << 4 | VoiceOutx] = byte(output >> 8)

        if dsp.muted & bit != 0 {
            continue
        }

        l := (voice.volume[0] * output) >> 7
        r := (voice.volume[1] * output) >> 7
        if regs.EchoEnable() & bit != 0 {
            echoLeft += l
            echoRight += r
        }
        left += l
        right += r
    }

    mainLeft := int(regs.MainVolumeLeft())
    mainRight := int(regs.MainVolumeRight())
    if mainLeft * mainRight < dsp.surroundThreshold {
        mainRight = -mainRight
    }
    mainLeft *= dsp.gain
    mainRight *= dsp.gain

    echoAddress := (int(regs.EchoPage()) * 0x100 + dsp.echoPointer) & 0xFFFF
    dsp.echoPointer += 4
    if dsp.echoPointer >= int(regs.EchoDelay()) * DelayLevelBytes {
        dsp.echoPointer = 0
    }

    feedbackLeft, feedbackRight := dsp.fir.run(dsp.readEcho(echoAddress), dsp.readEcho(echoAddress + 2))

    left = (left * mainLeft) >> (7 + EmuGainBits)
    right = (right * mainRight) >> (7 + EmuGainBits)
    left += (feedbackLeft * int(regs.EchoVolumeLeft()) * dsp.gain) >> (14 + EmuGainBits)
    right += (feedbackRight * int(regs.EchoVolumeRight()) * dsp.gain) >> (14 + EmuGainBits)

    if !regs.EchoWriteDisabled() {
        echoLeft += (feedbackLeft * int(regs.EchoFeedback())) >> 14
        echoRight += (feedbackRight * int(regs.EchoFeedback())) >> 14
        dsp.writeEcho(echoAddress, pcm.Clamp16(echoLeft))
        dsp.writeEcho(echoAddress + 2, pcm.Clamp16(echoRight))
    }

    if out != nil {
        if regs.Muted() {
            out[0] = 0
            out[1] = 0
        } else {
            out[0] = int16(pcm.Clamp16(left))
            out[1] = int16(pcm.Clamp16(right))
        }
    }
}

func (dsp *DSP) readEcho(address int) int {
    var raw [2]byte
    raw[0] = dsp.ram[address & 0xFFFF]
    raw[1] = dsp.ram[(address + 1) & 0xFFFF]
    return int(int16(binary.LittleEndian.Uint16(raw[:])))
}

func (dsp *DSP) writeEcho(address int, value int) {
    var raw [2]byte
    binary.LittleEndian.PutUint16(raw[:], uint16(int16(value)))
    dsp.ram[address & 0xFFFF] = raw[0]
    dsp.ram[(address + 1) & 0xFFFF] = raw[1]
}

/* Run count samples at 32khz. out receives stereo pairs and may be nil. */
func (dsp *DSP) Run(count int, out []int16) {
    if out != nil && len(out) < count * 2 {
        panic(fmt.Sprintf("sdsp: output holds %v samples but %v stereo samples were requested", len(out), count))
    }

    for i := range count {
        if out != nil {
            dsp.runSample(out[i * 2:i * 2 + 2])
        } else {
            dsp.runSample(nil)
        }
    }
}

/* 14-bit pitch for a frequency, where 0x1000 is 32khz */
func ConvertPitch(frequency float64) uint16 {
    pitch := int(4096 * frequency / SampleRate)
    return uint16(pitch) & 0x3FFF
}
