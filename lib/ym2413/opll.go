package ym2413

/* Yamaha YM2413 (OPLL), a 9 channel 2 operator FM synthesizer. The last three
 * channels can be switched into 5 rhythm voices.
 */

import (
    "errors"
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/pcm"
)

var Debug int = 0

var ErrInvalidRate = errors.New("ym2413: sample rate and clock rate must be positive")

const (
    MelodicChannels = 9
    /* melodic channels plus bass drum, snare, tom, cymbal and hi-hat */
    ChannelCount = 14
    OutputChannels = 2

    DefaultClockRate = 3579545
    DefaultSampleRate = 44100

    /* the chip produces one sample every 72 clocks */
    ClockDivider = 72

    RegisterCount = 0x40
)

/* bits of MuteVoices */
const (
    MaskBassDrum = 1 << (9 + iota)
    MaskSnare
    MaskTom
    MaskCymbal
    MaskHighHat
)

/* register 0x0E */
const (
    RhythmEnable = 0x20
    RhythmBassDrum = 0x10
    RhythmSnare = 0x08
    RhythmTom = 0x04
    RhythmCymbal = 0x02
    RhythmHighHat = 0x01
)

const (
    UserPatchRegister = 0x00
    RhythmRegister = 0x0E
    TestRegister = 0x0F
    FrequencyLowRegister = 0x10
    FrequencyHighRegister = 0x20
    InstrumentRegister = 0x30
    LastRegister = 0x38
)

const resampleBits = 16

type Channel struct {
    Modulator Operator
    Carrier Operator
    patch *Patch
}

type Emulator struct {
    registers [RegisterCount]byte
    patches [PatchCount]Patch
    channels [MelodicChannels]Channel
    mask int
    address byte

    noise uint32
    amStep int
    amCounter int
    pmCounter int
    envelopeCounter uint

    sampleRate float64
    clockRate float64
    step uint64
    position uint64
    previous int
    current int
}

func NewEmulator() *Emulator {
    emulator := &Emulator{}
    emulator.SetRate(DefaultSampleRate, DefaultClockRate)
    emulator.Reset()
    return emulator
}

/* Set the output sample rate and the chip clock rate in hz */
func (emulator *Emulator) SetRate(sampleRate float64, clockRate float64) error {
    if sampleRate <= 0 || clockRate <= 0 {
        return fmt.Errorf("%w: sample rate %v clock rate %v", ErrInvalidRate, sampleRate, clockRate)
    }

    emulator.sampleRate = sampleRate
    emulator.clockRate = clockRate
    native := clockRate / ClockDivider
    emulator.step = uint64(native / sampleRate * (1 << resampleBits) + 0.5)
    if emulator.step == 0 {
        emulator.step = 1
    }

    if Debug > 0 {
        log.Printf("ym2413: native rate %.1f output rate %v step %v", native, sampleRate, emulator.step)
    }

    return nil
}

/* the rate the chip computes samples at */
func (emulator *Emulator) NativeRate() float64 {
    return emulator.clockRate / ClockDivider
}

func (emulator *Emulator) Reset() {
    emulator.registers = [RegisterCount]byte{}
    emulator.patches = defaultPatches()
    emulator.address = 0
    emulator.noise = 1
    emulator.amStep = 0
    emulator.amCounter = 0
    emulator.pmCounter = 0
    emulator.envelopeCounter = 0
    emulator.position = 0
    emulator.previous = 0
    emulator.current = 0

    for i := range emulator.channels {
        channel := &emulator.channels[i]
        channel.Modulator.reset()
        channel.Carrier.reset()
        emulator.updatePatch(i)
    }
}

/* Mute voice n if bit n of the mask is set */
func (emulator *Emulator) MuteVoices(mask int) {
    emulator.mask = mask
}

func (emulator *Emulator) Register(address int) byte {
    if address < 0 || address >= RegisterCount {
        return 0
    }
    return emulator.registers[address]
}

func (emulator *Emulator) Patch(index int) Patch {
    return emulator.patches[index]
}

func (emulator *Emulator) Channel(index int) *Channel {
    return &emulator.channels[index]
}

func (emulator *Emulator) RhythmMode() bool {
    return emulator.registers[RhythmRegister] & RhythmEnable != 0
}

func (emulator *Emulator) isRhythmChannel(index int) bool {
    return index >= 6 && emulator.RhythmMode()
}

func (emulator *Emulator) frequency(index int) (int, int) {
    fnum := int(emulator.registers[FrequencyLowRegister + index]) | int(emulator.registers[FrequencyHighRegister + index] & 1) << 8
    block := int(emulator.registers[FrequencyHighRegister + index] >> 1) & 7
    return fnum, block
}

func (emulator *Emulator) sustain(index int) bool {
    return emulator.registers[FrequencyHighRegister + index] & 0x20 != 0
}

/* select the patch and levels of a channel from the registers */
func (emulator *Emulator) updatePatch(index int) {
    channel := &emulator.channels[index]
    instrument := int(emulator.registers[InstrumentRegister + index] >> 4)
    volume := int(emulator.registers[InstrumentRegister + index] & 0xF)

    patchIndex := instrument
    if emulator.isRhythmChannel(index) {
        patchIndex = BassDrumPatch + index - 6
    }
    channel.patch = &emulator.patches[patchIndex]
    channel.Modulator.patch = &channel.patch.Modulator
    channel.Carrier.patch = &channel.patch.Carrier

    channel.Modulator.TotalLevel = channel.patch.Modulator.TotalLevel
    channel.Carrier.TotalLevel = volume << 2

    /* hi-hat and tom take their level from the instrument nibble */
    if emulator.isRhythmChannel(index) && index != 6 {
        channel.Modulator.TotalLevel = instrument << 2
    }
}

func (emulator *Emulator) updateKeys() {
    rhythm := emulator.registers[RhythmRegister]
    for i := range emulator.channels {
        channel := &emulator.channels[i]
        modulatorKey := emulator.registers[FrequencyHighRegister + i] & 0x10 != 0
        carrierKey := modulatorKey

        if emulator.isRhythmChannel(i) {
            switch i {
                case 6:
                    modulatorKey = rhythm & RhythmBassDrum != 0
                    carrierKey = modulatorKey
                case 7:
                    modulatorKey = rhythm & RhythmHighHat != 0
                    carrierKey = rhythm & RhythmSnare != 0
                case 8:
                    modulatorKey = rhythm & RhythmTom != 0
                    carrierKey = rhythm & RhythmCymbal != 0
            }
        }

        if modulatorKey {
            channel.Modulator.keyOn()
        } else {
            channel.Modulator.keyOff()
        }
        if carrierKey {
            channel.Carrier.keyOn()
        } else {
            channel.Carrier.keyOff()
        }
    }
}

/* Write data to a register. Unused registers are ignored. */
func (emulator *Emulator) Write(address int, data int) {
    if address < 0 || address > LastRegister {
        if Debug > 0 {
            log.Printf("ym2413: ignoring write to register 0x%x", address)
        }
        return
    }

    value := byte(data)
    emulator.registers[address] = value

    switch {
        case address < PatchBytes:
            var raw [PatchBytes]byte
            copy(raw[:], emulator.registers[UserPatchRegister:UserPatchRegister + PatchBytes])
            emulator.patches[0] = DecodePatch(raw)
            for i := range emulator.channels {
                emulator.updatePatch(i)
            }
        case address == RhythmRegister:
            for i := 6; i < MelodicChannels; i++ {
                emulator.updatePatch(i)
            }
            emulator.updateKeys()
        case address >= FrequencyLowRegister && address < FrequencyLowRegister + MelodicChannels:
        case address >= FrequencyHighRegister && address < FrequencyHighRegister + MelodicChannels:
            emulator.updateKeys()
        case address >= InstrumentRegister && address < InstrumentRegister + MelodicChannels:
            emulator.updatePatch(address - InstrumentRegister)
    }
}

/* The two port bus, an even port latches the register address and an odd port writes data */
func (emulator *Emulator) WritePort(port int, data int) {
    if port & 1 == 0 {
        emulator.address = byte(data)
    } else {
        emulator.Write(int(emulator.address), data)
    }
}

func (emulator *Emulator) muted(voice int) bool {
    return emulator.mask & (1 << voice) != 0
}

func (emulator *Emulator) advanceLFO() {
    emulator.pmCounter = (emulator.pmCounter + 1) & 0x1FFF

    emulator.amCounter += 1
    if emulator.amCounter == amPeriod {
        emulator.amCounter = 0
        emulator.amStep = (emulator.amStep + 1) % amSteps
    }

    bit := (emulator.noise ^ (emulator.noise >> 14)) & 1
    emulator.noise = emulator.noise >> 1 | bit << 22

    emulator.envelopeCounter += 1
}

func (emulator *Emulator) melodic(channel *Channel, fnum int, block int, am int) int {
    modulation := channel.Modulator.output(channel.Modulator.feedback(channel.patch.Feedback), fnum, block, am)
    return channel.Carrier.output(modulation >> 1, fnum, block, am)
}

/* the hi-hat, snare and cymbal derive their phase from the hi-hat and cymbal operators and the noise generator */
func (emulator *Emulator) rhythm(am int) (int, int, int, int) {
    hhFnum, hhBlock := emulator.frequency(7)
    tcFnum, tcBlock := emulator.frequency(8)
    highHat := &emulator.channels[7].Modulator
    snare := &emulator.channels[7].Carrier
    tom := &emulator.channels[8].Modulator
    cymbal := &emulator.channels[8].Carrier

    hh := highHat.index()
    tc := cymbal.index()
    ring := ((hh >> 2 ^ hh >> 7) | hh >> 3 | (tc >> 3 ^ tc >> 5)) & 1
    noise := int(emulator.noise & 1)

    hhIndex := ring << 9
    if ring ^ noise != 0 {
        hhIndex |= 0xD0
    } else {
        hhIndex |= 0x34
    }
    sdIndex := (0x100 << uint(hh >> 8 & 1)) ^ noise << 8
    tcIndex := (1 + ring) << 8

    hhOut := highHat.outputAt(hhIndex, hhFnum, hhBlock, am)
    sdOut := snare.outputAt(sdIndex, hhFnum, hhBlock, am)
    tomOut := tom.output(0, tcFnum, tcBlock, am)
    tcOut := cymbal.outputAt(tcIndex, tcFnum, tcBlock, am)

    return hhOut, sdOut, tomOut, tcOut
}

/* compute one sample at the native rate */
func (emulator *Emulator) clock() int {
    emulator.advanceLFO()
    am := amTable[emulator.amStep]
    pmPhase := emulator.pmCounter >> 10

    for i := range emulator.channels {
        channel := &emulator.channels[i]
        fnum, block := emulator.frequency(i)
        sustain := emulator.sustain(i)
        channel.Modulator.advance(fnum, block, pmPhase)
        channel.Carrier.advance(fnum, block, pmPhase)
        channel.Modulator.clockEnvelope(emulator.envelopeCounter, fnum, block, sustain)
        channel.Carrier.clockEnvelope(emulator.envelopeCounter, fnum, block, sustain)
    }

    melodicCount := MelodicChannels
    if emulator.RhythmMode() {
        melodicCount = 6
    }

    total := 0
    for i := range melodicCount {
        channel := &emulator.channels[i]
        fnum, block := emulator.frequency(i)
        out := emulator.melodic(channel, fnum, block, am)
        if !emulator.muted(i) {
            total += out >> 1
        }
    }

    if emulator.RhythmMode() {
        fnum, block := emulator.frequency(6)
        bass := emulator.melodic(&emulator.channels[6], fnum, block, am)
        highHat, snare, tom, cymbal := emulator.rhythm(am)

        for _, voice := range []struct{
            Mask int
            Out int
        }{
            {MaskBassDrum, bass},
            {MaskSnare, snare},
            {MaskTom, tom},
            {MaskCymbal, cymbal},
            {MaskHighHat, highHat},
        } {
            if emulator.mask & voice.Mask == 0 {
                total += voice.Out
            }
        }
    }

    return pcm.Clamp16(total)
}

/* Run the chip for the given number of stereo pairs, writing identical left and right samples to out */
func (emulator *Emulator) Run(pairs int, out []int16) {
    if len(out) < pairs * OutputChannels {
        panic(fmt.Sprintf("ym2413: output of %v samples is too small for %v pairs", len(out), pairs))
    }

    const one = 1 << resampleBits
    for i := range pairs {
        emulator.position += emulator.step
        for emulator.position >= one {
            emulator.position -= one
            emulator.previous = emulator.current
            emulator.current = emulator.clock()
        }

        sample := emulator.previous + ((emulator.current - emulator.previous) * int(emulator.position)) >> resampleBits
        out[i * 2] = int16(sample)
        out[i * 2 + 1] = int16(sample)
    }
}
