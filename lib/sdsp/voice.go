package sdsp

import (
    "github.com/kazzmir/chipsound/lib/pcm"
)

/* A single brr sample voice reading from shared ram, without the adsr
 * envelope. The envelope is full while the gate is on and releases linearly
 * once it drops.
 */
type Voice struct {
    ram []byte

    wavePage byte
    waveIndex byte
    rate int
    volumeLeft int8
    volumeRight int8

    onCount int
    stage EnvelopeStage
    level int
    address uint16
    blockHeader int
    blockRemain int
    history [4]int16
    fraction int
}

func NewVoice(ram []byte) (*Voice, error) {
    if len(ram) != RAMSize {
        return nil, ErrRAMSize
    }
    return &Voice{ram: ram}, nil
}

func (voice *Voice) Reset() {
    voice.onCount = 0
    voice.stage = EnvelopeOff
    voice.level = 0
    voice.address = 0
    voice.blockHeader = 0
    voice.blockRemain = 0
    voice.history = [4]int16{}
    voice.fraction = 0
}

/* the source directory is at page * 0x100 */
func (voice *Voice) SetWavePage(page byte) {
    voice.wavePage = page
}

func (voice *Voice) SetWaveIndex(index byte) {
    voice.waveIndex = index
}

func (voice *Voice) SetFrequency(frequency float64) {
    voice.rate = int(ConvertPitch(frequency))
}

func (voice *Voice) SetPitch(pitch uint16) {
    voice.rate = int(pitch & 0x3FFF)
}

func (voice *Voice) SetVolumeLeft(value int8) {
    voice.volumeLeft = value
}

func (voice *Voice) SetVolumeRight(value int8) {
    voice.volumeRight = value
}

func (voice *Voice) Stage() EnvelopeStage {
    return voice.stage
}

func (voice *Voice) Level() int {
    return voice.level
}

func (voice *Voice) clockEnvelope() int {
    if voice.stage == EnvelopeRelease {
        voice.level -= EnvelopeRange / 256
        if voice.level <= 0 {
            voice.stage = EnvelopeOff
            voice.level = 0
            return -1
        }
        return voice.level
    }

    voice.level = EnvelopeRange
    return voice.level
}

func (voice *Voice) endSample(count int) {
    voice.stage = EnvelopeOff
    voice.level = 0
    for range count {
        pushHistory(&voice.history, 0)
    }
}

/* returns false once the sample has ended */
func (voice *Voice) decode() bool {
    for n := voice.fraction >> 12; n > 0; n-- {
        voice.blockRemain -= 1
        if voice.blockRemain == 0 {
            if voice.blockHeader & 1 != 0 {
                if voice.blockHeader & 2 == 0 {
                    voice.endSample(n)
                    return false
                }
                voice.address = ReadSourceDirectory(voice.ram, voice.wavePage, voice.waveIndex).Loop
            }
            voice.blockHeader = int(voice.ram[voice.address])
            voice.address += 1
            voice.blockRemain = BRRSamplesPerBlock
        }

        if voice.blockRemain == 9 && voice.ram[voice.address + 5] & 3 == 1 && voice.blockHeader & 3 != 3 {
            voice.endSample(n)
            return false
        }

        raw := int(voice.ram[voice.address])
        if voice.blockRemain & 1 != 0 {
            raw <<= 4
            voice.address += 1
        }
        decodeNibble(voice.blockHeader, int(int8(byte(raw))) >> 4, &voice.history)
    }
    return true
}

/* Run one 32khz sample. A trigger starts the sample after 8 samples, a low
 * gate releases it. phaseModulation scales the pitch by (1 + pm/32768).
 */
func (voice *Voice) Run(trigger bool, gateOn bool, phaseModulation int) StereoSample {
    if voice.onCount > 0 {
        voice.onCount -= 1
        if voice.onCount == 0 {
            voice.address = ReadSourceDirectory(voice.ram, voice.wavePage, voice.waveIndex).Start
            voice.blockRemain = 1
            voice.level = 0
            voice.blockHeader = 0
            voice.fraction = 0x3FFF
            voice.history[0] = 0
            voice.history[1] = 0
            voice.stage = EnvelopeOn
        }
    }

    if trigger {
        voice.onCount = keyOnDelay
    }
    if !gateOn {
        voice.onCount = 0
        if voice.stage != EnvelopeOff {
            voice.stage = EnvelopeRelease
        }
    }

    if voice.stage == EnvelopeOff {
        return StereoSample{}
    }

    envelope := voice.clockEnvelope()
    if envelope < 0 {
        return StereoSample{}
    }

    if !voice.decode() {
        return StereoSample{}
    }

    rate := (voice.rate * (phaseModulation + 32768)) >> 15
    fraction := voice.fraction
    voice.fraction = (fraction & 0x0FFF) + rate

    output := Interpolate(fraction, &voice.history)
    output = (output * envelope) >> 11 & ^1

    return StereoSample{
        Left: int16(pcm.Clamp16((int(voice.volumeLeft) * output) >> 7)),
        Right: int16(pcm.Clamp16((int(voice.volumeRight) * output) >> 7)),
    }
}
