package sn76489

/* Texas Instruments SN76489 as used in the Sega Master System and Game Gear:
 * three square waves and one noise channel behind a latch/data write port.
 */

import (
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/blip"
)

var Debug int = 0

const (
    OscCount = 4
    NoiseChannel = 3

    /* latch byte register selectors */
    Tone1Frequency = 0b10000000
    Tone1Attenuation = 0b10010000
    Tone2Frequency = 0b10100000
    Tone2Attenuation = 0b10110000
    Tone3Frequency = 0b11000000
    Tone3Attenuation = 0b11010000
    NoiseControl = 0b11100000
    NoiseAttenuation = 0b11110000

    /* the FB bit of the noise control register selects white noise */
    NoiseFeedback = 0b00000100

    DefaultFeedback = 0x0009
    DefaultNoiseWidth = 16

    /* tone periods at or below this are above 16khz */
    minimumTonePeriod = 128
)

/* attenuation to amplitude, 64 * 1.26^(15-i) / 1.26^15 */
var Volumes = [16]int{
    64, 50, 39, 31, 24, 19, 15, 12, 9, 7, 5, 4, 3, 2, 1, 0,
}

var NoisePeriods = [3]int{0x100, 0x200, 0x400}

/* indexes into Oscillator.Outputs */
const (
    outputNone = 0
    outputRight = 1
    outputLeft = 2
    outputCenter = 3
)

type Oscillator struct {
    /* nil, right, left, center */
    Outputs [4]*blip.Buffer
    Output *blip.Buffer
    OutputSelect int

    Delay int
    LastAmp int
    Volume int
    /* raw 4-bit attenuation as written */
    Attenuation byte
}

func (osc *Oscillator) Reset() {
    osc.Delay = 0
    osc.LastAmp = 0
    osc.Volume = 0
    osc.Attenuation = 0
    osc.OutputSelect = outputCenter
    osc.Output = osc.Outputs[outputCenter]
}

type Square struct {
    Oscillator
    /* tone register << 4, in clocks */
    Period int
    Phase int
    Synth *blip.Synth
}

func (square *Square) Reset() {
    square.Period = 0
    square.Phase = 0
    square.Oscillator.Reset()
}

/* 10-bit tone register value */
func (square *Square) Tone() int {
    return square.Period >> 4
}

func (square *Square) Run(time blip.BlipTime, endTime blip.BlipTime) {
    if square.Volume == 0 || square.Period <= minimumTonePeriod {
        /* ultrasonic tones sit at the midpoint of the waveform, which is 0 here */
        if square.LastAmp != 0 {
            square.Synth.Offset(time, -square.LastAmp, square.Output)
            square.LastAmp = 0
        }

        time += square.Delay
        if square.Period == 0 {
            time = endTime
        } else if time < endTime {
            /* keep the phase moving */
            count := (endTime - time + square.Period - 1) / square.Period
            square.Phase = (square.Phase + count) & 1
            time += count * square.Period
        }
    } else {
        amp := -square.Volume
        if square.Phase != 0 {
            amp = square.Volume
        }

        delta := amp - square.LastAmp
        if delta != 0 {
            square.LastAmp = amp
            square.Synth.Offset(time, delta, square.Output)
        }

        time += square.Delay
        if time < endTime {
            delta := amp * 2
            for time < endTime {
                delta = -delta
                square.Synth.Offset(time, delta, square.Output)
                time += square.Period
                square.Phase ^= 1
            }
            square.LastAmp = -square.Volume
            if square.Phase != 0 {
                square.LastAmp = square.Volume
            }
        }
    }

    square.Delay = time - endTime
}

type Noise struct {
    Oscillator
    /* index into NoisePeriods, or 3 to follow square 3 */
    PeriodSelect int
    Shifter uint
    Feedback uint
    Synth *blip.Synth

    tone3 *Square
}

func (noise *Noise) Reset() {
    noise.PeriodSelect = 0
    noise.Shifter = 0x8000
    noise.Feedback = 0x9000
    noise.Oscillator.Reset()
}

func (noise *Noise) period() int {
    if noise.PeriodSelect < len(NoisePeriods) {
        return NoisePeriods[noise.PeriodSelect]
    }
    return noise.tone3.Period
}

func (noise *Noise) Run(time blip.BlipTime, endTime blip.BlipTime) {
    amp := noise.Volume
    if noise.Shifter & 1 != 0 {
        amp = -amp
    }

    delta := amp - noise.LastAmp
    if delta != 0 {
        noise.LastAmp = amp
        noise.Synth.Offset(time, delta, noise.Output)
    }

    time += noise.Delay
    if noise.Volume == 0 {
        time = endTime
    }

    if time < endTime {
        shifter := noise.Shifter
        delta := amp * 2
        period := noise.period() * 2
        if period == 0 {
            period = 16
        }

        for time < endTime {
            changed := shifter + 1
            shifter = (noise.Feedback & -(shifter & 1)) ^ (shifter >> 1)
            /* bits 0 and 1 differed */
            if changed & 2 != 0 {
                delta = -delta
                noise.Synth.Offset(time, delta, noise.Output)
            }
            time += period
        }

        noise.Shifter = shifter
        noise.LastAmp = delta >> 1
    }

    noise.Delay = time - endTime
}

type SN76489 struct {
    Squares [3]Square
    Noise Noise
    oscs [OscCount]*Oscillator

    LastTime blip.BlipTime
    Latch byte

    /* galois form of the white noise taps */
    NoiseFeedbackMask uint
    LoopedFeedbackMask uint

    squareSynth *blip.Synth
    noiseSynth *blip.Synth
}

func MakeSN76489() *SN76489 {
    chip := &SN76489{
        squareSynth: blip.NewSynth(blip.QualityGood, 1),
        noiseSynth: blip.NewSynth(blip.QualityMedium, 1),
    }

    for i := range chip.Squares {
        chip.Squares[i].Synth = chip.squareSynth
        chip.oscs[i] = &chip.Squares[i].Oscillator
    }
    chip.Noise.Synth = chip.noiseSynth
    chip.Noise.tone3 = &chip.Squares[2]
    chip.oscs[NoiseChannel] = &chip.Noise.Oscillator

    chip.Volume(1.0)
    chip.Reset(0, 0)

    return chip
}

func (chip *SN76489) Volume(level float64) {
    level *= 0.85 / (OscCount * 64 * 2)
    chip.squareSynth.Volume(level)
    chip.noiseSynth.Volume(level)
}

func (chip *SN76489) TrebleEq(eq blip.Equalizer) {
    chip.squareSynth.TrebleEq(eq)
    chip.noiseSynth.TrebleEq(eq)
}

/* Assign one oscillator to center, left and right buffers. Either all three
 * are nil, which mutes the oscillator, or none are.
 */
func (chip *SN76489) OscOutput(index int, center *blip.Buffer, left *blip.Buffer, right *blip.Buffer) {
    if index < 0 || index >= OscCount {
        panic(fmt.Sprintf("sn76489: oscillator %v out of bounds", index))
    }
    if (center == nil || left == nil || right == nil) && !(center == nil && left == nil && right == nil) {
        panic("sn76489: center, left and right must all be set or all be nil")
    }

    osc := chip.oscs[index]
    osc.Outputs[outputRight] = right
    osc.Outputs[outputLeft] = left
    osc.Outputs[outputCenter] = center
    osc.Output = osc.Outputs[osc.OutputSelect]
}

func (chip *SN76489) Output(center *blip.Buffer, left *blip.Buffer, right *blip.Buffer) {
    for i := range OscCount {
        chip.OscOutput(i, center, left, right)
    }
}

/* Route every oscillator to a single buffer */
func (chip *SN76489) MonoOutput(buffer *blip.Buffer) {
    chip.Output(buffer, buffer, buffer)
}

/* feedback and noiseWidth describe the white noise lfsr, 0 selects the Sega
 * defaults of 0x0009 and 16 bits
 */
func (chip *SN76489) Reset(feedback uint, noiseWidth int) {
    chip.LastTime = 0
    chip.Latch = 0

    if feedback == 0 || noiseWidth == 0 {
        feedback = DefaultFeedback
        noiseWidth = DefaultNoiseWidth
    }

    /* convert to galois configuration */
    chip.LoopedFeedbackMask = 1 << (noiseWidth - 1)
    chip.NoiseFeedbackMask = 0
    for range noiseWidth {
        chip.NoiseFeedbackMask = (chip.NoiseFeedbackMask << 1) | (feedback & 1)
        feedback >>= 1
    }

    for i := range chip.Squares {
        chip.Squares[i].Reset()
    }
    chip.Noise.Reset()
}

func (chip *SN76489) BufferCleared() {
    for _, osc := range chip.oscs {
        osc.LastAmp = 0
    }
}

func (chip *SN76489) RunUntil(endTime blip.BlipTime) {
    if endTime < chip.LastTime {
        panic(fmt.Sprintf("sn76489: run until %v is before last time %v", endTime, chip.LastTime))
    }

    if endTime > chip.LastTime {
        for i := range chip.Squares {
            if chip.Squares[i].Output != nil {
                chip.Squares[i].Run(chip.LastTime, endTime)
            }
        }
        if chip.Noise.Output != nil {
            chip.Noise.Run(chip.LastTime, endTime)
        }
        chip.LastTime = endTime
    }
}

/* Write a byte to the data port. A byte with bit 7 set latches a register
 * and writes its low 4 bits, a byte without it writes the upper bits of the
 * latched tone register.
 */
func (chip *SN76489) WriteData(time blip.BlipTime, data byte) {
    chip.RunUntil(time)

    if Debug > 0 {
        log.Printf("sn76489: write %08b at %v", data, time)
    }

    if data & 0x80 != 0 {
        chip.Latch = data
    }

    index := int((chip.Latch >> 5) & 3)
    switch {
        case chip.Latch & 0x10 != 0:
            osc := chip.oscs[index]
            osc.Attenuation = data & 15
            osc.Volume = Volumes[data & 15]
        case index < 3:
            square := &chip.Squares[index]
            if data & 0x80 != 0 {
                square.Period = (square.Period & 0xFF00) | (int(data) << 4 & 0x00FF)
            } else {
                square.Period = (square.Period & 0x00FF) | (int(data) << 8 & 0x3F00)
            }
        default:
            chip.Noise.PeriodSelect = int(data & 3)
            if data & NoiseFeedback != 0 {
                chip.Noise.Feedback = chip.NoiseFeedbackMask
            } else {
                chip.Noise.Feedback = chip.LoopedFeedbackMask
            }
            chip.Noise.Shifter = 0x8000
    }
}

/* Game Gear stereo register. Bit n routes oscillator n to the right and bit
 * n+4 routes it to the left.
 */
func (chip *SN76489) WriteGGStereo(time blip.BlipTime, data byte) {
    chip.RunUntil(time)

    for i, osc := range chip.oscs {
        flags := int(data) >> i
        oldOutput := osc.Output
        osc.OutputSelect = (flags >> 3 & 2) | (flags & 1)
        osc.Output = osc.Outputs[osc.OutputSelect]
        if osc.Output != oldOutput && osc.LastAmp != 0 {
            if oldOutput != nil {
                synth := chip.squareSynth
                if i == NoiseChannel {
                    synth = chip.noiseSynth
                }
                synth.Offset(time, -osc.LastAmp, oldOutput)
            }
            osc.LastAmp = 0
        }
    }
}

func (chip *SN76489) EndFrame(endTime blip.BlipTime) {
    if endTime > chip.LastTime {
        chip.RunUntil(endTime)
    }

    chip.LastTime -= endTime
    if chip.LastTime < 0 {
        panic(fmt.Sprintf("sn76489: end frame %v left last time negative %v", endTime, chip.LastTime))
    }
}
