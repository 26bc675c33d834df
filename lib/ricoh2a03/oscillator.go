package ricoh2a03

import (
    "github.com/kazzmir/chipsound/lib/blip"
)

/* state shared by all of the nes oscillators */
type Oscillator struct {
    Regs [4]byte
    /* set when the register was written and cleared when the frame sequencer consumes it */
    RegWritten [4]bool
    /* nil means the oscillator is muted */
    Output *blip.Buffer
    /* 0 if the oscillator doesn't use a length counter */
    LengthCounter int
    /* clocks until the next transition */
    Delay int
    /* the amplitude last committed to the output buffer */
    LastAmp int
}

func (osc *Oscillator) Reset() {
    osc.Regs = [4]byte{}
    osc.RegWritten = [4]bool{}
    osc.LengthCounter = 0
    osc.Delay = 0
    osc.LastAmp = 0
}

func (osc *Oscillator) ClockLength(haltMask byte) {
    if osc.LengthCounter != 0 && osc.Regs[0] & haltMask == 0 {
        osc.LengthCounter -= 1
    }
}

/* the 11-bit timer period */
func (osc *Oscillator) PeriodValue() int {
    return int(osc.Regs[3] & 7) << 8 | int(osc.Regs[2])
}

/* returns the change from the last amplitude */
func (osc *Oscillator) updateAmp(amp int) int {
    delta := amp - osc.LastAmp
    osc.LastAmp = amp
    return delta
}

/* Oscillator with the nes volume envelope: a divider that counts the
 * volume down from 15, optionally looping.
 */
type Envelope struct {
    Oscillator
    Level int
    EnvelopeDelay int
}

func (envelope *Envelope) Reset() {
    envelope.Level = 0
    envelope.EnvelopeDelay = 0
    envelope.Oscillator.Reset()
}

func (envelope *Envelope) ClockEnvelope() {
    period := int(envelope.Regs[0] & 15)
    if envelope.RegWritten[3] {
        envelope.RegWritten[3] = false
        envelope.EnvelopeDelay = period
        envelope.Level = 15
    } else {
        envelope.EnvelopeDelay -= 1
        if envelope.EnvelopeDelay < 0 {
            envelope.EnvelopeDelay = period
            if envelope.Level != 0 || envelope.Regs[0] & 0x20 != 0 {
                envelope.Level = (envelope.Level - 1) & 15
            }
        }
    }
}

/* constant volume when bit 4 of register 0 is set, otherwise the envelope */
func (envelope *Envelope) Volume() int {
    if envelope.LengthCounter == 0 {
        return 0
    }
    if envelope.Regs[0] & 0x10 != 0 {
        return int(envelope.Regs[0] & 15)
    }
    return envelope.Level
}

const (
    pulseNegateFlag = 0x08
    pulseShiftMask = 0x07
    PulsePhaseRange = 8
)

type Pulse struct {
    Envelope
    Name string
    Phase int
    SweepDelay int
    /* shared between both pulse channels */
    Synth *blip.Synth
}

func (pulse *Pulse) Reset() {
    pulse.SweepDelay = 0
    pulse.ResetPhase()
    pulse.Envelope.Reset()
}

func (pulse *Pulse) ResetPhase() {
    pulse.Phase = PulsePhaseRange - 1
}

/* negativeAdjust is -1 for pulse 1 (ones complement) and 0 for pulse 2 */
func (pulse *Pulse) ClockSweep(negativeAdjust int) {
    sweep := pulse.Regs[1]

    pulse.SweepDelay -= 1
    if pulse.SweepDelay < 0 {
        pulse.RegWritten[1] = true

        period := pulse.PeriodValue()
        shift := sweep & pulseShiftMask
        if shift != 0 && sweep & 0x80 != 0 && period >= 8 {
            offset := period >> shift

            if sweep & pulseNegateFlag != 0 {
                offset = negativeAdjust - offset
            }

            if period + offset < 0x800 {
                period += offset
                pulse.Regs[2] = byte(period)
                pulse.Regs[3] = (pulse.Regs[3] &^ 7) | byte((period >> 8) & 7)
            }
        }
    }

    if pulse.RegWritten[1] {
        pulse.RegWritten[1] = false
        pulse.SweepDelay = int((sweep >> 4) & 7)
    }
}

func (pulse *Pulse) Run(time blip.BlipTime, endTime blip.BlipTime) {
    if pulse.Output == nil {
        return
    }

    volume := pulse.Volume()
    period := pulse.PeriodValue()
    offset := period >> (pulse.Regs[1] & pulseShiftMask)
    if pulse.Regs[1] & pulseNegateFlag != 0 {
        offset = 0
    }

    timerPeriod := (period + 1) * 2

    if volume == 0 || period < 8 || period + offset >= 0x800 {
        if pulse.LastAmp != 0 {
            pulse.Synth.Offset(time, -pulse.LastAmp, pulse.Output)
            pulse.LastAmp = 0
        }

        time += pulse.Delay
        if time < endTime {
            /* keep the phase moving while silent */
            count := (endTime - time + timerPeriod - 1) / timerPeriod
            pulse.Phase = (pulse.Phase + count) & (PulsePhaseRange - 1)
            time += count * timerPeriod
        }
    } else {
        /* duty 0-2 is 1/8, 2/8, 4/8. duty 3 is the negated 25% */
        dutySelect := (pulse.Regs[0] >> 6) & 3
        duty := 1 << dutySelect
        amp := 0
        if dutySelect == 3 {
            duty = 2
            amp = volume
        }
        if pulse.Phase < duty {
            amp ^= volume
        }

        delta := pulse.updateAmp(amp)
        if delta != 0 {
            pulse.Synth.Offset(time, delta, pulse.Output)
        }

        time += pulse.Delay
        if time < endTime {
            currentDelta := amp * 2 - volume
            for time < endTime {
                pulse.Phase = (pulse.Phase + 1) & (PulsePhaseRange - 1)
                if pulse.Phase == 0 || pulse.Phase == duty {
                    currentDelta = -currentDelta
                    pulse.Synth.Offset(time, currentDelta, pulse.Output)
                }
                time += timerPeriod
            }
            pulse.LastAmp = (currentDelta + volume) >> 1
        }
    }

    pulse.Delay = time - endTime
}

const TrianglePhaseRange = 16

type Triangle struct {
    Oscillator
    LinearCounter int
    Phase int
    Synth *blip.Synth
}

func (triangle *Triangle) Reset() {
    triangle.LinearCounter = 0
    triangle.ResetPhase()
    triangle.Oscillator.Reset()
}

func (triangle *Triangle) ResetPhase() {
    triangle.Phase = TrianglePhaseRange
}

/* 15..0 on the way down, 0..15 on the way up */
func (triangle *Triangle) calculateAmp() int {
    amp := TrianglePhaseRange - triangle.Phase
    if amp < 0 {
        amp = triangle.Phase - (TrianglePhaseRange + 1)
    }
    return amp
}

func (triangle *Triangle) Run(time blip.BlipTime, endTime blip.BlipTime) {
    if triangle.Output == nil {
        return
    }

    delta := triangle.updateAmp(triangle.calculateAmp())
    if delta != 0 {
        triangle.Synth.Offset(time, delta, triangle.Output)
    }

    time += triangle.Delay
    timerPeriod := triangle.PeriodValue() + 1

    /* the triangle holds its current level when halted. Ultrasonic periods are
     * also held to avoid a loud whine.
     */
    if triangle.LengthCounter == 0 || triangle.LinearCounter == 0 || timerPeriod < 3 {
        time = endTime
    } else if time < endTime {
        volume := 1
        if triangle.Phase > TrianglePhaseRange {
            triangle.Phase -= TrianglePhaseRange
            volume = -volume
        }

        for time < endTime {
            triangle.Phase -= 1
            if triangle.Phase == 0 {
                triangle.Phase = TrianglePhaseRange
                volume = -volume
            } else {
                triangle.Synth.Offset(time, volume, triangle.Output)
            }

            time += timerPeriod
        }

        if volume < 0 {
            triangle.Phase += TrianglePhaseRange
        }
        triangle.LastAmp = triangle.calculateAmp()
    }

    triangle.Delay = time - endTime
}

func (triangle *Triangle) ClockLinearCounter() {
    if triangle.RegWritten[3] {
        triangle.LinearCounter = int(triangle.Regs[0] & 0x7f)
    } else if triangle.LinearCounter != 0 {
        triangle.LinearCounter -= 1
    }

    /* the control flag keeps reloading the counter */
    if triangle.Regs[0] & 0x80 == 0 {
        triangle.RegWritten[3] = false
    }
}

var NoisePeriodTable = [16]int{
    0x004, 0x008, 0x010, 0x020, 0x040, 0x060, 0x080, 0x0A0,
    0x0CA, 0x0FE, 0x17C, 0x1FC, 0x2FA, 0x3F8, 0x7F2, 0xFE4,
}

const noiseModeFlag = 0x80

type Noise struct {
    Envelope
    /* 15-bit shift register */
    LFSR int
    Synth *blip.Synth
}

func (noise *Noise) Reset() {
    noise.ResetNoise()
    noise.Envelope.Reset()
}

func (noise *Noise) ResetNoise() {
    noise.LFSR = 1 << 14
}

func (noise *Noise) Run(time blip.BlipTime, endTime blip.BlipTime) {
    if noise.Output == nil {
        return
    }

    volume := noise.Volume()
    amp := 0
    if noise.LFSR & 1 != 0 {
        amp = volume
    }

    delta := noise.updateAmp(amp)
    if delta != 0 {
        noise.Synth.Offset(time, delta, noise.Output)
    }

    time += noise.Delay
    if time < endTime {
        period := NoisePeriodTable[noise.Regs[2] & 15]
        if volume == 0 {
            /* round up to the next multiple of the period */
            time += (endTime - time + period - 1) / period * period

            /* approximate the shifting that happened while muted */
            if noise.Regs[2] & noiseModeFlag == 0 {
                feedback := (noise.LFSR << 13) ^ (noise.LFSR << 14)
                noise.LFSR = (feedback & 0x4000) | (noise.LFSR >> 1)
            }
        } else {
            /* resampled time saves a multiply per transition */
            resampledPeriod := noise.Output.ResampledDuration(period)
            resampledTime := noise.Output.ResampledTime(time)

            currentDelta := amp * 2 - volume
            tap := 13
            if noise.Regs[2] & noiseModeFlag != 0 {
                tap = 8
            }

            for time < endTime {
                feedback := (noise.LFSR << tap) ^ (noise.LFSR << 14)
                time += period

                /* bits 0 and 1 differ */
                if (noise.LFSR + 1) & 2 != 0 {
                    currentDelta = -currentDelta
                    noise.Synth.OffsetResampled(resampledTime, currentDelta, noise.Output)
                }

                resampledTime += resampledPeriod
                noise.LFSR = (feedback & 0x4000) | (noise.LFSR >> 1)
            }

            noise.LastAmp = (currentDelta + volume) >> 1
        }
    }

    noise.Delay = time - endTime
}
