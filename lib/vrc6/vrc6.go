package vrc6

// https://www.nesdev.org/wiki/VRC6_audio

import (
    "errors"
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/blip"
)

var Debug int = 0

// memory addresses to control the VRC6 audio chip
const FrequencyControlAddress = 0x9003
const Pulse1Control = 0x9000
const Pulse1FrequencyLow = 0x9001
const Pulse1FrequencyHigh = 0x9002

const Pulse2Control = 0xA000
const Pulse2FrequencyLow = 0xA001
const Pulse2FrequencyHigh = 0xA002

const SawVolume = 0xB000
const SawFrequencyLow = 0xB001
const SawFrequencyHigh = 0xB002

const (
    OscCount = 3
    RegisterCount = 3

    Pulse1Channel = 0
    Pulse2Channel = 1
    SawChannel = 2

    /* bit 7 of the high period register enables the channel */
    PeriodHighEnabled = 0x80
)

const (
    registerVolume = 0
    registerPeriodLow = 1
    registerPeriodHigh = 2
)

var ErrChannelOutOfBounds = errors.New("vrc6: channel out of bounds")

type AddressSpaceError struct {
    Address int
    Low int
    High int
}

func (err *AddressSpaceError) Error() string {
    return fmt.Sprintf("vrc6: register %v is outside of [%v, %v)", err.Address, err.Low, err.High)
}

type Oscillator struct {
    Regs [RegisterCount]byte
    /* clocks until the next step */
    Delay int
    LastAmp int
    Phase int
    /* saw accumulator */
    Amp int
    Output *blip.Buffer
}

func (osc *Oscillator) Reset() {
    osc.Regs = [RegisterCount]byte{}
    osc.Delay = 0
    osc.LastAmp = 0
    osc.Phase = 1
    osc.Amp = 0
}

func (osc *Oscillator) ResetPhase() {
    osc.Phase = 1
}

func (osc *Oscillator) Enabled() bool {
    return osc.Regs[registerPeriodHigh] & PeriodHighEnabled != 0
}

/* 12-bit period, optionally sped up by the frequency control register */
func (osc *Oscillator) Period(shift uint) int {
    raw := int(osc.Regs[registerPeriodHigh] & 0x0f) << 8 | int(osc.Regs[registerPeriodLow])
    return (raw >> shift) + 1
}

type VRC6 struct {
    Oscs [OscCount]Oscillator
    LastTime blip.BlipTime

    /* $9003 */
    FrequencyControl byte

    sawSynth *blip.Synth
    squareSynth *blip.Synth
}

func MakeVRC6() *VRC6 {
    vrc6 := &VRC6{
        sawSynth: blip.NewSynth(blip.QualityMedium, 31),
        squareSynth: blip.NewSynth(blip.QualityGood, 15),
    }

    vrc6.Output(nil)
    vrc6.Volume(1.0)
    vrc6.Reset()

    return vrc6
}

func (vrc6 *VRC6) OscOutput(channel int, buffer *blip.Buffer) error {
    if channel < 0 || channel >= OscCount {
        return fmt.Errorf("%w: %v of %v", ErrChannelOutOfBounds, channel, OscCount)
    }
    vrc6.Oscs[channel].Output = buffer
    return nil
}

func (vrc6 *VRC6) Output(buffer *blip.Buffer) {
    for i := range vrc6.Oscs {
        vrc6.Oscs[i].Output = buffer
    }
}

func (vrc6 *VRC6) Volume(level float64) {
    level *= 0.0967 * 2
    vrc6.sawSynth.Volume(level)
    vrc6.squareSynth.Volume(level * 0.5)
}

func (vrc6 *VRC6) TrebleEq(eq blip.Equalizer) {
    vrc6.sawSynth.TrebleEq(eq)
    vrc6.squareSynth.TrebleEq(eq)
}

func (vrc6 *VRC6) Reset() {
    vrc6.LastTime = 0
    vrc6.FrequencyControl = 0
    for i := range vrc6.Oscs {
        vrc6.Oscs[i].Reset()
    }
}

func (vrc6 *VRC6) ResetPhase(channel int) {
    vrc6.Oscs[channel].ResetPhase()
}

func (vrc6 *VRC6) BufferCleared() {
    for i := range vrc6.Oscs {
        vrc6.Oscs[i].LastAmp = 0
    }
}

func (vrc6 *VRC6) halted() bool {
    return vrc6.FrequencyControl & 0x1 != 0
}

/* the x16 bit takes priority over x256 */
func (vrc6 *VRC6) periodShift() uint {
    switch {
        case vrc6.FrequencyControl & 0x2 != 0: return 4
        case vrc6.FrequencyControl & 0x4 != 0: return 8
    }
    return 0
}

func (vrc6 *VRC6) RunUntil(time blip.BlipTime) {
    if time < vrc6.LastTime {
        panic(fmt.Sprintf("vrc6: run until %v is before last time %v", time, vrc6.LastTime))
    }
    if time == vrc6.LastTime {
        return
    }

    if !vrc6.halted() {
        vrc6.runSquare(&vrc6.Oscs[Pulse1Channel], time)
        vrc6.runSquare(&vrc6.Oscs[Pulse2Channel], time)
        vrc6.runSaw(time)
    }

    vrc6.LastTime = time
}

func (vrc6 *VRC6) runSquare(osc *Oscillator, endTime blip.BlipTime) {
    if osc.Output == nil {
        return
    }

    volume := int(osc.Regs[registerVolume] & 15)
    if !osc.Enabled() {
        volume = 0
    }

    /* digitized mode holds the output at the volume level */
    gate := osc.Regs[registerVolume] & 0x80 != 0
    duty := int((osc.Regs[registerVolume] >> 4) & 7) + 1

    amp := 0
    if gate || osc.Phase < duty {
        amp = volume
    }

    time := vrc6.LastTime
    delta := amp - osc.LastAmp
    if delta != 0 {
        osc.LastAmp += delta
        vrc6.squareSynth.Offset(time, delta, osc.Output)
    }

    time += osc.Delay
    osc.Delay = 0
    period := osc.Period(vrc6.periodShift())
    if volume != 0 && !gate && period > 4 {
        if time < endTime {
            phase := osc.Phase
            for time < endTime {
                phase += 1
                if phase == 16 {
                    phase = 0
                    osc.LastAmp = volume
                    vrc6.squareSynth.Offset(time, volume, osc.Output)
                }
                if phase == duty {
                    osc.LastAmp = 0
                    vrc6.squareSynth.Offset(time, -volume, osc.Output)
                }
                time += period
            }
            osc.Phase = phase
        }
        osc.Delay = time - endTime
    }
}

func (vrc6 *VRC6) runSaw(endTime blip.BlipTime) {
    osc := &vrc6.Oscs[SawChannel]
    if osc.Output == nil {
        return
    }

    amp := osc.Amp
    ampStep := int(osc.Regs[registerVolume] & 0x3F)
    time := vrc6.LastTime
    lastAmp := osc.LastAmp

    if !osc.Enabled() || (ampStep | amp) == 0 {
        osc.Delay = 0
        delta := (amp >> 3) - lastAmp
        lastAmp = amp >> 3
        if delta != 0 {
            vrc6.sawSynth.Offset(time, delta, osc.Output)
        }
    } else {
        time += osc.Delay
        if time < endTime {
            period := osc.Period(vrc6.periodShift()) * 2
            phase := osc.Phase
            for time < endTime {
                /* the accumulator resets every 7th step */
                phase -= 1
                if phase == 0 {
                    phase = 7
                    amp = 0
                }

                delta := (amp >> 3) - lastAmp
                if delta != 0 {
                    lastAmp = amp >> 3
                    vrc6.sawSynth.Offset(time, delta, osc.Output)
                }

                time += period
                amp = (amp + ampStep) & 0xFF
            }
            osc.Phase = phase
            osc.Amp = amp
        }
        osc.Delay = time - endTime
    }

    osc.LastAmp = lastAmp
}

/* Write a register of one oscillator directly */
func (vrc6 *VRC6) WriteOsc(time blip.BlipTime, channel int, register int, data byte) error {
    if channel < 0 || channel >= OscCount {
        return fmt.Errorf("%w: %v of %v", ErrChannelOutOfBounds, channel, OscCount)
    }
    if register < 0 || register >= RegisterCount {
        return &AddressSpaceError{Address: register, Low: 0, High: RegisterCount}
    }

    vrc6.RunUntil(time)
    vrc6.Oscs[channel].Regs[register] = data
    return nil
}

/* Write one of $9000-$9003, $A000-$A002, $B000-$B002 */
func (vrc6 *VRC6) Write(time blip.BlipTime, address int, data byte) error {
    if Debug > 0 {
        switch address {
            case FrequencyControlAddress:
                log.Printf("vrc6 frequency control: %x halt=%v x16=%v x256=%v", data, data & 1, (data >> 1) & 1, (data >> 2) & 1)
            case Pulse1Control, Pulse2Control:
                log.Printf("vrc6 pulse control %x: volume=%v duty=%v mode=%v", address, data & 0xf, (data >> 4) & 0x7, data >> 7)
            case SawVolume:
                log.Printf("vrc6 saw volume: %x", data & 0x3f)
            default:
                log.Printf("vrc6 write %x = %x", address, data)
        }
    }

    if address == FrequencyControlAddress {
        vrc6.RunUntil(time)
        vrc6.FrequencyControl = data & 0x7
        return nil
    }

    channel := ((address >> 12) & 0b111) - 1
    register := address & 0xfff
    return vrc6.WriteOsc(time, channel, register, data)
}

/* Run the oscillators up to time and start a new frame at 0 */
func (vrc6 *VRC6) EndFrame(time blip.BlipTime) {
    vrc6.RunUntil(time)
    vrc6.LastTime -= time
}
