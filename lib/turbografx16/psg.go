package turbografx16

/* NEC PC-Engine (TurboGrafx-16) PSG: six 32-step wavetable channels with
 * per-channel stereo balance. Channels 5 and 6 can also generate noise.
 */

import (
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/blip"
)

var Debug int = 0

const (
    OscCount = 6
    AddressStart = 0x0800
    AddressEnd = 0x0809

    AmpRange = 0x8000

    /* channels from this index on have a noise generator */
    firstNoiseChannel = 4

    ControlEnable = 0x80
    ControlDDA = 0x40
)

const (
    ChannelSelect = 0x0800
    MainBalance = 0x0801
    FrequencyLow = 0x0802
    FrequencyHigh = 0x0803
    ChannelControl = 0x0804
    ChannelBalance = 0x0805
    WaveData = 0x0806
    NoiseControl = 0x0807
    LFOFrequency = 0x0808
    LFOControl = 0x0809
)

/* about 1.5db per step */
var balanceFactors = [32]float64{
    0.000000, 0.005524, 0.006570, 0.007813,
    0.009291, 0.011049, 0.013139, 0.015625,
    0.018581, 0.022097, 0.026278, 0.031250,
    0.037163, 0.044194, 0.052556, 0.062500,
    0.074325, 0.088388, 0.105112, 0.125000,
    0.148651, 0.176777, 0.210224, 0.250000,
    0.297302, 0.353553, 0.420448, 0.500000,
    0.594604, 0.707107, 0.840896, 1.000000,
}

var LogTable [32]int16 = makeLogTable()

func makeLogTable() [32]int16 {
    var table [32]int16
    for i, factor := range balanceFactors {
        table[i] = int16(factor * AmpRange / 31.0 + 0.5)
    }
    return table
}

type Oscillator struct {
    Wave [32]byte
    /* left and right level from LogTable */
    Volume [2]int
    LastAmp [2]int
    Delay int
    /* 12-bit wave period */
    Period int
    Noise byte
    Phase byte
    Balance byte
    Dac byte
    LastTime blip.BlipTime

    /* active outputs, either center only or left and right */
    Outputs [2]*blip.Buffer
    /* center, left, right */
    Chans [3]*blip.Buffer
    NoiseLFSR uint
    Control byte
}

/* reset everything except the buffer assignments */
func (osc *Oscillator) Reset() {
    osc.Wave = [32]byte{}
    osc.Volume = [2]int{}
    osc.LastAmp = [2]int{}
    osc.Delay = 0
    osc.Period = 0
    osc.Noise = 0
    osc.Phase = 0
    osc.Dac = 0
    osc.LastTime = 0
    osc.NoiseLFSR = 1
    osc.Control = 0x40
    osc.Balance = 0xFF
}

/* This polynomial is known to be inaccurate, the hardware sequence is
 * unknown. It is kept as is so output stays stable.
 */
func nextNoise(lfsr uint) uint {
    return (lfsr >> 1) ^ (0xE008 & -(lfsr & 1))
}

func (osc *Oscillator) offsetBoth(synth *blip.Synth, time blip.BlipTime, delta int, volume0 int, volume1 int) {
    synth.Offset(time, delta * volume0, osc.Outputs[0])
    if osc.Outputs[1] != nil {
        synth.Offset(time, delta * volume1, osc.Outputs[1])
    }
}

func (osc *Oscillator) RunUntil(synth *blip.Synth, endTime blip.BlipTime) {
    output0 := osc.Outputs[0]
    if output0 != nil && osc.Control & ControlEnable != 0 {
        dac := int(osc.Dac)

        volume0 := osc.Volume[0]
        delta := dac * volume0 - osc.LastAmp[0]
        if delta != 0 {
            synth.Offset(osc.LastTime, delta, output0)
        }

        output1 := osc.Outputs[1]
        volume1 := osc.Volume[1]
        if output1 != nil {
            delta := dac * volume1 - osc.LastAmp[1]
            if delta != 0 {
                synth.Offset(osc.LastTime, delta, output1)
            }
        }

        time := osc.LastTime + osc.Delay
        if time < endTime {
            if osc.Noise & 0x80 != 0 {
                if volume0 | volume1 != 0 {
                    period := (32 - int(osc.Noise & 0x1F)) * 64
                    lfsr := osc.NoiseLFSR
                    for time < endTime {
                        newDac := 0
                        if (lfsr >> 1) & 1 != 0 {
                            newDac = 0x1F
                        }
                        lfsr = nextNoise(lfsr)

                        delta := newDac - dac
                        if delta != 0 {
                            dac = newDac
                            osc.offsetBoth(synth, time, delta, volume0, volume1)
                        }
                        time += period
                    }

                    osc.NoiseLFSR = lfsr
                }
            } else if osc.Control & ControlDDA == 0 {
                /* pre-advance the phase */
                phase := (int(osc.Phase) + 1) & 0x1F
                period := osc.Period * 2
                if period >= 14 && volume0 | volume1 != 0 {
                    for time < endTime {
                        newDac := int(osc.Wave[phase])
                        phase = (phase + 1) & 0x1F
                        delta := newDac - dac
                        if delta != 0 {
                            dac = newDac
                            osc.offsetBoth(synth, time, delta, volume0, volume1)
                        }
                        time += period
                    }
                } else {
                    if period == 0 {
                        period = 1
                    }

                    /* keep the phase moving while silent */
                    count := (endTime - time + period - 1) / period
                    phase += count
                    time += count * period
                }
                osc.Phase = byte((phase - 1) & 0x1F)
            }
        }

        time -= endTime
        if time < 0 {
            time = 0
        }
        osc.Delay = time

        osc.Dac = byte(dac)
        osc.LastAmp[0] = dac * volume0
        osc.LastAmp[1] = dac * volume1
    }

    osc.LastTime = endTime
}

type PSG struct {
    Oscs [OscCount]Oscillator
    /* selected channel for $0802-$0807 */
    Latch byte
    Balance byte
    LFOFrequency byte
    LFOControl byte

    synth *blip.Synth
}

func MakePSG() *PSG {
    psg := &PSG{
        synth: blip.NewSynth(blip.QualityMedium, 1),
    }
    psg.Volume(1.0)
    psg.Reset()
    return psg
}

func (psg *PSG) Volume(level float64) {
    psg.synth.Volume(1.8 / OscCount / AmpRange * level)
}

func (psg *PSG) TrebleEq(eq blip.Equalizer) {
    psg.synth.TrebleEq(eq)
}

func (psg *PSG) Reset() {
    psg.Latch = 0
    psg.Balance = 0xFF
    psg.LFOFrequency = 0
    psg.LFOControl = 0
    for i := range psg.Oscs {
        psg.Oscs[i].Reset()
    }
}

func (psg *PSG) BufferCleared() {
    for i := range psg.Oscs {
        psg.Oscs[i].LastAmp = [2]int{}
    }
}

/* Assign center, left and right buffers to one oscillator, nil mutes */
func (psg *PSG) OscOutput(index int, center *blip.Buffer, left *blip.Buffer, right *blip.Buffer) {
    if index < 0 || index >= OscCount {
        panic(fmt.Sprintf("turbografx16: oscillator %v out of bounds", index))
    }

    osc := &psg.Oscs[index]
    osc.Chans = [3]*blip.Buffer{center, left, right}
    psg.balanceChanged(osc)
}

func (psg *PSG) Output(center *blip.Buffer, left *blip.Buffer, right *blip.Buffer) {
    for i := range OscCount {
        psg.OscOutput(i, center, left, right)
    }
}

func (psg *PSG) balanceChanged(osc *Oscillator) {
    volume := int(osc.Control & 0x1F) - 0x1E * 2

    left := volume + int(osc.Balance >> 3 & 0x1E) + int(psg.Balance >> 3 & 0x1E)
    if left < 0 {
        left = 0
    }

    right := volume + int(osc.Balance << 1 & 0x1E) + int(psg.Balance << 1 & 0x1E)
    if right < 0 {
        right = 0
    }

    leftLevel := int(LogTable[left])
    rightLevel := int(LogTable[right])

    /* centered is the common case and only needs one buffer */
    osc.Outputs[0] = osc.Chans[0]
    osc.Outputs[1] = nil
    if leftLevel != rightLevel {
        osc.Outputs[0] = osc.Chans[1]
        osc.Outputs[1] = osc.Chans[2]
    }

    /* keep waves centered around the middle of the 5-bit range */
    osc.LastAmp[0] += (leftLevel - osc.Volume[0]) * 16
    osc.LastAmp[1] += (rightLevel - osc.Volume[1]) * 16

    osc.Volume[0] = leftLevel
    osc.Volume[1] = rightLevel
}

/* Write one of $0800-$0809. Other addresses are ignored. */
func (psg *PSG) Write(time blip.BlipTime, address int, data byte) {
    if Debug > 0 {
        log.Printf("turbografx16: write $%04x = %02x latch %v at %v", address, data, psg.Latch, time)
    }

    switch address {
        case ChannelSelect:
            psg.Latch = data & 7
            return
        case MainBalance:
            if psg.Balance != data {
                psg.Balance = data
                for i := range psg.Oscs {
                    psg.Oscs[i].RunUntil(psg.synth, time)
                    psg.balanceChanged(&psg.Oscs[i])
                }
            }
            return
        case LFOFrequency:
            psg.LFOFrequency = data
            return
        case LFOControl:
            /* the lfo is not emulated */
            psg.LFOControl = data
            if Debug > 0 && data & 0x80 == 0 && data & 0x03 != 0 {
                log.Printf("turbografx16: lfo is not supported")
            }
            return
    }

    if address < AddressStart || address > AddressEnd || int(psg.Latch) >= OscCount {
        return
    }

    osc := &psg.Oscs[psg.Latch]
    osc.RunUntil(psg.synth, time)

    switch address {
        case FrequencyLow:
            osc.Period = (osc.Period & 0xF00) | int(data)
        case FrequencyHigh:
            osc.Period = (osc.Period & 0x0FF) | (int(data & 0x0F) << 8)
        case ChannelControl:
            /* clearing the dda bit resets the wave write position */
            if osc.Control & ControlDDA & ^data != 0 {
                osc.Phase = 0
            }
            osc.Control = data
            psg.balanceChanged(osc)
        case ChannelBalance:
            osc.Balance = data
            psg.balanceChanged(osc)
        case WaveData:
            data &= 0x1F
            if osc.Control & ControlDDA == 0 {
                osc.Wave[osc.Phase] = data
                osc.Phase = (osc.Phase + 1) & 0x1F
            } else if osc.Control & ControlEnable != 0 {
                osc.Dac = data
            }
        case NoiseControl:
            if psg.Latch >= firstNoiseChannel {
                osc.Noise = data
            }
    }
}

func (psg *PSG) EndFrame(endTime blip.BlipTime) {
    for i := range psg.Oscs {
        osc := &psg.Oscs[i]
        if endTime > osc.LastTime {
            osc.RunUntil(psg.synth, endTime)
        }
        osc.LastTime -= endTime
    }
}
