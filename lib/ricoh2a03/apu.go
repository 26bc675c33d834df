package ricoh2a03

/* Ricoh 2A03 sound: two pulse channels, a triangle and a noise channel driven
 * by a frame sequencer. The DMC channel is not emulated.
 *
 * Known inaccuracy: the pulse phase is not reset when the period changes.
 */

import (
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/blip"
)

var ApuDebug int = 0

const (
    OscCount = 4

    AddressStart = 0x4000
    AddressEnd = 0x4017

    FramePeriodNTSC = 7458
    /* not exact */
    FramePeriodPAL = 8314
)

const (
    Pulse1Channel = iota
    Pulse2Channel
    TriangleChannel
    NoiseChannel
)

var LengthTable = [0x20]byte{
    10, 254, 20,  2, 40,  4, 80,  6, 160,  8, 60, 10, 14, 12, 26, 14,
    12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

type APU struct {
    Pulse1 Pulse
    Pulse2 Pulse
    Triangle Triangle
    Noise Noise

    oscs [OscCount]*Oscillator

    /* time already rendered in the current frame */
    LastTime blip.BlipTime
    /* cycles until the frame sequencer runs again */
    FrameDelay int
    /* frame sequencer step, 0-3 */
    Frame int
    /* last value written to $4017 */
    FrameMode byte
    FramePeriod int
    /* last value written to $4015 */
    OscEnables byte

    squareSynth *blip.Synth
    triangleSynth *blip.Synth
    noiseSynth *blip.Synth
}

func MakeAPU() *APU {
    apu := &APU{
        squareSynth: blip.NewSynth(blip.QualityGood, 15),
        triangleSynth: blip.NewSynth(blip.QualityGood, 15),
        noiseSynth: blip.NewSynth(blip.QualityMedium, 15),
    }

    apu.Pulse1.Name = "pulse1"
    apu.Pulse2.Name = "pulse2"
    apu.Pulse1.Synth = apu.squareSynth
    apu.Pulse2.Synth = apu.squareSynth
    apu.Triangle.Synth = apu.triangleSynth
    apu.Noise.Synth = apu.noiseSynth

    apu.oscs = [OscCount]*Oscillator{
        &apu.Pulse1.Oscillator,
        &apu.Pulse2.Oscillator,
        &apu.Triangle.Oscillator,
        &apu.Noise.Oscillator,
    }

    apu.Output(nil)
    apu.Volume(1.0)
    apu.Reset(false)

    return apu
}

/* Assign one oscillator to a buffer, nil mutes it */
func (apu *APU) OscOutput(channel int, buffer *blip.Buffer) {
    if channel < 0 || channel >= OscCount {
        panic(fmt.Sprintf("ricoh2a03: channel %v out of bounds, there are %v oscillators", channel, OscCount))
    }
    apu.oscs[channel].Output = buffer
}

func (apu *APU) Output(buffer *blip.Buffer) {
    for channel := range OscCount {
        apu.OscOutput(channel, buffer)
    }
}

/* 1.0 is full volume, and may be overdriven */
func (apu *APU) Volume(level float64) {
    apu.squareSynth.Volume(0.1128 * level)
    apu.triangleSynth.Volume(0.12765 * level)
    apu.noiseSynth.Volume(0.0741 * level)
}

func (apu *APU) TrebleEq(eq blip.Equalizer) {
    apu.squareSynth.TrebleEq(eq)
    apu.triangleSynth.TrebleEq(eq)
    apu.noiseSynth.TrebleEq(eq)
}

/* reset the frame counter, registers and oscillators. pal selects the
 * longer PAL frame period.
 */
func (apu *APU) Reset(pal bool) {
    apu.FramePeriod = FramePeriodNTSC
    if pal {
        apu.FramePeriod = FramePeriodPAL
    }

    apu.Pulse1.Reset()
    apu.Pulse2.Reset()
    apu.Triangle.Reset()
    apu.Noise.Reset()

    apu.LastTime = 0
    apu.OscEnables = 0
    apu.FrameDelay = 1
    apu.WriteRegister(0, 0x4017, 0x00)
    apu.WriteRegister(0, 0x4015, 0x00)

    /* constant volume 0 for the pulses and noise, everything else zero */
    for address := AddressStart; address <= 0x4009; address++ {
        var value byte = 0x00
        if address & 3 == 0 {
            value = 0x10
        }
        apu.WriteRegister(0, address, value)
    }
}

/* The output buffer was cleared, so every oscillator is now at silence */
func (apu *APU) BufferCleared() {
    for _, osc := range apu.oscs {
        osc.LastAmp = 0
    }
}

func (apu *APU) ResetPhase(channel int) {
    switch channel {
        case Pulse1Channel: apu.Pulse1.ResetPhase()
        case Pulse2Channel: apu.Pulse2.ResetPhase()
        case TriangleChannel: apu.Triangle.ResetPhase()
        case NoiseChannel: apu.Noise.ResetNoise()
    }
}

/* run the oscillators until endTime, stopping at each frame sequencer event */
func (apu *APU) RunUntil(endTime blip.BlipTime) {
    if endTime < apu.LastTime {
        panic(fmt.Sprintf("ricoh2a03: run until %v is before last time %v", endTime, apu.LastTime))
    }

    if endTime == apu.LastTime {
        return
    }

    for {
        /* earlier of the next frame event or the end */
        time := apu.LastTime + apu.FrameDelay
        if time > endTime {
            time = endTime
        }
        apu.FrameDelay -= time - apu.LastTime

        apu.Pulse1.Run(apu.LastTime, time)
        apu.Pulse2.Run(apu.LastTime, time)
        apu.Triangle.Run(apu.LastTime, time)
        apu.Noise.Run(apu.LastTime, time)
        apu.LastTime = time

        if time == endTime {
            break
        }

        apu.clockFrame()
    }
}

func (apu *APU) clockFrame() {
    if ApuDebug > 1 {
        log.Printf("APU: frame %v at %v", apu.Frame, apu.LastTime)
    }

    apu.FrameDelay = apu.FramePeriod
    frame := apu.Frame
    apu.Frame += 1
    switch frame {
        case 0, 2:
            /* length counters and sweep on frames 0 and 2 */
            apu.Pulse1.ClockLength(0x20)
            apu.Pulse2.ClockLength(0x20)
            apu.Noise.ClockLength(0x20)
            /* the triangle halt flag is a different bit */
            apu.Triangle.ClockLength(0x80)

            apu.Pulse1.ClockSweep(-1)
            apu.Pulse2.ClockSweep(0)
        case 1:
            apu.FrameDelay -= 2
        case 3:
            apu.Frame = 0
            /* 5-step mode makes frame 3 almost twice as long */
            if apu.FrameMode & 0x80 != 0 {
                apu.FrameDelay += apu.FramePeriod - 6
            }
    }

    /* envelopes and the linear counter are clocked every frame */
    apu.Triangle.ClockLinearCounter()
    apu.Pulse1.ClockEnvelope()
    apu.Pulse2.ClockEnvelope()
    apu.Noise.ClockEnvelope()
}

/* Run until endTime then start a new frame at time 0 */
func (apu *APU) EndFrame(endTime blip.BlipTime) {
    if endTime > apu.LastTime {
        apu.RunUntil(endTime)
    }

    apu.LastTime -= endTime
    if apu.LastTime < 0 {
        panic(fmt.Sprintf("ricoh2a03: end frame %v left last time negative %v", endTime, apu.LastTime))
    }
}

/* Write $4000-$4017. Addresses outside the range are ignored. */
func (apu *APU) WriteRegister(time blip.BlipTime, address int, data byte) {
    if address < AddressStart || address > AddressEnd {
        return
    }

    apu.RunUntil(time)

    if ApuDebug > 0 {
        log.Printf("APU: write $%04x = 0x%02x at %v", address, data, time)
    }

    switch {
        case address < 0x4010:
            index := (address - AddressStart) >> 2
            osc := apu.oscs[index]

            register := address & 3
            osc.Regs[register] = data
            osc.RegWritten[register] = true

            /* the length counter only loads when the channel is enabled */
            if register == 3 && (apu.OscEnables >> index) & 1 != 0 {
                osc.LengthCounter = int(LengthTable[(data >> 3) & 0x1f])
            }
        case address == 0x4015:
            apu.WriteChannelEnable(data)
        case address == 0x4017:
            apu.WriteFrameCounter(data)
    }
}

func (apu *APU) WriteChannelEnable(value byte) {
    for i := range OscCount {
        if (value >> i) & 1 == 0 {
            apu.oscs[i].LengthCounter = 0
        }
    }
    apu.OscEnables = value
}

func (apu *APU) WriteFrameCounter(value byte) {
    apu.FrameMode = value

    /* 5-step mode starts at frame 0 immediately */
    apu.FrameDelay = apu.FrameDelay & 1
    apu.Frame = 0

    if value & 0x80 == 0 {
        apu.Frame = 1
        apu.FrameDelay += apu.FramePeriod
    }
}

func boolToByte(x bool) byte {
    if x {
        return 1
    }

    return 0
}

/* $4015 length counter status, one bit per channel */
func (apu *APU) ReadStatus(time blip.BlipTime) byte {
    apu.RunUntil(time)

    var noise byte = boolToByte(apu.Noise.LengthCounter > 0)
    var triangle byte = boolToByte(apu.Triangle.LengthCounter > 0)
    var pulse2 byte = boolToByte(apu.Pulse2.LengthCounter > 0)
    var pulse1 byte = boolToByte(apu.Pulse1.LengthCounter > 0)

    status := (noise << 3) | (triangle << 2) | (pulse2 << 1) | (pulse1 << 0)

    if ApuDebug > 0 {
        log.Printf("APU: read status %08b N=%v T=%v 2=%v 1=%v", status, noise, triangle, pulse2, pulse1)
    }

    return status
}

/* Set a constant volume directly, bypassing the register write path */
func (apu *APU) SetVolume(channel int, value byte) {
    osc := apu.oscs[channel]
    osc.Regs[0] = 0x10 | value
    osc.RegWritten[0] = true
}

func (apu *APU) SetSweep(channel int, value byte) {
    osc := apu.oscs[channel]
    osc.Regs[1] = value
    osc.RegWritten[1] = true
}

/* Set the 11-bit timer period and restart the length counter */
func (apu *APU) SetFrequency(channel int, value uint16) {
    osc := apu.oscs[channel]
    osc.Regs[2] = byte(value)
    osc.RegWritten[2] = true
    high := byte((value >> 8) & 7)
    osc.Regs[3] = high
    osc.RegWritten[3] = true
    osc.LengthCounter = int(LengthTable[(high >> 3) & 0x1f])
}

/* lengthIndex is the raw $400F value, bits 3-7 select the length */
func (apu *APU) SetNoisePeriod(period byte, shortMode bool, lengthIndex byte) {
    osc := &apu.Noise.Oscillator
    osc.Regs[2] = (period & 15) | (boolToByte(shortMode) << 7)
    osc.Regs[3] = lengthIndex
    osc.LengthCounter = int(LengthTable[(lengthIndex >> 3) & 0x1f])
}

/* short mode (tap 8) gives the metallic 93-step sequence */
func (apu *APU) SetNoiseMode(shortMode bool) {
    apu.Noise.Regs[2] = (apu.Noise.Regs[2] &^ noiseModeFlag) | (boolToByte(shortMode) << 7)
}
