package ricoh2a03

import (
    "testing"

    "github.com/kazzmir/chipsound/lib/blip"
)

const ntscClock = 1789773

func makeBuffer(test *testing.T) *blip.Buffer {
    buffer := blip.MakeBuffer()
    err := buffer.SetSampleRate(44100, ntscClock, 0)
    if err != nil {
        test.Fatalf("could not set sample rate: %v", err)
    }
    return buffer
}

type frameEvent struct {
    Time int
    Frame int
}

/* step one cycle at a time and record when the sequencer moves */
func collectFrameEvents(apu *APU, until int) []frameEvent {
    var events []frameEvent
    for time := 1; time <= until; time++ {
        before := apu.Frame
        delayBefore := apu.FrameDelay
        apu.RunUntil(time)
        if apu.Frame != before || apu.FrameDelay > delayBefore {
            events = append(events, frameEvent{Time: time, Frame: before})
        }
    }
    return events
}

func TestFourStepFraming(test *testing.T){
    apu := MakeAPU()

    events := collectFrameEvents(apu, FramePeriodNTSC * 4)
    if len(events) != 4 {
        test.Fatalf("expected 4 frame events in %v cycles but got %v", FramePeriodNTSC * 4, len(events))
    }

    apu = MakeAPU()
    events = collectFrameEvents(apu, FramePeriodNTSC * 12)
    for i := 1; i < len(events); i++ {
        interval := events[i].Time - events[i-1].Time
        expected := FramePeriodNTSC
        if events[i-1].Frame == 1 {
            expected = FramePeriodNTSC - 2
        }
        if interval != expected {
            test.Fatalf("interval after frame %v at %v was %v expected %v", events[i-1].Frame, events[i-1].Time, interval, expected)
        }
    }

    /* frames 0 through 3 are visited in order */
    for i := 1; i < len(events); i++ {
        if events[i].Frame != (events[i-1].Frame + 1) % 4 {
            test.Fatalf("frame %v followed frame %v", events[i].Frame, events[i-1].Frame)
        }
    }
}

func TestFiveStepFraming(test *testing.T){
    apu := MakeAPU()
    apu.WriteRegister(0, 0x4017, 0x80)

    if apu.Frame != 0 || apu.FrameDelay != 1 {
        test.Fatalf("5-step mode should start at frame 0 with delay 1, got frame %v delay %v", apu.Frame, apu.FrameDelay)
    }

    events := collectFrameEvents(apu, FramePeriodNTSC * 10)
    found := false
    for i := 1; i < len(events); i++ {
        if events[i-1].Frame == 3 {
            found = true
            interval := events[i].Time - events[i-1].Time
            if interval != FramePeriodNTSC * 2 - 6 {
                test.Fatalf("frame 3 in 5-step mode lasted %v cycles", interval)
            }
        }
    }
    if !found {
        test.Fatalf("no frame 3 event was seen")
    }
}

func TestPALFramePeriod(test *testing.T){
    apu := MakeAPU()
    apu.Reset(true)
    if apu.FramePeriod != FramePeriodPAL {
        test.Fatalf("pal frame period should be %v but was %v", FramePeriodPAL, apu.FramePeriod)
    }
    if apu.FrameDelay != FramePeriodPAL + 1 {
        test.Fatalf("first frame should come after %v cycles but was %v", FramePeriodPAL + 1, apu.FrameDelay)
    }
}

func TestSquareScenario(test *testing.T){
    apu := MakeAPU()
    buffer := makeBuffer(test)
    apu.Output(buffer)

    apu.WriteRegister(0, 0x4015, 0x01)
    apu.WriteRegister(0, 0x4000, 0xBF)
    apu.WriteRegister(0, 0x4002, 0xA9)
    apu.WriteRegister(0, 0x4003, 0x08)

    apu.EndFrame(FramePeriodNTSC * 4)
    buffer.EndFrame(FramePeriodNTSC * 4)

    if apu.OscEnables & 1 != 1 {
        test.Fatalf("pulse 1 should be enabled")
    }

    /* 0xBF sets the halt flag so the counter keeps its loaded value */
    if apu.Pulse1.LengthCounter != int(LengthTable[0x08 >> 3]) {
        test.Fatalf("length counter was %v expected %v", apu.Pulse1.LengthCounter, LengthTable[0x08 >> 3])
    }

    out := make([]int16, buffer.SamplesAvail())
    count := buffer.ReadSamples(out, false)
    if count == 0 {
        test.Fatalf("no samples were produced")
    }

    nonZero := 0
    for _, sample := range out[:count] {
        if sample != 0 {
            nonZero += 1
        }
    }
    if nonZero == 0 {
        test.Fatalf("pulse 1 produced silence")
    }
}

func TestLengthRequiresEnable(test *testing.T){
    apu := MakeAPU()
    apu.WriteRegister(0, 0x4003, 0x08)
    if apu.Pulse1.LengthCounter != 0 {
        test.Fatalf("length counter loaded while channel disabled: %v", apu.Pulse1.LengthCounter)
    }

    apu.WriteRegister(0, 0x4015, 0x0F)
    apu.WriteRegister(0, 0x4000, 0x00)
    apu.WriteRegister(0, 0x4003, 0x28)
    apu.WriteRegister(0, 0x400F, 0x08)
    if apu.ReadStatus(0) != 0x09 {
        test.Fatalf("status should be 0x09 but was %02x", apu.ReadStatus(0))
    }

    /* not halted, so two half frames take 2 off the length */
    apu.EndFrame(FramePeriodNTSC * 4)
    if apu.Pulse1.LengthCounter != int(LengthTable[5]) - 2 {
        test.Fatalf("length counter should have been clocked twice but is %v", apu.Pulse1.LengthCounter)
    }

    apu.WriteRegister(0, 0x4015, 0x00)
    if apu.ReadStatus(0) != 0 {
        test.Fatalf("disabling channels should clear length counters, status %02x", apu.ReadStatus(0))
    }
}

func TestIgnoresOutOfRange(test *testing.T){
    apu := MakeAPU()
    before := apu.Pulse1
    apu.WriteRegister(0, 0x3FFF, 0xFF)
    apu.WriteRegister(0, 0x4018, 0xFF)
    apu.WriteRegister(0, 0x0000, 0xFF)
    if apu.Pulse1 != before {
        test.Fatalf("writes outside $4000-$4017 should be ignored")
    }
}

func TestResetIdempotent(test *testing.T){
    apu := MakeAPU()
    buffer := makeBuffer(test)
    apu.Output(buffer)

    apu.WriteRegister(0, 0x4015, 0x0F)
    apu.WriteRegister(10, 0x4000, 0x9F)
    apu.WriteRegister(20, 0x4003, 0x20)
    apu.WriteRegister(30, 0x400B, 0x20)
    apu.EndFrame(5000)

    apu.Reset(false)
    pulse1, pulse2, triangle, noise := apu.Pulse1, apu.Pulse2, apu.Triangle, apu.Noise
    frame, delay, last, enables := apu.Frame, apu.FrameDelay, apu.LastTime, apu.OscEnables

    apu.Reset(false)
    if apu.Pulse1 != pulse1 || apu.Pulse2 != pulse2 || apu.Triangle != triangle || apu.Noise != noise {
        test.Fatalf("oscillator state differs after a second reset")
    }
    if apu.Frame != frame || apu.FrameDelay != delay || apu.LastTime != last || apu.OscEnables != enables {
        test.Fatalf("sequencer state differs after a second reset")
    }
}

func TestEndFrameRebase(test *testing.T){
    apu := MakeAPU()
    apu.RunUntil(1000)
    apu.EndFrame(600)
    if apu.LastTime != 400 {
        test.Fatalf("last time should be rebased to 400 but was %v", apu.LastTime)
    }

    defer func(){
        if recover() == nil {
            test.Fatalf("running backwards in time should panic")
        }
    }()
    apu.RunUntil(100)
}

func TestMonotonicSamples(test *testing.T){
    apu := MakeAPU()
    buffer := makeBuffer(test)
    apu.Output(buffer)

    apu.WriteRegister(0, 0x4015, 0x04)
    apu.WriteRegister(0, 0x4008, 0xFF)
    apu.WriteRegister(0, 0x400A, 0x40)
    apu.WriteRegister(0, 0x400B, 0x08)

    total := 0
    clocks := 0
    lastAvail := 0
    for frame := 1; frame <= 20; frame++ {
        length := 1000 + frame * 37
        apu.EndFrame(length)
        buffer.EndFrame(length)
        clocks += length

        if buffer.SamplesAvail() < lastAvail {
            test.Fatalf("available samples went down from %v to %v", lastAvail, buffer.SamplesAvail())
        }
        lastAvail = buffer.SamplesAvail()
    }

    out := make([]int16, lastAvail)
    total = buffer.ReadSamples(out, false)

    expected := clocks * buffer.SampleRate() / buffer.ClockRate()
    if total < expected - 1 || total > expected + 1 {
        test.Fatalf("expected about %v samples for %v clocks but got %v", expected, clocks, total)
    }
}

func TestSweep(test *testing.T){
    apu := MakeAPU()

    apu.Pulse1.Regs[1] = 0x89
    apu.Pulse1.Regs[2] = 0x00
    apu.Pulse1.Regs[3] = 0x01
    apu.Pulse1.ClockSweep(-1)
    if apu.Pulse1.PeriodValue() != 0x7F {
        test.Fatalf("pulse 1 negate should subtract one extra, period is %x", apu.Pulse1.PeriodValue())
    }

    apu.Pulse2.Regs[1] = 0x89
    apu.Pulse2.Regs[2] = 0x00
    apu.Pulse2.Regs[3] = 0x01
    apu.Pulse2.ClockSweep(0)
    if apu.Pulse2.PeriodValue() != 0x80 {
        test.Fatalf("pulse 2 negate should subtract exactly, period is %x", apu.Pulse2.PeriodValue())
    }

    /* an increase past 0x7ff leaves the period alone */
    apu.Pulse2.Regs[1] = 0x81
    apu.Pulse2.Regs[2] = 0x00
    apu.Pulse2.Regs[3] = 0x06
    apu.Pulse2.SweepDelay = 0
    apu.Pulse2.ClockSweep(0)
    if apu.Pulse2.PeriodValue() != 0x600 {
        test.Fatalf("sweep overflow should not change the period, got %x", apu.Pulse2.PeriodValue())
    }
}

func TestEnvelopeDecay(test *testing.T){
    var envelope Envelope
    envelope.LengthCounter = 10
    envelope.Regs[0] = 0x00
    envelope.RegWritten[3] = true

    envelope.ClockEnvelope()
    if envelope.Volume() != 15 {
        test.Fatalf("envelope should restart at 15 but is %v", envelope.Volume())
    }

    for i := 0; i < 20; i++ {
        envelope.ClockEnvelope()
    }
    if envelope.Volume() != 0 {
        test.Fatalf("non-looping envelope should stop at 0 but is %v", envelope.Volume())
    }

    /* loop flag wraps back to 15 */
    envelope.Regs[0] = 0x20
    envelope.ClockEnvelope()
    if envelope.Volume() != 15 {
        test.Fatalf("looping envelope should wrap to 15 but is %v", envelope.Volume())
    }

    envelope.Regs[0] = 0x17
    if envelope.Volume() != 7 {
        test.Fatalf("constant volume should be 7 but is %v", envelope.Volume())
    }
}

func TestNoiseLFSR(test *testing.T){
    apu := MakeAPU()
    buffer := makeBuffer(test)
    apu.Output(buffer)

    apu.WriteRegister(0, 0x4015, 0x08)
    apu.WriteRegister(0, 0x400C, 0x1F)
    apu.WriteRegister(0, 0x400E, 0x00)
    apu.WriteRegister(0, 0x400F, 0x08)

    apu.EndFrame(4 * 100)
    buffer.EndFrame(4 * 100)

    /* reference: 100 clocks of the 15-bit lfsr with the tap at bit 1 */
    lfsr := 1 << 14
    for i := 0; i < 100; i++ {
        feedback := (lfsr << 13) ^ (lfsr << 14)
        lfsr = (feedback & 0x4000) | (lfsr >> 1)
    }
    if apu.Noise.LFSR != lfsr {
        test.Fatalf("lfsr was %x expected %x", apu.Noise.LFSR, lfsr)
    }

    apu.ResetPhase(NoiseChannel)
    if apu.Noise.LFSR != 1 << 14 {
        test.Fatalf("reset should restore the lfsr seed")
    }
}

func TestBufferCleared(test *testing.T){
    apu := MakeAPU()
    buffer := makeBuffer(test)
    apu.Output(buffer)

    apu.WriteRegister(0, 0x4015, 0x01)
    apu.WriteRegister(0, 0x4000, 0xBF)
    apu.WriteRegister(0, 0x4002, 0xA9)
    apu.WriteRegister(0, 0x4003, 0x08)
    apu.EndFrame(3000)

    buffer.Clear(true)
    apu.BufferCleared()
    for i, osc := range apu.oscs {
        if osc.LastAmp != 0 {
            test.Fatalf("oscillator %v still has amplitude %v", i, osc.LastAmp)
        }
    }
}
