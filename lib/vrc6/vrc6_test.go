package vrc6

import (
    "errors"
    "testing"

    "github.com/kazzmir/chipsound/lib/blip"
)

func makeBuffer(test *testing.T) *blip.Buffer {
    buffer := blip.MakeBuffer()
    err := buffer.SetSampleRate(44100, 1789773, 0)
    if err != nil {
        test.Fatalf("could not set sample rate: %v", err)
    }
    return buffer
}

func countNonZero(buffer *blip.Buffer) int {
    out := make([]int16, buffer.SamplesAvail())
    count := buffer.ReadSamples(out, false)
    nonZero := 0
    for _, sample := range out[:count] {
        if sample != 0 {
            nonZero += 1
        }
    }
    return nonZero
}

func TestWriteErrors(test *testing.T){
    vrc6 := MakeVRC6()

    err := vrc6.Write(0, 0xC000, 0)
    if !errors.Is(err, ErrChannelOutOfBounds) {
        test.Fatalf("expected channel out of bounds but got %v", err)
    }

    err = vrc6.Write(0, 0x8000, 0)
    if !errors.Is(err, ErrChannelOutOfBounds) {
        test.Fatalf("expected channel out of bounds but got %v", err)
    }

    err = vrc6.Write(0, 0xA004, 0)
    var addressError *AddressSpaceError
    if !errors.As(err, &addressError) {
        test.Fatalf("expected an address space error but got %v", err)
    }
    if addressError.Address != 4 || addressError.High != RegisterCount {
        test.Fatalf("unexpected address error %v", addressError)
    }

    for _, address := range []int{Pulse1Control, Pulse1FrequencyLow, Pulse1FrequencyHigh, Pulse2Control, Pulse2FrequencyHigh, SawVolume, SawFrequencyHigh, FrequencyControlAddress} {
        err = vrc6.Write(0, address, 0x12)
        if err != nil {
            test.Fatalf("write to %x failed: %v", address, err)
        }
    }

    if vrc6.Oscs[SawChannel].Regs[0] != 0x12 {
        test.Fatalf("saw volume was not stored")
    }
}

func TestPulse(test *testing.T){
    vrc6 := MakeVRC6()
    buffer := makeBuffer(test)
    vrc6.Output(buffer)

    vrc6.Write(0, Pulse1Control, 0x7F)
    vrc6.Write(0, Pulse1FrequencyLow, 0x00)
    vrc6.Write(0, Pulse1FrequencyHigh, 0x81)

    if vrc6.Oscs[Pulse1Channel].Period(0) != 0x101 {
        test.Fatalf("period should be 0x101 but was %x", vrc6.Oscs[Pulse1Channel].Period(0))
    }

    vrc6.EndFrame(20000)
    buffer.EndFrame(20000)

    if countNonZero(buffer) == 0 {
        test.Fatalf("pulse produced no output")
    }
}

func TestDisabledIsSilent(test *testing.T){
    vrc6 := MakeVRC6()
    buffer := makeBuffer(test)
    vrc6.Output(buffer)

    vrc6.Write(0, Pulse1Control, 0x7F)
    vrc6.Write(0, Pulse1FrequencyLow, 0x00)
    vrc6.Write(0, Pulse1FrequencyHigh, 0x01)
    vrc6.Write(0, SawVolume, 0x20)
    vrc6.Write(0, SawFrequencyHigh, 0x01)

    vrc6.EndFrame(20000)
    buffer.EndFrame(20000)

    if countNonZero(buffer) != 0 {
        test.Fatalf("channels without the enable bit should be silent")
    }
}

func TestSawSteps(test *testing.T){
    vrc6 := MakeVRC6()
    buffer := makeBuffer(test)
    vrc6.OscOutput(SawChannel, buffer)

    vrc6.Write(0, SawVolume, 0x08)
    vrc6.Write(0, SawFrequencyLow, 0x00)
    vrc6.Write(0, SawFrequencyHigh, 0x81)

    period := vrc6.Oscs[SawChannel].Period(0) * 2
    vrc6.EndFrame(period * 7)

    /* after 7 steps the phase wraps and the last ramp value emitted was 6 * 0x08 */
    if vrc6.Oscs[SawChannel].Phase != 1 {
        test.Fatalf("saw phase should be 1 after 7 steps but was %v", vrc6.Oscs[SawChannel].Phase)
    }
    if vrc6.Oscs[SawChannel].LastAmp != (0x08 * 6) >> 3 {
        test.Fatalf("saw should have ramped to %v but was %v", (0x08 * 6) >> 3, vrc6.Oscs[SawChannel].LastAmp)
    }
}

func TestFrequencyControl(test *testing.T){
    vrc6 := MakeVRC6()
    buffer := makeBuffer(test)
    vrc6.Output(buffer)

    vrc6.Write(0, Pulse1Control, 0x3F)
    vrc6.Write(0, Pulse1FrequencyLow, 0x00)
    vrc6.Write(0, Pulse1FrequencyHigh, 0x81)
    vrc6.Write(0, FrequencyControlAddress, 0x01)

    phase := vrc6.Oscs[Pulse1Channel].Phase
    vrc6.EndFrame(10000)
    if vrc6.Oscs[Pulse1Channel].Phase != phase {
        test.Fatalf("halted oscillator should not move but phase went from %v to %v", phase, vrc6.Oscs[Pulse1Channel].Phase)
    }

    vrc6.Write(0, FrequencyControlAddress, 0x02)
    if vrc6.periodShift() != 4 {
        test.Fatalf("x16 should shift the period by 4")
    }
    if vrc6.Oscs[Pulse1Channel].Period(vrc6.periodShift()) != 0x11 {
        test.Fatalf("x16 period should be 0x11 but was %x", vrc6.Oscs[Pulse1Channel].Period(vrc6.periodShift()))
    }

    vrc6.Write(0, FrequencyControlAddress, 0x06)
    if vrc6.periodShift() != 4 {
        test.Fatalf("x16 should take priority over x256")
    }

    vrc6.Write(0, FrequencyControlAddress, 0x04)
    if vrc6.periodShift() != 8 {
        test.Fatalf("x256 should shift the period by 8")
    }
}

func TestResetIdempotent(test *testing.T){
    vrc6 := MakeVRC6()
    vrc6.Write(0, Pulse2Control, 0x55)
    vrc6.Write(100, SawFrequencyHigh, 0x8F)
    vrc6.EndFrame(200)

    vrc6.Reset()
    first := vrc6.Oscs
    vrc6.Reset()
    if vrc6.Oscs != first || vrc6.LastTime != 0 {
        test.Fatalf("second reset changed the state")
    }
}

func TestOutputBounds(test *testing.T){
    vrc6 := MakeVRC6()
    if !errors.Is(vrc6.OscOutput(3, nil), ErrChannelOutOfBounds) {
        test.Fatalf("channel 3 should be out of bounds")
    }
}
