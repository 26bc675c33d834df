package sdsp

import (
    "testing"

    "github.com/stretchr/testify/require"
)

const (
    testDirectoryPage = 0x02
    testSampleAddress = 0x1000
)

func squareWave(length int, amplitude int16) []int16 {
    samples := make([]int16, length)
    for i := range samples {
        if (i / 16) % 2 == 0 {
            samples[i] = amplitude
        } else {
            samples[i] = -amplitude
        }
    }
    return samples
}

func writeAll(test *testing.T, dsp *DSP, writes [][2]int) {
    for _, write := range writes {
        require.NoError(test, dsp.Write(write[0], byte(write[1])))
    }
}

/* voice 0 set up to play the given samples at 32khz */
func makePlayingDSP(test *testing.T, samples []int16, loop bool) *DSP {
    ram := make([]byte, RAMSize)
    copy(ram[testSampleAddress:], EncodeBRR(samples, loop))
    WriteSourceDirectory(ram, testDirectoryPage, 0, SourceDirectoryEntry{Start: testSampleAddress, Loop: testSampleAddress})

    dsp, err := NewDSP(ram)
    require.NoError(test, err)

    adsr1, adsr2 := EncodeADSR(15, 0, 7, 0)
    writeAll(test, dsp, [][2]int{
        {FlagsRegister, FlagEchoWriteDisable},
        {SourceDirectoryRegister, testDirectoryPage},
        {MainVolumeLeftRegister, 0x7F},
        {MainVolumeRightRegister, 0x7F},
        {EchoPageRegister, 0xF0},
        {VoiceVolumeLeft, 0x7F},
        {VoiceVolumeRight, 0x7F},
        {VoicePitchLow, 0x00},
        {VoicePitchHigh, 0x10},
        {VoiceSource, 0},
        {VoiceADSR1, int(adsr1)},
        {VoiceADSR2, int(adsr2)},
    })

    return dsp
}

func TestNewDSPRequiresRAM(test *testing.T){
    _, err := NewDSP(make([]byte, 100))
    require.ErrorIs(test, err, ErrRAMSize)

    _, err = NewVoice(make([]byte, 100))
    require.ErrorIs(test, err, ErrRAMSize)
}

func TestReadWriteRoundTrip(test *testing.T){
    dsp, err := NewDSP(make([]byte, RAMSize))
    require.NoError(test, err)

    for address := range RegisterCount {
        value := byte(address * 7 + 3)
        require.NoError(test, dsp.Write(address, value))
        read, err := dsp.Read(address)
        require.NoError(test, err)
        require.Equal(test, value, read, "register %x", address)
    }

    var addressErr *AddressSpaceError
    _, err = dsp.Read(RegisterCount)
    require.ErrorAs(test, err, &addressErr)
    require.Equal(test, RegisterCount, addressErr.Address)
    require.Equal(test, RegisterCount, addressErr.High)

    err = dsp.Write(-1, 0)
    require.ErrorAs(test, err, &addressErr)
    require.Equal(test, -1, addressErr.Address)
}

func TestTypedAccessors(test *testing.T){
    dsp, err := NewDSP(make([]byte, RAMSize))
    require.NoError(test, err)

    writeAll(test, dsp, [][2]int{
        {0x22, 0x34},
        {0x23, 0xFF},
        {0x25, 0xDA},
        {0x26, 0xE5},
        {0x20, 0x80},
        {0x3F, 0x80},
        {FlagsRegister, 0x3F},
        {EchoDelayRegister, 0xFF},
        {EchoFeedbackRegister, 0xC0},
    })

    regs := dsp.Registers()
    voice := regs.Voice(2)
    require.Equal(test, 0x3F34, voice.Pitch())
    require.True(test, voice.ADSREnabled())
    require.Equal(test, byte(0x0A), voice.Attack())
    require.Equal(test, byte(5), voice.Decay())
    require.Equal(test, byte(7), voice.SustainLevel())
    require.Equal(test, byte(5), voice.SustainRate())
    require.Equal(test, int8(-128), voice.VolumeLeft())

    require.Equal(test, int8(-128), regs.FIR(3))
    require.Equal(test, -128, dsp.fir.coefficients[4])
    require.Equal(test, byte(0x1F), regs.NoisePeriod())
    require.True(test, regs.EchoWriteDisabled())
    require.False(test, regs.Muted())
    require.False(test, regs.ResetFlag())
    require.Equal(test, byte(0x0F), regs.EchoDelay())
    require.Equal(test, int8(-64), regs.EchoFeedback())
}

func TestSurround(test *testing.T){
    dsp, err := NewDSP(make([]byte, RAMSize))
    require.NoError(test, err)

    writeAll(test, dsp, [][2]int{{0x00, 0x80}, {0x01, 0x40}})
    require.Equal(test, [2]int{-128, 64}, dsp.voices[0].volume)

    dsp.DisableSurround(true)
    writeAll(test, dsp, [][2]int{{0x01, 0x40}})
    require.Equal(test, [2]int{128, 64}, dsp.voices[0].volume)

    writeAll(test, dsp, [][2]int{{0x10, 0x40}, {0x11, 0xC0}})
    require.Equal(test, [2]int{64, 64}, dsp.voices[1].volume)
}

func TestKeyOn(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{{EndXRegister, 0xFF}, {KeyOnRegister, 0x01}})

    out := make([]int16, 2 * 64)
    dsp.Run(64, out)

    regs := dsp.Registers()
    require.Equal(test, byte(0xFE), regs.EndX())
    require.Equal(test, byte(0), regs.KeyOn())

    /* nothing plays during the key on delay */
    for i := range keyOnDelay {
        require.Equal(test, int16(0), out[i * 2], "sample %v", i)
        require.Equal(test, int16(0), out[i * 2 + 1], "sample %v", i)
    }

    nonZero := 0
    for i := keyOnDelay; i < 64; i++ {
        if out[i * 2] != 0 {
            nonZero += 1
        }
        require.Equal(test, out[i * 2], out[i * 2 + 1])
    }
    require.Greater(test, nonZero, 40)
    require.Equal(test, byte(0x01), dsp.keys)
    require.Equal(test, byte(0x7F), regs.Voice(0).Envx())
}

func TestBRREndSilence(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(32, 8000), false)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}})

    out := make([]int16, 2 * 300)
    dsp.Run(300, out)

    regs := dsp.Registers()
    require.Equal(test, byte(0x01), regs.EndX() & 0x01)
    require.Equal(test, byte(0), dsp.keys)
    require.Equal(test, int8(0), regs.Voice(0).Outx())
    require.Equal(test, byte(0), regs.Voice(0).Envx())

    heard := false
    for i := range 100 {
        if out[i * 2] != 0 {
            heard = true
        }
    }
    require.True(test, heard)
    require.Equal(test, EnvelopeOff, dsp.voices[0].envelope.Stage)

    for i := 200; i < 300; i++ {
        require.Equal(test, int16(0), out[i * 2], "sample %v", i)
        require.Equal(test, int16(0), out[i * 2 + 1], "sample %v", i)
    }
}

func TestBRREndStopsEnvelope(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(32, 8000), false)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}})

    out := make([]int16, 2)
    samples := 0
    for dsp.keys & 1 != 0 {
        dsp.Run(1, out)
        samples += 1
        require.Less(test, samples, 1000)
    }

    /* the sample that ends the stream is already silent */
    require.Equal(test, int16(0), out[0], "sample %v", samples)
    require.Equal(test, int16(0), out[1], "sample %v", samples)
    require.Equal(test, EnvelopeOff, dsp.voices[0].envelope.Stage)
    require.Equal(test, 0, dsp.voices[0].envelope.Level)
    regs := dsp.Registers()
    require.Equal(test, byte(0x01), regs.EndX() & 0x01)

    dsp.Run(1, out)
    require.Equal(test, EnvelopeOff, dsp.voices[0].envelope.Stage)
    require.Equal(test, int16(0), out[0])
}

func TestLoopSetsEndX(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}})

    dsp.Run(200, nil)

    regs := dsp.Registers()
    require.Equal(test, byte(0x01), regs.EndX() & 0x01)
    require.Equal(test, byte(0x01), dsp.keys)
}

func TestKeyOffRelease(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    /* gain mode with a direct level of 0x7F0 */
    writeAll(test, dsp, [][2]int{{VoiceADSR1, 0}, {VoiceGain, 0x7F}, {KeyOnRegister, 0x01}})

    dsp.Run(20, nil)
    require.Equal(test, 0x7F0, dsp.voices[0].envelope.Level)

    writeAll(test, dsp, [][2]int{{KeyOffRegister, 0x01}})
    samples := 0
    for dsp.keys & 1 != 0 {
        dsp.Run(1, nil)
        samples += 1
        require.Less(test, samples, 1000)
    }

    require.Equal(test, (0x7F0 + 7) / 8, samples)
}

func TestResetFlag(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}})
    dsp.Run(20, nil)
    require.Equal(test, byte(0x01), dsp.keys)

    writeAll(test, dsp, [][2]int{{FlagsRegister, FlagReset}})
    out := make([]int16, 2 * 10)
    dsp.Run(10, out)

    regs := dsp.Registers()
    require.Equal(test, byte(0), dsp.keys)
    require.Equal(test, byte(0xE0), regs.Flags())
    for _, sample := range out {
        require.Equal(test, int16(0), sample)
    }
}

func TestResetIdempotent(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}, {NoiseEnableRegister, 0x02}})
    dsp.Run(100, nil)

    dsp.Reset()
    first := *dsp
    dsp.Reset()

    require.Equal(test, first.regs, dsp.regs)
    require.Equal(test, first.voices, dsp.voices)
    require.Equal(test, first.fir, dsp.fir)
    require.Equal(test, first.keys, dsp.keys)
    require.Equal(test, first.noise, dsp.noise)
    require.Equal(test, first.echoPointer, dsp.echoPointer)
    require.Equal(test, 1, dsp.noise)
}

func TestNoiseSequence(test *testing.T){
    dsp, err := NewDSP(make([]byte, RAMSize))
    require.NoError(test, err)
    dsp.regs[NoiseEnableRegister] = 0x01
    dsp.regs[FlagsRegister] = FlagNoisePeriod

    expected := []struct {
        amp int
        noise int
    }{
        {2, 0x4000},
        {-32768, 0x2000},
        {16384, 0x1000},
        {8192, 0x0800},
    }

    for i, step := range expected {
        dsp.clockNoise()
        require.Equal(test, step.amp, dsp.noiseAmp, "step %v", i)
        require.Equal(test, step.noise, dsp.noise, "step %v", i)
    }
}

func TestMuteVoices(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    dsp.MuteVoices(0x01)
    writeAll(test, dsp, [][2]int{{KeyOnRegister, 0x01}})

    out := make([]int16, 2 * 50)
    dsp.Run(50, out)
    for _, sample := range out {
        require.Equal(test, int16(0), sample)
    }

    /* the voice still runs */
    regs := dsp.Registers()
    require.NotEqual(test, byte(0), regs.Voice(0).Envx())
}

func TestMuteFlag(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{{FlagsRegister, FlagMute | FlagEchoWriteDisable}, {KeyOnRegister, 0x01}})

    out := make([]int16, 2 * 50)
    dsp.Run(50, out)
    for _, sample := range out {
        require.Equal(test, int16(0), sample)
    }
}

func TestGain(test *testing.T){
    full := makePlayingDSP(test, squareWave(64, 8000), true)
    half := makePlayingDSP(test, squareWave(64, 8000), true)
    half.SetGain(0.5)

    writeAll(test, full, [][2]int{{KeyOnRegister, 0x01}})
    writeAll(test, half, [][2]int{{KeyOnRegister, 0x01}})

    fullOut := make([]int16, 2 * 40)
    halfOut := make([]int16, 2 * 40)
    full.Run(40, fullOut)
    half.Run(40, halfOut)

    for i := range fullOut {
        require.InDelta(test, float64(fullOut[i]) / 2, float64(halfOut[i]), 1, "sample %v", i)
    }
}

func TestEchoBuffer(test *testing.T){
    dsp := makePlayingDSP(test, squareWave(64, 8000), true)
    writeAll(test, dsp, [][2]int{
        {FlagsRegister, 0},
        {EchoPageRegister, 0x80},
        {EchoDelayRegister, 1},
        {EchoEnableRegister, 0x01},
        {EchoVolumeLeftRegister, 0x7F},
        {EchoVolumeRightRegister, 0x7F},
        {VoiceFIR, 0x7F},
        {KeyOnRegister, 0x01},
    })

    dsp.Run(600, nil)
    require.Equal(test, (600 * 4) % DelayLevelBytes, dsp.echoPointer)

    written := 0
    for _, value := range dsp.RAM()[0x8000:0x8000 + DelayLevelBytes] {
        if value != 0 {
            written += 1
        }
    }
    require.Greater(test, written, 0)

    /* nothing outside the ring was touched */
    for _, value := range dsp.RAM()[0x8000 + DelayLevelBytes:0x9000] {
        require.Equal(test, byte(0), value)
    }
}

func TestPitchModulation(test *testing.T){
    dsp, err := NewDSP(make([]byte, RAMSize))
    require.NoError(test, err)

    out := make([]int16, 2)
    require.NotPanics(test, func(){
        writeAll(test, dsp, [][2]int{{PitchModulationRegister, 0xFF}, {FlagsRegister, 0}})
        dsp.Run(1, out)
    })

    require.Panics(test, func(){
        dsp.Run(2, out)
    })
}

func TestConvertPitch(test *testing.T){
    require.Equal(test, uint16(0x1000), ConvertPitch(32000))
    require.Equal(test, uint16(56), ConvertPitch(440))
    require.Equal(test, uint16(0), ConvertPitch(0))
    require.Equal(test, uint16(0x3FFF & 0x4000), ConvertPitch(128000))
}
