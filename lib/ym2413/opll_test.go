package ym2413

import (
    "testing"

    "github.com/stretchr/testify/require"
)

/* a plain sine: the modulator never attacks and the carrier holds at full level */
var sinePatch = [PatchBytes]byte{0x20, 0x21, 0x3F, 0x00, 0x00, 0xF0, 0x00, 0x0F}

func playSine(emulator *Emulator) {
    for i, value := range sinePatch {
        emulator.Write(UserPatchRegister + i, int(value))
    }
    emulator.Write(FrequencyLowRegister, 0x20)
    emulator.Write(InstrumentRegister, 0x00)
    /* key on, block 4, fnum 0x120 */
    emulator.Write(FrequencyHighRegister, 0x19)
}

func TestSetRate(test *testing.T){
    emulator := NewEmulator()
    require.ErrorIs(test, emulator.SetRate(0, DefaultClockRate), ErrInvalidRate)
    require.ErrorIs(test, emulator.SetRate(44100, -1), ErrInvalidRate)
    require.NoError(test, emulator.SetRate(48000, DefaultClockRate))
    require.InDelta(test, 49715.9, emulator.NativeRate(), 0.1)
}

func TestResetIsSilent(test *testing.T){
    emulator := NewEmulator()
    out := make([]int16, 200)
    emulator.Run(100, out)
    for i, sample := range out {
        require.Zero(test, sample, "sample %v", i)
    }
}

func TestRunOutputTooSmall(test *testing.T){
    emulator := NewEmulator()
    require.Panics(test, func(){
        emulator.Run(10, make([]int16, 19))
    })
}

func TestSineFrequency(test *testing.T){
    emulator := NewEmulator()
    require.NoError(test, emulator.SetRate(emulator.NativeRate(), DefaultClockRate))
    playSine(emulator)

    pairs := 49716
    out := make([]int16, pairs * 2)
    emulator.Run(pairs, out)

    crossings := 0
    peak := 0
    for i := 1; i < pairs; i++ {
        require.Equal(test, out[i * 2], out[i * 2 + 1])
        if out[(i - 1) * 2] < 0 && out[i * 2] >= 0 {
            crossings += 1
        }
        peak = max(peak, int(out[i * 2]))
    }

    /* fnum 0x120 at block 4 is about 437hz */
    require.InDelta(test, 437, crossings, 2)
    require.InDelta(test, 8168 / 2, peak, 40)

    require.Equal(test, EnvelopeSustain, emulator.Channel(0).Carrier.State)
    require.Equal(test, EnvelopeAttack, emulator.Channel(0).Modulator.State)
}

func TestKeyOffReleases(test *testing.T){
    emulator := NewEmulator()
    playSine(emulator)
    out := make([]int16, 400)
    emulator.Run(200, out)

    emulator.Write(FrequencyHighRegister, 0x09)
    emulator.Run(200, out)

    require.Equal(test, EnvelopeOff, emulator.Channel(0).Carrier.State)
    for i, sample := range out[200:] {
        require.Zero(test, sample, "sample %v", i)
    }
}

func TestMuteVoices(test *testing.T){
    emulator := NewEmulator()
    emulator.MuteVoices(1)
    playSine(emulator)
    out := make([]int16, 400)
    emulator.Run(200, out)
    for _, sample := range out {
        require.Zero(test, sample)
    }

    emulator.MuteVoices(0)
    emulator.Run(200, out)
    require.NotEqual(test, make([]int16, 400), out)
}

func TestUserPatch(test *testing.T){
    emulator := NewEmulator()
    for i, value := range sinePatch {
        emulator.Write(i, int(value))
    }
    patch := emulator.Patch(0)
    require.Equal(test, 63, patch.Modulator.TotalLevel)
    require.Equal(test, 15, patch.Carrier.Attack)
    require.Equal(test, 15, patch.Carrier.Release)
    require.True(test, patch.Carrier.Sustained)

    emulator.Reset()
    require.Equal(test, Patch{}, emulator.Patch(0))
}

func TestWritePort(test *testing.T){
    emulator := NewEmulator()
    emulator.WritePort(0, 0x30)
    emulator.WritePort(1, 0x15)
    require.Equal(test, byte(0x15), emulator.Register(0x30))
    require.Equal(test, 20, emulator.Channel(0).Carrier.TotalLevel)
    require.Equal(test, emulator.Patch(1).Modulator.TotalLevel, emulator.Channel(0).Modulator.TotalLevel)

    emulator.WritePort(2, 0x39)
    emulator.WritePort(3, 0xFF)
    require.Zero(test, emulator.Register(0x39))
    require.Zero(test, emulator.Register(0x40))
}

func setupBassDrum(emulator *Emulator) {
    emulator.Write(FrequencyLowRegister + 6, 0x20)
    emulator.Write(FrequencyHighRegister + 6, 0x05)
    emulator.Write(InstrumentRegister + 6, 0x00)
    emulator.Write(RhythmRegister, RhythmEnable | RhythmBassDrum)
}

func TestRhythmBassDrum(test *testing.T){
    emulator := NewEmulator()
    setupBassDrum(emulator)
    require.True(test, emulator.RhythmMode())

    out := make([]int16, 4000)
    emulator.Run(2000, out)
    loud := 0
    for _, sample := range out {
        if sample > 1000 || sample < -1000 {
            loud += 1
        }
    }
    require.Greater(test, loud, 0)

    emulator.Reset()
    emulator.MuteVoices(MaskBassDrum)
    setupBassDrum(emulator)
    emulator.Run(2000, out)
    for _, sample := range out {
        require.Zero(test, sample)
    }
}

func TestRhythmHighHat(test *testing.T){
    emulator := NewEmulator()
    emulator.Write(FrequencyLowRegister + 7, 0x50)
    emulator.Write(FrequencyHighRegister + 7, 0x0B)
    emulator.Write(FrequencyLowRegister + 8, 0x50)
    emulator.Write(FrequencyHighRegister + 8, 0x0B)
    emulator.Write(InstrumentRegister + 7, 0x00)
    emulator.Write(RhythmRegister, RhythmEnable | RhythmHighHat)

    require.Equal(test, EnvelopeAttack, emulator.Channel(7).Modulator.State)
    require.Equal(test, EnvelopeOff, emulator.Channel(7).Carrier.State)

    out := make([]int16, 2000)
    emulator.Run(1000, out)
    require.NotEqual(test, make([]int16, 2000), out)

    /* leaving rhythm mode releases the rhythm voices */
    emulator.Write(RhythmRegister, 0)
    require.Equal(test, EnvelopeRelease, emulator.Channel(7).Modulator.State)
}
