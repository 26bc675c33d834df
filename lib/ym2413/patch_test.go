package ym2413

import (
    "testing"

    "github.com/stretchr/testify/require"
)

func TestDecodeViolin(test *testing.T){
    patch := DecodePatch(patchROM[1])

    require.Equal(test, OperatorPatch{
        PM: true,
        Sustained: true,
        Multiplier: 1,
        TotalLevel: 30,
        Attack: 15,
    }, patch.Modulator)

    require.Equal(test, OperatorPatch{
        PM: true,
        Sustained: true,
        Multiplier: 1,
        HalfSine: true,
        Attack: 7,
        Decay: 15,
        SustainLevel: 1,
        Release: 7,
    }, patch.Carrier)

    require.Equal(test, 7, patch.Feedback)
}

func TestEncodeROM(test *testing.T){
    for i, data := range patchROM {
        patch := DecodePatch(data)
        require.Equal(test, data, patch.Encode(), "patch %v", i)
    }
}

func TestRhythmPatches(test *testing.T){
    emulator := NewEmulator()
    emulator.Write(RhythmRegister, RhythmEnable)
    for i := 6; i < MelodicChannels; i++ {
        require.Same(test, &emulator.patches[BassDrumPatch + i - 6], emulator.Channel(i).patch)
    }
    emulator.Write(RhythmRegister, 0)
    require.Same(test, &emulator.patches[0], emulator.Channel(6).patch)
}
