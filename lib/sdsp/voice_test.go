package sdsp

import (
    "testing"

    "github.com/stretchr/testify/require"
)

func makeVoice(test *testing.T, samples []int16, loop bool) *Voice {
    ram := make([]byte, RAMSize)
    copy(ram[testSampleAddress:], EncodeBRR(samples, loop))
    WriteSourceDirectory(ram, testDirectoryPage, 5, SourceDirectoryEntry{Start: testSampleAddress, Loop: testSampleAddress})

    voice, err := NewVoice(ram)
    require.NoError(test, err)
    voice.SetWavePage(testDirectoryPage)
    voice.SetWaveIndex(5)
    voice.SetFrequency(32000)
    voice.SetVolumeLeft(0x7F)
    voice.SetVolumeRight(-0x40)
    return voice
}

func TestVoicePlays(test *testing.T){
    voice := makeVoice(test, squareWave(64, 8000), true)

    var outputs []StereoSample
    outputs = append(outputs, voice.Run(true, true, 0))
    for range 63 {
        outputs = append(outputs, voice.Run(false, true, 0))
    }

    for i := range keyOnDelay {
        require.Equal(test, StereoSample{}, outputs[i], "sample %v", i)
    }

    require.Equal(test, EnvelopeOn, voice.Stage())
    require.Equal(test, EnvelopeRange, voice.Level())

    nonZero := 0
    for _, sample := range outputs[keyOnDelay:] {
        if sample.Left != 0 {
            nonZero += 1
            /* the right side is at about half volume and inverted */
            require.True(test, (sample.Left > 0) != (sample.Right > 0), "left %v right %v", sample.Left, sample.Right)
        }
    }
    require.Greater(test, nonZero, 40)
}

func TestVoiceRelease(test *testing.T){
    voice := makeVoice(test, squareWave(64, 8000), true)
    voice.Run(true, true, 0)
    for range 30 {
        voice.Run(false, true, 0)
    }

    samples := 0
    for voice.Stage() != EnvelopeOff {
        voice.Run(false, false, 0)
        samples += 1
        require.Less(test, samples, 1000)
    }
    require.Equal(test, (EnvelopeRange + 7) / 8, samples)
    require.Equal(test, StereoSample{}, voice.Run(false, false, 0))
}

func TestVoiceEnds(test *testing.T){
    voice := makeVoice(test, squareWave(32, 8000), false)
    voice.Run(true, true, 0)
    for range 100 {
        voice.Run(false, true, 0)
    }

    require.Equal(test, EnvelopeOff, voice.Stage())
    require.Equal(test, StereoSample{}, voice.Run(false, true, 0))
}

func TestVoicePhaseModulation(test *testing.T){
    /* a full negative modulation stops the voice from advancing */
    voice := makeVoice(test, squareWave(64, 8000), true)
    voice.Run(true, true, 0)
    for range 100 {
        voice.Run(false, true, -32768)
    }
    require.Equal(test, EnvelopeOn, voice.Stage())
    require.Less(test, voice.fraction, 0x1000)
}

func TestVoiceReset(test *testing.T){
    voice := makeVoice(test, squareWave(64, 8000), true)
    voice.Run(true, true, 0)
    for range 20 {
        voice.Run(false, true, 0)
    }

    voice.Reset()
    first := *voice
    voice.Reset()
    require.Equal(test, first, *voice)
    require.Equal(test, EnvelopeOff, voice.Stage())
}
