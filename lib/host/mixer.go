package host

import (
    "github.com/kazzmir/chipsound/lib/pcm"
)

type MixerChannel struct {
    Gain float64
    /* -1 is hard left, 1 is hard right */
    Pan float64
}

/* sums one sample from each buffer into a stereo pair */
type Mixer struct {
    Channels []MixerChannel
    Volume float64
}

func MakeMixer(channels []MixerChannel) Mixer {
    return Mixer{
        Channels: append([]MixerChannel(nil), channels...),
        Volume: 1,
    }
}

func (channel MixerChannel) weights() (float64, float64) {
    left := min(1, 1 - channel.Pan)
    right := min(1, 1 + channel.Pan)
    return channel.Gain * max(0, left), channel.Gain * max(0, right)
}

func (mixer *Mixer) Mix(samples []int16) (int16, int16) {
    var left, right float64
    for i, sample := range samples {
        if i >= len(mixer.Channels) {
            break
        }
        leftWeight, rightWeight := mixer.Channels[i].weights()
        left += float64(sample) * leftWeight
        right += float64(sample) * rightWeight
    }
    return int16(pcm.Clamp16(int(left * mixer.Volume))), int16(pcm.Clamp16(int(right * mixer.Volume)))
}
