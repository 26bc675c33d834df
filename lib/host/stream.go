package host

import (
    "encoding/binary"
    "math"
    "sync"

    "github.com/kazzmir/chipsound/lib/pcm"
)

/* Stream reads a Source as little endian float32 stereo, the format the
 * audio player and ffmpeg consume.
 */
type Stream struct {
    source Source
    lock sync.Mutex
    samples []int16
}

func MakeStream(source Source) *Stream {
    return &Stream{source: source}
}

func (stream *Stream) Read(data []byte) (int, error) {
    stream.lock.Lock()
    defer stream.lock.Unlock()

    /* whole stereo frames only */
    frames := len(data) / 8
    if cap(stream.samples) < frames * 2 {
        stream.samples = make([]int16, frames * 2)
    }
    samples := stream.samples[:frames * 2]
    stream.source.Render(samples)

    for i, sample := range samples {
        binary.LittleEndian.PutUint32(data[i * 4:], math.Float32bits(pcm.Pcm16ToFloat(sample)))
    }

    return frames * 8, nil
}

/* Do runs f while the stream is not reading, used to write registers from another goroutine */
func (stream *Stream) Do(f func()) {
    stream.lock.Lock()
    defer stream.lock.Unlock()
    f()
}

func ToFloat32(samples []int16) []float32 {
    out := make([]float32, len(samples))
    for i, sample := range samples {
        out[i] = pcm.Pcm16ToFloat(sample)
    }
    return out
}
