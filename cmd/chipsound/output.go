package main

import (
    "context"
    "fmt"
    "io"
    "os"
    "sync"
    "time"

    "github.com/kazzmir/chipsound/lib/host"

    "github.com/go-audio/audio"
    "github.com/go-audio/wav"
    audiolib "github.com/hajimehoshi/ebiten/v2/audio"
)

/* receives interleaved stereo chunks from the render thread */
type Output interface {
    Consume(samples []int16) error
    Close() error
}

type WavOutput struct {
    file *os.File
    encoder *wav.Encoder
    buffer audio.IntBuffer
}

func MakeWavOutput(path string, sampleRate int) (*WavOutput, error) {
    file, err := os.Create(path)
    if err != nil {
        return nil, err
    }

    return &WavOutput{
        file: file,
        encoder: wav.NewEncoder(file, sampleRate, 16, 2, 1),
        buffer: audio.IntBuffer{
            Format: &audio.Format{
                NumChannels: 2,
                SampleRate: sampleRate,
            },
            SourceBitDepth: 16,
        },
    }, nil
}

func (output *WavOutput) Consume(samples []int16) error {
    output.buffer.Data = output.buffer.Data[:0]
    for _, sample := range samples {
        output.buffer.Data = append(output.buffer.Data, int(sample))
    }
    return output.encoder.Write(&output.buffer)
}

func (output *WavOutput) Close() error {
    err := output.encoder.Close()
    if err != nil {
        output.file.Close()
        return fmt.Errorf("could not finish wav: %w", err)
    }
    return output.file.Close()
}

/* sends float samples to the mp3 encoder thread */
type Mp3Output struct {
    quit context.Context
    audio chan []float32
}

func MakeMp3Output(quit context.Context) *Mp3Output {
    return &Mp3Output{
        quit: quit,
        audio: make(chan []float32, 16),
    }
}

func (output *Mp3Output) Consume(samples []int16) error {
    select {
        case output.audio <- host.ToFloat32(samples):
            return nil
        case <-output.quit.Done():
            return output.quit.Err()
    }
}

func (output *Mp3Output) Close() error {
    close(output.audio)
    return nil
}

/* A source for the audio player that is fed chunks by the render thread.
 * Sending blocks while the player is behind, which keeps rendering in real time.
 */
type ChannelSource struct {
    quit context.Context
    sampleRate int
    chunks chan []int16
    pending []int16
    finished chan struct{}
    finishOnce sync.Once
}

func MakeChannelSource(quit context.Context, sampleRate int) *ChannelSource {
    return &ChannelSource{
        quit: quit,
        sampleRate: sampleRate,
        chunks: make(chan []int16, 4),
        finished: make(chan struct{}),
    }
}

func (source *ChannelSource) SampleRate() int {
    return source.sampleRate
}

func (source *ChannelSource) Render(out []int16) {
    for len(out) > 0 {
        if len(source.pending) == 0 {
            chunk, ok := <-source.chunks
            if !ok {
                clear(out)
                source.finishOnce.Do(func(){
                    close(source.finished)
                })
                return
            }
            source.pending = chunk
        }
        count := copy(out, source.pending)
        source.pending = source.pending[count:]
        out = out[count:]
    }
}

func (source *ChannelSource) Consume(samples []int16) error {
    select {
        case source.chunks <- append([]int16(nil), samples...):
            return nil
        case <-source.quit.Done():
            return source.quit.Err()
    }
}

func (source *ChannelSource) Close() error {
    close(source.chunks)
    return nil
}

/* closed once the player has read everything */
func (source *ChannelSource) Finished() <-chan struct{} {
    return source.finished
}

type PlayOutput struct {
    *ChannelSource
    player *audiolib.Player
}

func MakePlayOutput(quit context.Context, sampleRate int) (*PlayOutput, error) {
    source := MakeChannelSource(quit, sampleRate)
    audioContext := audiolib.NewContext(sampleRate)
    player, err := audioContext.NewPlayerF32(io.Reader(host.MakeStream(source)))
    if err != nil {
        return nil, fmt.Errorf("could not create audio player: %w", err)
    }
    player.SetBufferSize(time.Millisecond * 50)
    player.Play()

    return &PlayOutput{ChannelSource: source, player: player}, nil
}

func (output *PlayOutput) Stop() {
    output.player.Pause()
}
