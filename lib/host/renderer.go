package host

import (
    "fmt"
    "log"

    "github.com/kazzmir/chipsound/lib/blip"
)

var Debug int = 0

/* Source produces interleaved stereo samples */
type Source interface {
    Render(out []int16)
    SampleRate() int
}

/* Timeline schedules register writes at a clock offset and advances the chip */
type Timeline interface {
    Source
    Write(address int, data byte) error
    /* run the given number of chip clocks, passing finished stereo pairs to sink */
    Advance(clocks int, sink func(left int16, right int16) error) error
    ClockRate() int
}

/* Renderer runs a blip chip one output sample at a time. Every sample ends a
 * frame of clockRate/sampleRate clocks in the chip and its buffers, then reads
 * one sample from each buffer.
 */
type Renderer struct {
    Chip BlipChip
    Buffers []*blip.Buffer
    Mixer Mixer

    sampleRate int
    clockRate int
    cyclesPerSample int
    /* clocks into the current sample */
    offset int
    samples []int16
}

func MakeRenderer(chip BlipChip, sampleRate int, clockRate int, lengthMs int) (*Renderer, error) {
    layout := chip.Layout()
    buffers := make([]*blip.Buffer, len(layout))
    for i := range buffers {
        buffers[i] = blip.MakeBuffer()
        err := buffers[i].SetSampleRate(sampleRate, clockRate, lengthMs)
        if err != nil {
            return nil, fmt.Errorf("could not create buffer %v: %w", i, err)
        }
    }

    chip.Connect(buffers)

    renderer := &Renderer{
        Chip: chip,
        Buffers: buffers,
        Mixer: MakeMixer(layout),
        sampleRate: sampleRate,
        clockRate: buffers[0].ClockRate(),
        cyclesPerSample: buffers[0].ClockRate() / sampleRate,
        samples: make([]int16, len(buffers)),
    }

    if Debug > 0 {
        log.Printf("host: renderer at %v hz, %v clocks per sample over %v buffers", sampleRate, renderer.cyclesPerSample, len(buffers))
    }

    return renderer, nil
}

func (renderer *Renderer) SampleRate() int {
    return renderer.sampleRate
}

/* the clock rate after rounding to a whole number of clocks per sample */
func (renderer *Renderer) ClockRate() int {
    return renderer.clockRate
}

func (renderer *Renderer) CyclesPerSample() int {
    return renderer.cyclesPerSample
}

/* End one sample worth of clocks and return one sample per buffer. The slice
 * is reused by the next call.
 */
func (renderer *Renderer) Step() []int16 {
    renderer.Chip.EndFrame(renderer.cyclesPerSample)
    for i, buffer := range renderer.Buffers {
        buffer.EndFrame(renderer.cyclesPerSample)
        renderer.samples[i] = buffer.ReadSample()
    }
    renderer.offset = 0
    return renderer.samples
}

func (renderer *Renderer) StepStereo() (int16, int16) {
    return renderer.Mixer.Mix(renderer.Step())
}

/* fill out with stereo pairs */
func (renderer *Renderer) Render(out []int16) {
    for i := 0; i + 1 < len(out); i += 2 {
        out[i], out[i + 1] = renderer.StepStereo()
    }
}

/* write a register at the current clock offset */
func (renderer *Renderer) Write(address int, data byte) error {
    return renderer.Chip.Write(renderer.offset, address, data)
}

func (renderer *Renderer) Advance(clocks int, sink func(int16, int16) error) error {
    for clocks > 0 {
        take := min(clocks, renderer.cyclesPerSample - renderer.offset)
        renderer.offset += take
        clocks -= take
        if renderer.offset == renderer.cyclesPerSample {
            left, right := renderer.StepStereo()
            err := sink(left, right)
            if err != nil {
                return err
            }
        }
    }
    return nil
}

/* Runs a chip that makes its own samples. Clocks passed to Advance are
 * converted to samples with the remainder carried to the next call.
 */
type PCMRenderer struct {
    Chip PCMChip
    sampleRate int
    clockRate int
    remainder int
    pair [2]int16
}

func MakePCMRenderer(chip PCMChip, sampleRate int, clockRate int) *PCMRenderer {
    return &PCMRenderer{
        Chip: chip,
        sampleRate: sampleRate,
        clockRate: clockRate,
    }
}

func (renderer *PCMRenderer) SampleRate() int {
    return renderer.sampleRate
}

func (renderer *PCMRenderer) ClockRate() int {
    return renderer.clockRate
}

func (renderer *PCMRenderer) Render(out []int16) {
    renderer.Chip.Run(len(out) / 2, out)
}

func (renderer *PCMRenderer) Write(address int, data byte) error {
    return renderer.Chip.Write(address, data)
}

func (renderer *PCMRenderer) Advance(clocks int, sink func(int16, int16) error) error {
    total := renderer.remainder + clocks * renderer.sampleRate
    samples := total / renderer.clockRate
    renderer.remainder = total % renderer.clockRate

    for range samples {
        renderer.Chip.Run(1, renderer.pair[:])
        err := sink(renderer.pair[0], renderer.pair[1])
        if err != nil {
            return err
        }
    }
    return nil
}
