package host

import (
    "errors"
    "fmt"
    "log"
    "slices"

    "github.com/kazzmir/chipsound/lib/blip"
    "github.com/kazzmir/chipsound/lib/sdsp"
)

var ErrUnknownChip = errors.New("host: unknown chip")

const (
    NESClock = 1789773
    PALClock = 1662607
    /* ntsc colorburst, shared by the sega, pc-engine and yamaha chips */
    ColorburstClock = 3579545
    /* the spc700 clock, 32 per dsp sample */
    SPCClock = sdsp.SampleRate * 32
)

var defaultClocks = map[string]int{
    "nes": NESClock,
    "vrc6": NESClock,
    "sn76489": ColorburstClock,
    "pcengine": ColorburstClock,
    "ym2413": ColorburstClock,
    "sdsp": SPCClock,
}

func ChipNames() []string {
    var names []string
    for name := range defaultClocks {
        names = append(names, name)
    }
    slices.Sort(names)
    return names
}

func DefaultClock(name string, pal bool) int {
    if name == "nes" && pal {
        return PALClock
    }
    return defaultClocks[name]
}

type Options struct {
    SampleRate int
    /* 0 selects the chip's usual clock */
    Clock int
    /* blip buffer length in milliseconds */
    BufferLength int
    BassFrequency int
    Treble float64
    Volume float64
    PAL bool
}

func DefaultOptions() Options {
    return Options{
        SampleRate: 44100,
        BassFrequency: blip.DefaultBassFreq,
        Treble: blip.DefaultTreble,
        Volume: 1,
    }
}

/* a chip ready to be driven by register writes */
type Instance struct {
    Name string
    Timeline Timeline
    Status func() []string
    Reset func()
    /* the s-dsp's shared ram, nil for other chips */
    RAM []byte
}

func (instance *Instance) Clock() int {
    return instance.Timeline.ClockRate()
}

func MakeInstance(name string, options Options) (*Instance, error) {
    if _, ok := defaultClocks[name]; !ok {
        return nil, fmt.Errorf("%w: %v", ErrUnknownChip, name)
    }

    clock := options.Clock
    if clock == 0 {
        clock = DefaultClock(name, options.PAL)
    }

    if Debug > 0 {
        log.Printf("host: making %v at %v hz clock %v", name, options.SampleRate, clock)
    }

    var blipChip BlipChip
    switch name {
        case "nes":
            blipChip = MakeNESChip(options.PAL)
        case "vrc6":
            blipChip = MakeVRC6Chip()
        case "sn76489":
            blipChip = MakeSegaChip()
        case "pcengine":
            blipChip = MakePCEngineChip()

        case "ym2413":
            chip := MakeYM2413Chip()
            err := chip.SetRate(float64(options.SampleRate), float64(clock))
            if err != nil {
                return nil, err
            }
            renderer := MakePCMRenderer(chip, options.SampleRate, clock)
            return &Instance{Name: name, Timeline: renderer, Status: chip.Status, Reset: chip.Reset}, nil

        case "sdsp":
            ram := make([]byte, sdsp.RAMSize)
            chip, err := MakeSDSPChip(ram)
            if err != nil {
                return nil, err
            }
            chip.SetGain(options.Volume)
            /* the dsp always runs at its own rate */
            renderer := MakePCMRenderer(chip, sdsp.SampleRate, clock)
            return &Instance{Name: name, Timeline: renderer, Status: chip.Status, Reset: chip.Reset, RAM: ram}, nil
    }

    blipChip.TrebleEq(blip.NewEqualizer(options.Treble))
    renderer, err := MakeRenderer(blipChip, options.SampleRate, clock, options.BufferLength)
    if err != nil {
        return nil, fmt.Errorf("could not make %v renderer: %w", name, err)
    }
    for _, buffer := range renderer.Buffers {
        buffer.BassFreq(options.BassFrequency)
    }
    renderer.Mixer.Volume = options.Volume

    return &Instance{Name: name, Timeline: renderer, Status: blipChip.Status, Reset: blipChip.Reset}, nil
}
