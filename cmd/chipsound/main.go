package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "strings"

    "github.com/kazzmir/chipsound/cmd/chipsound/common"
    "github.com/kazzmir/chipsound/cmd/chipsound/thread"
    "github.com/kazzmir/chipsound/lib/blip"
    "github.com/kazzmir/chipsound/lib/host"
    "github.com/kazzmir/chipsound/lib/ricoh2a03"
    "github.com/kazzmir/chipsound/lib/script"
    "github.com/kazzmir/chipsound/lib/sdsp"
    "github.com/kazzmir/chipsound/lib/sn76489"
    "github.com/kazzmir/chipsound/lib/turbografx16"
    "github.com/kazzmir/chipsound/lib/vrc6"
    "github.com/kazzmir/chipsound/lib/ym2413"
    "github.com/kazzmir/chipsound/util"

    "github.com/fatih/color"
    "github.com/pkg/profile"
)

type Arguments struct {
    Chip string
    Script string
    Wav string
    Mp3 string
    Play bool
    Monitor bool
    Seconds float64
    PAL bool
}

func setDebug(level int) {
    blip.Debug = level
    host.Debug = level
    script.Debug = level
    ricoh2a03.ApuDebug = level
    vrc6.Debug = level
    sn76489.Debug = level
    turbografx16.Debug = level
    sdsp.Debug = level
    ym2413.Debug = level
}

func Run(arguments Arguments, config common.ConfigData) error {
    options := config.Options(arguments.Chip)
    options.PAL = arguments.PAL

    instance, err := host.MakeInstance(arguments.Chip, options)
    if err != nil {
        return err
    }
    runner := script.MakeRunner(instance)
    sampleRate := instance.Timeline.SampleRate()

    group := thread.NewThreadGroup(context.Background())
    defer group.Wait()
    defer group.Cancel()

    group.SpawnWithCancel(func(quit context.Context, cancel context.CancelFunc) error {
        signals := make(chan os.Signal, 1)
        signal.Notify(signals, os.Interrupt)
        defer signal.Stop(signals)
        select {
            case <-signals:
                log.Printf("Interrupted")
                cancel()
            case <-quit.Done():
        }
        return nil
    })

    progress := MakeProgress(sampleRate, !arguments.Monitor)
    outputs := []Output{progress}

    if arguments.Wav != "" {
        wav, err := MakeWavOutput(arguments.Wav, sampleRate)
        if err != nil {
            return err
        }
        outputs = append(outputs, wav)
    }

    /* the encoder has to finish before the group is cancelled */
    encoders := group.SubGroup()
    if arguments.Mp3 != "" {
        mp3 := MakeMp3Output(encoders.Context())
        encoders.Spawn(func() error {
            err := util.EncodeMp3(arguments.Mp3, encoders.Context(), sampleRate, 2, mp3.audio)
            if err != nil {
                return fmt.Errorf("could not encode mp3: %w", err)
            }
            return nil
        })
        outputs = append(outputs, mp3)
    }

    var player *PlayOutput
    if arguments.Play {
        player, err = MakePlayOutput(group.Context(), sampleRate)
        if err != nil {
            return err
        }
        outputs = append(outputs, player)
    }

    var monitor *Monitor
    if arguments.Monitor {
        monitor = MakeMonitor()
        log.SetOutput(io.Discard)
        defer log.SetOutput(os.Stderr)
        group.SpawnWithCancel(monitor.Run)
    }

    limit := int(arguments.Seconds * float64(sampleRate))
    samples, renderErr := render(group.Context(), runner, arguments.Script, outputs, monitor, limit)

    var closeErr error
    for _, output := range outputs {
        closeErr = errors.Join(closeErr, output.Close())
    }

    if player != nil {
        select {
            case <-player.Finished():
            case <-group.Done():
        }
        player.Stop()
    }

    /* ends the subgroup once the encoder is done with the closed channel */
    encoderErr := encoders.Wait()

    seconds := float64(samples) / float64(sampleRate)
    err = errors.Join(renderErr, closeErr, encoderErr)
    if errors.Is(err, context.Canceled) {
        err = nil
    }
    fmt.Fprintln(os.Stderr, summary(instance.Name, seconds, runner.Writes, err))
    return err
}

func main(){
    log.SetFlags(log.Lshortfile | log.Lmicroseconds | log.Ldate)

    config, err := common.LoadConfigData()
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        log.Printf("Using the default config: %v", err)
    }

    var arguments Arguments
    var debug int
    var profileMode string
    var saveConfig bool
    var list bool
    var clock int

    flag.StringVar(&arguments.Chip, "chip", "nes", fmt.Sprintf("chip to run, one of %v", strings.Join(host.ChipNames(), ", ")))
    flag.StringVar(&arguments.Script, "script", "", "lua script of register writes, the chip's demo if empty")
    flag.StringVar(&arguments.Wav, "wav", "", "write a wav file")
    flag.StringVar(&arguments.Mp3, "mp3", "", "write an mp3 file with ffmpeg")
    flag.BoolVar(&arguments.Play, "play", false, "play through the speakers, the default when no file is written")
    flag.BoolVar(&arguments.Monitor, "monitor", false, "show the chip state in the terminal")
    flag.Float64Var(&arguments.Seconds, "seconds", 0, "stop after this many seconds, 0 runs the whole script")
    flag.BoolVar(&arguments.PAL, "pal", false, "use the pal nes clock")
    flag.IntVar(&debug, "debug", 0, "debug level")
    flag.StringVar(&profileMode, "profile", "", "write a cpu or mem profile")
    flag.BoolVar(&saveConfig, "save-config", false, "save the settings to the config file")
    flag.BoolVar(&list, "list", false, "list the chips")

    flag.IntVar(&config.SampleRate, "rate", config.SampleRate, "output sample rate")
    flag.IntVar(&config.BufferLength, "buffer", config.BufferLength, "buffer length in milliseconds")
    flag.IntVar(&config.BassFrequency, "bass", config.BassFrequency, "high pass frequency")
    flag.Float64Var(&config.Treble, "treble", config.Treble, "treble in db")
    flag.Float64Var(&config.Volume, "volume", config.Volume, "master volume")
    flag.IntVar(&clock, "clock", 0, "override the chip clock")

    flag.Parse()

    if list {
        for _, name := range host.ChipNames() {
            fmt.Printf("%v %v\n", color.New(color.FgCyan).Sprint(name), host.DefaultClock(name, false))
        }
        return
    }

    if clock > 0 {
        if config.Clocks == nil {
            config.Clocks = make(map[string]int)
        }
        config.Clocks[arguments.Chip] = clock
    }

    if saveConfig {
        err := common.SaveConfigData(config)
        if err != nil {
            log.Printf("Could not save config: %v", err)
        }
    }

    if arguments.Wav == "" && arguments.Mp3 == "" {
        arguments.Play = true
    }

    setDebug(debug)

    switch profileMode {
        case "":
        case "cpu":
            defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
        case "mem":
            defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
        default:
            log.Printf("Unknown profile mode '%v'", profileMode)
    }

    err = Run(arguments, config)
    if err != nil {
        log.Printf("Error: %v", err)
    }
}
