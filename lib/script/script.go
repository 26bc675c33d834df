package script

/* Runs lua scripts that drive a chip with timed register writes.
 *
 *   write(chip, address, data)   write a register at the current time
 *   wait(clocks)                 advance the chip, producing samples
 *   ram(address, byte, ...)      store bytes in the chip's ram (s-dsp only)
 *   seconds(s)                   the number of clocks in s seconds
 *   log(...)                     print a message
 *
 * The globals chip, clock and samplerate describe the loaded chip.
 */

import (
    "context"
    "embed"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "github.com/kazzmir/chipsound/lib/host"

    lua "github.com/yuin/gopher-lua"
)

var Debug int = 0

/* returned by a sink to end the script early without an error */
var ErrStop = errors.New("script: stop")
var ErrWrongChip = errors.New("script: chip is not loaded")
var ErrNoRAM = errors.New("script: chip has no ram")
var ErrNoDemo = errors.New("script: no demo for chip")

//go:embed demos/*.lua
var demos embed.FS

type Sink func(left int16, right int16) error

type Runner struct {
    Instance *host.Instance
    /* total clocks waited */
    Clocks uint64
    /* total writes made */
    Writes int

    sink Sink
    failure error
}

func MakeRunner(instance *host.Instance) *Runner {
    return &Runner{
        Instance: instance,
    }
}

/* the lua source of the built-in demo for a chip */
func Demo(chip string) (string, error) {
    data, err := demos.ReadFile("demos/" + chip + ".lua")
    if err != nil {
        return "", fmt.Errorf("%w: %v", ErrNoDemo, chip)
    }
    return string(data), nil
}

func (runner *Runner) fail(state *lua.LState, err error) {
    runner.failure = err
    state.RaiseError("%v", err)
}

func (runner *Runner) write(state *lua.LState) int {
    name := state.CheckString(1)
    address := state.CheckInt(2)
    data := state.CheckInt(3)

    if name != runner.Instance.Name {
        runner.fail(state, fmt.Errorf("%w: %v", ErrWrongChip, name))
        return 0
    }

    if Debug > 0 {
        log.Printf("script: %v write $%04x = 0x%02x at %v", name, address, data, runner.Clocks)
    }

    err := runner.Instance.Timeline.Write(address, byte(data))
    if err != nil {
        runner.fail(state, err)
        return 0
    }
    runner.Writes += 1
    return 0
}

func (runner *Runner) wait(state *lua.LState) int {
    clocks := state.CheckInt(1)
    if clocks < 0 {
        state.ArgError(1, "clocks must not be negative")
        return 0
    }

    err := runner.Instance.Timeline.Advance(clocks, runner.sink)
    runner.Clocks += uint64(clocks)
    if err != nil {
        runner.fail(state, err)
    }
    return 0
}

func (runner *Runner) ram(state *lua.LState) int {
    memory := runner.Instance.RAM
    if memory == nil {
        runner.fail(state, fmt.Errorf("%w: %v", ErrNoRAM, runner.Instance.Name))
        return 0
    }

    address := state.CheckInt(1)
    for i := 2; i <= state.GetTop(); i++ {
        memory[(address + i - 2) % len(memory)] = byte(state.CheckInt(i))
    }
    return 0
}

func (runner *Runner) seconds(state *lua.LState) int {
    seconds := float64(state.CheckNumber(1))
    state.Push(lua.LNumber(int(seconds * float64(runner.Instance.Clock()))))
    return 1
}

func luaLog(state *lua.LState) int {
    var parts []string
    for i := 1; i <= state.GetTop(); i++ {
        parts = append(parts, state.Get(i).String())
    }
    log.Printf("script: %v", strings.Join(parts, " "))
    return 0
}

func (runner *Runner) setup(state *lua.LState) {
    state.SetGlobal("write", state.NewFunction(runner.write))
    state.SetGlobal("wait", state.NewFunction(runner.wait))
    state.SetGlobal("ram", state.NewFunction(runner.ram))
    state.SetGlobal("seconds", state.NewFunction(runner.seconds))
    state.SetGlobal("log", state.NewFunction(luaLog))

    state.SetGlobal("chip", lua.LString(runner.Instance.Name))
    state.SetGlobal("clock", lua.LNumber(runner.Instance.Clock()))
    state.SetGlobal("samplerate", lua.LNumber(runner.Instance.Timeline.SampleRate()))
}

/* Run the lua source, passing every finished sample to sink. The script
 * ends when it returns, when sink returns ErrStop or when quit is cancelled.
 */
func (runner *Runner) Run(quit context.Context, name string, source string, sink Sink) error {
    state := lua.NewState()
    defer state.Close()
    state.SetContext(quit)

    runner.sink = sink
    runner.failure = nil
    runner.setup(state)

    function, err := state.Load(strings.NewReader(source), name)
    if err != nil {
        return fmt.Errorf("could not load %v: %w", name, err)
    }

    state.Push(function)
    err = state.PCall(0, lua.MultRet, nil)

    if runner.failure != nil {
        if errors.Is(runner.failure, ErrStop) {
            return nil
        }
        return fmt.Errorf("%v: %w", name, runner.failure)
    }

    if quit.Err() != nil {
        return quit.Err()
    }

    if err != nil {
        return fmt.Errorf("%v: %w", name, err)
    }

    return nil
}

func (runner *Runner) RunFile(quit context.Context, path string, sink Sink) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return err
    }
    return runner.Run(quit, filepath.Base(path), string(data), sink)
}

func (runner *Runner) RunDemo(quit context.Context, sink Sink) error {
    source, err := Demo(runner.Instance.Name)
    if err != nil {
        return err
    }
    return runner.Run(quit, runner.Instance.Name + ".lua", source, sink)
}
