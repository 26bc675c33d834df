package script

import (
    "context"
    "errors"
    "testing"

    "github.com/kazzmir/chipsound/lib/host"
)

func makeRunner(test *testing.T, chip string) *Runner {
    instance, err := host.MakeInstance(chip, host.DefaultOptions())
    if err != nil {
        test.Fatalf("could not make %v: %v", chip, err)
    }
    return MakeRunner(instance)
}

func TestDemos(test *testing.T){
    for _, chip := range host.ChipNames() {
        runner := makeRunner(test, chip)

        samples := 0
        nonZero := 0
        err := runner.RunDemo(context.Background(), func(left int16, right int16) error {
            samples += 1
            if left != 0 || right != 0 {
                nonZero += 1
            }
            return nil
        })
        if err != nil {
            test.Fatalf("%v demo failed: %v", chip, err)
        }

        if runner.Writes == 0 {
            test.Fatalf("%v demo made no writes", chip)
        }

        expected := int(runner.Clocks * uint64(runner.Instance.Timeline.SampleRate()) / uint64(runner.Instance.Clock()))
        if samples < expected - 1 || samples > expected + 1 {
            test.Fatalf("%v demo waited %v clocks which should give %v samples but gave %v", chip, runner.Clocks, expected, samples)
        }

        if nonZero < samples / 4 {
            test.Fatalf("%v demo was mostly silent, %v of %v samples", chip, nonZero, samples)
        }
    }
}

func TestNoDemo(test *testing.T){
    _, err := Demo("sid")
    if !errors.Is(err, ErrNoDemo) {
        test.Fatalf("expected no demo error but got %v", err)
    }
}

func ignore(left int16, right int16) error {
    return nil
}

func TestWrongChip(test *testing.T){
    runner := makeRunner(test, "sn76489")
    err := runner.Run(context.Background(), "test", `write("nes", 0x4015, 0)`, ignore)
    if !errors.Is(err, ErrWrongChip) {
        test.Fatalf("expected wrong chip error but got %v", err)
    }
}

func TestInvalidAddress(test *testing.T){
    runner := makeRunner(test, "nes")
    err := runner.Run(context.Background(), "test", `write(chip, 0x5000, 0)`, ignore)
    if !errors.Is(err, host.ErrInvalidAddress) {
        test.Fatalf("expected invalid address error but got %v", err)
    }
}

func TestStop(test *testing.T){
    runner := makeRunner(test, "nes")

    count := 0
    err := runner.Run(context.Background(), "test", `
        write(chip, 0x4015, 1)
        while true do
            wait(1000)
        end`, func(left int16, right int16) error {
            count += 1
            if count == 100 {
                return ErrStop
            }
            return nil
        })

    if err != nil {
        test.Fatalf("stopping should not be an error but got %v", err)
    }
    if count != 100 {
        test.Fatalf("expected 100 samples but got %v", count)
    }
}

func TestSinkError(test *testing.T){
    runner := makeRunner(test, "ym2413")
    broken := errors.New("broken")
    err := runner.Run(context.Background(), "test", `wait(seconds(1))`, func(left int16, right int16) error {
        return broken
    })
    if !errors.Is(err, broken) {
        test.Fatalf("expected the sink error but got %v", err)
    }
}

func TestCancel(test *testing.T){
    runner := makeRunner(test, "nes")
    quit, cancel := context.WithCancel(context.Background())
    cancel()

    err := runner.Run(quit, "test", `while true do wait(100) end`, ignore)
    if !errors.Is(err, context.Canceled) {
        test.Fatalf("expected a cancelled error but got %v", err)
    }
}

func TestRAM(test *testing.T){
    runner := makeRunner(test, "nes")
    err := runner.Run(context.Background(), "test", `ram(0x100, 1)`, ignore)
    if !errors.Is(err, ErrNoRAM) {
        test.Fatalf("expected no ram error but got %v", err)
    }

    runner = makeRunner(test, "sdsp")
    err = runner.Run(context.Background(), "test", `ram(0x100, 1, 2, 3)`, ignore)
    if err != nil {
        test.Fatalf("ram failed: %v", err)
    }
    memory := runner.Instance.RAM
    if memory[0x100] != 1 || memory[0x101] != 2 || memory[0x102] != 3 {
        test.Fatalf("ram was not written: % x", memory[0x100:0x103])
    }
}

func TestSeconds(test *testing.T){
    runner := makeRunner(test, "nes")
    err := runner.Run(context.Background(), "test", `wait(seconds(0.5))`, ignore)
    if err != nil {
        test.Fatalf("run failed: %v", err)
    }
    if runner.Clocks != uint64(runner.Instance.Clock() / 2) {
        test.Fatalf("expected %v clocks but waited %v", runner.Instance.Clock() / 2, runner.Clocks)
    }
}

func TestSyntaxError(test *testing.T){
    runner := makeRunner(test, "nes")
    err := runner.Run(context.Background(), "test", `write(chip,`, ignore)
    if err == nil {
        test.Fatalf("expected a syntax error")
    }
}
