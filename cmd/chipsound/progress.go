package main

import (
    "fmt"
    "os"
    "time"

    "github.com/fatih/color"
    "golang.org/x/term"
)

/* a status line on stderr, only when stderr is a terminal */
type Progress struct {
    enabled bool
    sampleRate int
    samples int
    last time.Time
}

func MakeProgress(sampleRate int, enabled bool) *Progress {
    return &Progress{
        enabled: enabled && term.IsTerminal(int(os.Stderr.Fd())),
        sampleRate: sampleRate,
    }
}

func (progress *Progress) Consume(samples []int16) error {
    progress.samples += len(samples) / 2
    if progress.enabled && time.Since(progress.last) > time.Millisecond * 200 {
        progress.last = time.Now()
        fmt.Fprintf(os.Stderr, "\rrendered %.1fs", progress.Seconds())
    }
    return nil
}

func (progress *Progress) Seconds() float64 {
    return float64(progress.samples) / float64(progress.sampleRate)
}

func (progress *Progress) Close() error {
    if progress.enabled {
        fmt.Fprintf(os.Stderr, "\r")
    }
    return nil
}

func summary(chip string, seconds float64, writes int, err error) string {
    name := color.New(color.FgCyan).SprintFunc()
    if err != nil {
        red := color.New(color.FgRed).SprintFunc()
        return fmt.Sprintf("%v %v: %v", name(chip), red("failed"), err)
    }
    green := color.New(color.FgGreen).SprintFunc()
    return fmt.Sprintf("%v %v %.2fs with %v writes", name(chip), green("rendered"), seconds, writes)
}
