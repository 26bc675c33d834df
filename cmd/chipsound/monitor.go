package main

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/jroimartin/gocui"
)

/* chip state captured on the render thread */
type Snapshot struct {
    Chip string
    Seconds float64
    Lines []string
}

/* A terminal view of the chip registers. The render thread publishes
 * snapshots and the monitor thread draws the newest one.
 */
type Monitor struct {
    snapshots chan Snapshot
}

func MakeMonitor() *Monitor {
    return &Monitor{
        snapshots: make(chan Snapshot, 1),
    }
}

/* never blocks, a snapshot is dropped if the last one has not been drawn */
func (monitor *Monitor) Publish(snapshot Snapshot) {
    select {
        case monitor.snapshots <- snapshot:
        default:
    }
}

func monitorLayout(gui *gocui.Gui) error {
    width, height := gui.Size()
    view, err := gui.SetView("status", 0, 0, width - 1, height - 1)
    if err != nil {
        if !errors.Is(err, gocui.ErrUnknownView) {
            return err
        }
        view.Title = "chipsound (q to quit)"
        view.Wrap = false
    }
    return nil
}

func drawSnapshot(view *gocui.View, snapshot Snapshot) {
    view.Clear()
    fmt.Fprintf(view, "%v  %.2fs\n\n", snapshot.Chip, snapshot.Seconds)
    fmt.Fprintln(view, strings.Join(snapshot.Lines, "\n"))
}

/* runs until the user quits, which cancels everything, or quit is done */
func (monitor *Monitor) Run(quit context.Context, cancel context.CancelFunc) error {
    gui, err := gocui.NewGui(gocui.OutputNormal)
    if err != nil {
        return fmt.Errorf("could not start monitor: %w", err)
    }
    defer gui.Close()

    gui.SetManagerFunc(monitorLayout)

    quitGui := func(gui *gocui.Gui, view *gocui.View) error {
        return gocui.ErrQuit
    }
    for _, key := range []any{gocui.KeyCtrlC, 'q'} {
        err = gui.SetKeybinding("", key, gocui.ModNone, quitGui)
        if err != nil {
            return err
        }
    }

    go func(){
        for {
            select {
                case <-quit.Done():
                    gui.Update(func(gui *gocui.Gui) error {
                        return gocui.ErrQuit
                    })
                    return
                case snapshot := <-monitor.snapshots:
                    gui.Update(func(gui *gocui.Gui) error {
                        view, err := gui.View("status")
                        if err != nil {
                            return err
                        }
                        drawSnapshot(view, snapshot)
                        return nil
                    })
            }
        }
    }()

    err = gui.MainLoop()
    cancel()
    if err != nil && !errors.Is(err, gocui.ErrQuit) {
        return err
    }
    return nil
}
