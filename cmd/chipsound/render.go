package main

import (
    "context"

    "github.com/kazzmir/chipsound/lib/script"
)

/* stereo pairs handed to the outputs at a time */
const ChunkPairs = 1024

/* Run the script and fan its samples out to every output. limit is the
 * maximum number of pairs to render, 0 for no limit.
 */
func render(quit context.Context, runner *script.Runner, scriptPath string, outputs []Output, monitor *Monitor, limit int) (int, error) {
    chunk := make([]int16, 0, ChunkPairs * 2)
    samples := 0
    sampleRate := runner.Instance.Timeline.SampleRate()

    flush := func() error {
        for _, output := range outputs {
            err := output.Consume(chunk)
            if err != nil {
                return err
            }
        }
        chunk = chunk[:0]

        if monitor != nil {
            monitor.Publish(Snapshot{
                Chip: runner.Instance.Name,
                Seconds: float64(samples) / float64(sampleRate),
                Lines: runner.Instance.Status(),
            })
        }
        return nil
    }

    sink := func(left int16, right int16) error {
        if limit > 0 && samples >= limit {
            return script.ErrStop
        }
        chunk = append(chunk, left, right)
        samples += 1
        if len(chunk) == cap(chunk) {
            return flush()
        }
        return nil
    }

    var err error
    if scriptPath != "" {
        err = runner.RunFile(quit, scriptPath, sink)
    } else {
        err = runner.RunDemo(quit, sink)
    }
    if err != nil {
        return samples, err
    }

    if len(chunk) > 0 {
        err = flush()
    }
    return samples, err
}
