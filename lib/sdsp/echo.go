package sdsp

import (
    "github.com/kazzmir/chipsound/lib/pcm"
)

const (
    SampleRate = 32000
    DelayLevels = 31
    MillisecondsPerDelayLevel = 16
    /* 2kb per level, 4 bytes per stereo sample */
    DelayLevelBytes = 2 * 1024
    delayLevelSamples = DelayLevelBytes / 4
)

type StereoSample struct {
    Left int16
    Right int16
}

/* 8-tap fir over the echo history. The ring holds every sample twice, at i
 * and i+8, so the taps never wrap.
 */
type firFilter struct {
    coefficients [FIRCount]int
    buffer [FIRCount * 2][2]int
    offset int
}

func (fir *firFilter) reset() {
    fir.buffer = [FIRCount * 2][2]int{}
    fir.offset = 0
}

/* push the newest sample and return the filtered pair */
func (fir *firFilter) run(left int, right int) (int, int) {
    position := fir.offset
    fir.offset = (fir.offset + FIRCount - 1) & (FIRCount - 1)

    fir.buffer[position] = [2]int{left, right}
    fir.buffer[position + FIRCount] = [2]int{left, right}

    outLeft := 0
    outRight := 0
    for tap := range FIRCount {
        sample := fir.buffer[position + tap]
        coefficient := fir.coefficients[FIRCount - 1 - tap]
        outLeft += sample[0] * coefficient
        outRight += sample[1] * coefficient
    }
    return outLeft, outRight
}

/* A standalone echo unit with its own delay memory of up to 31 levels of
 * 16ms each.
 */
type Echo struct {
    ring []StereoSample
    head int
    fir firFilter

    delay byte
    feedback int8
    mixLeft int8
    mixRight int8
}

func MakeEcho() *Echo {
    echo := &Echo{
        ring: make([]StereoSample, DelayLevels * delayLevelSamples),
    }
    echo.Reset()
    return echo
}

func (echo *Echo) Reset() {
    clear(echo.ring)
    echo.head = 0
    echo.delay = 0
    echo.feedback = 0
    echo.mixLeft = 0
    echo.mixRight = 0
    echo.fir.reset()
    echo.fir.coefficients = [FIRCount]int{127}
}

/* delay in 16ms steps */
func (echo *Echo) SetDelay(value byte) {
    echo.delay = value & DelayLevels
}

func (echo *Echo) SetFeedback(value int8) {
    echo.feedback = value
}

func (echo *Echo) SetMixLeft(value int8) {
    echo.mixLeft = value
}

func (echo *Echo) SetMixRight(value int8) {
    echo.mixRight = value
}

func (echo *Echo) SetFIR(index int, value int8) {
    echo.fir.coefficients[index] = int(value)
}

func (echo *Echo) FIR(index int) int8 {
    return int8(echo.fir.coefficients[index])
}

func (echo *Echo) Run(left int, right int) StereoSample {
    slot := &echo.ring[echo.head]
    echo.head += 1
    if echo.head >= int(echo.delay) * delayLevelSamples {
        echo.head = 0
    }

    feedbackLeft, feedbackRight := echo.fir.run(int(slot.Left), int(slot.Right))

    slot.Left = int16(pcm.Clamp16(left + ((feedbackLeft * int(echo.feedback)) >> 14)))
    slot.Right = int16(pcm.Clamp16(right + ((feedbackRight * int(echo.feedback)) >> 14)))

    return StereoSample{
        Left: int16(pcm.Clamp16(left + ((feedbackLeft * int(echo.mixLeft)) >> 14))),
        Right: int16(pcm.Clamp16(right + ((feedbackRight * int(echo.mixRight)) >> 14))),
    }
}
