package blip

/* Band-limited sound synthesis buffer.
 *
 * Amplitude changes are recorded as deltas into a buffer of accumulators, each
 * delta spread over a short windowed-sinc impulse (see Synth). Reading the buffer
 * integrates the deltas back into PCM while running a gentle high-pass (bass) filter.
 */

import (
    "errors"
    "fmt"
    "log"
    "math"
)

var Debug int = 0

var ErrBufferTooLarge = errors.New("blip: requested buffer length exceeds limit")
var ErrInvalidRate = errors.New("blip: sample rate and clock rate must be positive")

const (
    /* number of fractional bits in resampled time */
    Accuracy = 16

    /* number of bits in phase offset, fewer than 6 bits reduces quality */
    PhaseBits = 6
    Res = 1 << PhaseBits

    WidestImpulse = 16
    BufferExtra = WidestImpulse + 2

    SampleBits = 30

    DefaultLength = 250

    /* maximal length that resampled time can represent */
    MaxResampledTime = (math.MaxUint32 >> Accuracy) - BufferExtra - 64

    DefaultBassFreq = 16
)

/* time in source clocks */
type BlipTime = int

/* time in 1/65536ths of an output sample */
type ResampledTime = uint64

type Buffer struct {
    factor ResampledTime
    offset ResampledTime
    buffer []int32
    size int
    accum int32
    bassShift uint
    sampleRate int
    clockRate int
    bassFreq int
    length int
}

func MakeBuffer() *Buffer {
    return &Buffer{
        factor: 1,
        bassFreq: DefaultBassFreq,
    }
}

/* Set the output sample rate and the source clock rate. lengthMs is the length of
 * the buffer in milliseconds, 0 selects the default of 250ms.
 *
 * The clock rate is truncated to a whole number of clocks per sample, so
 * 44100/768000 becomes 44100/749700.
 */
func (buffer *Buffer) SetSampleRate(sampleRate int, clockRate int, lengthMs int) error {
    if sampleRate <= 0 || clockRate <= 0 {
        return ErrInvalidRate
    }

    if lengthMs <= 0 {
        lengthMs = DefaultLength
    }

    size := (sampleRate * (lengthMs + 1) + 999) / 1000
    if size >= MaxResampledTime {
        return fmt.Errorf("%w: %vms at %vhz", ErrBufferTooLarge, lengthMs, sampleRate)
    }

    cyclesPerSample := clockRate / sampleRate
    if cyclesPerSample == 0 {
        return fmt.Errorf("%w: clock rate %v is below sample rate %v", ErrInvalidRate, clockRate, sampleRate)
    }

    if buffer.size != size || buffer.buffer == nil {
        buffer.buffer = make([]int32, size + BufferExtra)
        buffer.size = size
    }

    buffer.sampleRate = sampleRate
    buffer.length = size * 1000 / sampleRate - 1

    buffer.BassFreq(buffer.bassFreq)

    buffer.clockRate = cyclesPerSample * sampleRate
    buffer.factor = buffer.clockRateFactor(buffer.clockRate)

    if Debug > 0 {
        log.Printf("blip: sample rate %v clock rate %v factor %v size %v", sampleRate, buffer.clockRate, buffer.factor, size)
    }

    buffer.Clear(true)

    return nil
}

func (buffer *Buffer) clockRateFactor(clockRate int) ResampledTime {
    ratio := float64(buffer.sampleRate) / float64(clockRate)
    factor := math.Floor(ratio * (1 << Accuracy) + 0.5)
    if factor <= 0 {
        panic(fmt.Sprintf("blip: sample rate %v to clock rate %v ratio is too large", buffer.sampleRate, clockRate))
    }
    return ResampledTime(factor)
}

func (buffer *Buffer) SampleRate() int {
    return buffer.sampleRate
}

func (buffer *Buffer) ClockRate() int {
    return buffer.clockRate
}

/* length of the buffer in milliseconds */
func (buffer *Buffer) Length() int {
    return buffer.length
}

/* number of samples the buffer can hold */
func (buffer *Buffer) Size() int {
    return buffer.size
}

func (buffer *Buffer) Factor() ResampledTime {
    return buffer.factor
}

/* Set the frequency of the high-pass filter, higher values remove more bass */
func (buffer *Buffer) BassFreq(frequency int) {
    buffer.bassFreq = frequency
    var shift uint = 31
    if frequency > 0 && buffer.sampleRate > 0 {
        shift = 13
        f := (frequency << 16) / buffer.sampleRate
        for {
            f >>= 1
            if f == 0 {
                break
            }
            shift -= 1
            if shift == 0 {
                break
            }
        }
    }
    buffer.bassShift = shift
}

func (buffer *Buffer) BassShift() uint {
    return buffer.bassShift
}

/* Remove all available samples and clear the filter state. If entireBuffer is
 * false then only the available samples are zeroed.
 */
func (buffer *Buffer) Clear(entireBuffer bool) {
    buffer.offset = 0
    buffer.accum = 0
    if buffer.buffer == nil {
        return
    }
    count := len(buffer.buffer)
    if !entireBuffer {
        count = buffer.SamplesAvail() + BufferExtra
    }
    clear(buffer.buffer[:count])
}

func (buffer *Buffer) ResampledDuration(time BlipTime) ResampledTime {
    return ResampledTime(time) * buffer.factor
}

func (buffer *Buffer) ResampledTime(time BlipTime) ResampledTime {
    return ResampledTime(time) * buffer.factor + buffer.offset
}

/* End the current time frame of the given number of clocks. Samples in that frame
 * become available for reading.
 */
func (buffer *Buffer) EndFrame(time BlipTime) {
    buffer.offset += ResampledTime(time) * buffer.factor
    if buffer.SamplesAvail() > buffer.size {
        panic(fmt.Sprintf("blip: buffer overrun, %v samples available but buffer holds %v", buffer.SamplesAvail(), buffer.size))
    }
}

func (buffer *Buffer) SamplesAvail() int {
    return int(buffer.offset >> Accuracy)
}

/* number of samples available after EndFrame(time) */
func (buffer *Buffer) CountSamples(time BlipTime) int {
    last := buffer.ResampledTime(time) >> Accuracy
    first := buffer.offset >> Accuracy
    return int(last - first)
}

/* number of clocks needed until count samples will be available */
func (buffer *Buffer) CountClocks(count int) BlipTime {
    if buffer.factor == 0 {
        return 0
    }
    if count > buffer.size {
        count = buffer.size
    }
    time := ResampledTime(count) << Accuracy
    if time < buffer.offset {
        return 0
    }
    return BlipTime((time - buffer.offset + buffer.factor - 1) / buffer.factor)
}

func (buffer *Buffer) OutputLatency() int {
    return WidestImpulse / 2
}

func clampSample(sample int32) int16 {
    if int32(int16(sample)) != sample {
        sample = 0x7FFF - (sample >> 24)
    }
    return int16(sample)
}

/* Read up to len(out) samples (len(out)/2 when stereo, written to every other
 * slot) and remove them from the buffer. Returns the number of samples read.
 */
func (buffer *Buffer) ReadSamples(out []int16, stereo bool) int {
    max := len(out)
    step := 1
    if stereo {
        max = len(out) / 2
        step = 2
    }

    count := buffer.SamplesAvail()
    if count > max {
        count = max
    }

    if count == 0 {
        return 0
    }

    accum := buffer.accum
    bass := buffer.bassShift
    position := 0
    for i := 0; i < count; i++ {
        out[position] = clampSample(accum >> (SampleBits - 16))
        accum += buffer.buffer[i] - (accum >> bass)
        position += step
    }
    buffer.accum = accum

    buffer.RemoveSamples(count)

    return count
}

/* Read the next output sample and advance by one sample. This is the streaming
 * form used when the host ends a frame of clock/sampleRate cycles before every
 * sample, so it advances even if rounding left the sample not quite available.
 */
func (buffer *Buffer) ReadSample() int16 {
    if buffer.buffer == nil {
        return 0
    }

    out := clampSample(buffer.accum >> (SampleBits - 16))
    buffer.accum += buffer.buffer[0] - (buffer.accum >> buffer.bassShift)

    remain := buffer.SamplesAvail() + BufferExtra
    if remain > len(buffer.buffer) - 1 {
        remain = len(buffer.buffer) - 1
    }
    copy(buffer.buffer, buffer.buffer[1:remain + 1])
    buffer.buffer[remain] = 0

    if buffer.offset >= 1 << Accuracy {
        buffer.offset -= 1 << Accuracy
    } else {
        buffer.offset = 0
    }

    return out
}

/* Remove samples from those available without reading them */
func (buffer *Buffer) RemoveSamples(count int) {
    if count == 0 {
        return
    }

    buffer.RemoveSilence(count)

    remain := buffer.SamplesAvail() + BufferExtra
    copy(buffer.buffer, buffer.buffer[count:count + remain])
    clear(buffer.buffer[remain:remain + count])
}

/* Remove samples known to be silent, only the time cursor moves */
func (buffer *Buffer) RemoveSilence(count int) {
    if count > buffer.SamplesAvail() {
        panic(fmt.Sprintf("blip: tried to remove %v samples but only %v are available", count, buffer.SamplesAvail()))
    }
    buffer.offset -= ResampledTime(count) << Accuracy
}

/* Mix raw 16-bit samples into the buffer at the current position. The samples
 * become audible after OutputLatency() samples.
 */
func (buffer *Buffer) MixSamples(in []int16) {
    position := buffer.SamplesAvail() + WidestImpulse / 2 - 1
    if position + len(in) >= len(buffer.buffer) {
        panic(fmt.Sprintf("blip: mixing %v samples overruns the buffer", len(in)))
    }

    var previous int32
    for _, sample := range in {
        value := int32(sample) << (SampleBits - 16)
        buffer.buffer[position] += value - previous
        previous = value
        position += 1
    }
    buffer.buffer[position] -= previous
}
