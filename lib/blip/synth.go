package blip

import (
    "fmt"
    "log"
    "math"
)

type Quality int

const (
    QualityMedium Quality = 8
    QualityGood Quality = 12
    QualityHigh Quality = 16
)

/* treble and rolloff settings used to generate the synthesis kernel */
type Equalizer struct {
    /* treble in dB at the rolloff frequency, -8 is the default */
    Treble float64
    RolloffFreq int
    SampleRate int
    CutoffFreq int
}

func NewEqualizer(treble float64) Equalizer {
    return Equalizer{
        Treble: treble,
        RolloffFreq: 0,
        SampleRate: 44100,
        CutoffFreq: 0,
    }
}

const DefaultTreble = -8.0

func genSinc(out []float64, oversample float64, treble float64, cutoff float64) {
    count := len(out)
    if cutoff >= 0.999 {
        cutoff = 0.999
    }
    if treble < -300.0 {
        treble = -300.0
    }
    if treble > 5.0 {
        treble = 5.0
    }

    const maxh = 4096.0
    rolloff := math.Pow(10.0, 1.0 / (maxh * 20.0) * treble / (1.0 - cutoff))
    powAN := math.Pow(rolloff, maxh - maxh * cutoff)
    toAngle := math.Pi / 2 / maxh / oversample
    for i := 0; i < count; i++ {
        angle := float64((i - count) * 2 + 1) * toAngle
        c := rolloff * math.Cos((maxh - 1.0) * angle) - math.Cos(maxh * angle)
        cosNCAngle := math.Cos(maxh * cutoff * angle)
        cosNC1Angle := math.Cos((maxh * cutoff - 1.0) * angle)
        cosAngle := math.Cos(angle)
        c = c * powAN - rolloff * cosNC1Angle + cosNCAngle
        d := 1.0 + rolloff * (rolloff - cosAngle - cosAngle)
        b := 2.0 - cosAngle - cosAngle
        a := 1.0 - cosAngle - cosNCAngle + cosNC1Angle
        out[i] = (a * d + c * b) / (b * d)
    }
}

/* generate the right half of a windowed sinc kernel */
func (eq Equalizer) generate(out []float64) {
    count := len(out)
    /* narrow kernels get a lower cutoff for their wider transition band
     * (8 points->1.49, 16 points->1.15)
     */
    halfRate := float64(eq.SampleRate) * 0.5
    var oversample float64
    if eq.CutoffFreq != 0 {
        oversample = halfRate / float64(eq.CutoffFreq)
    } else {
        oversample = Res * 2.25 / float64(count) + 0.85
    }
    cutoff := float64(eq.RolloffFreq) * oversample / halfRate

    genSinc(out, Res * oversample, eq.Treble, cutoff)

    /* half of a hamming window */
    toFraction := math.Pi / float64(count - 1)
    for i := count - 1; i >= 0; i-- {
        out[i] *= 0.54 - 0.46 * math.Cos(float64(i) * toFraction)
    }
}

/* Synth adds band-limited steps into a Buffer. One synth can be shared by
 * any number of oscillators that want the same quality and volume.
 */
type Synth struct {
    quality Quality
    amplitudeRange int
    volumeUnit float64
    impulses []int16
    kernelUnit int32
    deltaFactor int32

    /* used by Update */
    Output *Buffer
    LastAmp int
}

/* Create a synth whose amplitudes span [-amplitudeRange, amplitudeRange] */
func NewSynth(quality Quality, amplitudeRange int) *Synth {
    switch quality {
        case QualityMedium, QualityGood, QualityHigh:
        default:
            panic(fmt.Sprintf("blip: invalid synth quality %v", quality))
    }

    if amplitudeRange == 0 {
        panic("blip: synth amplitude range must be non-zero")
    }

    return &Synth{
        quality: quality,
        amplitudeRange: amplitudeRange,
        impulses: make([]int16, Res / 2 * int(quality) + 1),
    }
}

func (synth *Synth) Quality() Quality {
    return synth.quality
}

func (synth *Synth) DeltaFactor() int {
    return int(synth.deltaFactor)
}

func (synth *Synth) KernelUnit() int {
    return int(synth.kernelUnit)
}

/* sum pairs for each phase and add error correction to the end of the first half */
func (synth *Synth) adjustImpulse() {
    size := len(synth.impulses)
    for p := Res - 1; p >= Res / 2 - 1; p-- {
        p2 := Res - 2 - p
        err := synth.kernelUnit
        for i := 1; i < size; i += Res {
            err -= int32(synth.impulses[i + p])
            err -= int32(synth.impulses[i + p2])
        }
        if p == p2 {
            /* phase = 0.5 impulse uses same half for both sides */
            err /= 2
        }
        synth.impulses[size - Res + p] += int16(err)
    }
}

/* Regenerate the impulse table for the given equalization */
func (synth *Synth) TrebleEq(eq Equalizer) {
    fimpulse := make([]float64, Res / 2 * (WidestImpulse - 1) + Res * 2)

    halfSize := Res / 2 * (int(synth.quality) - 1)
    eq.generate(fimpulse[Res:Res + halfSize])

    /* need mirror slightly past center for calculation */
    for i := Res - 1; i >= 0; i-- {
        fimpulse[Res + halfSize + i] = fimpulse[Res + halfSize - 1 - i]
    }

    for i := 0; i < Res; i++ {
        fimpulse[i] = 0
    }

    total := 0.0
    for i := 0; i < halfSize; i++ {
        total += fimpulse[Res + i]
    }

    const baseUnit = 32768.0
    rescale := baseUnit / 2 / total
    synth.kernelUnit = int32(baseUnit)

    /* integrate, first difference, rescale, convert to int */
    sum := 0.0
    next := 0.0
    for i := 0; i < len(synth.impulses); i++ {
        synth.impulses[i] = int16(math.Floor((next - sum) * rescale + 0.5))
        sum += fimpulse[i]
        next += fimpulse[i + Res]
    }
    synth.adjustImpulse()

    if Debug > 1 {
        log.Printf("blip: synth quality %v treble %v kernel unit %v", synth.quality, eq.Treble, synth.kernelUnit)
    }

    /* volume might require rescaling */
    volume := synth.volumeUnit
    if volume != 0 {
        synth.volumeUnit = 0
        synth.VolumeUnit(volume)
    }
}

/* Set the overall volume, where 1.0 is full volume for amplitudeRange */
func (synth *Synth) Volume(volume float64) {
    amplitudeRange := synth.amplitudeRange
    if amplitudeRange < 0 {
        amplitudeRange = -amplitudeRange
    }
    synth.VolumeUnit(volume * (1.0 / float64(amplitudeRange)))
}

/* Set the volume of a single amplitude step */
func (synth *Synth) VolumeUnit(unit float64) {
    if unit == synth.volumeUnit {
        return
    }

    if synth.kernelUnit == 0 {
        synth.TrebleEq(NewEqualizer(DefaultTreble))
    }

    synth.volumeUnit = unit
    factor := unit * (1 << SampleBits) / float64(synth.kernelUnit)

    if factor > 0.0 {
        shift := 0

        /* a really small unit needs an attenuated kernel */
        for factor < 2.0 {
            shift += 1
            factor *= 2.0
        }

        if shift > 0 {
            synth.kernelUnit >>= shift
            if synth.kernelUnit <= 0 {
                panic(fmt.Sprintf("blip: volume unit %v is too low", unit))
            }

            /* keep values positive to avoid rounding negative values towards zero */
            offset := int32(0x8000 + (1 << (shift - 1)))
            offset2 := int32(0x8000 >> shift)
            for i := range synth.impulses {
                synth.impulses[i] = int16(((int32(synth.impulses[i]) + offset) >> shift) - offset2)
            }
            synth.adjustImpulse()
        }
    }

    synth.deltaFactor = int32(math.Floor(factor + 0.5))
}

/* Add an amplitude transition of delta at the given time */
func (synth *Synth) Offset(time BlipTime, delta int, buffer *Buffer) {
    synth.OffsetResampled(buffer.ResampledTime(time), delta, buffer)
}

/* Same as Offset, but the time is already resampled */
func (synth *Synth) OffsetResampled(time ResampledTime, delta int, buffer *Buffer) {
    index := int(time >> Accuracy)
    if index >= buffer.size {
        panic(fmt.Sprintf("blip: time %v is beyond the end of the buffer (%v samples)", index, buffer.size))
    }

    scaled := int32(delta) * synth.deltaFactor
    out := buffer.buffer[index:]
    phase := int(time >> (Accuracy - PhaseBits)) & (Res - 1)

    quality := int(synth.quality)
    fwd := (WidestImpulse - quality) / 2
    rev := fwd + quality - 2
    half := quality / 2

    /* first half of the kernel runs forward from the phase, the second half
     * runs backward through the same table
     */
    imp := Res - phase
    for k := 0; k < half; k++ {
        out[fwd + k] += int32(synth.impulses[imp + Res * k]) * scaled
    }

    imp = phase
    for k := 0; k < half; k++ {
        out[rev + 1 - k] += int32(synth.impulses[imp + Res * k]) * scaled
    }
}

/* Set the buffer used by Update and forget the last amplitude */
func (synth *Synth) SetOutput(buffer *Buffer) {
    synth.Output = buffer
    synth.LastAmp = 0
}

/* Update the amplitude of the synth's own waveform at the given time */
func (synth *Synth) Update(time BlipTime, amplitude int) {
    delta := amplitude - synth.LastAmp
    synth.LastAmp = amplitude
    if delta != 0 && synth.Output != nil {
        synth.Offset(time, delta, synth.Output)
    }
}
