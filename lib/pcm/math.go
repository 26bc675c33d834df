package pcm

import (
    "math"
)

type Number interface {
    ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

type Integer interface {
    ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func Clip[T Number](x T, lower T, upper T) T {
    return max(lower, min(x, upper))
}

/* -1 for negative values (including -0.0), 1 otherwise */
func Sgn(x float64) float64 {
    if math.Signbit(x) {
        return -1
    }
    return 1
}

/* modulo that is never negative for a positive b */
func Mod[T Integer](a T, b T) T {
    return (a % b + b) % b
}

func Square[T Number](x T) T {
    return x * x
}

func Cube[T Number](x T) T {
    return x * x * x
}

func AmplitudeToDecibels(x float64) float64 {
    return 20 * math.Log10(math.Abs(x))
}

func DecibelsToAmplitude(x float64) float64 {
    return math.Pow(10, x / 20)
}

/* Quantize a value in [-1, 1] to the given number of bits */
func Quantize(value float32, bits uint8) float32 {
    top := float32(int32(1) << bits - 1)
    integer := int32(value * top)
    return float32(integer) / top
}
