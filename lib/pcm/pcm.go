package pcm

/* Fixed point PCM helpers */

import (
    "math"
)

/* Clamp to the signed 16-bit range [-32768, 32767] */
func Clamp16(n int) int {
    if n < math.MinInt16 {
        return math.MinInt16
    }
    if n > math.MaxInt16 {
        return math.MaxInt16
    }
    return n
}

func ClampInt32(n int64) int32 {
    if n < math.MinInt32 {
        return math.MinInt32
    }
    if n > math.MaxInt32 {
        return math.MaxInt32
    }
    return int32(n)
}

const MaxInt24 = 0x7FFFFF
const MinInt24 = -0x800000

/* A signed 24-bit sample. Values are kept sign extended so they compare like
 * ordinary integers.
 */
type Int24 int32

/* Truncate to 24 bits and sign extend, like assigning to a 24-bit bitfield */
func NewInt24(value int32) Int24 {
    return Int24((value << 8) >> 8)
}

func (value Int24) Int32() int32 {
    return int32(value)
}

/* write the 3-byte little endian form */
func PutInt24(out []byte, value Int24) {
    out[0] = byte(value)
    out[1] = byte(value >> 8)
    out[2] = byte(value >> 16)
}

func ReadInt24(in []byte) Int24 {
    raw := int32(in[0]) | int32(in[1]) << 8 | int32(in[2]) << 16
    return NewInt24(raw)
}

func Pcm16ToFloat(sample int16) float32 {
    return float32(sample) / math.MaxInt16
}

func FloatToPcm16(sample float32) int16 {
    return int16(Clamp16(int(math.MaxInt16 * sample)))
}
