package ym2413

import (
    "math"
)

const (
    /* 10-bit phase index, the low 8 bits select a quarter wave entry */
    phaseBits = 10
    phaseCounterBits = 19
    phaseCounterMask = 1 << phaseCounterBits - 1

    /* envelope attenuation is 9 bits of 0.09375db */
    envelopeBits = 9
    envelopeMax = 1 << envelopeBits - 1

    amSteps = 210
    amPeriod = 64
    amDepth = 52
)

/* -log2(sin) of a quarter wave in 4.8 fixed point */
var logSinTable [256]int = makeLogSinTable()

/* 2^(1-(i+1)/256) in 11 bits, undoes the log domain */
var expTable [256]int = makeExpTable()

/* frequency multiplier in halves, MUL=0 is x0.5 */
var multiplierTable = [16]int{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

/* key scale level attenuation for the top 4 bits of the f-number, in 0.1875db */
var kslTable = [16]int{0, 32, 40, 45, 48, 51, 53, 55, 56, 58, 59, 60, 61, 62, 63, 64}

/* vibrato f-number offset indexed by [fnum>>6][pm phase] */
var pmTable = [8][8]int{
    {0, 0, 0, 0, 0, 0, 0, 0},
    {1, 0, 0, 0, -1, 0, 0, 0},
    {2, 1, 0, -1, -2, -1, 0, 1},
    {3, 1, 0, -1, -3, -1, 0, 1},
    {4, 2, 0, -2, -4, -2, 0, 2},
    {5, 2, 0, -2, -5, -2, 0, 2},
    {6, 3, 0, -3, -6, -3, 0, 3},
    {7, 3, 0, -3, -7, -3, 0, 3},
}

/* tremolo attenuation, a triangle over 210 steps */
var amTable [amSteps]int = makeAMTable()

/* envelope increments for rates below 48, the row is rate&3 */
var envelopeIncrements = [4][8]int{
    {0, 1, 0, 1, 0, 1, 0, 1},
    {0, 1, 0, 1, 1, 1, 0, 1},
    {0, 1, 1, 1, 0, 1, 1, 1},
    {0, 1, 1, 1, 1, 1, 1, 1},
}

/* rates 48-63 update every sample */
var envelopeHighIncrements = [16][8]int{
    {1, 1, 1, 1, 1, 1, 1, 1},
    {1, 1, 1, 2, 1, 1, 1, 2},
    {1, 2, 1, 2, 1, 2, 1, 2},
    {1, 2, 2, 2, 1, 2, 2, 2},
    {2, 2, 2, 2, 2, 2, 2, 2},
    {2, 2, 2, 4, 2, 2, 2, 4},
    {2, 4, 2, 4, 2, 4, 2, 4},
    {2, 4, 4, 4, 2, 4, 4, 4},
    {4, 4, 4, 4, 4, 4, 4, 4},
    {4, 4, 4, 8, 4, 4, 4, 8},
    {4, 8, 4, 8, 4, 8, 4, 8},
    {4, 8, 8, 8, 4, 8, 8, 8},
    {8, 8, 8, 8, 8, 8, 8, 8},
    {8, 8, 8, 8, 8, 8, 8, 8},
    {8, 8, 8, 8, 8, 8, 8, 8},
    {8, 8, 8, 8, 8, 8, 8, 8},
}

func makeLogSinTable() [256]int {
    var table [256]int
    for i := range table {
        angle := float64(2 * i + 1) / 512.0 * math.Pi / 2.0
        table[i] = int(math.Round(-math.Log2(math.Sin(angle)) * 256.0))
    }
    return table
}

func makeExpTable() [256]int {
    var table [256]int
    for i := range table {
        table[i] = int(math.Round(math.Pow(2.0, 1.0 - float64(i + 1) / 256.0) * 1024.0))
    }
    return table
}

func makeAMTable() [amSteps]int {
    var table [amSteps]int
    half := amSteps / 2
    for i := range table {
        step := i
        if i >= half {
            step = amSteps - 1 - i
        }
        table[i] = step * amDepth / (half - 1)
    }
    return table
}

/* how much the envelope moves this sample for an effective rate 0-63 */
func envelopeIncrement(rate int, counter uint) int {
    if rate == 0 {
        return 0
    }
    if rate >= 48 {
        return envelopeHighIncrements[rate - 48][counter & 7]
    }
    shift := uint(11 - rate >> 2)
    if counter & (1 << shift - 1) != 0 {
        return 0
    }
    return envelopeIncrements[rate & 3][(counter >> shift) & 7]
}

/* Convert a 10-bit phase index and an attenuation in envelope units to a
 * signed output of about 14 bits.
 */
func sineOutput(index int, attenuation int, halfSine bool) int {
    index &= 1 << phaseBits - 1
    negative := index & 0x200 != 0
    if negative && halfSine {
        return 0
    }

    quarter := index & 0xFF
    if index & 0x100 != 0 {
        quarter = 0xFF - quarter
    }

    total := logSinTable[quarter] + attenuation << 2
    linear := (expTable[total & 0xFF] << 2) >> uint(total >> 8)
    if negative {
        return -linear
    }
    return linear
}
