package ym2413

import (
    "testing"

    "github.com/stretchr/testify/require"
)

func TestLogSinTable(test *testing.T){
    require.Equal(test, 2137, logSinTable[0])
    require.Equal(test, 0, logSinTable[255])
    for i := 1; i < len(logSinTable); i++ {
        require.LessOrEqual(test, logSinTable[i], logSinTable[i - 1])
    }
    require.Equal(test, 2042, expTable[0])
    require.Equal(test, 1024, expTable[255])
}

func TestSineOutput(test *testing.T){
    require.Equal(test, 8168, sineOutput(0x100, 0, false))
    require.Equal(test, 8168, sineOutput(0x0FF, 0, false))
    require.Equal(test, -8168, sineOutput(0x300, 0, false))
    require.Equal(test, 0, sineOutput(0x300, 0, true))
    /* the index wraps */
    require.Equal(test, sineOutput(0x100, 0, false), sineOutput(0x500, 0, false))
    require.Less(test, sineOutput(0x100, 40, false), sineOutput(0x100, 0, false))
    require.Less(test, sineOutput(0x000, 0, false), 50)
}

func TestAMTable(test *testing.T){
    require.Equal(test, 0, amTable[0])
    require.Equal(test, amDepth, amTable[104])
    require.Equal(test, amDepth, amTable[105])
    require.Equal(test, 0, amTable[amSteps - 1])
}

func TestEnvelopeIncrement(test *testing.T){
    require.Equal(test, 0, envelopeIncrement(0, 0))
    require.Equal(test, 8, envelopeIncrement(63, 5))
    require.Equal(test, 0, envelopeIncrement(4, 1))
    require.Equal(test, 1, envelopeIncrement(4, 1024))
    require.Equal(test, 0, envelopeIncrement(4, 2048))
}

func TestKeyScaleLevel(test *testing.T){
    operator := Operator{patch: &OperatorPatch{KSL: 3}}
    require.Equal(test, 448, operator.keyScaleLevel(0x1FF, 7))
    require.Equal(test, 0, operator.keyScaleLevel(0, 0))

    operator.patch.KSL = 1
    require.Equal(test, 112, operator.keyScaleLevel(0x1FF, 7))
}

func TestIncrement(test *testing.T){
    operator := Operator{patch: &OperatorPatch{Multiplier: 1}}
    require.Equal(test, 4608, operator.increment(0x120, 4, 0))
    require.Equal(test, 448, operator.increment(0x1C0, 0, 0))

    operator.patch.PM = true
    require.Equal(test, 451, operator.increment(0x1C0, 0, 0))
    require.Equal(test, 444, operator.increment(0x1C0, 0, 4))

    operator.patch.Multiplier = 0
    operator.patch.PM = false
    require.Equal(test, 2304, operator.increment(0x120, 4, 0))
}

func TestRateScale(test *testing.T){
    operator := Operator{patch: &OperatorPatch{}}
    require.Equal(test, 2, operator.rateScale(0x120, 4))
    operator.patch.KSR = true
    require.Equal(test, 9, operator.rateScale(0x120, 4))
}
