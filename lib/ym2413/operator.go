package ym2413

type EnvelopeState int

const (
    EnvelopeOff EnvelopeState = iota
    EnvelopeAttack
    EnvelopeDecay
    EnvelopeSustain
    EnvelopeRelease
)

func (state EnvelopeState) String() string {
    switch state {
        case EnvelopeOff: return "off"
        case EnvelopeAttack: return "attack"
        case EnvelopeDecay: return "decay"
        case EnvelopeSustain: return "sustain"
        case EnvelopeRelease: return "release"
    }
    return "?"
}

/* the rate used for a release while the channel sustain bit is set */
const sustainReleaseRate = 5
/* release rate of a percussive tone without sustain */
const percussiveReleaseRate = 7

type Operator struct {
    patch *OperatorPatch
    /* 6-bit attenuation in 0.75db, the patch level for a modulator or the volume for a carrier */
    TotalLevel int
    Phase int
    State EnvelopeState
    Level int
    Key bool
    /* last two outputs for feedback */
    history [2]int
}

func (operator *Operator) reset() {
    operator.Phase = 0
    operator.State = EnvelopeOff
    operator.Level = envelopeMax
    operator.Key = false
    operator.history = [2]int{}
}

func (operator *Operator) keyOn() {
    if !operator.Key {
        operator.Key = true
        operator.State = EnvelopeAttack
        operator.Phase = 0
    }
}

func (operator *Operator) keyOff() {
    if operator.Key {
        operator.Key = false
        if operator.State != EnvelopeOff {
            operator.State = EnvelopeRelease
        }
    }
}

/* key scaling of the envelope rates */
func (operator *Operator) rateScale(fnum int, block int) int {
    scale := block << 1 | fnum >> 8
    if !operator.patch.KSR {
        scale >>= 2
    }
    return scale
}

func (operator *Operator) keyScaleLevel(fnum int, block int) int {
    if operator.patch.KSL == 0 {
        return 0
    }
    level := kslTable[fnum >> 5] << 2 - (8 - block) << 5
    if level <= 0 {
        return 0
    }
    /* 1.5, 3 and 6 db per octave */
    return (level << 1) >> uint(3 - operator.patch.KSL)
}

func (operator *Operator) increment(fnum int, block int, pmPhase int) int {
    multiplier := multiplierTable[operator.patch.Multiplier]
    if operator.patch.PM {
        doubled := fnum << 1 + pmTable[fnum >> 6][pmPhase]
        return ((doubled << block) * multiplier) >> 2
    }
    return ((fnum << block) * multiplier) >> 1
}

func (operator *Operator) advance(fnum int, block int, pmPhase int) {
    operator.Phase = (operator.Phase + operator.increment(fnum, block, pmPhase)) & phaseCounterMask
}

func (operator *Operator) index() int {
    return operator.Phase >> (phaseCounterBits - phaseBits)
}

/* step the envelope by one sample */
func (operator *Operator) clockEnvelope(counter uint, fnum int, block int, sustain bool) {
    if operator.State == EnvelopeDecay && operator.Level >= operator.patch.SustainLevel << 5 {
        operator.State = EnvelopeSustain
    }

    var rate int
    switch operator.State {
        case EnvelopeOff:
            return
        case EnvelopeAttack:
            rate = operator.patch.Attack
        case EnvelopeDecay:
            rate = operator.patch.Decay
        case EnvelopeSustain:
            if operator.patch.Sustained {
                return
            }
            rate = operator.patch.Release
        case EnvelopeRelease:
            switch {
                case sustain: rate = sustainReleaseRate
                case operator.patch.Sustained: rate = operator.patch.Release
                default: rate = percussiveReleaseRate
            }
    }

    if rate == 0 {
        return
    }

    effective := min(rate << 2 + operator.rateScale(fnum, block), 63)

    if operator.State == EnvelopeAttack && effective >= 60 {
        operator.Level = 0
        operator.State = EnvelopeDecay
        return
    }

    increment := envelopeIncrement(effective, counter)
    if increment == 0 {
        return
    }

    if operator.State == EnvelopeAttack {
        operator.Level += (^operator.Level * increment) >> 4
        if operator.Level <= 0 {
            operator.Level = 0
            operator.State = EnvelopeDecay
        }
        return
    }

    operator.Level += increment
    if operator.Level >= envelopeMax {
        operator.Level = envelopeMax
        if operator.State != EnvelopeDecay {
            operator.State = EnvelopeOff
        }
    }
}

/* Total attenuation in envelope units, or -1 if the operator is silent */
func (operator *Operator) attenuation(fnum int, block int, am int) int {
    if operator.State == EnvelopeOff {
        return -1
    }
    total := operator.Level + operator.TotalLevel << 3 + operator.keyScaleLevel(fnum, block)
    if operator.patch.AM {
        total += am
    }
    if total >= envelopeMax {
        return -1
    }
    return total
}

/* compute the operator output with the phase offset by modulation */
func (operator *Operator) output(modulation int, fnum int, block int, am int) int {
    return operator.outputAt(operator.index() + modulation, fnum, block, am)
}

/* output at an explicit phase index, used by the noise driven rhythm voices */
func (operator *Operator) outputAt(index int, fnum int, block int, am int) int {
    attenuation := operator.attenuation(fnum, block, am)
    out := 0
    if attenuation >= 0 {
        out = sineOutput(index, attenuation, operator.patch.HalfSine)
    }
    operator.history[1] = operator.history[0]
    operator.history[0] = out
    return out
}

/* self modulation for a feedback level 1-7 */
func (operator *Operator) feedback(level int) int {
    if level == 0 {
        return 0
    }
    return (operator.history[0] + operator.history[1]) >> uint(10 - level)
}
