package sdsp

/* A standalone adsr envelope using the dsp rate table. Run is called once
 * per 32khz sample.
 */
type ADSR struct {
    /* 4 bits */
    Attack byte
    /* 3 bits */
    Decay byte
    /* 5 bits */
    SustainRate byte
    /* 3 bits */
    SustainLevel byte
    Amplitude int8

    stage EnvelopeStage
    value int
    counter int
}

func MakeADSR() *ADSR {
    return &ADSR{}
}

func (adsr *ADSR) SetAttack(value byte) {
    adsr.Attack = value & 0x0F
}

func (adsr *ADSR) SetDecay(value byte) {
    adsr.Decay = value & 0x07
}

func (adsr *ADSR) SetSustainRate(value byte) {
    adsr.SustainRate = value & 0x1F
}

func (adsr *ADSR) SetSustainLevel(value byte) {
    adsr.SustainLevel = value & 0x07
}

func (adsr *ADSR) SetAmplitude(value int8) {
    adsr.Amplitude = value
}

func (adsr *ADSR) Stage() EnvelopeStage {
    return adsr.stage
}

/* 11-bit envelope level */
func (adsr *ADSR) Level() int {
    return adsr.value
}

func (adsr *ADSR) clock() int {
    switch adsr.stage {
        case EnvelopeOff:
            return 0
        case EnvelopeRelease:
            adsr.value -= EnvelopeRange / 256
            if adsr.value <= 0 {
                adsr.value = 0
                adsr.stage = EnvelopeOff
                return 0
            }
        case EnvelopeAttack:
            if adsr.Attack == 15 {
                adsr.value += EnvelopeRange / 2
            } else {
                if !stepCounter(&adsr.counter, int(adsr.Attack) * 2 + 1) {
                    break
                }
                adsr.value += EnvelopeRange / 64
            }
            if adsr.value >= EnvelopeRange {
                adsr.value = EnvelopeRange - 1
                adsr.stage = EnvelopeDecay
            }
        case EnvelopeDecay:
            if stepCounter(&adsr.counter, int(adsr.Decay) << 1 + 0x10) {
                adsr.value = exponentialDecay(adsr.value)
            }
            if adsr.value <= (int(adsr.SustainLevel) + 1) * 0x100 {
                adsr.stage = EnvelopeSustain
            }
        case EnvelopeSustain:
            if stepCounter(&adsr.counter, int(adsr.SustainRate)) {
                adsr.value = exponentialDecay(adsr.value)
            }
    }

    return adsr.value >> 4
}

/* A trigger restarts the attack, a low gate moves to release. The result is
 * the 7-bit envelope scaled by the amplitude.
 */
func (adsr *ADSR) Run(trigger bool, gateOn bool) int16 {
    if trigger {
        adsr.value = 0
        adsr.stage = EnvelopeAttack
        adsr.counter = EnvelopeRateInitial
    } else if adsr.stage == EnvelopeOff {
        return 0
    } else if !gateOn {
        adsr.stage = EnvelopeRelease
    }

    output := adsr.clock()
    return int16((output * int(adsr.Amplitude)) >> 7)
}
