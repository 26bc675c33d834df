package sdsp

const (
    EnvelopeRateInitial = 0x7800
    EnvelopeRange = 0x0800
)

/* amount subtracted from the envelope counter each sample, per rate index */
var EnvelopeRates = [0x20]int{
    0x0000, 0x000F, 0x0014, 0x0018, 0x001E, 0x0028, 0x0030, 0x003C,
    0x0050, 0x0060, 0x0078, 0x00A0, 0x00C0, 0x00F0, 0x0140, 0x0180,
    0x01E0, 0x0280, 0x0300, 0x03C0, 0x0500, 0x0600, 0x0780, 0x0A00,
    0x0C00, 0x0F00, 0x1400, 0x1800, 0x1E00, 0x2800, 0x3C00, 0x7800,
}

type EnvelopeStage int

const (
    EnvelopeOff EnvelopeStage = iota
    EnvelopeAttack
    EnvelopeDecay
    EnvelopeSustain
    EnvelopeRelease
    /* constant full level, used by Voice */
    EnvelopeOn
)

func (stage EnvelopeStage) String() string {
    switch stage {
        case EnvelopeOff: return "off"
        case EnvelopeAttack: return "attack"
        case EnvelopeDecay: return "decay"
        case EnvelopeSustain: return "sustain"
        case EnvelopeRelease: return "release"
        case EnvelopeOn: return "on"
    }
    return "unknown"
}

/* one step of exponential decay, envx * 255/256 */
func exponentialDecay(envx int) int {
    return envx - (((envx - 1) >> 8) + 1)
}

/* returns true when the envelope counter wrapped and the envelope should step */
func stepCounter(counter *int, rate int) bool {
    *counter -= EnvelopeRates[rate]
    if *counter > 0 {
        return false
    }
    *counter = EnvelopeRateInitial
    return true
}

/* The envelope generator of one dsp voice. Level is 11 bits. */
type Envelope struct {
    Stage EnvelopeStage
    Level int
    Counter int
}

func (envelope *Envelope) KeyOn() {
    envelope.Level = 0
    envelope.Counter = EnvelopeRateInitial
    envelope.Stage = EnvelopeAttack
}

func (envelope *Envelope) KeyOff() {
    envelope.Stage = EnvelopeRelease
}

/* Advance one sample. Returns the new level, or -1 once a release reaches 0. */
func (envelope *Envelope) Clock(adsr1 byte, adsr2 byte, gain byte) int {
    envx := envelope.Level

    if envelope.Stage == EnvelopeRelease {
        envx -= EnvelopeRange / 256
        if envx <= 0 {
            envelope.Level = 0
            envelope.Stage = EnvelopeOff
            return -1
        }
        envelope.Level = envx
        return envx
    }

    if adsr1 & 0x80 != 0 {
        switch envelope.Stage {
            case EnvelopeAttack:
                attack := int(adsr1 & 0x0F)
                if attack == 15 {
                    envx += EnvelopeRange / 2
                } else {
                    if !stepCounter(&envelope.Counter, attack * 2 + 1) {
                        break
                    }
                    envx += EnvelopeRange / 64
                }
                if envx >= EnvelopeRange {
                    envx = EnvelopeRange - 1
                    envelope.Stage = EnvelopeDecay
                }
                envelope.Level = envx
            case EnvelopeDecay:
                if stepCounter(&envelope.Counter, int((adsr1 >> 3) & 0x0E) + 0x10) {
                    envx = exponentialDecay(envx)
                    envelope.Level = envx
                }
                sustainLevel := int(adsr2 >> 5)
                if envx <= (sustainLevel + 1) * 0x100 {
                    envelope.Stage = EnvelopeSustain
                }
            case EnvelopeSustain:
                if stepCounter(&envelope.Counter, int(adsr2 & 0x1F)) {
                    envx = exponentialDecay(envx)
                    envelope.Level = envx
                }
        }
        return envx
    }

    /* gain mode, the counter carries over from adsr mode */
    if gain < 0x80 {
        envx = int(gain) << 4
        envelope.Level = envx
        return envx
    }

    rate := int(gain & 0x1F)
    switch gain >> 5 {
        /* linear decrease */
        case 4:
            if !stepCounter(&envelope.Counter, rate) {
                break
            }
            envx -= EnvelopeRange / 64
            if envx < 0 {
                envx = 0
                if envelope.Stage == EnvelopeAttack {
                    envelope.Stage = EnvelopeDecay
                }
            }
            envelope.Level = envx
        /* exponential decrease */
        case 5:
            if !stepCounter(&envelope.Counter, rate) {
                break
            }
            envx = exponentialDecay(envx)
            if envx < 0 {
                envx = 0
                if envelope.Stage == EnvelopeAttack {
                    envelope.Stage = EnvelopeDecay
                }
            }
            envelope.Level = envx
        /* linear increase */
        case 6:
            if !stepCounter(&envelope.Counter, rate) {
                break
            }
            envx += EnvelopeRange / 64
            if envx >= EnvelopeRange {
                envx = EnvelopeRange - 1
            }
            envelope.Level = envx
        /* bent line, slower above 3/4 */
        case 7:
            if !stepCounter(&envelope.Counter, rate) {
                break
            }
            if envx < EnvelopeRange * 3 / 4 {
                envx += EnvelopeRange / 64
            } else {
                envx += EnvelopeRange / 256
            }
            if envx >= EnvelopeRange {
                envx = EnvelopeRange - 1
            }
            envelope.Level = envx
    }

    return envx
}
