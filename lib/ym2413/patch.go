package ym2413

const (
    InstrumentCount = 16
    /* the instruments plus the bass drum, hi-hat/snare and tom/cymbal patches */
    PatchCount = InstrumentCount + 3

    BassDrumPatch = 16
    HighHatSnarePatch = 17
    TomCymbalPatch = 18

    PatchBytes = 8
)

/* one half of a patch */
type OperatorPatch struct {
    AM bool
    PM bool
    /* sustained tone, the envelope holds at the sustain level */
    Sustained bool
    KSR bool
    Multiplier int
    KSL int
    /* only used by the modulator, the carrier takes the channel volume */
    TotalLevel int
    HalfSine bool
    Attack int
    Decay int
    SustainLevel int
    Release int
}

type Patch struct {
    Modulator OperatorPatch
    Carrier OperatorPatch
    Feedback int
}

var InstrumentNames = [InstrumentCount]string{
    "User", "Violin", "Guitar", "Piano", "Flute", "Clarinet", "Oboe", "Trumpet",
    "Organ", "Horn", "Synthesizer", "Harpsichord", "Vibraphone", "Synth Bass",
    "Acoustic Bass", "Electric Guitar",
}

/* built in instruments, the first is the user patch */
var patchROM = [PatchCount][PatchBytes]byte{
    {0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
    {0x61, 0x61, 0x1E, 0x17, 0xF0, 0x7F, 0x00, 0x17},
    {0x13, 0x41, 0x16, 0x0E, 0xFD, 0xF4, 0x23, 0x23},
    {0x03, 0x01, 0x9A, 0x04, 0xF3, 0xF3, 0x13, 0xF3},
    {0x11, 0x61, 0x0E, 0x07, 0xFA, 0x64, 0x70, 0x17},
    {0x22, 0x21, 0x1E, 0x06, 0xF0, 0x76, 0x00, 0x28},
    {0x21, 0x22, 0x16, 0x05, 0xF0, 0x71, 0x00, 0x18},
    {0x21, 0x61, 0x1D, 0x07, 0x82, 0x80, 0x17, 0x17},
    {0x23, 0x21, 0x2D, 0x16, 0x90, 0x90, 0x00, 0x07},
    {0x21, 0x21, 0x1B, 0x06, 0x64, 0x65, 0x10, 0x17},
    {0x21, 0x21, 0x0B, 0x1A, 0x85, 0xA0, 0x70, 0x07},
    {0x23, 0x01, 0x83, 0x10, 0xFF, 0xB4, 0x10, 0xF4},
    {0x97, 0xC1, 0x20, 0x07, 0xFF, 0xF4, 0x22, 0x22},
    {0x61, 0x00, 0x0C, 0x05, 0xC2, 0xF6, 0x40, 0x44},
    {0x01, 0x01, 0x56, 0x03, 0x94, 0xC2, 0x03, 0x12},
    {0x21, 0x01, 0x89, 0x03, 0xF1, 0xE4, 0xF0, 0x23},
    {0x07, 0x21, 0x14, 0x00, 0xEE, 0xF8, 0xFF, 0xF8},
    {0x01, 0x31, 0x00, 0x00, 0xF8, 0xF7, 0xF8, 0xF7},
    {0x25, 0x11, 0x00, 0x00, 0xF8, 0xFA, 0xF8, 0x55},
}

func decodeOperator(flags byte, levels byte, rates byte, sustain byte) OperatorPatch {
    return OperatorPatch{
        AM: flags & 0x80 != 0,
        PM: flags & 0x40 != 0,
        Sustained: flags & 0x20 != 0,
        KSR: flags & 0x10 != 0,
        Multiplier: int(flags & 0xF),
        KSL: int(levels >> 6),
        Attack: int(rates >> 4),
        Decay: int(rates & 0xF),
        SustainLevel: int(sustain >> 4),
        Release: int(sustain & 0xF),
    }
}

/* Decode the 8 byte register layout used by registers 0x00-0x07 */
func DecodePatch(data [PatchBytes]byte) Patch {
    patch := Patch{
        Modulator: decodeOperator(data[0], data[2], data[4], data[6]),
        Carrier: decodeOperator(data[1], data[3], data[5], data[7]),
        Feedback: int(data[3] & 0x7),
    }
    patch.Modulator.TotalLevel = int(data[2] & 0x3F)
    patch.Modulator.HalfSine = data[3] & 0x08 != 0
    patch.Carrier.HalfSine = data[3] & 0x10 != 0
    return patch
}

func encodeFlags(operator *OperatorPatch) byte {
    var out byte
    if operator.AM {
        out |= 0x80
    }
    if operator.PM {
        out |= 0x40
    }
    if operator.Sustained {
        out |= 0x20
    }
    if operator.KSR {
        out |= 0x10
    }
    return out | byte(operator.Multiplier & 0xF)
}

func (patch *Patch) Encode() [PatchBytes]byte {
    var data [PatchBytes]byte
    data[0] = encodeFlags(&patch.Modulator)
    data[1] = encodeFlags(&patch.Carrier)
    data[2] = byte(patch.Modulator.KSL & 3) << 6 | byte(patch.Modulator.TotalLevel & 0x3F)
    data[3] = byte(patch.Carrier.KSL & 3) << 6 | byte(patch.Feedback & 7)
    if patch.Carrier.HalfSine {
        data[3] |= 0x10
    }
    if patch.Modulator.HalfSine {
        data[3] |= 0x08
    }
    data[4] = byte(patch.Modulator.Attack & 0xF) << 4 | byte(patch.Modulator.Decay & 0xF)
    data[5] = byte(patch.Carrier.Attack & 0xF) << 4 | byte(patch.Carrier.Decay & 0xF)
    data[6] = byte(patch.Modulator.SustainLevel & 0xF) << 4 | byte(patch.Modulator.Release & 0xF)
    data[7] = byte(patch.Carrier.SustainLevel & 0xF) << 4 | byte(patch.Carrier.Release & 0xF)
    return data
}

func defaultPatches() [PatchCount]Patch {
    var patches [PatchCount]Patch
    for i := range patches {
        patches[i] = DecodePatch(patchROM[i])
    }
    return patches
}
