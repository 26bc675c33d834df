package host

/* Every chip gets the same reset/write/frame surface here so the tools can
 * drive any of them from a script or a test.
 */

import (
    "errors"
    "fmt"

    "github.com/kazzmir/chipsound/lib/blip"
    "github.com/kazzmir/chipsound/lib/ricoh2a03"
    "github.com/kazzmir/chipsound/lib/sdsp"
    "github.com/kazzmir/chipsound/lib/sn76489"
    "github.com/kazzmir/chipsound/lib/turbografx16"
    "github.com/kazzmir/chipsound/lib/vrc6"
    "github.com/kazzmir/chipsound/lib/ym2413"
)

var ErrInvalidAddress = errors.New("host: address is not a register of this chip")

/* a chip that renders into blip buffers */
type Chip interface {
    Reset()
    EndFrame(time blip.BlipTime)
    Volume(level float64)
    TrebleEq(eq blip.Equalizer)
}

type RegisterWriter interface {
    Write(time blip.BlipTime, address int, data byte) error
}

type BlipChip interface {
    Chip
    RegisterWriter
    /* how each output buffer is mixed, one entry per buffer */
    Layout() []MixerChannel
    Connect(buffers []*blip.Buffer)
    Status() []string
}

/* a chip that produces pcm itself. Writes take effect at the next sample. */
type PCMChip interface {
    Reset()
    Write(address int, data byte) error
    Run(pairs int, out []int16)
    Status() []string
}

var monoLayout = []MixerChannel{{Gain: 1, Pan: 0}}

/* center, left and right buffers */
var stereoLayout = []MixerChannel{
    {Gain: 1, Pan: 0},
    {Gain: 1, Pan: -1},
    {Gain: 1, Pan: 1},
}

type NESChip struct {
    *ricoh2a03.APU
    PAL bool
}

func MakeNESChip(pal bool) *NESChip {
    chip := &NESChip{APU: ricoh2a03.MakeAPU(), PAL: pal}
    chip.Reset()
    return chip
}

func (chip *NESChip) Reset() {
    chip.APU.Reset(chip.PAL)
}

func (chip *NESChip) Write(time blip.BlipTime, address int, data byte) error {
    if address < ricoh2a03.AddressStart || address > ricoh2a03.AddressEnd {
        return fmt.Errorf("%w: nes $%04x", ErrInvalidAddress, address)
    }
    chip.APU.WriteRegister(time, address, data)
    return nil
}

func (chip *NESChip) Layout() []MixerChannel {
    return monoLayout
}

func (chip *NESChip) Connect(buffers []*blip.Buffer) {
    chip.APU.Output(buffers[0])
}

func (chip *NESChip) Status() []string {
    var lines []string
    oscillators := []struct{
        Name string
        Osc *ricoh2a03.Oscillator
    }{
        {"pulse1", &chip.APU.Pulse1.Oscillator},
        {"pulse2", &chip.APU.Pulse2.Oscillator},
        {"triangle", &chip.APU.Triangle.Oscillator},
        {"noise", &chip.APU.Noise.Oscillator},
    }
    for _, entry := range oscillators {
        lines = append(lines, fmt.Sprintf("%-8v regs % x length %v", entry.Name, entry.Osc.Regs, entry.Osc.LengthCounter))
    }
    lines = append(lines, fmt.Sprintf("frame %v mode 0x%02x enables 0x%02x", chip.APU.Frame, chip.APU.FrameMode, chip.APU.OscEnables))
    return lines
}

type VRC6Chip struct {
    *vrc6.VRC6
}

func MakeVRC6Chip() *VRC6Chip {
    return &VRC6Chip{VRC6: vrc6.MakeVRC6()}
}

func (chip *VRC6Chip) Layout() []MixerChannel {
    return monoLayout
}

func (chip *VRC6Chip) Connect(buffers []*blip.Buffer) {
    chip.VRC6.Output(buffers[0])
}

func (chip *VRC6Chip) Status() []string {
    var lines []string
    for i := range chip.VRC6.Oscs {
        osc := &chip.VRC6.Oscs[i]
        lines = append(lines, fmt.Sprintf("osc %v regs % x phase %v", i, osc.Regs, osc.Phase))
    }
    return lines
}

/* Sega SN76489, address 0 is the data port and address 1 the Game Gear stereo register */
type SegaChip struct {
    *sn76489.SN76489
    Feedback uint
    NoiseWidth int
}

func MakeSegaChip() *SegaChip {
    chip := &SegaChip{SN76489: sn76489.MakeSN76489()}
    chip.Reset()
    return chip
}

func (chip *SegaChip) Reset() {
    chip.SN76489.Reset(chip.Feedback, chip.NoiseWidth)
}

func (chip *SegaChip) Write(time blip.BlipTime, address int, data byte) error {
    switch address {
        case 0:
            chip.SN76489.WriteData(time, data)
        case 1:
            chip.SN76489.WriteGGStereo(time, data)
        default:
            return fmt.Errorf("%w: sn76489 port %v", ErrInvalidAddress, address)
    }
    return nil
}

func (chip *SegaChip) Layout() []MixerChannel {
    return stereoLayout
}

func (chip *SegaChip) Connect(buffers []*blip.Buffer) {
    chip.SN76489.Output(buffers[0], buffers[1], buffers[2])
}

func (chip *SegaChip) Status() []string {
    var lines []string
    for i := range chip.SN76489.Squares {
        square := &chip.SN76489.Squares[i]
        lines = append(lines, fmt.Sprintf("tone %v period %v attenuation %v", i, square.Period, square.Attenuation))
    }
    lines = append(lines, fmt.Sprintf("noise select %v attenuation %v shifter 0x%04x", chip.SN76489.Noise.PeriodSelect, chip.SN76489.Noise.Attenuation, chip.SN76489.Noise.Shifter))
    return lines
}

type PCEngineChip struct {
    *turbografx16.PSG
}

func MakePCEngineChip() *PCEngineChip {
    return &PCEngineChip{PSG: turbografx16.MakePSG()}
}

func (chip *PCEngineChip) Write(time blip.BlipTime, address int, data byte) error {
    if address < turbografx16.AddressStart || address > turbografx16.AddressEnd {
        return fmt.Errorf("%w: pc-engine $%04x", ErrInvalidAddress, address)
    }
    chip.PSG.Write(time, address, data)
    return nil
}

func (chip *PCEngineChip) Layout() []MixerChannel {
    return stereoLayout
}

func (chip *PCEngineChip) Connect(buffers []*blip.Buffer) {
    chip.PSG.Output(buffers[0], buffers[1], buffers[2])
}

func (chip *PCEngineChip) Status() []string {
    var lines []string
    for i := range chip.PSG.Oscs {
        osc := &chip.PSG.Oscs[i]
        lines = append(lines, fmt.Sprintf("osc %v period %v control 0x%02x balance 0x%02x noise 0x%02x", i, osc.Period, osc.Control, osc.Balance, osc.Noise))
    }
    lines = append(lines, fmt.Sprintf("latch %v balance 0x%02x lfo %v/0x%02x", chip.PSG.Latch, chip.PSG.Balance, chip.PSG.LFOFrequency, chip.PSG.LFOControl))
    return lines
}

/* S-DSP with 64k of audio ram, runs at 32khz */
type SDSPChip struct {
    *sdsp.DSP
}

func MakeSDSPChip(ram []byte) (*SDSPChip, error) {
    dsp, err := sdsp.NewDSP(ram)
    if err != nil {
        return nil, err
    }
    return &SDSPChip{DSP: dsp}, nil
}

func (chip *SDSPChip) Status() []string {
    var lines []string
    registers := chip.DSP.Registers()
    for i := range sdsp.VoiceCount {
        voice := registers.Voice(i)
        lines = append(lines, fmt.Sprintf("voice %v pitch 0x%04x source %v envx 0x%02x outx %v", i, voice.Pitch(), voice.Source(), voice.Envx(), voice.Outx()))
    }
    lines = append(lines, fmt.Sprintf("kon 0x%02x koff 0x%02x endx 0x%02x flags 0x%02x", registers.KeyOn(), registers.KeyOff(), registers.EndX(), registers.Flags()))
    return lines
}

type YM2413Chip struct {
    *ym2413.Emulator
}

func MakeYM2413Chip() *YM2413Chip {
    return &YM2413Chip{Emulator: ym2413.NewEmulator()}
}

func (chip *YM2413Chip) Write(address int, data byte) error {
    if address < 0 || address > ym2413.LastRegister {
        return fmt.Errorf("%w: ym2413 register 0x%02x", ErrInvalidAddress, address)
    }
    chip.Emulator.Write(address, int(data))
    return nil
}

func (chip *YM2413Chip) Status() []string {
    var lines []string
    for i := range ym2413.MelodicChannels {
        channel := chip.Emulator.Channel(i)
        instrument := chip.Emulator.Register(ym2413.InstrumentRegister + i) >> 4
        lines = append(lines, fmt.Sprintf("ch %v %-15v fnum 0x%02x%02x %v/%v", i, ym2413.InstrumentNames[instrument],
            chip.Emulator.Register(ym2413.FrequencyHighRegister + i) & 0xF, chip.Emulator.Register(ym2413.FrequencyLowRegister + i),
            channel.Modulator.State, channel.Carrier.State))
    }
    lines = append(lines, fmt.Sprintf("rhythm 0x%02x", chip.Emulator.Register(ym2413.RhythmRegister)))
    return lines
}
