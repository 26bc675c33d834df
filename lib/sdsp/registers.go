package sdsp

import (
    "fmt"
)

const (
    VoiceCount = 8
    RegisterCount = 128
    FIRCount = 8
)

// global registers
const (
    MainVolumeLeftRegister = 0x0C
    EchoFeedbackRegister = 0x0D
    MainVolumeRightRegister = 0x1C
    EchoVolumeLeftRegister = 0x2C
    PitchModulationRegister = 0x2D
    EchoVolumeRightRegister = 0x3C
    NoiseEnableRegister = 0x3D
    KeyOnRegister = 0x4C
    EchoEnableRegister = 0x4D
    KeyOffRegister = 0x5C
    SourceDirectoryRegister = 0x5D
    FlagsRegister = 0x6C
    EchoPageRegister = 0x6D
    EndXRegister = 0x7C
    EchoDelayRegister = 0x7D
)

// per voice registers, or'd with 0xn0 for voice n
const (
    VoiceVolumeLeft = 0x00
    VoiceVolumeRight = 0x01
    VoicePitchLow = 0x02
    VoicePitchHigh = 0x03
    VoiceSource = 0x04
    VoiceADSR1 = 0x05
    VoiceADSR2 = 0x06
    VoiceGain = 0x07
    VoiceEnvx = 0x08
    VoiceOutx = 0x09
    VoiceFIR = 0x0F
)

// bits of the flags register
const (
    FlagNoisePeriod = 0x1F
    FlagEchoWriteDisable = 0x20
    FlagMute = 0x40
    FlagReset = 0x80
)

type AddressSpaceError struct {
    Address int
    Low int
    High int
}

func (err *AddressSpaceError) Error() string {
    return fmt.Sprintf("sdsp: register 0x%x is outside of [0x%x, 0x%x)", err.Address, err.Low, err.High)
}

func checkAddress(address int) error {
    if address < 0 || address >= RegisterCount {
        return &AddressSpaceError{Address: address, Low: 0, High: RegisterCount}
    }
    return nil
}

/* The register file of the dsp. Voice n owns $n0-$n9, the globals live in
 * the $xC and $xD columns and the fir coefficients in the $xF column.
 */
type Registers [RegisterCount]byte

func (regs *Registers) Voice(index int) VoiceRegisters {
    return VoiceRegisters{regs: regs, index: index}
}

func (regs *Registers) MainVolumeLeft() int8 {
    return int8(regs[MainVolumeLeftRegister])
}

func (regs *Registers) MainVolumeRight() int8 {
    return int8(regs[MainVolumeRightRegister])
}

func (regs *Registers) EchoFeedback() int8 {
    return int8(regs[EchoFeedbackRegister])
}

func (regs *Registers) EchoVolumeLeft() int8 {
    return int8(regs[EchoVolumeLeftRegister])
}

func (regs *Registers) EchoVolumeRight() int8 {
    return int8(regs[EchoVolumeRightRegister])
}

func (regs *Registers) PitchModulation() byte {
    return regs[PitchModulationRegister]
}

func (regs *Registers) NoiseEnable() byte {
    return regs[NoiseEnableRegister]
}

func (regs *Registers) KeyOn() byte {
    return regs[KeyOnRegister]
}

func (regs *Registers) EchoEnable() byte {
    return regs[EchoEnableRegister]
}

func (regs *Registers) KeyOff() byte {
    return regs[KeyOffRegister]
}

/* the source directory is at SourceDirectory() * 0x100 */
func (regs *Registers) SourceDirectory() byte {
    return regs[SourceDirectoryRegister]
}

func (regs *Registers) Flags() byte {
    return regs[FlagsRegister]
}

func (regs *Registers) NoisePeriod() byte {
    return regs[FlagsRegister] & FlagNoisePeriod
}

func (regs *Registers) EchoWriteDisabled() bool {
    return regs[FlagsRegister] & FlagEchoWriteDisable != 0
}

func (regs *Registers) Muted() bool {
    return regs[FlagsRegister] & FlagMute != 0
}

func (regs *Registers) ResetFlag() bool {
    return regs[FlagsRegister] & FlagReset != 0
}

func (regs *Registers) EchoPage() byte {
    return regs[EchoPageRegister]
}

func (regs *Registers) EndX() byte {
    return regs[EndXRegister]
}

/* 4 bits, 16ms per step */
func (regs *Registers) EchoDelay() byte {
    return regs[EchoDelayRegister] & 0x0F
}

func (regs *Registers) FIR(index int) int8 {
    return int8(regs[index << 4 | VoiceFIR])
}

type VoiceRegisters struct {
    regs *Registers
    index int
}

func (voice VoiceRegisters) address(offset int) int {
    return voice.index << 4 | offset
}

func (voice VoiceRegisters) get(offset int) byte {
    return voice.regs[voice.address(offset)]
}

func (voice VoiceRegisters) VolumeLeft() int8 {
    return int8(voice.get(VoiceVolumeLeft))
}

func (voice VoiceRegisters) VolumeRight() int8 {
    return int8(voice.get(VoiceVolumeRight))
}

/* 14-bit pitch, 0x1000 plays the sample at 32khz */
func (voice VoiceRegisters) Pitch() int {
    return 0x3FFF & (int(voice.get(VoicePitchHigh)) << 8 | int(voice.get(VoicePitchLow)))
}

func (voice VoiceRegisters) Source() byte {
    return voice.get(VoiceSource)
}

func (voice VoiceRegisters) ADSR1() byte {
    return voice.get(VoiceADSR1)
}

func (voice VoiceRegisters) ADSR2() byte {
    return voice.get(VoiceADSR2)
}

/* when adsr is disabled the gain register drives the envelope */
func (voice VoiceRegisters) ADSREnabled() bool {
    return voice.ADSR1() & 0x80 != 0
}

func (voice VoiceRegisters) Attack() byte {
    return voice.ADSR1() & 0x0F
}

func (voice VoiceRegisters) Decay() byte {
    return (voice.ADSR1() >> 4) & 0x07
}

func (voice VoiceRegisters) SustainLevel() byte {
    return voice.ADSR2() >> 5
}

func (voice VoiceRegisters) SustainRate() byte {
    return voice.ADSR2() & 0x1F
}

func (voice VoiceRegisters) Gain() byte {
    return voice.get(VoiceGain)
}

func (voice VoiceRegisters) Envx() byte {
    return voice.get(VoiceEnvx)
}

func (voice VoiceRegisters) Outx() int8 {
    return int8(voice.get(VoiceOutx))
}

/* build the two adsr register values */
func EncodeADSR(attack byte, decay byte, sustainLevel byte, sustainRate byte) (byte, byte) {
    adsr1 := 0x80 | (decay & 0x07) << 4 | attack & 0x0F
    adsr2 := (sustainLevel & 0x07) << 5 | sustainRate & 0x1F
    return adsr1, adsr2
}
