package sdsp

import (
    "encoding/binary"
    "fmt"

    "github.com/kazzmir/chipsound/lib/pcm"
)

const (
    BRRBlockSize = 9
    BRRSamplesPerBlock = 16
    MaxBRRShift = 12
)

/* 9 byte bit rate reduction block, a header followed by 16 4-bit samples
 *
 *   header: | shift (4) | filter (2) | loop | end |
 */
type BRRBlock struct {
    Header byte
    Samples [8]byte
}

func (block *BRRBlock) IsEnd() bool {
    return block.Header & 1 != 0
}

func (block *BRRBlock) IsLoop() bool {
    return block.Header & 2 != 0
}

func (block *BRRBlock) Filter() byte {
    return (block.Header >> 2) & 3
}

func (block *BRRBlock) Shift() byte {
    return block.Header >> 4
}

/* shifts above 12 are clipped */
func (block *BRRBlock) SetShift(shift byte) {
    shift = min(shift, MaxBRRShift)
    block.Header = block.Header & 0x0F | shift << 4
}

func (block *BRRBlock) SetFilter(filter byte) {
    block.Header = block.Header & 0xF3 | (filter & 3) << 2
}

func (block *BRRBlock) SetEnd(end bool, loop bool) {
    block.Header &= 0xFC
    if end {
        block.Header |= 1
    }
    if loop {
        block.Header |= 2
    }
}

/* signed 4-bit sample, upper nibble first */
func (block *BRRBlock) Nibble(index int) int {
    value := block.Samples[index / 2]
    if index & 1 == 0 {
        value >>= 4
    }
    return int(int8(value << 4)) >> 4
}

func (block *BRRBlock) SetNibble(index int, nibble int) {
    value := byte(nibble & 0x0F)
    slot := &block.Samples[index / 2]
    if index & 1 == 0 {
        *slot = *slot & 0x0F | value << 4
    } else {
        *slot = *slot & 0xF0 | value
    }
}

func (block *BRRBlock) Encode() [BRRBlockSize]byte {
    var out [BRRBlockSize]byte
    out[0] = block.Header
    copy(out[1:], block.Samples[:])
    return out
}

func DecodeBRRBlock(data []byte) (BRRBlock, error) {
    var block BRRBlock
    if len(data) < BRRBlockSize {
        return block, fmt.Errorf("sdsp: brr block needs %v bytes but only %v are available", BRRBlockSize, len(data))
    }
    block.Header = data[0]
    copy(block.Samples[:], data[1:BRRBlockSize])
    return block, nil
}

/* an entry in the source directory, 4 bytes each starting at page*0x100 */
type SourceDirectoryEntry struct {
    Start uint16
    Loop uint16
}

func ReadSourceDirectory(ram []byte, page byte, index byte) SourceDirectoryEntry {
    address := (int(page) * 0x100 + int(index) * 4) & 0xFFFF
    var raw [4]byte
    for i := range raw {
        raw[i] = ram[(address + i) & 0xFFFF]
    }
    return SourceDirectoryEntry{
        Start: binary.LittleEndian.Uint16(raw[0:2]),
        Loop: binary.LittleEndian.Uint16(raw[2:4]),
    }
}

func WriteSourceDirectory(ram []byte, page byte, index byte, entry SourceDirectoryEntry) {
    address := (int(page) * 0x100 + int(index) * 4) & 0xFFFF
    var raw [4]byte
    binary.LittleEndian.PutUint16(raw[0:2], entry.Start)
    binary.LittleEndian.PutUint16(raw[2:4], entry.Loop)
    for i, value := range raw {
        ram[(address + i) & 0xFFFF] = value
    }
}

/* apply the 1, 2 or 3 point iir filter, smp1 is the previous sample and
 * smp2 the one before it
 */
func reconstruct(filter int, delta int, smp1 int, smp2 int) int {
    switch filter {
        case 1:
            delta += smp1 >> 1
            delta += (-smp1) >> 5
        case 2:
            delta += smp1
            delta -= smp2 >> 1
            delta += (-smp1 - (smp1 >> 1)) >> 5
            delta += smp2 >> 5
        case 3:
            delta += smp1
            delta -= smp2 >> 1
            delta += (-smp1 * 13) >> 7
            delta += (smp2 + (smp2 >> 1)) >> 4
    }
    return delta
}

func pushHistory(history *[4]int16, value int16) {
    history[3] = history[2]
    history[2] = history[1]
    history[1] = history[0]
    history[0] = value
}

/* Decode one nibble with the given block header and push the result into
 * the history. Values are kept at half scale, matching the hardware.
 */
func decodeNibble(header int, nibble int, history *[4]int16) {
    shift := header >> 4
    delta := (nibble << shift) >> 1
    /* invalid shifts give 0 or -2048 depending on the sign */
    if shift > MaxBRRShift {
        delta = (delta >> 14) & ^0x7FF
    }

    delta = reconstruct((header >> 2) & 3, delta, int(history[0]), int(history[1]))
    pushHistory(history, int16(2 * pcm.Clamp16(delta)))
}

/* Decode a whole brr stream to pcm until a block with the end flag */
func DecodeBRR(data []byte) ([]int16, error) {
    var out []int16
    var history [4]int16
    for offset := 0; offset < len(data); offset += BRRBlockSize {
        block, err := DecodeBRRBlock(data[offset:])
        if err != nil {
            return out, err
        }
        for i := range BRRSamplesPerBlock {
            decodeNibble(int(block.Header), block.Nibble(i), &history)
            out = append(out, history[0])
        }
        if block.IsEnd() {
            break
        }
    }
    return out, nil
}

/* Encode pcm with filter 0, picking the smallest shift per block that fits.
 * The last block gets the end flag, and the loop flag when loop is set.
 */
func EncodeBRR(samples []int16, loop bool) []byte {
    blocks := (len(samples) + BRRSamplesPerBlock - 1) / BRRSamplesPerBlock
    if blocks == 0 {
        blocks = 1
    }

    out := make([]byte, 0, blocks * BRRBlockSize)
    for b := range blocks {
        var chunk [BRRSamplesPerBlock]int
        for i := range chunk {
            index := b * BRRSamplesPerBlock + i
            if index < len(samples) {
                /* decoded samples come back at half scale */
                chunk[i] = int(samples[index]) >> 1
            }
        }

        shift := 0
        for shift < MaxBRRShift {
            fits := true
            for _, value := range chunk {
                scaled := value >> shift
                if scaled < -8 || scaled > 7 {
                    fits = false
                    break
                }
            }
            if fits {
                break
            }
            shift += 1
        }

        var block BRRBlock
        /* the decoder shifts right by one after the nibble shift */
        block.SetShift(byte(min(shift + 1, MaxBRRShift)))
        for i, value := range chunk {
            block.SetNibble(i, pcm.Clip(value >> shift, -8, 7))
        }
        if b == blocks - 1 {
            block.SetEnd(true, loop)
        }

        encoded := block.Encode()
        out = append(out, encoded[:]...)
    }

    return out
}
