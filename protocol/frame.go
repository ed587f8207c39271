package protocol

import "bytes"

// Block is one checked message block
type Block struct {
	Seq     uint8
	Payload []byte
}

// IsAck reports whether the block carries no messages
func (b Block) IsAck() bool { return len(b.Payload) == 0 }

type scanResult uint8

const (
	scanOK scanResult = iota
	scanShort
	scanCorrupt
)

// scanBlock validates the block at the front of data
func scanBlock(data []byte) (Block, int, scanResult) {
	if len(data) < BlockMin {
		return Block{}, 0, scanShort
	}
	size := int(data[posLen])
	if size < BlockMin || size > BlockMax {
		return Block{}, 0, scanCorrupt
	}
	if len(data) < size {
		return Block{}, 0, scanShort
	}
	if data[size-1] != SyncByte {
		return Block{}, 0, scanCorrupt
	}
	crc := uint16(data[size-TrailerSize])<<8 | uint16(data[size-TrailerSize+1])
	if crc != CRC16(data[:size-TrailerSize]) {
		return Block{}, 0, scanCorrupt
	}
	return Block{Seq: data[posSeq], Payload: data[HeaderSize : size-TrailerSize]}, size, scanOK
}

// decoder splits a byte stream into blocks. After a corrupt block it drops
// input up to and including the next sync byte.
type decoder struct {
	lost bool
}

// decode walks data, calling onSync when sync is regained and accept for
// each valid block. A block accept refuses is treated as corrupt. It returns
// the number of bytes consumed; an incomplete trailing block is left alone.
func (d *decoder) decode(data []byte, onSync func(), accept func(Block) bool) int {
	total := len(data)
	for len(data) > 0 {
		if d.lost {
			i := bytes.IndexByte(data, SyncByte)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			d.lost = false
			if onSync != nil {
				onSync()
			}
			continue
		}
		if data[0] == SyncByte {
			data = data[1:]
			continue
		}

		blk, n, res := scanBlock(data)
		if res == scanShort {
			break
		}
		if res == scanCorrupt || !accept(blk) {
			d.lost = true
			continue
		}
		data = data[n:]
	}
	return total - len(data)
}

// AppendBlock frames payload with the given sequence and appends it to dst
func AppendBlock(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, uint8(len(payload)+BlockMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), SyncByte)
}
