// Package protocol implements the serial control link of the noise toy.
//
// Messages are blocks of
//
//	len seq payload... crc_hi crc_lo 0x7E
//
// where the payload is a sequence of VLQ-encoded command ids, each followed
// by its VLQ-encoded arguments. The receiver acknowledges every block with an
// empty block carrying the next sequence number it expects.
package protocol

// Block layout
const (
	HeaderSize  = 2
	TrailerSize = 3
	BlockMin    = HeaderSize + TrailerSize
	BlockMax    = 64

	posLen = 0
	posSeq = 1

	SyncByte = 0x7E
	DestBits = 0x10
	SeqMask  = 0x0F

	// OutputMax is the scratch capacity for outgoing data, several blocks
	OutputMax = 512
)

// nextSeq advances a sequence number within the 0x10-0x1F window
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & SeqMask) | DestBits
}
