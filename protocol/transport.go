package protocol

import "sync/atomic"

// CommandHandler decodes and runs one command; data is advanced past its
// arguments
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the toy's end of the link: it validates incoming blocks,
// dispatches their commands in sequence and acknowledges every block.
type Transport struct {
	dec      decoder
	expected uint32 // atomic; next sequence expected from the host
	output   OutputBuffer
	handler  CommandHandler
	onReset  func()
	flush    func()

	// last accepted block, to tell a retransmit from a host restart
	accepted bool
	lastSeq  uint8
	lastCRC  uint16
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		expected: DestBits,
		output:   output,
		handler:  handler,
	}
}

// Receive consumes complete blocks from input
func (t *Transport) Receive(input InputBuffer) {
	n := t.dec.decode(input.Data(), t.sendAck, t.acceptBlock)
	if n > 0 {
		input.Pop(n)
	}
}

func (t *Transport) acceptBlock(blk Block) bool {
	if blk.Seq&^SeqMask != DestBits {
		return false
	}

	want := t.sequence()
	if blk.Seq == DestBits && want != DestBits && !t.isRetransmit(blk) {
		// host restarted its sequence
		want = DestBits
		t.setSequence(want)
		if t.onReset != nil {
			t.onReset()
		}
	}
	if blk.Seq == want {
		t.setSequence(nextSeq(want))
		t.accepted, t.lastSeq, t.lastCRC = true, blk.Seq, CRC16(blk.Payload)
		_ = t.dispatch(blk.Payload)
	}
	// Out of order blocks are answered with the expected sequence, acting as a NAK
	t.sendAck()
	return true
}

// isRetransmit reports whether blk repeats the last accepted block, as the
// host does when that block's ack was lost
func (t *Transport) isRetransmit(blk Block) bool {
	return t.accepted && blk.Seq == t.lastSeq && CRC16(blk.Payload) == t.lastCRC
}

// dispatch runs every command in a block. A panicking handler drops the rest.
func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.dec.lost = true
		}
	}()

	for len(payload) > 0 {
		id, err := DecodeUint(&payload)
		if err != nil {
			t.dec.lost = true
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

// sendAck writes an empty block and flushes it ahead of any responses
func (t *Transport) sendAck() {
	var buf [BlockMin]byte
	t.output.Output(AppendBlock(buf[:0], t.sequence(), nil))
	if t.flush != nil {
		t.flush()
	}
}

// EncodeFrame writes one block whose payload is produced by frameData.
// Responses carry the current expected sequence, the same as the ack.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, t.sequence()})
	frameData(t.output)

	size := len(t.output.DataSince(start)) + TrailerSize
	t.output.Update(start+posLen, uint8(size))

	crc := CRC16(t.output.DataSince(start))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), SyncByte})
}

// SendCommand sends a message by id
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the initial sequence, as after a reconnect
func (t *Transport) Reset() {
	t.dec.lost = false
	t.accepted = false
	t.setSequence(DestBits)
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback is called when the host restarts its sequence
func (t *Transport) SetResetCallback(fn func()) { t.onReset = fn }

// SetFlushCallback pushes acks to the wire immediately
func (t *Transport) SetFlushCallback(fn func()) { t.flush = fn }

func (t *Transport) sequence() uint8 {
	return uint8(atomic.LoadUint32(&t.expected))
}

func (t *Transport) setSequence(seq uint8) {
	atomic.StoreUint32(&t.expected, uint32(seq))
}
