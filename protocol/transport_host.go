//go:build !tinygo

package protocol

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// DefaultAckTimeout bounds the wait for a block acknowledgement
const DefaultAckTimeout = 2 * time.Second

// ErrClosed is returned once the transport has been closed
var ErrClosed = errors.New("transport closed")

// ResponseHandler observes every response as it arrives
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host's end of the link. It sends one command per
// block, waits for the acknowledgement, and queues the toy's responses.
type HostTransport struct {
	port io.ReadWriteCloser

	seq uint32 // atomic; sequence of the next block sent

	dec   decoder
	input *FifoBuffer
	mu    sync.Mutex // guards writes and seq advancement

	acks      chan Block
	responses chan Block
	handler   ResponseHandler

	stop      chan struct{}
	closeOnce sync.Once
}

func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	return &HostTransport{
		port:      port,
		seq:       DestBits,
		input:     NewFifoBuffer(OutputMax),
		acks:      make(chan Block, 1),
		responses: make(chan Block, 64),
		stop:      make(chan struct{}),
	}
}

// Run reads the port until ctx is done, the transport is closed or the port
// fails
func (t *HostTransport) Run(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.stop:
			return nil
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.feed(buf[:n])
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// serial read timeouts surface as EOF
			time.Sleep(10 * time.Millisecond)
		default:
			select {
			case <-t.stop:
				return nil
			default:
			}
			return errors.Wrap(err, "read port")
		}
	}
}

func (t *HostTransport) feed(data []byte) {
	for len(data) > 0 {
		n := t.input.Write(data)
		data = data[n:]
		consumed := t.dec.decode(t.input.Data(), nil, t.route)
		t.input.Pop(consumed)
		if n == 0 && consumed == 0 {
			// ring full of garbage
			t.input.Reset()
			t.dec.lost = true
		}
	}
}

// route copies a block out of the ring and hands it to a waiter
func (t *HostTransport) route(blk Block) bool {
	blk.Payload = append([]byte(nil), blk.Payload...)
	if blk.IsAck() {
		select {
		case t.acks <- blk:
		default:
		}
		return true
	}

	if t.handler != nil {
		data := blk.Payload
		if id, err := DecodeUint(&data); err == nil {
			_ = t.handler(uint16(id), &data)
		}
	}

	select {
	case t.responses <- blk:
	default:
		// drop the oldest
		select {
		case <-t.responses:
		default:
		}
		t.responses <- blk
	}
	return true
}

// SendCommand sends one command and waits for its acknowledgement
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	scratch := NewScratchOutput()
	EncodeUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()
	if len(payload)+BlockMin > BlockMax {
		return errors.Errorf("command %d too long: %d bytes", cmdID, len(payload)+BlockMin)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.CurrentSequence()
	msg := AppendBlock(make([]byte, 0, BlockMax), seq, payload)
	if _, err := t.port.Write(msg); err != nil {
		return errors.Wrap(err, "write block")
	}
	return errors.Wrapf(t.waitAck(seq, timeout), "command %d", cmdID)
}

// waitAck expects the ack naming the block after seq
func (t *HostTransport) waitAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	want := nextSeq(seq)
	for {
		select {
		case ack := <-t.acks:
			if ack.Seq != want {
				// retransmission request or a stale ack
				return errors.Errorf("ack sequence 0x%02x, want 0x%02x", ack.Seq, want)
			}
			atomic.StoreUint32(&t.seq, uint32(want))
			return nil
		case <-timer.C:
			return errors.Errorf("no ack after %v", timeout)
		case <-t.stop:
			return ErrClosed
		}
	}
}

// ReceiveResponse returns the next queued response
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Block, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responses:
		return resp, nil
	case <-timer.C:
		return Block{}, errors.Errorf("no response after %v", timeout)
	case <-t.stop:
		return Block{}, ErrClosed
	}
}

// AwaitResponse skips queued responses until one with the given id arrives.
// The returned payload starts at the first argument.
func (t *HostTransport) AwaitResponse(id uint16, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := t.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, errors.Wrapf(err, "await response %d", id)
		}
		data := resp.Payload
		got, err := DecodeUint(&data)
		if err == nil && uint16(got) == id {
			return data, nil
		}
	}
}

func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handler = handler
}

// Close stops waiters and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		err = t.port.Close()
	})
	return err
}

// Reset drops queued traffic and restarts the sequence
func (t *HostTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	atomic.StoreUint32(&t.seq, DestBits)
	for len(t.acks) > 0 {
		<-t.acks
	}
	for len(t.responses) > 0 {
		<-t.responses
	}
}

// CurrentSequence returns the sequence the next block will carry
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.seq))
}
