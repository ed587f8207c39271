package protocol

import "errors"

var (
	ErrTruncated = errors.New("truncated VLQ value")
	ErrTooLong   = errors.New("VLQ byte string exceeds buffer")
)

// vlqShifts are the 7 bit groups emitted ahead of the final byte, most
// significant first
var vlqShifts = [...]uint{28, 21, 14, 7}

// EncodeInt appends v in the link's VLQ form. Small negative values stay
// short: a group is only emitted when v falls outside [-2^(s-2), 3*2^(s-2)).
func EncodeInt(out OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for _, shift := range vlqShifts {
		lim := int32(1) << (shift - 2)
		if v < -lim || v >= 3*lim {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	out.Output(buf[:n+1])
}

// EncodeUint appends an unsigned value
func EncodeUint(out OutputBuffer, v uint32) {
	EncodeInt(out, int32(v))
}

// EncodeBool appends a %c flag
func EncodeBool(out OutputBuffer, v bool) {
	if v {
		EncodeInt(out, 1)
	} else {
		EncodeInt(out, 0)
	}
}

// EncodeBytes appends a length-prefixed byte string (%*s)
func EncodeBytes(out OutputBuffer, data []byte) {
	EncodeUint(out, uint32(len(data)))
	out.Output(data)
}

// DecodeInt consumes one VLQ value from the front of data
func DecodeInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrTruncated
	}
	c := uint32(buf[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for c&0x80 != 0 {
		if i >= len(buf) {
			return 0, ErrTruncated
		}
		c = uint32(buf[i])
		v = v<<7 | c&0x7F
		i++
	}
	*data = buf[i:]
	return int32(v), nil
}

// DecodeUint consumes one unsigned value
func DecodeUint(data *[]byte) (uint32, error) {
	v, err := DecodeInt(data)
	return uint32(v), err
}

// DecodeBool consumes a %c flag; any nonzero value is true
func DecodeBool(data *[]byte) (bool, error) {
	v, err := DecodeUint(data)
	return v != 0, err
}

// DecodeBytes consumes a length-prefixed byte string. The result aliases data.
func DecodeBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrTooLong
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}
