// Package tvb provides the bounds-checked source buffer decoders hand to the
// protocol tree.
//
// A Buffer distinguishes the bytes that were actually captured from the
// length the frame claimed on the wire. Reading past the captured bytes
// means the capture was cut short (ErrBounds); reading past the reported
// length means the frame itself is malformed (ErrReportedBounds). Decoders
// use the difference to mark a frame truncated rather than malformed.
package tvb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBounds indicates a range past the captured data.
	ErrBounds = errors.New("tvb: range exceeds captured data")

	// ErrReportedBounds indicates a range past the reported frame length.
	ErrReportedBounds = errors.New("tvb: range exceeds reported length")

	// ErrInvalidRange indicates a negative offset or a length below -1.
	ErrInvalidRange = errors.New("tvb: invalid range")
)

// BoundsError describes a rejected range.
type BoundsError struct {
	Offset   int
	Length   int
	Captured int
	Reported int
	Err      error
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: offset %d length %d (captured %d, reported %d)",
		e.Err, e.Offset, e.Length, e.Captured, e.Reported)
}

func (e *BoundsError) Unwrap() error {
	return e.Err
}

// Buffer is a read-only view of frame bytes. The bytes are owned by the
// caller that created the buffer; a Buffer never copies or modifies them.
type Buffer struct {
	data     []byte
	reported int
	name     string
	parent   *Buffer
	base     int // offset of data[0] inside the top-level buffer
}

// New wraps data whose captured and reported lengths are equal.
func New(data []byte) *Buffer {
	return &Buffer{data: data, reported: len(data), name: "Frame"}
}

// NewReal wraps data captured from a frame that was reportedLen bytes long
// on the wire. reportedLen smaller than len(data) is raised to len(data).
func NewReal(data []byte, reportedLen int) *Buffer {
	if reportedLen < len(data) {
		reportedLen = len(data)
	}
	return &Buffer{data: data, reported: reportedLen, name: "Frame"}
}

// WithName sets the data source name shown by consumers.
func (b *Buffer) WithName(name string) *Buffer {
	b.name = name
	return b
}

// Name returns the data source name.
func (b *Buffer) Name() string {
	return b.name
}

// Subset returns a child buffer covering [offset, offset+length). A length
// of -1 extends to the end. The range may run past the captured bytes as
// long as it stays inside the reported length; the child then holds fewer
// captured bytes than it reports.
func (b *Buffer) Subset(offset, length int) (*Buffer, error) {
	if offset < 0 || length < -1 {
		return nil, b.boundsErr(offset, length, ErrInvalidRange)
	}
	if offset > len(b.data) {
		if offset > b.reported {
			return nil, b.boundsErr(offset, length, ErrReportedBounds)
		}
		return nil, b.boundsErr(offset, length, ErrBounds)
	}
	captured := len(b.data) - offset
	reported := b.reported - offset
	if length != -1 {
		if length > reported {
			return nil, b.boundsErr(offset, length, ErrReportedBounds)
		}
		reported = length
		captured = min(captured, length)
	}
	return &Buffer{
		data:     b.data[offset : offset+captured],
		reported: reported,
		name:     b.name,
		parent:   b,
		base:     b.base + offset,
	}, nil
}

// Parent returns the buffer this one was cut from, or nil.
func (b *Buffer) Parent() *Buffer {
	return b.parent
}

// Base returns the offset of this buffer's first byte in the top-level
// buffer.
func (b *Buffer) Base() int {
	return b.base
}

// CapturedLength returns the number of bytes available.
func (b *Buffer) CapturedLength() int {
	return len(b.data)
}

// ReportedLength returns the length the frame claimed on the wire.
func (b *Buffer) ReportedLength() int {
	return b.reported
}

// Remaining returns the captured bytes left after offset, or 0.
func (b *Buffer) Remaining(offset int) int {
	if offset < 0 || offset > len(b.data) {
		return 0
	}
	return len(b.data) - offset
}

// Ensure validates [offset, offset+length) and returns the resolved length.
// A length of -1 means "to the end of the captured data".
func (b *Buffer) Ensure(offset, length int) (int, error) {
	if offset < 0 || length < -1 {
		return 0, b.boundsErr(offset, length, ErrInvalidRange)
	}
	if length == -1 {
		if offset > len(b.data) {
			if offset > b.reported {
				return 0, b.boundsErr(offset, length, ErrReportedBounds)
			}
			return 0, b.boundsErr(offset, length, ErrBounds)
		}
		return len(b.data) - offset, nil
	}
	end := offset + length
	if end < offset {
		return 0, b.boundsErr(offset, length, ErrInvalidRange)
	}
	if end > len(b.data) {
		if end > b.reported {
			return 0, b.boundsErr(offset, length, ErrReportedBounds)
		}
		return 0, b.boundsErr(offset, length, ErrBounds)
	}
	return length, nil
}

func (b *Buffer) boundsErr(offset, length int, err error) error {
	return &BoundsError{
		Offset:   offset,
		Length:   length,
		Captured: len(b.data),
		Reported: b.reported,
		Err:      err,
	}
}

// Bytes returns the bytes in [offset, offset+length). The slice aliases the
// buffer's memory and must not be modified.
func (b *Buffer) Bytes(offset, length int) ([]byte, error) {
	n, err := b.Ensure(offset, length)
	if err != nil {
		return nil, err
	}
	return b.data[offset : offset+n : offset+n], nil
}

// Uint8 reads one byte.
func (b *Buffer) Uint8(offset int) (uint8, error) {
	p, err := b.Bytes(offset, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// Uint16 reads two bytes.
func (b *Buffer) Uint16(offset int, order binary.ByteOrder) (uint16, error) {
	p, err := b.Bytes(offset, 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(p), nil
}

// Uint24 reads three bytes.
func (b *Buffer) Uint24(offset int, order binary.ByteOrder) (uint32, error) {
	v, err := b.UintN(offset, 3, order)
	return uint32(v), err
}

// Uint32 reads four bytes.
func (b *Buffer) Uint32(offset int, order binary.ByteOrder) (uint32, error) {
	p, err := b.Bytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(p), nil
}

// Uint64 reads eight bytes.
func (b *Buffer) Uint64(offset int, order binary.ByteOrder) (uint64, error) {
	p, err := b.Bytes(offset, 8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(p), nil
}

// UintN reads an n-byte unsigned integer, 1 <= n <= 8.
func (b *Buffer) UintN(offset, n int, order binary.ByteOrder) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, b.boundsErr(offset, n, ErrInvalidRange)
	}
	p, err := b.Bytes(offset, n)
	if err != nil {
		return 0, err
	}
	var v uint64
	if order == binary.LittleEndian {
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(p[i])
		}
		return v, nil
	}
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(p[i])
	}
	return v, nil
}

// Float32 reads an IEEE 754 single precision number.
func (b *Buffer) Float32(offset int, order binary.ByteOrder) (float32, error) {
	v, err := b.Uint32(offset, order)
	return math.Float32frombits(v), err
}

// Float64 reads an IEEE 754 double precision number.
func (b *Buffer) Float64(offset int, order binary.ByteOrder) (float64, error) {
	v, err := b.Uint64(offset, order)
	return math.Float64frombits(v), err
}
