// Package wire provides little-endian encoders for index payloads.
//
// Readers and writers keep the first error and turn every later call into a
// no-op, so callers check Err once at the end.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned when a payload ends before a value is complete.
var ErrShortBuffer = errors.New("wire: short buffer")

// Writer appends values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with capacity hint n.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) Int(v int) { w.U64(uint64(int64(v))) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw writes a length-prefixed byte slice.
func (w *Writer) Raw(b []byte) {
	w.U64(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// F32s writes a length-prefixed float32 slice.
func (w *Writer) F32s(v []float32) {
	w.U64(uint64(len(v)))
	for _, f := range v {
		w.F32(f)
	}
}

// I64s writes a length-prefixed int64 slice.
func (w *Writer) I64s(v []int64) {
	w.U64(uint64(len(v)))
	for _, x := range v {
		w.I64(x)
	}
}

// Reader consumes values written by Writer.
type Reader struct {
	buf []byte
	err error
}

// NewReader reads from b without copying.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) }

func (r *Reader) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)) {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(r.buf))
		return nil
	}
	b := r.buf[:n:n]
	r.buf = r.buf[n:]
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) Int() int { return int(int64(r.U64())) }

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

func (r *Reader) String() string {
	return string(r.take(uint64(r.U32())))
}

// Raw returns a copy of a length-prefixed byte slice.
func (r *Reader) Raw() []byte {
	b := r.take(r.U64())
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *Reader) count(width uint64) uint64 {
	n := r.U64()
	if r.err == nil && n > uint64(len(r.buf))/width {
		r.err = fmt.Errorf("%w: %d elements exceed payload", ErrShortBuffer, n)
		return 0
	}
	return n
}

func (r *Reader) F32s() []float32 {
	n := r.count(4)
	if r.err != nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.F32()
	}
	return out
}

func (r *Reader) I64s() []int64 {
	n := r.count(8)
	if r.err != nil {
		return nil
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = r.I64()
	}
	return out
}
