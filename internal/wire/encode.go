// Package wire provides the length-prefixed binary framing used to
// serialize outbound deltas (§4.6 of the wire contract this service
// exposes to subscribers): strings and sub-messages are preceded by their
// byte length as a fixed uint32 (callers prefix repeated elements with
// their element count the same way), so a reader never has to scan for
// a terminator. Encoding
// is deterministic: the same value always produces the same bytes,
// since callers are responsible for writing fields and map entries in a
// fixed, sorted order (see internal/session/encode.go).
package wire

import (
	"encoding/binary"
	"math"
)

// Writer accumulates an encoded message. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with cap bytes of pre-allocated capacity.
func NewWriter(cap int) *Writer {
	return &Writer{buf: make([]byte, 0, cap)}
}

// Bytes returns the accumulated message.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports how many bytes have been written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// Bytes4 writes the 4-byte code verbatim (event codes are always exactly
// four ASCII bytes, so no length prefix is needed).
func (w *Writer) Bytes4(s string) {
	var b [4]byte
	copy(b[:], s)
	w.buf = append(w.buf, b[:]...)
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw writes a length-prefixed opaque byte string — used to embed an
// already-encoded sub-message.
func (w *Writer) Raw(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Sub encodes a sub-message by invoking fn against a fresh Writer, then
// embeds the result length-prefixed. An empty sub-message still writes
// its zero-length prefix and nothing else — callers skip calling Sub at
// all when a field should be entirely absent.
func (w *Writer) Sub(fn func(*Writer)) {
	sub := NewWriter(64)
	fn(sub)
	w.Raw(sub.Bytes())
}

// Reader walks a message produced by Writer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) Bool() bool {
	v := r.buf[r.off] != 0
	r.off++
	return v
}

func (r *Reader) U8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *Reader) U32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v
}

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

func (r *Reader) Bytes4() string {
	s := string(r.buf[r.off : r.off+4])
	r.off += 4
	return s
}

func (r *Reader) String() string {
	n := r.U32()
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

func (r *Reader) Raw() []byte {
	n := r.U32()
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}
