package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.Bool(true)
	w.U8(42)
	w.U32(1234567)
	w.I32(-99)
	w.U64(9999999999)
	w.F32(3.5)
	w.F64(2.71828)
	w.Bytes4("FTLP")
	w.String("hello wire")
	w.Raw([]byte{1, 2, 3, 4, 5})

	r := NewReader(w.Bytes())
	require.Equal(t, true, r.Bool())
	require.Equal(t, uint8(42), r.U8())
	require.Equal(t, uint32(1234567), r.U32())
	require.Equal(t, int32(-99), r.I32())
	require.Equal(t, uint64(9999999999), r.U64())
	require.InDelta(t, 3.5, float64(r.F32()), 0.0001)
	require.InDelta(t, 2.71828, r.F64(), 0.00001)
	require.Equal(t, "FTLP", r.Bytes4())
	require.Equal(t, "hello wire", r.String())
	require.Equal(t, []byte{1, 2, 3, 4, 5}, r.Raw())
	require.Equal(t, 0, r.Remaining())
}

func TestWriterSubMessage(t *testing.T) {
	w := NewWriter(32)
	w.Sub(func(sub *Writer) {
		sub.U32(7)
		sub.String("inner")
	})
	w.U8(1)

	r := NewReader(w.Bytes())
	sub := NewReader(r.Raw())
	require.Equal(t, uint32(7), sub.U32())
	require.Equal(t, "inner", sub.String())
	require.Equal(t, uint8(1), r.U8())
}

func TestWriterEmptySubMessage(t *testing.T) {
	w := NewWriter(8)
	w.Sub(func(sub *Writer) {})

	r := NewReader(w.Bytes())
	require.Equal(t, []byte{}, r.Raw())
}

func TestDeterministicEncoding(t *testing.T) {
	build := func() []byte {
		w := NewWriter(16)
		w.String("a")
		w.U32(5)
		w.F32(1.25)
		return w.Bytes()
	}
	require.Equal(t, build(), build())
}
