package codec

import (
	"encoding/binary"
	"math"
)

func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func readF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func readF64(buf []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
}

func readU16(buf []byte, off int) uint16 { return binary.LittleEndian.Uint16(buf[off : off+2]) }
func readU32(buf []byte, off int) uint32 { return binary.LittleEndian.Uint32(buf[off : off+4]) }
func readU64(buf []byte, off int) uint64 { return binary.LittleEndian.Uint64(buf[off : off+8]) }
func readI16(buf []byte, off int) int16  { return int16(readU16(buf, off)) }

// nulTerminatedString decodes a fixed-width, NUL-terminated UTF-8 field
// the way the participants packet encodes steam names: bytes after the
// first 0x00 are padding, not data.
func nulTerminatedString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// cursor walks a packed little-endian buffer field by field. The payload
// structs here have dozens of scalar fields with no padding between them,
// so a running offset read this way is far less error-prone than
// hand-computed byte offsets per field.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) i8() int8 { return int8(c.u8()) }

func (c *cursor) u16() uint16 {
	v := readU16(c.buf, c.off)
	c.off += 2
	return v
}

func (c *cursor) i16() int16 {
	v := readI16(c.buf, c.off)
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := readU32(c.buf, c.off)
	c.off += 4
	return v
}

func (c *cursor) u64() uint64 {
	v := readU64(c.buf, c.off)
	c.off += 8
	return v
}

func (c *cursor) f32() float32 {
	v := readF32(c.buf, c.off)
	c.off += 4
	return v
}

func (c *cursor) f64() float64 {
	v := readF64(c.buf, c.off)
	c.off += 8
	return v
}

func (c *cursor) bytes(n int) []byte {
	v := c.buf[c.off : c.off+n]
	c.off += n
	return v
}
