package bx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLittleEndianReadWrite verifies that the unsigned helpers round-trip
// values using little-endian encoding.
func TestLittleEndianReadWrite(t *testing.T) {
	// ---- U16 ----
	{
		b := make([]byte, 2)
		var v uint16 = 0x1234

		PutU16(b, v)
		// in LE, least-significant byte goes first
		assert.Equal(t, []byte{0x34, 0x12}, b)
		assert.Equal(t, v, U16(b))
	}

	// ---- U32 ----
	{
		b := make([]byte, 4)
		var v uint32 = 0x01020304

		PutU32(b, v)
		assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
		assert.Equal(t, v, U32(b))
	}

	// ---- U64 ----
	{
		b := make([]byte, 8)
		var v uint64 = 0x0102030405060708

		PutU64(b, v)
		assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b)
		assert.Equal(t, v, U64(b))
	}
}

// TestSignedAndFloat checks the signed and IEEE wrappers used by the
// binary field decoder.
func TestSignedAndFloat(t *testing.T) {
	assert.Equal(t, int8(-3), I8([]byte{0xfd}))

	b := make([]byte, 8)
	PutI16(b, -1234)
	assert.Equal(t, int16(-1234), I16(b))

	PutI32(b, -123456)
	assert.Equal(t, int32(-123456), I32(b))

	PutI64(b, -5000000000)
	assert.Equal(t, int64(-5000000000), I64(b))

	PutF32(b, 2.5)
	assert.Equal(t, float32(2.5), F32(b))

	PutF64(b, math.Pi)
	assert.Equal(t, math.Pi, F64(b))
}

// TestAt verifies the offset variants against an 18-byte legacy record.
func TestAt(t *testing.T) {
	buf := make([]byte, 18)

	PutI32At(buf, 0, 3600)
	PutI32At(buf, 4, -45000000)
	PutI32At(buf, 8, 170000000)
	PutI16At(buf, 12, -32000)
	PutI16At(buf, 16, 4500)

	assert.Equal(t, int32(3600), I32At(buf, 0))
	assert.Equal(t, int32(-45000000), I32At(buf, 4))
	assert.Equal(t, int32(170000000), I32At(buf, 8))
	assert.Equal(t, int16(-32000), I16At(buf, 12))
	assert.Equal(t, int16(4500), I16At(buf, 16))
}
