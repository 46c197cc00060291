package mrf24j40

// Wire encoding of register addresses. A short address is one
// byte: bit 7 clear, six address bits, and a write bit. A long
// address is a 16-bit word sent most significant byte first:
// bit 15 set, ten address bits, a write bit, and four unused bits.
const (
	shortWrite = 0x01
	shortRead  = 0x7e
	longWrite  = 0x8010
	longRead   = 0x8000
	longFlag   = 0x8000

	shortShift = 1
	longShift  = 5
)

// EncodeShortWrite returns the address byte that starts a write
// to short register r.
func EncodeShortWrite(r ShortReg) byte {
	return byte(r)<<shortShift | shortWrite
}

// EncodeShortRead returns the address byte that starts a read
// of short register r.
func EncodeShortRead(r ShortReg) byte {
	return (byte(r) << shortShift) & shortRead
}

// EncodeLongWrite returns the address word that starts a write
// to long register r.
func EncodeLongWrite(r LongReg) uint16 {
	return uint16(r)<<longShift | longWrite
}

// EncodeLongRead returns the address word that starts a read
// of long register r.
func EncodeLongRead(r LongReg) uint16 {
	return uint16(r)<<longShift | longRead
}

// IsLong reports whether b, the first byte of a transaction,
// addresses the long register space.
func IsLong(b byte) bool {
	return b&(longFlag>>8) != 0
}

// DecodeShort is the inverse of the short address encoders.
func DecodeShort(b byte) (r ShortReg, write bool) {
	return ShortReg(b&shortRead) >> shortShift, b&shortWrite != 0
}

// DecodeLong is the inverse of the long address encoders.
func DecodeLong(w uint16) (r LongReg, write bool) {
	return LongReg(w&^longFlag) >> longShift, w&(longWrite&^longFlag) != 0
}
