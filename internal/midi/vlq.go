package midi

import "errors"

var (
	errVarLenTruncated = errors.New("variable-length quantity runs past end of data")
	errVarLenTooLong   = errors.New("variable-length quantity longer than four bytes")
)

// ReadVarLen decodes a base-128 big-endian variable-length quantity starting
// at data[pos]. Every byte but the last has its high bit set. It returns the
// value and the position of the first byte after it.
func ReadVarLen(data []byte, pos int) (value uint32, next int, err error) {
	for i := 0; i < 4; i++ {
		if pos >= len(data) {
			return value, pos, errVarLenTruncated
		}
		b := data[pos]
		pos++
		value = value<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return value, pos, nil
		}
	}
	return value, pos, errVarLenTooLong
}
