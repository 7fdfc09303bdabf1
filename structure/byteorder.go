package structure

import "encoding/binary"

// ByteOrder selects the endianness used for multi-byte scalars.
type ByteOrder uint8

const (
	// SystemOrder is the byte order of the host.
	SystemOrder ByteOrder = iota
	LittleEndian
	BigEndian
)

var systemLittle = binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 0x0001

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	}
	if systemLittle {
		return "little"
	}
	return "big"
}

// little resolves the order to a concrete endianness.
func (o ByteOrder) little() bool {
	switch o {
	case LittleEndian:
		return true
	case BigEndian:
		return false
	}
	return systemLittle
}

// Marker returns the format prefix character for the order.
func (o ByteOrder) Marker() byte {
	switch o {
	case LittleEndian:
		return '<'
	case BigEndian:
		return '>'
	}
	return '='
}

// orderOf maps a byte-order prefix character. `=` and `@` both select the
// system order; `!` is network order, an alias of `>`.
func orderOf(marker byte) ByteOrder {
	switch marker {
	case '<':
		return LittleEndian
	case '>', '!':
		return BigEndian
	}
	return SystemOrder
}
