package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// StorageHeaderSize is the fixed size of a storage header.
	StorageHeaderSize = 16
	// EcuIDSize is the width of the ECU id slot of the storage header.
	EcuIDSize = 4
)

// Magic is the DLT pattern that opens every stored record.
var Magic = [4]byte{'D', 'L', 'T', 0x01}

// StorageHeader is the capture envelope prepended to each record by the
// logger that wrote the file. Its integers are always little-endian.
type StorageHeader struct {
	Seconds      int32
	Microseconds int32
	EcuID        string
}

// DecodeStorageHeader decodes the 16-byte storage header at the start of data.
func DecodeStorageHeader(data []byte) (StorageHeader, error) {
	if err := truncated(data, 0, StorageHeaderSize); err != nil {
		return StorageHeader{}, err
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return StorageHeader{}, &BadMagicError{
			Found:    bytes.Clone(data[:4]),
			Expected: Magic[:],
		}
	}

	id := bytes.TrimRight(data[12:16], "\x00")
	ecu, err := decodeText(id, CharsetASCII)
	if err != nil {
		return StorageHeader{}, rebase(err, 12)
	}

	return StorageHeader{
		Seconds:      int32(binary.LittleEndian.Uint32(data[4:8])),
		Microseconds: int32(binary.LittleEndian.Uint32(data[8:12])),
		EcuID:        ecu,
	}, nil
}

// Len returns StorageHeaderSize.
func (h StorageHeader) Len() int { return StorageHeaderSize }

// Encode serializes the header, right-padding the ECU id with NULs.
func (h StorageHeader) Encode() ([]byte, error) {
	return noPartial(h.AppendTo(make([]byte, 0, StorageHeaderSize)))
}

// AppendTo appends the serialized header to dst. On error dst is returned
// unchanged.
func (h StorageHeader) AppendTo(dst []byte) ([]byte, error) {
	if len(h.EcuID) > EcuIDSize {
		return dst, &EcuIDTooLongError{Len: len(h.EcuID), Max: EcuIDSize}
	}
	id, err := encodeText(h.EcuID, CharsetASCII)
	if err != nil {
		return dst, rebase(err, 12)
	}

	dst = append(dst, Magic[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Seconds))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Microseconds))
	var slot [EcuIDSize]byte
	copy(slot[:], id)
	return append(dst, slot[:]...), nil
}

// Time returns the capture time in UTC.
func (h StorageHeader) Time() time.Time {
	return time.Unix(int64(h.Seconds), int64(h.Microseconds)*int64(time.Microsecond)).UTC()
}

func (h StorageHeader) String() string {
	return fmt.Sprintf("StorageHeader(seconds=%d, microseconds=%d, ecu_id=%q)", h.Seconds, h.Microseconds, h.EcuID)
}
