package store

import (
	"fmt"
	"testing"

	"github.com/ssargent/dltview/pkg/codec"
	"github.com/stretchr/testify/require"
)

// noarOffset is the position of NOAR in a stored verbose record.
const noarOffset = codec.StorageHeaderSize + 8

func testRecord(counter uint8, msg string) codec.Record {
	return codec.Record{
		Storage: codec.StorageHeader{Seconds: 1700000000, Microseconds: int32(counter), EcuID: "ECU1"},
		Header: codec.BaseHeader{
			Type:        codec.NewHeaderType(codec.ContentVerbose),
			Counter:     counter,
			MessageInfo: codec.NewMessageInfo(codec.MessageLog, codec.LogInfo),
			Timestamp:   codec.Timestamp{Seconds: 10, Nanoseconds: uint32(counter)},
		},
		Extended: &codec.ExtendedHeader{Present: codec.WithAppID, AppID: "APP", ContextID: "CTX"},
		Payload: &codec.VerbosePayload{Arguments: []codec.Argument{
			codec.String{Value: msg},
			codec.UInt8{Value: counter},
		}},
		Order: codec.BigEndian,
	}
}

func encodeRecord(t testing.TB, rec codec.Record) []byte {
	t.Helper()
	data, err := rec.Encode(codec.BigEndian)
	require.NoError(t, err)
	return data
}

// testRecords encodes n records and returns them concatenated along with
// each record's encoding.
func testRecords(t testing.TB, n int) ([]byte, [][]byte) {
	t.Helper()
	var all []byte
	var each [][]byte
	for i := 0; i < n; i++ {
		data := encodeRecord(t, testRecord(uint8(i), fmt.Sprintf("message-%d", i)))
		each = append(each, data)
		all = append(all, data...)
	}
	return all, each
}

func testReaderConfig(path string) LogReaderConfig {
	return LogReaderConfig{
		FilePath: path,
		Options:  codec.DefaultOptions(),
		Resync:   true,
	}
}
