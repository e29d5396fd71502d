// Package storage archives decoded DLT records in a pebble database keyed
// by KSUIDs minted from each record's capture time.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/dltview/pkg/codec"
)

// ErrNotFound is returned for ids with no archived record.
var ErrNotFound = errors.New("record not found")

// keys cannot encode times before the KSUID epoch
var ksuidEpoch = time.Unix(1400000000, 0).UTC()

// ArchiveConfig configures an Archive.
type ArchiveConfig struct {
	DataDir string
	// Sync makes every write durable before it returns.
	Sync bool
	// Options decode archived records.
	Options codec.Options
}

// Archive stores encoded records. Iteration follows capture order because
// a KSUID sorts by its timestamp prefix.
type Archive struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	opts      codec.Options
}

// ScanOptions bound a scan to a capture-time window. Zero times are open.
type ScanOptions struct {
	From  time.Time
	To    time.Time
	Limit int
}

func NewArchive(config ArchiveConfig) (*Archive, error) {
	db, err := pebble.Open(config.DataDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	writeOpts := pebble.NoSync
	if config.Sync {
		writeOpts = pebble.Sync
	}
	return &Archive{db: db, writeOpts: writeOpts, opts: config.Options}, nil
}

// NewID mints a key for a record captured at t.
func NewID(t time.Time) (ksuid.KSUID, error) {
	if t.Before(ksuidEpoch) {
		t = ksuidEpoch
	}
	return ksuid.NewRandomWithTime(t)
}

// Put encodes rec in the archive's byte order and stores it.
func (a *Archive) Put(rec codec.Record) (ksuid.KSUID, error) {
	data, err := rec.Encode(a.opts.DefaultEndianness)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return a.put(rec.Storage.Time(), data)
}

// PutEncoded stores one encoded record after checking that it decodes.
func (a *Archive) PutEncoded(data []byte) (ksuid.KSUID, error) {
	rec, n, err := codec.DecodeRecord(data, a.opts)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("invalid record: %w", err)
	}
	if n != len(data) {
		return ksuid.Nil, &codec.TrailingBytesError{Offset: n, N: len(data) - n}
	}
	return a.put(rec.Storage.Time(), data)
}

func (a *Archive) put(captured time.Time, data []byte) (ksuid.KSUID, error) {
	id, err := NewID(captured)
	if err != nil {
		return ksuid.Nil, err
	}
	if err := a.db.Set(id.Bytes(), data, a.writeOpts); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// GetEncoded returns the stored bytes of a record.
func (a *Archive) GetEncoded(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := a.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return bytes.Clone(data), nil
}

// Get decodes the record stored under id.
func (a *Archive) Get(id ksuid.KSUID) (codec.Record, error) {
	data, err := a.GetEncoded(id)
	if err != nil {
		return codec.Record{}, err
	}
	rec, _, err := codec.DecodeRecord(data, a.opts)
	if err != nil {
		return codec.Record{}, fmt.Errorf("archived record %s: %w", id, err)
	}
	return rec, nil
}

func (a *Archive) Delete(id ksuid.KSUID) error {
	if _, err := a.GetEncoded(id); err != nil {
		return err
	}
	return a.db.Delete(id.Bytes(), a.writeOpts)
}

// Scan calls fn for each archived record in capture order. Returning an
// error from fn stops the scan with that error.
func (a *Archive) Scan(ctx context.Context, so ScanOptions, fn func(id ksuid.KSUID, data []byte) error) error {
	iterOpts := &pebble.IterOptions{}
	if !so.From.IsZero() {
		lower, err := boundKey(so.From)
		if err != nil {
			return err
		}
		iterOpts.LowerBound = lower
	}
	if !so.To.IsZero() {
		upper, err := boundKey(so.To)
		if err != nil {
			return err
		}
		iterOpts.UpperBound = upper
	}

	iter, err := a.db.NewIter(iterOpts)
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return fmt.Errorf("corrupt archive key: %w", err)
		}
		if err := fn(id, bytes.Clone(iter.Value())); err != nil {
			return err
		}
		n++
		if so.Limit > 0 && n >= so.Limit {
			break
		}
	}
	return iter.Error()
}

// boundKey is the smallest key minted at t.
func boundKey(t time.Time) ([]byte, error) {
	if t.Before(ksuidEpoch) {
		t = ksuidEpoch
	}
	id, err := ksuid.FromParts(t, make([]byte, 16))
	if err != nil {
		return nil, err
	}
	return id.Bytes(), nil
}

// Count returns the number of archived records.
func (a *Archive) Count(ctx context.Context) (int, error) {
	n := 0
	err := a.Scan(ctx, ScanOptions{}, func(ksuid.KSUID, []byte) error {
		n++
		return nil
	})
	return n, err
}

func (a *Archive) Close() error {
	return a.db.Close()
}
