package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/api"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/storage"
	"github.com/ssargent/dltview/pkg/store"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the record archive",
	Long: `Manage the local record archive. Records are keyed by a KSUID
derived from their capture time, so listing and exporting follow capture
order.`,
}

// importCmd represents the archive import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import the records of a DLT file",
	Long: `Decode a DLT file and store every record in the archive. Records
that fail to decode are counted and skipped.

Example:
  dltview archive import trace.dlt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		cfg := configFrom(cmd)

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer archive.Close()

		out := cmd.ErrOrStderr()
		if quiet {
			out = io.Discard
		}
		bar := newProgressBar(out, "importing")

		res, err := importFile(archive, readerConfig(cfg, args[0], loggerFrom(cmd)), bar)
		_ = bar.Finish()
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d records from %s (%d failed)\n", res.Imported, args[0], res.Failed)
		return nil
	},
}

// exportCmd represents the archive export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write archived records to a DLT file",
	Long: `Write archived records in capture order to a DLT file.

Examples:
  dltview archive export out.dlt
  dltview archive export --compression zstd --from 2024-05-01T00:00:00Z out.dlt.zst
  dltview archive export --filter app=NAV --filter 'level<=warn' nav.dlt

An uncompressed export appends to an existing file; compressed exports
replace it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		so, err := scanOptions(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("compression")
		compression, err := store.ParseCompression(name)
		if err != nil {
			return err
		}

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer archive.Close()

		n, err := exportArchive(cmd.Context(), archive, so, store.LogWriterConfig{
			FilePath:      args[0],
			FsyncInterval: time.Second,
			Compression:   compression,
		}, configFrom(cmd).CodecOptions())
		if err != nil {
			return err
		}
		cmd.Printf("Exported %d records to %s\n", n, args[0])
		return nil
	},
}

// listCmd represents the archive list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived records",
	RunE: func(cmd *cobra.Command, args []string) error {
		so, err := scanOptions(cmd)
		if err != nil {
			return err
		}

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer archive.Close()

		w := cmd.OutOrStdout()
		return scanRecords(cmd.Context(), archive, so, configFrom(cmd).CodecOptions(), func(id ksuid.KSUID, _ []byte, rec *codec.Record, err error) error {
			if err != nil {
				fmt.Fprintf(w, "%s %s\n", id, errorColor("%v", err))
				return nil
			}
			_, err = fmt.Fprintf(w, "%s %s\n", offsetColor("%s", id), levelColor(rec)("%s", rec.String()))
			return err
		})
	},
}

// getCmd represents the archive get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one archived record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer archive.Close()

		rec, err := archive.Get(id)
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", rec.String())
		return nil
	},
}

// deleteCmd represents the archive delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one archived record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		archive, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer archive.Close()

		if err := archive.Delete(id); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(importCmd)
	archiveCmd.AddCommand(exportCmd)
	archiveCmd.AddCommand(listCmd)
	archiveCmd.AddCommand(getCmd)
	archiveCmd.AddCommand(deleteCmd)

	archiveCmd.PersistentFlags().StringP("data-dir", "d", "", "Archive directory (overrides archive.data_dir)")
	importCmd.Flags().BoolP("quiet", "q", false, "Do not show progress")
	exportCmd.Flags().String("compression", "none", "Output compression: none, gzip, zstd or lz4")
	for _, c := range []*cobra.Command{exportCmd, listCmd} {
		c.Flags().String("from", "", "Earliest capture time (RFC 3339)")
		c.Flags().String("to", "", "Capture time to stop before (RFC 3339)")
		c.Flags().IntP("limit", "n", 0, "Maximum number of records (0 for all)")
		addFilterFlag(c)
	}
}

// recordStore is the archive surface used by the archive commands
type recordStore interface {
	api.ArchiveCloser
	Delete(id ksuid.KSUID) error
}

func openArchive(cmd *cobra.Command) (recordStore, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	ac := archiveConfig(configFrom(cmd))
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		ac.DataDir = dir
	}

	archive, err := container.GetArchiveFactory().OpenArchive(ac)
	if err != nil {
		return nil, err
	}
	rs, ok := archive.(recordStore)
	if !ok {
		archive.Close()
		return nil, errors.New("archive does not support deletion")
	}
	return rs, nil
}

// archiveScan is a storage.ScanOptions window plus a record filter. The
// limit counts matching records.
type archiveScan struct {
	storage.ScanOptions
	Filter *query.Filter
}

func scanOptions(cmd *cobra.Command) (archiveScan, error) {
	var so archiveScan
	var err error
	if so.Filter, err = filterFrom(cmd); err != nil {
		return so, err
	}
	from, _ := cmd.Flags().GetString("from")
	if from != "" {
		if so.From, err = time.Parse(time.RFC3339, from); err != nil {
			return so, fmt.Errorf("invalid --from: %w", err)
		}
	}
	to, _ := cmd.Flags().GetString("to")
	if to != "" {
		if so.To, err = time.Parse(time.RFC3339, to); err != nil {
			return so, fmt.Errorf("invalid --to: %w", err)
		}
	}
	so.Limit, _ = cmd.Flags().GetInt("limit")
	return so, nil
}

func newProgressBar(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
	)
}

type importResult struct {
	Imported int
	Failed   int
}

// importFile stores every decodable record read through rc.
func importFile(archive api.RecordArchive, rc store.LogReaderConfig, bar *progressbar.ProgressBar) (importResult, error) {
	var res importResult

	reader, err := store.NewLogReader(rc)
	if err != nil {
		return res, fmt.Errorf("failed to open %s: %w", rc.FilePath, err)
	}
	defer reader.Close()

	for {
		rec, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		var re *store.RecordError
		if errors.As(err, &re) {
			res.Failed++
			if errors.Is(err, codec.ErrBadMagic) {
				return res, nil
			}
			continue
		}
		if err != nil {
			return res, err
		}

		if _, err := archive.Put(*rec); err != nil {
			return res, fmt.Errorf("record at offset %d: %w", reader.RecordOffset(), err)
		}
		res.Imported++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
}

var errScanLimit = errors.New("scan limit reached")

// scanRecords decodes the archived records selected by so and passes those
// matching so.Filter to fn. Records that fail to decode reach fn with a nil
// record and the decode error.
func scanRecords(ctx context.Context, archive api.RecordArchive, so archiveScan, opts codec.Options, fn func(id ksuid.KSUID, data []byte, rec *codec.Record, err error) error) error {
	limit := so.Limit
	so.Limit = 0
	n := 0
	err := archive.Scan(ctx, so.ScanOptions, func(id ksuid.KSUID, data []byte) error {
		rec, _, err := codec.DecodeRecord(data, opts)
		if err == nil && !so.Filter.Match(&rec) {
			return nil
		}
		if limit > 0 && n >= limit {
			return errScanLimit
		}
		n++
		if err != nil {
			return fn(id, data, nil, err)
		}
		return fn(id, data, &rec, nil)
	})
	if errors.Is(err, errScanLimit) {
		return nil
	}
	return err
}

// exportArchive writes the records selected by so to a new log file and
// returns how many were written.
func exportArchive(ctx context.Context, archive api.RecordArchive, so archiveScan, wc store.LogWriterConfig, opts codec.Options) (int, error) {
	writer, err := store.NewLogWriter(wc)
	if err != nil {
		return 0, err
	}

	n := 0
	err = scanRecords(ctx, archive, so, opts, func(id ksuid.KSUID, data []byte, _ *codec.Record, err error) error {
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		if _, err := writer.AppendEncoded(data, opts); err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		n++
		return nil
	})
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	return n, err
}
