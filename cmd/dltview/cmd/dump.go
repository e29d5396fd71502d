package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/api"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/store"
)

var (
	offsetColor = color.New(color.FgCyan).SprintfFunc()
	fatalColor  = color.New(color.FgHiRed, color.Bold).SprintfFunc()
	errorColor  = color.New(color.FgRed).SprintfFunc()
	warnColor   = color.New(color.FgYellow).SprintfFunc()
	infoColor   = color.New(color.FgGreen).SprintfFunc()
	debugColor  = color.New(color.FgHiBlue).SprintfFunc()
	plainColor  = fmt.Sprintf
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the records of a DLT file",
	Long: `Print every record of a DLT file, one per line. Gzip, zstd and lz4
compressed files are detected automatically.

Records that fail to decode are reported on stderr and skipped.

Examples:
  dltview dump trace.dlt
  dltview dump --output json --limit 100 trace.dlt.zst
  dltview dump --filter app=NAV --filter 'level<=warn' trace.dlt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt64("offset")
		noColor, _ := cmd.Flags().GetBool("no-color")
		if noColor {
			defer func(prev bool) { color.NoColor = prev }(color.NoColor)
			color.NoColor = true
		}

		filter, err := filterFrom(cmd)
		if err != nil {
			return err
		}

		rc := readerConfig(configFrom(cmd), args[0], loggerFrom(cmd))
		rc.StartOffset = offset
		stats, err := dumpFile(cmd.OutOrStdout(), cmd.ErrOrStderr(), rc, dumpOptions{Output: output, Limit: limit, Filter: filter})
		if err != nil {
			return err
		}
		loggerFrom(cmd).Debug("dump finished", "records", stats.Records, "errors", stats.Errors, "skipped_bytes", stats.SkippedBytes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	dumpCmd.Flags().IntP("limit", "n", 0, "Stop after this many records (0 for all)")
	dumpCmd.Flags().Int64("offset", 0, "Start reading at this byte offset")
	dumpCmd.Flags().Bool("no-color", false, "Disable colored output")
	addFilterFlag(dumpCmd)
}

type dumpOptions struct {
	Output string // text or json
	Limit  int    // counts printed records
	Filter *query.Filter
}

// dumpFile prints the records read through rc to w and decode errors to errW.
func dumpFile(w, errW io.Writer, rc store.LogReaderConfig, opts dumpOptions) (store.Stats, error) {
	var emit func(rec *codec.Record, offset int64) error
	switch opts.Output {
	case "", "text":
		emit = func(rec *codec.Record, offset int64) error {
			_, err := fmt.Fprintf(w, "%s %s\n", offsetColor("%08x", offset), levelColor(rec)("%s", rec.String()))
			return err
		}
	case "json":
		enc := json.NewEncoder(w)
		emit = func(rec *codec.Record, offset int64) error {
			return enc.Encode(api.NewRecordView(rec, offset))
		}
	default:
		return store.Stats{}, fmt.Errorf("unknown output format %q", opts.Output)
	}

	reader, err := store.NewLogReader(rc)
	if err != nil {
		return store.Stats{}, fmt.Errorf("failed to open %s: %w", rc.FilePath, err)
	}
	defer reader.Close()

	printed := 0
	for opts.Limit <= 0 || printed < opts.Limit {
		rec, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *store.RecordError
		if errors.As(err, &re) {
			fmt.Fprintf(errW, "%s %s\n", offsetColor("%08x", re.Offset), errorColor("%s: %v", store.ErrorKind(err), re.Err))
			if errors.Is(err, codec.ErrBadMagic) {
				break
			}
			continue
		}
		if err != nil {
			return reader.Stats(), err
		}

		if !opts.Filter.Match(rec) {
			continue
		}
		if err := emit(rec, reader.RecordOffset()); err != nil {
			return reader.Stats(), err
		}
		printed++
	}
	return reader.Stats(), nil
}

func levelColor(rec *codec.Record) func(format string, a ...interface{}) string {
	mi := rec.Header.MessageInfo
	if rec.Header.ContentType() == codec.ContentNonVerbose || mi.Type() != codec.MessageLog {
		return plainColor
	}
	switch mi.TypeInfo() {
	case codec.LogFatal:
		return fatalColor
	case codec.LogError:
		return errorColor
	case codec.LogWarn:
		return warnColor
	case codec.LogInfo:
		return infoColor
	case codec.LogDebug, codec.LogVerbose:
		return debugColor
	default:
		return plainColor
	}
}
