package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/store"
)

var headingColor = color.New(color.Bold).SprintfFunc()

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize a DLT file",
	Long: `Count the records of a DLT file by content type, log level, ECU and
application, and count the records that failed to decode by error kind.

Example:
  dltview stats trace.dlt
  dltview stats --filter ecu=ECU1 trace.dlt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		filter, err := filterFrom(cmd)
		if err != nil {
			return err
		}

		summary, err := summarize(readerConfig(configFrom(cmd), args[0], loggerFrom(cmd)), filter)
		if err != nil {
			return err
		}
		if output == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		return writeSummary(cmd.OutOrStdout(), summary)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	addFilterFlag(statsCmd)
}

// Summary aggregates one pass over a DLT file
type Summary struct {
	store.Stats
	Matched      int64            `json:"matched"`
	First        time.Time        `json:"first,omitempty"`
	Last         time.Time        `json:"last,omitempty"`
	ContentTypes map[string]int64 `json:"content_types"`
	Levels       map[string]int64 `json:"levels"`
	ECUs         map[string]int64 `json:"ecus"`
	Apps         map[string]int64 `json:"apps"`
	ErrorKinds   map[string]int64 `json:"error_kinds"`
}

func newSummary() *Summary {
	return &Summary{
		ContentTypes: map[string]int64{},
		Levels:       map[string]int64{},
		ECUs:         map[string]int64{},
		Apps:         map[string]int64{},
		ErrorKinds:   map[string]int64{},
	}
}

func (s *Summary) add(rec *codec.Record) {
	s.Matched++
	s.ContentTypes[rec.Header.ContentType().String()]++
	if rec.Header.ContentType() != codec.ContentNonVerbose && rec.Header.MessageInfo.Type() == codec.MessageLog {
		s.Levels[rec.Header.MessageInfo.TypeInfoName()]++
	}
	s.ECUs[orNone(rec.EcuID())]++
	if rec.Extended != nil && rec.Extended.Present.Has(codec.WithAppID) {
		s.Apps[orNone(rec.Extended.AppID)]++
	}

	t := rec.Storage.Time()
	if s.First.IsZero() || t.Before(s.First) {
		s.First = t
	}
	if t.After(s.Last) {
		s.Last = t
	}
}

// summarize reads the whole file described by rc. Only records matching
// filter are counted by category.
func summarize(rc store.LogReaderConfig, filter *query.Filter) (*Summary, error) {
	reader, err := store.NewLogReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rc.FilePath, err)
	}
	defer reader.Close()

	s := newSummary()
	for {
		rec, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *store.RecordError
		if errors.As(err, &re) {
			s.ErrorKinds[store.ErrorKind(err)]++
			if errors.Is(err, codec.ErrBadMagic) {
				break
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Match(rec) {
			s.add(rec)
		}
	}
	s.Stats = reader.Stats()
	return s, nil
}

func writeSummary(w io.Writer, s *Summary) error {
	fmt.Fprintf(w, "%s\n", headingColor("Records"))
	fmt.Fprintf(w, "  decoded   %d\n", s.Records)
	if s.Matched != s.Records {
		fmt.Fprintf(w, "  matched   %d\n", s.Matched)
	}
	fmt.Fprintf(w, "  failed    %d\n", s.Errors)
	fmt.Fprintf(w, "  bytes     %d\n", s.Bytes)
	fmt.Fprintf(w, "  skipped   %d bytes in %d resyncs\n", s.SkippedBytes, s.Resyncs)
	if !s.First.IsZero() {
		fmt.Fprintf(w, "  first     %s\n", s.First.Format(time.RFC3339Nano))
		fmt.Fprintf(w, "  last      %s\n", s.Last.Format(time.RFC3339Nano))
	}

	sections := []struct {
		title  string
		counts map[string]int64
	}{
		{"Content types", s.ContentTypes},
		{"Log levels", s.Levels},
		{"ECUs", s.ECUs},
		{"Applications", s.Apps},
		{"Errors", s.ErrorKinds},
	}
	for _, sec := range sections {
		if len(sec.counts) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", headingColor(sec.title))
		for _, k := range slices.Sorted(maps.Keys(sec.counts)) {
			if _, err := fmt.Fprintf(w, "  %-24s %d\n", k, sec.counts[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
