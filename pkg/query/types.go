package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/dltview/pkg/codec"
)

// ErrFieldAbsent is returned by an extractor when the record does not carry
// the field, e.g. an app id on a record without an extended header.
var ErrFieldAbsent = errors.New("field not present in record")

// FieldExtractor defines how to extract field values from a record
type FieldExtractor interface {
	Extract(rec *codec.Record, field string) (interface{}, error)
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindTime
)

// fields lists the record fields a query can name.
var fields = map[string]fieldKind{
	"ecu":     kindString,
	"app":     kindString,
	"ctx":     kindString,
	"type":    kindString,
	"content": kindString,
	"text":    kindString,
	"level":   kindNumber,
	"counter": kindNumber,
	"session": kindNumber,
	"msgid":   kindNumber,
	"time":    kindTime,
}

var levels = map[string]uint64{
	"fatal":   uint64(codec.LogFatal),
	"error":   uint64(codec.LogError),
	"warn":    uint64(codec.LogWarn),
	"info":    uint64(codec.LogInfo),
	"debug":   uint64(codec.LogDebug),
	"verbose": uint64(codec.LogVerbose),
}

// RecordFieldExtractor extracts the fields listed above. Strings are returned
// as string, numbers as uint64 and the capture time as time.Time.
type RecordFieldExtractor struct{}

// Extract implements FieldExtractor for decoded records
func (e *RecordFieldExtractor) Extract(rec *codec.Record, field string) (interface{}, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil record")
	}
	ct := rec.Header.ContentType()
	mi := rec.Header.MessageInfo

	switch field {
	case "ecu":
		return rec.EcuID(), nil
	case "app":
		if rec.Extended == nil || !rec.Extended.Present.Has(codec.WithAppID) {
			return nil, ErrFieldAbsent
		}
		return rec.Extended.AppID, nil
	case "ctx":
		if rec.Extended == nil || !rec.Extended.Present.Has(codec.WithAppID) {
			return nil, ErrFieldAbsent
		}
		return rec.Extended.ContextID, nil
	case "session":
		if rec.Extended == nil || !rec.Extended.Present.Has(codec.WithSessionID) {
			return nil, ErrFieldAbsent
		}
		return uint64(rec.Extended.SessionID), nil
	case "type":
		if ct == codec.ContentNonVerbose {
			return nil, ErrFieldAbsent
		}
		return mi.TypeName(), nil
	case "content":
		return ct.String(), nil
	case "text":
		if rec.Payload == nil {
			return "", nil
		}
		return rec.Payload.String(), nil
	case "level":
		if ct == codec.ContentNonVerbose || mi.Type() != codec.MessageLog {
			return nil, ErrFieldAbsent
		}
		return uint64(mi.TypeInfo()), nil
	case "counter":
		return uint64(rec.Header.Counter), nil
	case "msgid":
		if ct != codec.ContentNonVerbose {
			return nil, ErrFieldAbsent
		}
		return uint64(rec.Header.MessageID), nil
	case "time":
		return rec.Storage.Time(), nil
	default:
		return nil, fmt.Errorf("unknown field '%s'", field)
	}
}

// FieldQuery represents a single field-based query condition
type FieldQuery struct {
	Field    string      // Field name to query (e.g., "app", "level")
	Operator string      // Comparison operator: "=", "!=", ">", "<", ">=", "<=", "~"
	Value    interface{} // Value to compare against
}

// operators is ordered so that at equal positions a two-character operator
// wins over its one-character prefix.
var operators = []string{"!=", ">=", "<=", "=", ">", "<", "~"}

// ParseFieldQuery parses an expression of the form <field><op><value>, for
// example "app=NAV", "level<=warn" or "text~timeout". Level values may be
// given by name. Times are RFC 3339.
func ParseFieldQuery(expr string) (FieldQuery, error) {
	at, op := -1, ""
	for _, candidate := range operators {
		if i := strings.Index(expr, candidate); i >= 0 && (at < 0 || i < at) {
			at, op = i, candidate
		}
	}
	if at < 0 {
		return FieldQuery{}, fmt.Errorf("invalid filter %q: missing operator", expr)
	}

	q := FieldQuery{Field: strings.TrimSpace(expr[:at]), Operator: op}
	raw := strings.TrimSpace(expr[at+len(op):])

	kind, ok := fields[q.Field]
	if !ok {
		return FieldQuery{}, fmt.Errorf("invalid filter %q: unknown field '%s'", expr, q.Field)
	}
	switch kind {
	case kindString:
		q.Value = raw
	case kindNumber:
		if n, ok := levels[strings.ToLower(raw)]; ok && q.Field == "level" {
			q.Value = n
			break
		}
		n, err := strconv.ParseUint(raw, 0, 32)
		if err != nil {
			return FieldQuery{}, fmt.Errorf("invalid filter %q: %w", expr, err)
		}
		q.Value = n
	case kindTime:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return FieldQuery{}, fmt.Errorf("invalid filter %q: %w", expr, err)
		}
		q.Value = t
	}

	if err := q.Validate(); err != nil {
		return FieldQuery{}, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	return q, nil
}

// Validate checks if the query is properly formed
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if q.Operator == "" {
		return fmt.Errorf("operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true, "~": true,
	}
	if !validOps[q.Operator] {
		return fmt.Errorf("invalid operator: %s", q.Operator)
	}

	kind, ok := fields[q.Field]
	if !ok {
		return fmt.Errorf("unknown field '%s'", q.Field)
	}
	switch q.Value.(type) {
	case string:
		if kind != kindString {
			return fmt.Errorf("field '%s' needs a %s value", q.Field, kindName(kind))
		}
	case uint64:
		if kind != kindNumber {
			return fmt.Errorf("field '%s' needs a %s value", q.Field, kindName(kind))
		}
	case time.Time:
		if kind != kindTime {
			return fmt.Errorf("field '%s' needs a %s value", q.Field, kindName(kind))
		}
	default:
		return fmt.Errorf("unsupported value type %T", q.Value)
	}
	if q.Operator == "~" && kind != kindString {
		return fmt.Errorf("operator ~ needs a text field")
	}
	return nil
}

func kindName(k fieldKind) string {
	switch k {
	case kindNumber:
		return "numeric"
	case kindTime:
		return "time"
	default:
		return "text"
	}
}

// Match reports whether the record satisfies the condition. A record that
// does not carry the field never matches.
func (q *FieldQuery) Match(rec *codec.Record, extractor FieldExtractor) bool {
	v, err := extractor.Extract(rec, q.Field)
	if err != nil {
		return false
	}

	var cmp int
	switch got := v.(type) {
	case string:
		want, ok := q.Value.(string)
		if !ok {
			return false
		}
		if q.Operator == "~" {
			return strings.Contains(got, want)
		}
		cmp = strings.Compare(got, want)
	case uint64:
		want, ok := q.Value.(uint64)
		if !ok {
			return false
		}
		switch {
		case got < want:
			cmp = -1
		case got > want:
			cmp = 1
		}
	case time.Time:
		want, ok := q.Value.(time.Time)
		if !ok {
			return false
		}
		cmp = got.Compare(want)
	default:
		return false
	}

	switch q.Operator {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}
