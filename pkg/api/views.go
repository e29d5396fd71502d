package api

import (
	"encoding/hex"
	"math"
	"time"

	"github.com/ssargent/dltview/pkg/codec"
)

// RecordView is the JSON shape of a decoded record
type RecordView struct {
	ID          string         `json:"id,omitempty"`
	Offset      int64          `json:"offset"`
	Time        time.Time      `json:"time"`
	EcuID       string         `json:"ecu_id"`
	AppID       string         `json:"app_id,omitempty"`
	ContextID   string         `json:"context_id,omitempty"`
	SessionID   *uint32        `json:"session_id,omitempty"`
	Counter     uint8          `json:"counter"`
	ContentType string         `json:"content_type"`
	MessageType string         `json:"message_type,omitempty"`
	Level       string         `json:"level,omitempty"`
	Timestamp   *time.Duration `json:"timestamp_ns,omitempty"`
	MessageID   *uint32        `json:"message_id,omitempty"`
	Arguments   []ArgumentView `json:"arguments,omitempty"`
	Data        string         `json:"data,omitempty"`
	Text        string         `json:"text"`
}

// ArgumentView is the JSON shape of one verbose argument
type ArgumentView struct {
	Type       string      `json:"type"`
	Value      interface{} `json:"value"`
	Endianness string      `json:"endianness"`
}

// NewRecordView flattens rec for JSON output.
func NewRecordView(rec *codec.Record, offset int64) RecordView {
	v := RecordView{
		Offset:      offset,
		Time:        rec.Storage.Time(),
		EcuID:       rec.EcuID(),
		Counter:     rec.Header.Counter,
		ContentType: rec.Header.ContentType().String(),
		Text:        rec.String(),
	}
	if x := rec.Extended; x != nil {
		v.AppID = x.AppID
		v.ContextID = x.ContextID
		if x.Present.Has(codec.WithSessionID) {
			sid := x.SessionID
			v.SessionID = &sid
		}
	}

	ct := rec.Header.ContentType()
	if ct != codec.ContentNonVerbose {
		v.MessageType = rec.Header.MessageInfo.TypeName()
		v.Level = rec.Header.MessageInfo.TypeInfoName()
	}
	if ct == codec.ContentVerbose || ct == codec.ContentNonVerbose {
		ts := time.Duration(rec.Header.Timestamp.Seconds)*time.Second + time.Duration(rec.Header.Timestamp.Nanoseconds)
		v.Timestamp = &ts
	}

	switch p := rec.Payload.(type) {
	case *codec.VerbosePayload:
		v.Arguments = NewArgumentViews(p.Arguments)
	case *codec.NonVerbosePayload:
		id := p.MessageID
		v.MessageID = &id
		v.Data = hex.EncodeToString(p.Data)
	}
	return v
}

// NewArgumentViews converts decoded arguments.
func NewArgumentViews(args []codec.Argument) []ArgumentView {
	views := make([]ArgumentView, 0, len(args))
	for _, a := range args {
		views = append(views, NewArgumentView(a))
	}
	return views
}

// NewArgumentView converts one argument. Non-finite floats are rendered as
// text since JSON cannot carry them.
func NewArgumentView(a codec.Argument) ArgumentView {
	v := ArgumentView{Endianness: a.Endianness().String()}
	switch a := a.(type) {
	case codec.Bool:
		v.Type, v.Value = "bool", a.Value
	case codec.SInt8:
		v.Type, v.Value = "sint8", a.Value
	case codec.SInt16:
		v.Type, v.Value = "sint16", a.Value
	case codec.SInt32:
		v.Type, v.Value = "sint32", a.Value
	case codec.SInt64:
		v.Type, v.Value = "sint64", a.Value
	case codec.UInt8:
		v.Type, v.Value = "uint8", a.Value
	case codec.UInt16:
		v.Type, v.Value = "uint16", a.Value
	case codec.UInt32:
		v.Type, v.Value = "uint32", a.Value
	case codec.UInt64:
		v.Type, v.Value = "uint64", a.Value
	case codec.Float32:
		v.Type, v.Value = "float32", finite(float64(a.Value), a.String())
	case codec.Float64:
		v.Type, v.Value = "float64", finite(a.Value, a.String())
	case codec.String:
		v.Type, v.Value = "string", a.Value
		if a.UTF8 {
			v.Type = "utf8"
		}
	case codec.Raw:
		v.Type, v.Value = "raw", hex.EncodeToString(a.Data)
	default:
		v.Type, v.Value = a.TypeInfo().String(), a.String()
	}
	return v
}

func finite(f float64, text string) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return text
	}
	return f
}
