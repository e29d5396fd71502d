package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/logging"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/storage"
	"github.com/ssargent/dltview/pkg/store"
)

const defaultListLimit = 100

// Server holds the API server state
type Server struct {
	archive RecordArchive // nil when the server runs without an archive
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(archive RecordArchive, config ServerConfig, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		archive: archive,
		config:  config,
		metrics: metrics,
		logger:  logging.OrDiscard(config.Logger),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{"status": "healthy"}
	if s.archive != nil {
		n, err := s.archive.Count(r.Context())
		if err != nil {
			s.metrics.RecordHealthCheck(false)
			sendError(w, "Archive unavailable", http.StatusServiceUnavailable)
			return
		}
		s.metrics.UpdateArchiveStats(n)
		data["archived_records"] = n
	}
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, data)
}

// handleDecode decodes an uploaded DLT stream. Query parameters: limit caps
// the number of returned records, archive=true stores each decoded record
// and each filter expression (see query.ParseFieldQuery) must match.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	limit, err := queryInt(params.Get("limit"), 0)
	if err != nil || limit < 0 {
		sendError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}
	filter, err := query.ParseFilter(params["filter"])
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	archive := false
	if v := params.Get("archive"); v != "" {
		if archive, err = strconv.ParseBool(v); err != nil {
			sendError(w, "Invalid archive parameter", http.StatusBadRequest)
			return
		}
	}
	if archive && s.archive == nil {
		sendError(w, "Archive not configured", http.StatusServiceUnavailable)
		return
	}

	reader, err := store.NewStreamReader(s.body(w, r), store.LogReaderConfig{
		Options:       s.config.Codec,
		Resync:        s.config.Resync,
		MaxRecordSize: s.config.MaxRecordSize,
		Logger:        s.logger,
	})
	if err != nil {
		s.sendReadError(w, err)
		return
	}
	defer reader.Close()

	resp := DecodeResponse{Records: []RecordView{}}
	for {
		rec, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *store.RecordError
		if errors.As(err, &re) {
			kind := store.ErrorKind(err)
			s.metrics.RecordDecodeError(kind)
			resp.Errors = append(resp.Errors, DecodeErrorView{Offset: re.Offset, Kind: kind, Message: re.Err.Error()})
			if errors.Is(err, codec.ErrBadMagic) {
				// nothing further can be read without resync
				break
			}
			continue
		}
		if err != nil {
			s.sendReadError(w, err)
			return
		}

		if !filter.Match(rec) {
			resp.Filtered++
			continue
		}
		if limit > 0 && len(resp.Records) >= limit {
			resp.Truncated = true
			break
		}

		view := NewRecordView(rec, reader.RecordOffset())
		if archive {
			id, err := s.archive.Put(*rec)
			s.metrics.RecordArchiveOperation("put", err == nil)
			if err != nil {
				sendError(w, fmt.Sprintf("Failed to archive record: %v", err), http.StatusInternalServerError)
				return
			}
			view.ID = id.String()
		}
		s.metrics.RecordDecoded(view.ContentType)
		resp.Records = append(resp.Records, view)
	}

	resp.Stats = reader.Stats()
	s.metrics.RecordStreamBytes(resp.Stats.Bytes, resp.Stats.SkippedBytes)
	s.metrics.RecordFiltered(resp.Filtered)
	sendSuccess(w, resp)
}

// handleDecodeArguments decodes the body as a verbose payload. With count
// set exactly that many arguments are decoded; otherwise arguments are
// decoded until the body is exhausted.
func (s *Server) handleDecodeArguments(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	order, err := codec.ParseEndianness(params.Get("endianness"))
	if err != nil {
		sendError(w, "Invalid endianness parameter", http.StatusBadRequest)
		return
	}
	if order == codec.EndianUnset {
		order = s.config.Codec.DefaultEndianness
	}
	if order == codec.EndianUnset {
		sendError(w, "Endianness is required", http.StatusBadRequest)
		return
	}

	charset := params.Get("charset")
	if charset == "" {
		charset = s.config.Codec.DefaultCharset
	}
	if charset != "" && !codec.ValidCharset(charset) {
		sendError(w, "Unknown charset", http.StatusBadRequest)
		return
	}

	count := -1
	if v := params.Get("count"); v != "" {
		if count, err = strconv.Atoi(v); err != nil || count < 0 || count > 0xFF {
			sendError(w, "Invalid count parameter", http.StatusBadRequest)
			return
		}
	}

	data, err := io.ReadAll(s.body(w, r))
	if err != nil {
		s.sendReadError(w, err)
		return
	}

	var args []codec.Argument
	consumed := 0
	if count >= 0 {
		p, derr := codec.DecodeVerbosePayload(data, order, count, charset, s.config.Codec.StrictTrailingBytes)
		err = derr
		if p != nil {
			args = p.Arguments
			consumed = p.Len()
		}
	} else {
		for consumed < len(data) {
			arg, n, derr := codec.DecodeArgument(data[consumed:], order, charset)
			if derr != nil {
				// derr offsets are relative to the argument
				err = fmt.Errorf("argument %d at offset %d: %w", len(args), consumed, derr)
				break
			}
			args = append(args, arg)
			consumed += n
		}
	}
	if err != nil {
		s.metrics.RecordDecodeError(store.ErrorKind(err))
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sendSuccess(w, ArgumentsResponse{Arguments: NewArgumentViews(args), Consumed: consumed})
}

// handleGetArchived returns one archived record. format=raw returns the
// stored bytes.
func (s *Server) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Archive not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid record id", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("format") == "raw" {
		data, err := s.archive.GetEncoded(id)
		s.metrics.RecordArchiveOperation("get", err == nil || errors.Is(err, storage.ErrNotFound))
		if err != nil {
			s.sendArchiveError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	rec, err := s.archive.Get(id)
	s.metrics.RecordArchiveOperation("get", err == nil || errors.Is(err, storage.ErrNotFound))
	if err != nil {
		s.sendArchiveError(w, err)
		return
	}
	view := NewRecordView(&rec, 0)
	view.ID = id.String()
	sendSuccess(w, view)
}

var errListFull = errors.New("list limit reached")

// handleListArchived lists archived records in capture order. Query
// parameters from and to take RFC 3339 times; limit defaults to 100 and
// counts records that pass the filter expressions.
func (s *Server) handleListArchived(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Archive not configured", http.StatusServiceUnavailable)
		return
	}
	params := r.URL.Query()

	var so storage.ScanOptions
	var err error
	if so.From, err = queryTime(params.Get("from")); err != nil {
		sendError(w, "Invalid from parameter", http.StatusBadRequest)
		return
	}
	if so.To, err = queryTime(params.Get("to")); err != nil {
		sendError(w, "Invalid to parameter", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(params.Get("limit"), defaultListLimit)
	if err != nil || limit <= 0 {
		sendError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}
	filter, err := query.ParseFilter(params["filter"])
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := DecodeResponse{Records: []RecordView{}}
	err = s.archive.Scan(r.Context(), so, func(id ksuid.KSUID, data []byte) error {
		rec, _, err := codec.DecodeRecord(data, s.config.Codec)
		if err == nil && !filter.Match(&rec) {
			resp.Filtered++
			return nil
		}
		if len(resp.Records)+len(resp.Errors) >= limit {
			resp.Truncated = true
			return errListFull
		}
		if err != nil {
			resp.Errors = append(resp.Errors, DecodeErrorView{Kind: store.ErrorKind(err), Message: fmt.Sprintf("%s: %v", id, err)})
			return nil
		}
		view := NewRecordView(&rec, 0)
		view.ID = id.String()
		resp.Records = append(resp.Records, view)
		return nil
	})
	if errors.Is(err, errListFull) {
		err = nil
	}
	s.metrics.RecordArchiveOperation("scan", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to scan archive: %v", err), http.StatusInternalServerError)
		return
	}
	resp.Stats.Records = int64(len(resp.Records))
	resp.Stats.Errors = int64(len(resp.Errors))
	sendSuccess(w, resp)
}

func (s *Server) body(w http.ResponseWriter, r *http.Request) io.Reader {
	if s.config.MaxUploadSize > 0 {
		return http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	}
	return r.Body
}

func (s *Server) sendReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	sendError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
}

func (s *Server) sendArchiveError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Record not found", http.StatusNotFound)
		return
	}
	s.logger.Error("archive read failed", "error", err)
	sendError(w, "Failed to read archived record", http.StatusInternalServerError)
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
