package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sudo-Ivan/geodata-converter/internal/cache"
	"github.com/Sudo-Ivan/geodata-converter/internal/metrics"
	"github.com/Sudo-Ivan/geodata-converter/pkg/convert"
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// multipartMemory is the part of an upload kept in memory while parsing.
const multipartMemory = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// Routes registers the API handlers on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/formats", s.HandleFormats)
	mux.HandleFunc("/api/convert", s.HandleConvert)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// HandleFormats serves the JSON list of output targets.
func (s *ServerContext) HandleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(convert.Targets())
}

// HandleConvert converts an uploaded file (form field "file") or a remote
// ArcGIS layer (form field "url") into the format named by the "format"
// field and returns the output as an attachment.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	target, err := convert.LookupTarget(r.FormValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	in, err := s.readInput(r, target)
	if err != nil {
		metrics.ObserveConversion(target.Format, metrics.ResultError, 0, 0)
		writeError(w, statusOf(err), err)
		return
	}
	if in.cached != nil {
		metrics.ObserveConversion(target.Format, metrics.ResultCached, in.cached.Features, 0)
		writeEntry(w, in.cached, true)
		return
	}

	entry, err := s.convert(in.ds, target)
	if err != nil {
		metrics.ObserveConversion(target.Format, metrics.ResultError, 0, 0)
		writeError(w, statusOf(err), err)
		return
	}
	if in.key != "" {
		s.Cache.Set(r.Context(), in.key, entry)
	}

	metrics.ObserveConversion(target.Format, metrics.ResultSuccess, entry.Features, float64(time.Since(start).Milliseconds()))
	writeEntry(w, entry, false)
}

// input is a loaded request dataset, or a cached result for an upload.
type input struct {
	ds     *dataset.Dataset
	key    string
	cached *cache.Entry
}

func (s *ServerContext) readInput(r *http.Request, target convert.Target) (*input, error) {
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}

		in := &input{}
		if s.Cache != nil {
			in.key = cache.Key(target.Format+"|"+strings.ToLower(filepath.Ext(header.Filename)), data)
			if entry, ok := s.Cache.Get(r.Context(), in.key); ok {
				metrics.CacheHitsTotal.Inc()
				in.cached = entry
				return in, nil
			}
			metrics.CacheMissesTotal.Inc()
		}

		if in.ds, err = s.Converter.ReadFile(header.Filename, bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return in, nil

	case errors.Is(err, http.ErrMissingFile):
		raw := strings.TrimSpace(r.FormValue("url"))
		if raw == "" {
			return nil, &badRequestError{msg: `either a "file" or a "url" field is required`}
		}
		if s.ArcGIS == nil || !s.Config.Server.AllowURLs {
			return nil, &badRequestError{msg: "URL inputs are disabled"}
		}
		datasets, err := s.ArcGIS.Fetch(r.Context(), raw)
		if err != nil {
			return nil, err
		}
		if len(datasets) != 1 {
			return nil, &badRequestError{msg: fmt.Sprintf("URL resolves to %d layers, expected a single layer", len(datasets))}
		}
		return &input{ds: datasets[0]}, nil

	default:
		return nil, &badRequestError{msg: fmt.Sprintf("invalid file field: %v", err)}
	}
}

func (s *ServerContext) convert(ds *dataset.Dataset, target convert.Target) (*cache.Entry, error) {
	tmp, err := os.MkdirTemp("", "geodata-server-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	res, err := s.Converter.Convert(ds, tmp, target.Format)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, err
	}
	return &cache.Entry{
		Name:     filepath.Base(res.Path),
		MIMEType: target.MIMEType,
		Features: res.Features,
		Data:     data,
	}, nil
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

// statusOf maps unsupported inputs and malformed requests to 400 and every
// other conversion failure to 422.
func statusOf(err error) int {
	var ue *dataset.UnsupportedExtensionError
	var be *badRequestError
	if errors.As(err, &ue) || errors.As(err, &be) {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func writeEntry(w http.ResponseWriter, e *cache.Entry, cached bool) {
	w.Header().Set("Content-Type", e.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Data)))
	w.Header().Set("X-Feature-Count", strconv.Itoa(e.Features))
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	_, _ = w.Write(e.Data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError || status == http.StatusUnprocessableEntity {
		log.Warn().Err(err).Int("status", status).Msg("Conversion request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
