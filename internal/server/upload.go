package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"koi-classifier/internal/common"
)

// csvPayload is the JSON form of a CSV upload.
type csvPayload struct {
	CSV      string   `json:"csv"`
	TestSize *float64 `json:"test_size,omitempty"`
}

// csvUpload is a decoded upload. TestSize is the raw "test_size" option
// carried next to the CSV, empty when absent.
type csvUpload struct {
	Text     string
	TestSize string
}

// readCSV extracts CSV text from a multipart "file" field, a JSON
// {"csv": "..."} body, or a raw body, capped at the upload limit.
func (s *Server) readCSV(w http.ResponseWriter, r *http.Request) (string, error) {
	up, err := s.readUpload(w, r)
	return up.Text, err
}

// readUpload is readCSV plus the test_size option of multipart and JSON
// bodies.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (csvUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "multipart/form-data":
		return readMultipartCSV(r, s.config.MaxUploadBytes)
	case "application/json":
		var payload csvPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if isTooLarge(err) {
				return csvUpload{}, &http.MaxBytesError{Limit: s.config.MaxUploadBytes}
			}
			return csvUpload{}, badRequest("invalid JSON body: " + err.Error())
		}
		if strings.TrimSpace(payload.CSV) == "" {
			return csvUpload{}, badRequest(`JSON body must carry CSV text in the "csv" field`)
		}
		up := csvUpload{Text: payload.CSV}
		if payload.TestSize != nil {
			up.TestSize = strconv.FormatFloat(*payload.TestSize, 'g', -1, 64)
		}
		return up, nil
	default:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			if isTooLarge(err) {
				return csvUpload{}, &http.MaxBytesError{Limit: s.config.MaxUploadBytes}
			}
			return csvUpload{}, fmt.Errorf("read request body: %w", err)
		}
		return csvUpload{Text: string(data)}, nil
	}
}

func readMultipartCSV(r *http.Request, maxBytes int64) (csvUpload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if isTooLarge(err) {
			return csvUpload{}, &http.MaxBytesError{Limit: maxBytes}
		}
		return csvUpload{}, badRequest("invalid multipart body: " + err.Error())
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return csvUpload{}, badRequest(`multipart body must carry a "file" field`)
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return csvUpload{}, badRequest("uploaded file must be a .csv file")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return csvUpload{}, fmt.Errorf("read uploaded file: %w", err)
	}
	return csvUpload{Text: string(data), TestSize: r.FormValue("test_size")}, nil
}

// parseTestSize reads the held-out fraction for a training request. Empty
// means no held-out rows.
func parseTestSize(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(ts >= 0 && ts <= common.MaxTestSize) {
		return 0, badRequest(fmt.Sprintf("test_size must be a number between 0 and %g", common.MaxTestSize))
	}
	return ts, nil
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
