package web

// errors.go maps service errors to HTTP responses.
//
// Every error is logged with its full text and the request id; clients get a
// stable code plus a short message and a suggested action:
//
//	IMP001  404  import job not found
//	IMP002  409  import job is already running
//	IMP003  503  too many imports running
//	IMP004  400  file path outside the upload directory or not a regular file
//	IMP005  413  file exceeds the size limit
//	IMP006  422  file is not a readable allocation export
//	IMP007  400  unknown character encoding
//	IMP008  400  invalid request
//	ERR000  500  anything else

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/importer"
	"github.com/JonMunkholm/allocimport/internal/logging"
	"github.com/JonMunkholm/allocimport/internal/source"
)

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("invalid request")

// ErrorResponse is the JSON body of an error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// UserMessage is the client-facing description of an error.
type UserMessage struct {
	Status  int
	Code    string
	Message string
	Action  string
}

var errorTable = []struct {
	target error
	msg    UserMessage
}{
	{importer.ErrJobNotFound, UserMessage{http.StatusNotFound, "IMP001", "Import job not found", "Check the job id"}},
	{domain.ErrNotFound, UserMessage{http.StatusNotFound, "IMP001", "Import job not found", "Check the job id"}},
	{importer.ErrJobRunning, UserMessage{http.StatusConflict, "IMP002", "Import job is already running", "Wait for the current run to finish"}},
	{importer.ErrTooManyRuns, UserMessage{http.StatusServiceUnavailable, "IMP003", "Too many imports are running", "Please try again in a moment"}},
	{importer.ErrInvalidPath, UserMessage{http.StatusBadRequest, "IMP004", "File path is not allowed", "Use a file inside the upload directory"}},
	{importer.ErrFileTooLarge, UserMessage{http.StatusRequestEntityTooLarge, "IMP005", "File is too large", "Split the export into smaller files"}},
	{source.ErrMalformedSource, UserMessage{http.StatusUnprocessableEntity, "IMP006", "File is not a readable allocation export", "Check that the file has a header row"}},
	{source.ErrUnknownEncoding, UserMessage{http.StatusBadRequest, "IMP007", "Unknown character encoding", "Use auto, utf-8 or windows-1252"}},
	{importer.ErrInvalidHospital, UserMessage{http.StatusBadRequest, "IMP008", "Invalid hospital id", "Use a positive hospital id"}},
	{errBadRequest, UserMessage{http.StatusBadRequest, "IMP008", "Invalid request", "Check the request parameters"}},
}

var internalError = UserMessage{http.StatusInternalServerError, "ERR000", "An unexpected error occurred", "Please try again or contact support"}

// MapError returns the client message for err.
func MapError(err error) UserMessage {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.msg
		}
	}
	return internalError
}

// respondError logs err and writes the mapped JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "method", r.Method, "status", msg.Status, "code", msg.Code, "error", err.Error()}
	if msg.Status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if msg.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, msg.Status, ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code})
}
