/*
Package resp writes the JSON envelope every REST endpoint answers with.

Successful calls carry code 0 and their data; failures carry the business code and
message of an errs.CustomError with its HTTP status. Encoding and write failures are
logged through the request-scoped logger installed by logx.RequestLogger, so they
share the request id of the access log line.
*/
package resp

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"roomchat/internal/pkg/errs"
)

// JSONResponse is the envelope of every REST response.
type JSONResponse struct {
	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	Message string `json:"message"`

	// Data is the response payload. Absent lookups are reported as an explicit null.
	Data any `json:"data"`
}

// RespondJSON encodes payload before touching the response, so an encoding
// failure can still be reported as a plain 500.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	logger := zerolog.Ctx(r.Context())

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		logger.Error().Err(err).Int("http_status", httpStatus).Msg("Error encoding JSON response")
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

// RespondSuccess answers 200 with data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{Message: "success", Data: data})
}

// RespondError answers with the code, message and status of err.
// Errors that are not CustomErrors are reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	customErr := errs.From(err)
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Warn().
			Int("code", customErr.Code).
			Str("path", r.URL.Path).
			Msg("Request failed with an internal error")
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{Code: customErr.Code, Message: customErr.Message})
}
