/*
Package req provides helper functions for HTTP request parsing and data binding.
*/
package req

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"roomchat/internal/pkg/errs"
)

// MaxJSONBodySize bounds the size of JSON request bodies accepted by BindJSON.
const MaxJSONBodySize int64 = 1 << 20

// BindJSON decodes the JSON request body into dst. Unknown fields, oversized
// bodies and trailing data are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, io.EOF) {
			return errs.NewError(errs.ErrInvalidParams)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// RequiredQuery returns the trimmed query parameter key, or ErrInvalidParams when it is blank.
func RequiredQuery(r *http.Request, key string) (string, *errs.CustomError) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return value, nil
}
