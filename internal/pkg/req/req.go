/*
Package req provides helpers for decoding HTTP request bodies.

Every JSON endpoint of the zone server goes through BindJSON so size limits,
unknown-field rejection and error codes stay uniform.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"zone/internal/pkg/errs"
)

// MaxBodyBytes caps every JSON request body. Avatars are the largest field.
const MaxBodyBytes int64 = 16 << 10

// BindJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
