/*
Package resp writes the {code, message, data} envelope every REST endpoint
answers with. Failures are logged through the request-scoped logger that
logx.RequestLogger puts into the request context.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"zone/internal/pkg/errs"
)

// Envelope is the body of every REST response.
type Envelope struct {
	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	// Message is a client-facing description.
	Message string `json:"message"`

	Data any `json:"data,omitempty"`
}

// RespondJSON encodes payload before touching the response, so an encoding
// failure can still become a clean 500.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	logger := zerolog.Ctx(r.Context())

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Int("http_status", httpStatus).Msg("Failed to encode response")
		body, _ = json.Marshal(Envelope{Code: errs.ErrUnknown, Message: errs.NewError(errs.ErrUnknown).Message})
		httpStatus = http.StatusInternalServerError
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")

	w.WriteHeader(httpStatus)
	if _, err := w.Write(body); err != nil {
		logger.Debug().Err(err).Msg("Client went away before the response was written")
	}
}

// RespondSuccess sends data with HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, Envelope{Message: "success", Data: data})
}

// RespondError maps err onto its code and status. Anything that is not an
// *errs.CustomError is an internal fault: the cause is logged and the client
// sees ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	customErr := errs.From(err)
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	var known *errs.CustomError
	if customErr.Status >= http.StatusInternalServerError || !errors.As(err, &known) {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Int("code", customErr.Code).
			Msg("Request failed")
	}

	RespondJSON(w, r, customErr.Status, Envelope{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
