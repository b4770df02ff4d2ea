package errs

import "net/http"

// errorMap holds the message template and HTTP status for every code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed request body.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrValidation:            {Code: ErrValidation, Message: "%s", Status: http.StatusBadRequest},
	ErrInvalidMedia:          {Code: ErrInvalidMedia, Message: "Invalid media: %s", Status: http.StatusBadRequest},

	ErrDuplicateMedia:     {Code: ErrDuplicateMedia, Message: "That media is already queued.", Status: http.StatusConflict},
	ErrQueueLimit:         {Code: ErrQueueLimit, Message: "You already have %s items queued.", Status: http.StatusConflict},
	ErrStaleSkip:          {Code: ErrStaleSkip, Message: "That item is no longer playing.", Status: http.StatusConflict},
	ErrItemNotFound:       {Code: ErrItemNotFound, Message: "Queue item not found.", Status: http.StatusNotFound},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrBanned:             {Code: ErrBanned, Message: "You are banned from this zone.", Status: http.StatusForbidden},
	ErrNotSpawned:         {Code: ErrNotSpawned, Message: "You need to be in the room to do that.", Status: http.StatusConflict},
	ErrLibraryUnavailable: {Code: ErrLibraryUnavailable, Message: "Library: %s", Status: http.StatusConflict},

	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Missing or invalid token.", Status: http.StatusUnauthorized},
	ErrForbidden:            {Code: ErrForbidden, Message: "You are not allowed to %s.", Status: http.StatusForbidden},
	ErrWrongPassword:        {Code: ErrWrongPassword, Message: "Wrong password.", Status: http.StatusForbidden},
	ErrTicketInvalid:        {Code: ErrTicketInvalid, Message: "Ticket is unknown, expired or already used.", Status: http.StatusNotFound},
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},

	ErrUnknown:         {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrZoneUnavailable: {Code: ErrZoneUnavailable, Message: "Zone is shutting down.", Status: http.StatusServiceUnavailable},
	ErrPersistence:     {Code: ErrPersistence, Message: "Failed to persist zone state.", Status: http.StatusInternalServerError},
}
