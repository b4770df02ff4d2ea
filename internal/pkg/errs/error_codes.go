/*
Package errs provides the application error type and the error code constants
shared by the HTTP surface and the websocket protocol.

Codes are grouped by failure class:
1xxx validation, 2xxx conflict, 3xxx authorization and tickets, 5xxx internal.
*/
package errs

// 1xxx: ValidationError. Malformed or out-of-range input, nothing mutated.
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON for the endpoint.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the caller exceeded its request rate.
	ErrRateLimitExceeded = 1007

	// ErrValidation carries a human-readable reason for a rejected field.
	ErrValidation = 1101

	// ErrInvalidMedia indicates a queue submission without usable media.
	ErrInvalidMedia = 1102
)

// 2xxx: Conflict. Well-formed request refused by the current zone state.
const (
	// ErrDuplicateMedia indicates the same media locator is already queued.
	ErrDuplicateMedia = 2001

	// ErrQueueLimit indicates the submitter reached the per-submitter cap.
	ErrQueueLimit = 2002

	// ErrStaleSkip indicates a skip aimed at an item that is no longer playing.
	ErrStaleSkip = 2003

	// ErrItemNotFound indicates the queue item does not exist.
	ErrItemNotFound = 2004

	// ErrUserNotFound indicates the target user is not connected.
	ErrUserNotFound = 2005

	// ErrBanned indicates the caller's network identity is banned.
	ErrBanned = 2006

	// ErrNotSpawned indicates an action that needs a position from an unspawned user.
	ErrNotSpawned = 2007

	// ErrLibraryUnavailable indicates the media library cannot serve the request.
	ErrLibraryUnavailable = 2008
)

// 3xxx: NotAuthorized and TicketFault.
const (
	// ErrUnauthorized indicates a missing, malformed or revoked bearer token.
	ErrUnauthorized = 3001

	// ErrForbidden indicates the caller lacks the role for the action.
	ErrForbidden = 3002

	// ErrWrongPassword indicates a failed shared-secret check.
	ErrWrongPassword = 3003

	// ErrTicketInvalid indicates an unknown, expired or already used ticket.
	ErrTicketInvalid = 3004

	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3101

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid.
	ErrPowChallengeInvalid = 3102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrZoneUnavailable indicates the zone loop is shutting down.
	ErrZoneUnavailable = 5001

	// ErrPersistence indicates a failed state load or save.
	ErrPersistence = 5002
)
