/*
Package handler provides HTTP handler functions for the shared playback queue.
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zone/internal/app/playback"
	"zone/internal/pkg/auth/jwt"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/req"
	"zone/internal/pkg/resp"
)

// EnqueueInput names exactly one media source: explicit media, a library
// item, or a random banger.
type EnqueueInput struct {
	Media     *playback.Media `json:"media,omitempty"`
	LibraryID string          `json:"libraryId,omitempty"`
	Banger    bool            `json:"banger,omitempty"`
}

// resolve turns the input into media. Library lookups happen here, outside
// the zone loop.
func (in EnqueueInput) resolve(deps *AppDeps) (playback.Media, bool, error) {
	sources := 0
	if in.Media != nil {
		sources++
	}
	if in.LibraryID != "" {
		sources++
	}
	if in.Banger {
		sources++
	}
	if sources != 1 {
		return playback.Media{}, false, errs.Validation("give exactly one of media, libraryId or banger")
	}

	switch {
	case in.Media != nil:
		return *in.Media, false, nil
	case in.LibraryID != "":
		entry, err := deps.Library.Get(in.LibraryID)
		if err != nil {
			return playback.Media{}, false, err
		}
		return entry.Media(), false, nil
	default:
		entry, err := deps.Library.Banger()
		if err != nil {
			return playback.Media{}, false, err
		}
		return entry.Media(), true, nil
	}
}

// HandleGetQueue returns the timeline with elapsed time computed at request time.
func HandleGetQueue(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Zone.Timeline(r.Context())
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, view)
	}
}

// HandleEnqueue appends media to the queue as the authenticated user.
func HandleEnqueue(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input EnqueueInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		media, banger, err := input.resolve(deps)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		item, err := deps.Zone.Enqueue(r.Context(), jwt.UserIDFromContext(r), media, banger)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, item)
	}
}

type SkipInput struct {
	ItemID   int64  `json:"itemId"`
	Password string `json:"password,omitempty"`
}

// HandleSkip votes to skip, or skips outright with the admin password.
func HandleSkip(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SkipInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, err := deps.Zone.Skip(r.Context(), jwt.UserIDFromContext(r), input.ItemID, input.Password)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, map[string]any{
			"skipped": result.Skipped,
			"votes":   result.Votes,
			"needed":  result.Needed,
		})
	}
}

// HandleUnqueue removes a queued item.
func HandleUnqueue(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
		if err != nil || itemID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Zone.Unqueue(r.Context(), jwt.UserIDFromContext(r), itemID); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, map[string]int64{"itemId": itemID})
	}
}
