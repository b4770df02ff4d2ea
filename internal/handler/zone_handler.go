package handler

import (
	"encoding/json"
	"net/http"

	"zone/internal/app/moderation"
	"zone/internal/app/user"
	"zone/internal/pkg/auth/jwt"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/req"
	"zone/internal/pkg/resp"
)

// HandleGetUsers returns the presence snapshot.
func HandleGetUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.Zone.Users(r.Context())
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, users)
	}
}

// HandleGetEchoes returns every echo in the room.
func HandleGetEchoes(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		echoes, err := deps.Zone.Echoes(r.Context())
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, echoes)
	}
}

type EchoInput struct {
	Text string `json:"text"`

	// Position defaults to the author's own cell.
	Position *user.Position `json:"position,omitempty"`
}

// HandleWriteEcho writes or clears an echo.
func HandleWriteEcho(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input EchoInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		change, err := deps.Zone.WriteEcho(r.Context(), jwt.UserIDFromContext(r), input.Position, input.Text)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, change)
	}
}

type AuthorizeInput struct {
	Password string `json:"password"`
}

// HandleAuthorize grants the caller the admin tag for the admin password.
func HandleAuthorize(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AuthorizeInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		userID := jwt.UserIDFromContext(r)
		if err := deps.Zone.Authorize(r.Context(), userID, input.Password); err != nil {
			logx.Warn("Admin authorization refused.", "user_id", userID)
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleCommand runs an admin command.
func HandleCommand(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		if customErr := req.BindJSON(w, r, &raw); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		cmd, err := moderation.ParseCommand(raw)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := deps.Zone.Command(r.Context(), jwt.UserIDFromContext(r), cmd); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, map[string]string{"name": string(cmd.Name)})
	}
}
