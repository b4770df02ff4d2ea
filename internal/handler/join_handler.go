/*
Package handler provides HTTP handler functions for the join handshake and the
proof-of-work gate in front of it.
*/
package handler

import (
	"net/http"

	"zone/internal/app/ticket"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/limiter"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/pow"
	"zone/internal/pkg/req"
	"zone/internal/pkg/resp"
)

type JoinInput struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// HandleJoin issues a ticket. No user exists until the ticket is redeemed
// by a websocket upgrade.
func HandleJoin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input JoinInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if err := ticket.ValidateIdentity(input.Name, input.Avatar); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		ip := limiter.ClientIP(r)
		banned, err := deps.Zone.IsBanned(r.Context(), ip)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if banned {
			logx.Info("Join rejected: IP is banned.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrBanned))
			return
		}

		// the proof is single use, so spend it only on a join that will succeed
		if deps.Pow != nil && !deps.Pow.RedeemProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		record, err := deps.Tickets.RequestJoin(input.Name, input.Avatar)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, record)
	}
}

// HandlePowChallenge hands out a nonce to solve.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      deps.Pow.GenerateNonce(),
			"difficulty": deps.Pow.Difficulty(),
		})
	}
}

type PowVerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowVerify trades a solved challenge for a single-use join token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PowVerifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Info("PoW proof rejected.", "reason", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{
			"token":  token,
			"header": pow.TokenHeaderKey,
		})
	}
}
