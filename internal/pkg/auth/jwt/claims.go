package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a zone bearer token. The token is handed out
// by POST /join and authorizes REST calls as the same principal for as long
// as the user's connection stays live.
type Payload struct {
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the zone user id the token was minted for.
	UserID string `json:"uid"`

	// Nonce makes two tokens for the same user distinct.
	Nonce string `json:"nonce"`
}
