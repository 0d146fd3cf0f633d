package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrBadInvite is returned when an invite token fails verification.
var ErrBadInvite = errors.New("invalid invite token")

const inviteIssuer = "golf-host"

// InviteClaims are carried by the token the host hands to its opponent.
type InviteClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueInvite signs an HS256 invite for sessionID that expires after ttl.
func IssueInvite(secret []byte, sessionID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := InviteClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    inviteIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign invite: %w", err)
	}
	return token, nil
}

// VerifyInvite checks the signature, expiry and issuer of token and returns
// the session it admits.
func VerifyInvite(secret []byte, token string) (uuid.UUID, error) {
	var claims InviteClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(inviteIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBadInvite, err)
	}
	id, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: session id: %v", ErrBadInvite, err)
	}
	return id, nil
}
