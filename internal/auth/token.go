// Package auth verifies the HS256 access tokens minted by the identity
// service. Taskhive only consumes identity; issuing and refresh live
// elsewhere.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrTokenInvalid = errors.New("invalid token")

type AccessClaims struct {
	Sub string `json:"sub"` // user id
	Iat int64  `json:"iat"` // created at
	Exp int64  `json:"exp"` // expires at
}

// UserID parses the subject claim.
func (c AccessClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

func ParseAndValidate(token string, secret []byte) (*AccessClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}
	headerB64, payloadB64, sigB64 := parts[0], parts[1], parts[2]

	signingInput := headerB64 + "." + payloadB64
	expectedSig := hmacSHA256(secret, []byte(signingInput))
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if !hmac.Equal(sig, expectedSig) {
		return nil, ErrTokenInvalid
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var claims AccessClaims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	now := time.Now().Unix()
	if claims.Iat > now {
		return nil, errors.New("token used before issued")
	}
	if claims.Exp < now {
		return nil, errors.New("token expired")
	}

	return &claims, nil
}

// SignedString mints a token with these claims. Production tokens come
// from the identity service; this exists for tests and local tooling.
func (c AccessClaims) SignedString(secret []byte) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	payloadJSON, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	sigInput := header + "." + payload
	sig := hmacSHA256(secret, []byte(sigInput))

	return sigInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func hmacSHA256(secret, message []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return mac.Sum(nil)
}
