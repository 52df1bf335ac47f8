package winhost

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "deskshell-bridge"
	// TokenExpiry bounds how long a spawned child may take to connect.
	TokenExpiry = 2 * time.Minute
)

// ErrBadToken is returned for tokens that fail verification.
var ErrBadToken = errors.New("invalid bridge token")

// TokenIssuer signs per-window tokens with a secret that lives only in
// the host process.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with a fresh random secret.
func NewTokenIssuer() (*TokenIssuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate bridge secret: %w", err)
	}
	return &TokenIssuer{secret: secret, now: time.Now}, nil
}

// Issue returns a token binding the window label.
func (i *TokenIssuer) Issue(label string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   label,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks a token and returns the window label it was issued for.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing label", ErrBadToken)
	}
	return claims.Subject, nil
}
