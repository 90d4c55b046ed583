// Package links issues and verifies the signed tokens embedded in download
// links. A token names one artifact and expires with it, so stale links are
// refused before the store is consulted.
package links

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qrshare/qrshare/internal/common"
)

const issuer = "qrshare"

// Claims carries the artifact id as the token subject.
type Claims struct {
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty link secret", common.ErrorInvalidInput)
	}
	return &Signer{secret: secret, now: time.Now}, nil
}

// Token signs a link token for artifactID valid until expiresAt.
func (s *Signer) Token(artifactID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   artifactID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	return token.SignedString(s.secret)
}

// ArtifactID verifies tokenString and returns the artifact it names.
// Expired tokens give common.ErrTokenExpired, anything else unacceptable
// common.ErrInvalidToken.
func (s *Signer) ArtifactID(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// URL joins the public base URL and a token into a download link.
func URL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/d/" + token
}
