package client

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Ref identifies an artifact. Token is set when the user supplied a link
// or a bare token; ID is always set.
type Ref struct {
	ID    string
	Token string
}

// ParseRef accepts a download link (".../d/<token>"), a bare link token or
// an artifact id.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if _, token, ok := strings.Cut(s, "/d/"); ok {
		s = strings.TrimRight(token, "/")
	}
	if s == "" {
		return Ref{}, ErrBadRef
	}

	if _, err := uuid.Parse(s); err == nil {
		return Ref{ID: s}, nil
	}

	// The server verifies the signature; here the subject is only read so
	// id-based calls (stats) work from a link too.
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s, &claims); err != nil {
		return Ref{}, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	if claims.Subject == "" {
		return Ref{}, ErrBadRef
	}
	return Ref{ID: claims.Subject, Token: s}, nil
}
