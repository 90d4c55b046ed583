package models

import "time"

// PolicyKind selects how an artifact is gated.
type PolicyKind string

const (
	PolicyPublic            PolicyKind = "public"
	PolicyPasswordProtected PolicyKind = "password"
)

// AccessPolicy is either Public or PasswordProtected with an argon2id hash.
// The plaintext password is never stored.
type AccessPolicy struct {
	Kind         PolicyKind
	PasswordHash string
}

// Public returns the policy for ungated artifacts.
func Public() AccessPolicy {
	return AccessPolicy{Kind: PolicyPublic}
}

// PasswordProtected returns a policy gated by the given encoded hash.
func PasswordProtected(hash string) AccessPolicy {
	return AccessPolicy{Kind: PolicyPasswordProtected, PasswordHash: hash}
}

// RequiresPassword reports whether retrieval must present a password.
func (p AccessPolicy) RequiresPassword() bool {
	return p.Kind == PolicyPasswordProtected
}

// Artifact is the metadata record of one uploaded file. The encrypted bytes
// live in blob storage under CiphertextRef; the data key lives with key
// custody under ID.
type Artifact struct {
	// ID is a random 128-bit identifier, never reused.
	ID string
	// OriginalName is the sender-supplied file name. Display only.
	OriginalName string
	// ContentType is the MIME type recorded at upload, if known.
	ContentType string
	// Size is the plaintext length in bytes.
	Size int64
	// CiphertextRef is the blob name holding the sealed payload.
	CiphertextRef string
	// CreatedAt is the ingestion time and the reference point for expiry.
	CreatedAt time.Time
	// TTL is the retention window.
	TTL time.Duration
	// Policy gates retrieval.
	Policy AccessPolicy
	// DownloadCount is incremented once per successful retrieval.
	DownloadCount int64
	// Pending is set while ingestion is in progress. A pending record is
	// never served, but it is indexed by expiry like any other, so whatever
	// a failed ingestion leaves behind is reaped by the sweeper.
	Pending bool
}

// ExpiresAt is the instant after which the artifact is logically gone.
func (a *Artifact) ExpiresAt() time.Time {
	return a.CreatedAt.Add(a.TTL)
}

// Expired reports whether now - CreatedAt > TTL.
func (a *Artifact) Expired(now time.Time) bool {
	return now.Sub(a.CreatedAt) > a.TTL
}

// KeyRecord is the persisted form of a per-artifact data key. WrappedKey is
// the data key sealed under the custody key-encryption key.
type KeyRecord struct {
	ArtifactID string
	WrappedKey []byte
	CreatedAt  time.Time
}
