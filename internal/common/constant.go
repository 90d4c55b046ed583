package common

import "time"

const (
	// KeySize is the size in bytes of per-artifact data keys (AES-256).
	KeySize = 32

	// DefaultTTL is the retention window applied when none is configured.
	DefaultTTL = 15 * time.Minute

	// PasswordHeaderName is the gRPC metadata key that may carry an
	// artifact password instead of the request body.
	PasswordHeaderName = "artifact_password"

	// LinkTokenHeaderName is the gRPC metadata key carrying a link token
	// for operations that act on behalf of the link holder.
	LinkTokenHeaderName = "link_token"

	// PayloadBlobName is the blob name of an artifact's ciphertext.
	PayloadBlobName = "payload.enc"

	// QRBlobName is the blob name of the rendered QR code for an artifact link.
	QRBlobName = "qr.png"
)
