// Package proto holds the protobuf service definitions. They are embedded
// and compiled at startup by internal/rpc.
package proto

import "embed"

//go:embed qrshare/*.proto
var Files embed.FS
