// Package client is the CLI's view of a qrshare server.
//
// Client is the transport-agnostic contract; GRPCClient implements it over
// the protobuf ArtifactService from internal/rpc. Passwords and link tokens travel as gRPC
// metadata, and status codes are mapped to the sentinel errors in errors.go
// so callers can use errors.Is.
//
// ParseRef turns whatever the user pasted (a full link, a bare token or an
// artifact id) into a Ref.
package client
