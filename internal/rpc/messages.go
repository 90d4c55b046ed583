package rpc

import (
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// wire is implemented by every request and response; it maps the struct to
// and from the message of the same name in SourceFile.
type wire interface {
	messageName() protoreflect.Name
	marshalTo(m protoreflect.Message)
	unmarshalFrom(m protoreflect.Message)
}

type UploadRequest struct {
	Filename    string
	ContentType string
	Data        []byte
	Password    string
}

func (*UploadRequest) messageName() protoreflect.Name { return "UploadRequest" }

func (r *UploadRequest) marshalTo(m protoreflect.Message) {
	setString(m, "filename", r.Filename)
	setString(m, "content_type", r.ContentType)
	setBytes(m, "data", r.Data)
	setString(m, "password", r.Password)
}

func (r *UploadRequest) unmarshalFrom(m protoreflect.Message) {
	r.Filename = getString(m, "filename")
	r.ContentType = getString(m, "content_type")
	r.Data = getBytes(m, "data")
	r.Password = getString(m, "password")
}

type UploadResponse struct {
	ID        string
	Link      string
	Key       string
	ExpiresAt time.Time
}

func (*UploadResponse) messageName() protoreflect.Name { return "UploadResponse" }

func (r *UploadResponse) marshalTo(m protoreflect.Message) {
	setString(m, "id", r.ID)
	setString(m, "link", r.Link)
	setString(m, "key", r.Key)
	setTime(m, "expires_at", r.ExpiresAt)
}

func (r *UploadResponse) unmarshalFrom(m protoreflect.Message) {
	r.ID = getString(m, "id")
	r.Link = getString(m, "link")
	r.Key = getString(m, "key")
	r.ExpiresAt = getTime(m, "expires_at")
}

// DownloadRequest names the artifact by ID or by link Token. The password
// may instead travel in the common.PasswordHeaderName metadata key.
type DownloadRequest struct {
	ID       string
	Token    string
	Password string
}

func (*DownloadRequest) messageName() protoreflect.Name { return "DownloadRequest" }

func (r *DownloadRequest) marshalTo(m protoreflect.Message) {
	setString(m, "id", r.ID)
	setString(m, "token", r.Token)
	setString(m, "password", r.Password)
}

func (r *DownloadRequest) unmarshalFrom(m protoreflect.Message) {
	r.ID = getString(m, "id")
	r.Token = getString(m, "token")
	r.Password = getString(m, "password")
}

type DownloadResponse struct {
	Filename      string
	ContentType   string
	Data          []byte
	DownloadCount int64
}

func (*DownloadResponse) messageName() protoreflect.Name { return "DownloadResponse" }

func (r *DownloadResponse) marshalTo(m protoreflect.Message) {
	setString(m, "filename", r.Filename)
	setString(m, "content_type", r.ContentType)
	setBytes(m, "data", r.Data)
	setInt64(m, "download_count", r.DownloadCount)
}

func (r *DownloadResponse) unmarshalFrom(m protoreflect.Message) {
	r.Filename = getString(m, "filename")
	r.ContentType = getString(m, "content_type")
	r.Data = getBytes(m, "data")
	r.DownloadCount = getInt64(m, "download_count")
}

type StatsRequest struct {
	ID string
}

func (*StatsRequest) messageName() protoreflect.Name { return "StatsRequest" }

func (r *StatsRequest) marshalTo(m protoreflect.Message) {
	setString(m, "id", r.ID)
}

func (r *StatsRequest) unmarshalFrom(m protoreflect.Message) {
	r.ID = getString(m, "id")
}

type StatsResponse struct {
	ID            string
	DownloadCount int64
}

func (*StatsResponse) messageName() protoreflect.Name { return "StatsResponse" }

func (r *StatsResponse) marshalTo(m protoreflect.Message) {
	setString(m, "id", r.ID)
	setInt64(m, "download_count", r.DownloadCount)
}

func (r *StatsResponse) unmarshalFrom(m protoreflect.Message) {
	r.ID = getString(m, "id")
	r.DownloadCount = getInt64(m, "download_count")
}

// RevokeRequest may carry the artifact's link token when it is not sent in
// metadata.
type RevokeRequest struct {
	Token string
}

func (*RevokeRequest) messageName() protoreflect.Name { return "RevokeRequest" }

func (r *RevokeRequest) marshalTo(m protoreflect.Message) {
	setString(m, "token", r.Token)
}

func (r *RevokeRequest) unmarshalFrom(m protoreflect.Message) {
	r.Token = getString(m, "token")
}

type RevokeResponse struct {
	ID string
}

func (*RevokeResponse) messageName() protoreflect.Name { return "RevokeResponse" }

func (r *RevokeResponse) marshalTo(m protoreflect.Message) {
	setString(m, "id", r.ID)
}

func (r *RevokeResponse) unmarshalFrom(m protoreflect.Message) {
	r.ID = getString(m, "id")
}

type PingRequest struct{}

func (*PingRequest) messageName() protoreflect.Name { return "PingRequest" }

func (*PingRequest) marshalTo(protoreflect.Message) {}

func (*PingRequest) unmarshalFrom(protoreflect.Message) {}

type PingResponse struct {
	Status string
}

func (*PingResponse) messageName() protoreflect.Name { return "PingResponse" }

func (r *PingResponse) marshalTo(m protoreflect.Message) {
	setString(m, "status", r.Status)
}

func (r *PingResponse) unmarshalFrom(m protoreflect.Message) {
	r.Status = getString(m, "status")
}

// Zero values are left unset, as proto3 would not encode them anyway.

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v != "" {
		m.Set(field(m, name), protoreflect.ValueOfString(v))
	}
}

func setBytes(m protoreflect.Message, name protoreflect.Name, v []byte) {
	if len(v) > 0 {
		m.Set(field(m, name), protoreflect.ValueOfBytes(v))
	}
}

func setInt64(m protoreflect.Message, name protoreflect.Name, v int64) {
	if v != 0 {
		m.Set(field(m, name), protoreflect.ValueOfInt64(v))
	}
}

// setTime fills a google.protobuf.Timestamp field.
func setTime(m protoreflect.Message, name protoreflect.Name, t time.Time) {
	if t.IsZero() {
		return
	}
	fd := field(m, name)
	ts := m.NewField(fd).Message()
	ts.Set(field(ts, "seconds"), protoreflect.ValueOfInt64(t.Unix()))
	if n := t.Nanosecond(); n != 0 {
		ts.Set(field(ts, "nanos"), protoreflect.ValueOfInt32(int32(n)))
	}
	m.Set(fd, protoreflect.ValueOfMessage(ts))
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(field(m, name)).String()
}

func getBytes(m protoreflect.Message, name protoreflect.Name) []byte {
	return m.Get(field(m, name)).Bytes()
}

func getInt64(m protoreflect.Message, name protoreflect.Name) int64 {
	return m.Get(field(m, name)).Int()
}

func getTime(m protoreflect.Message, name protoreflect.Name) time.Time {
	fd := field(m, name)
	if !m.Has(fd) {
		return time.Time{}
	}
	ts := m.Get(fd).Message()
	return time.Unix(ts.Get(field(ts, "seconds")).Int(), ts.Get(field(ts, "nanos")).Int()).UTC()
}
