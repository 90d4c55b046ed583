package config

import (
	"encoding/json"
	"os"

	"github.com/qrshare/qrshare/internal/flagx"
	"github.com/qrshare/qrshare/internal/timex"
)

// JsonConfig is the DTO read from the JSON config file. It uses
// timex.Duration so durations may be strings such as "15m" or integer
// nanoseconds. Keys missing from the file keep the values already in
// Config.
type JsonConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	BaseURL           string         `json:"base_url"`
	DataDir           string         `json:"data_dir"`
	MetadataBackend   string         `json:"metadata_backend"`
	DatabaseDSN       string         `json:"database_dsn"`
	BlobBackend       string         `json:"blob_backend"`
	S3AccessKeyID     string         `json:"s3_access_key_id"`
	S3SecretAccessKey string         `json:"s3_secret_access_key"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	S3UsePathStyle    bool           `json:"s3_use_path_style"`
	S3Prefix          string         `json:"s3_prefix"`
	MasterKey         string         `json:"master_key"`
	LinkSecret        string         `json:"link_secret"`
	TTL               timex.Duration `json:"ttl"`
	SweepInterval     timex.Duration `json:"sweep_interval"`
	MaxUploadBytes    int64          `json:"max_upload_bytes"`
	ShutdownTimeout   timex.Duration `json:"shutdown_timeout"`
	LogLevel          string         `json:"log_level"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:  c.EndpointAddrGRPC,
		EndpointAddrHTTP:  c.EndpointAddrHTTP,
		BaseURL:           c.BaseURL,
		DataDir:           c.DataDir,
		MetadataBackend:   c.MetadataBackend,
		DatabaseDSN:       c.DatabaseDSN,
		BlobBackend:       c.BlobBackend,
		S3AccessKeyID:     c.S3AccessKeyID,
		S3SecretAccessKey: c.S3SecretAccessKey,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3BaseEndpoint:    c.S3BaseEndpoint,
		S3UsePathStyle:    c.S3UsePathStyle,
		S3Prefix:          c.S3Prefix,
		MasterKey:         c.MasterKey,
		LinkSecret:        c.LinkSecret,
		TTL:               timex.Duration{Duration: c.TTL},
		SweepInterval:     timex.Duration{Duration: c.SweepInterval},
		MaxUploadBytes:    c.MaxUploadBytes,
		ShutdownTimeout:   timex.Duration{Duration: c.ShutdownTimeout},
		LogLevel:          c.LogLevel,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.BaseURL = j.BaseURL
	c.DataDir = j.DataDir
	c.MetadataBackend = j.MetadataBackend
	c.DatabaseDSN = j.DatabaseDSN
	c.BlobBackend = j.BlobBackend
	c.S3AccessKeyID = j.S3AccessKeyID
	c.S3SecretAccessKey = j.S3SecretAccessKey
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3UsePathStyle = j.S3UsePathStyle
	c.S3Prefix = j.S3Prefix
	c.MasterKey = j.MasterKey
	c.LinkSecret = j.LinkSecret
	c.TTL = j.TTL.Duration
	c.SweepInterval = j.SweepInterval.Duration
	c.MaxUploadBytes = j.MaxUploadBytes
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
	c.LogLevel = j.LogLevel
}

// parseJson loads the JSON file named by -c/-config, if any, over config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
