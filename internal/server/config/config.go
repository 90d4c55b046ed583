// Package config handles configuration for the server component: defaults,
// an optional JSON file, QRSHARE_* environment variables and command-line
// flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds runtime settings for the qrshare server.
//
// MasterKey derives the key-encryption key for stored data keys and
// LinkSecret signs link tokens. The defaults are for local development
// only.
type Config struct {
	EndpointAddrGRPC string `env:"GRPC_ADDR"`
	EndpointAddrHTTP string `env:"HTTP_ADDR"`
	// BaseURL is the public origin links are built from.
	BaseURL string `env:"BASE_URL"`
	DataDir string `env:"DATA_DIR"`

	MetadataBackend string `env:"METADATA_BACKEND"`
	DatabaseDSN     string `env:"DATABASE_DSN"`

	BlobBackend       string `env:"BLOB_BACKEND"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION"`
	S3BaseEndpoint    string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
	S3Prefix          string `env:"S3_PREFIX"`

	MasterKey  string `env:"MASTER_KEY"`
	LinkSecret string `env:"LINK_SECRET"`

	TTL             time.Duration `env:"TTL"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `env:"LOG_LEVEL"`
}

const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.BaseURL = "http://localhost:8080"
	c.DataDir = "data"
	c.MetadataBackend = "bolt"
	c.DatabaseDSN = ""
	c.BlobBackend = BlobBackendLocal
	c.S3Bucket = "qrshare"
	c.S3Region = "us-east-1"
	c.S3UsePathStyle = true
	c.S3Prefix = "artifacts"
	c.MasterKey = "dev-master-key"
	c.LinkSecret = "dev-link-secret"
	c.TTL = 15 * time.Minute
	c.SweepInterval = time.Minute
	c.MaxUploadBytes = 100 << 20
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags. Malformed input panics.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MasterKey) == "" {
		errs = append(errs, errors.New("master key is required"))
	}
	if strings.TrimSpace(c.LinkSecret) == "" {
		errs = append(errs, errors.New("link secret is required"))
	}
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("ttl must be positive, got %s", c.TTL))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval))
	}
	switch c.BlobBackend {
	case BlobBackendLocal:
	case BlobBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for the s3 blob backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.BlobBackend))
	}
	return errors.Join(errs...)
}
