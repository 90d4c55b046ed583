package config

import (
	"flag"
	"os"

	"github.com/qrshare/qrshare/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-w string     HTTP bind address (e.g., ":8080")
//	-r string     public base URL for links
//	-f string     data directory for bolt files and local blobs
//	-m string     metadata backend: bolt, postgres or sqlite
//	-d string     database DSN (postgres, sqlite)
//	-o string     blob backend: local or s3
//	-u string     S3 access key id
//	-p string     S3 secret access key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 endpoint (e.g., "http://127.0.0.1:9000")
//	-k string     master key
//	-s string     link signing secret
//	-t duration   artifact TTL (e.g., "15m")
//	-i duration   sweep interval
//	-x int        max upload size in bytes
//	-l string     log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-w", "-r", "-f", "-m", "-d", "-o", "-u", "-p", "-b", "-g", "-e", "-k", "-s", "-t", "-i", "-x", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.BaseURL, "r", config.BaseURL, "public base URL")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend (bolt|postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend (local|s3)")

	fs.StringVar(&config.S3AccessKeyID, "u", config.S3AccessKeyID, "S3 access key id")
	fs.StringVar(&config.S3SecretAccessKey, "p", config.S3SecretAccessKey, "S3 secret access key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")

	fs.StringVar(&config.MasterKey, "k", config.MasterKey, "master key")
	fs.StringVar(&config.LinkSecret, "s", config.LinkSecret, "link signing secret")

	fs.DurationVar(&config.TTL, "t", config.TTL, "artifact TTL")
	fs.DurationVar(&config.SweepInterval, "i", config.SweepInterval, "sweep interval")
	fs.Int64Var(&config.MaxUploadBytes, "x", config.MaxUploadBytes, "max upload size (bytes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
