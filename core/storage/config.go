package storage

import "time"

// Config points at the bucket packages are synchronised from.
type Config struct {
	// Endpoint is host:port of the S3 or MinIO service. A scheme is allowed.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL enables TLS. An https:// endpoint implies it.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket holds the package archives.
	Bucket string `mapstructure:"bucket" default:"webapps"`
	// Prefix restricts the sync to keys below it, e.g. "releases/".
	Prefix string `mapstructure:"prefix" default:""`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// Timeout bounds connection setup and the wait for response headers.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
}
