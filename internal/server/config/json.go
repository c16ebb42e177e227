package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/skeleton/internal/flagx"
	"github.com/dmitrijs2005/skeleton/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for the ttl, which accepts both strings such as
// "24h" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	SMTPURL          string         `json:"smtp_url"`
	SMTPCredential   string         `json:"smtp_credential"`
	SMTPPassword     string         `json:"smtp_password"`
	MailQueueSize    int            `json:"mail_queue_size"`
	DashboardPath    string         `json:"dashboard_path"`
	PublicPath       string         `json:"public_path"`
	PlatformName     string         `json:"platform_name"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The path comes from -c/-config or the CONFIG environment
// variable; without one nothing is loaded. Keys missing from the file keep
// their current values. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.TokenTTL.Duration != 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	setString(&config.SMTPURL, c.SMTPURL)
	setString(&config.SMTPCredential, c.SMTPCredential)
	setString(&config.SMTPPassword, c.SMTPPassword)
	if c.MailQueueSize != 0 {
		config.MailQueueSize = c.MailQueueSize
	}
	setString(&config.DashboardPath, c.DashboardPath)
	setString(&config.PublicPath, c.PublicPath)
	setString(&config.PlatformName, c.PlatformName)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
