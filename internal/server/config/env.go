package config

import "github.com/dmitrijs2005/skeleton/internal/flagx"

// parseEnv applies the environment variables the deployment sets. They win
// over every other source.
func parseEnv(config *Config) {
	flagx.StringFromEnv(&config.DatabaseDSN, "DATABASE_URL")
	flagx.StringFromEnv(&config.SMTPURL, "SMTP_URL")
	flagx.StringFromEnv(&config.SMTPCredential, "SMTP_CREDENTIAL")
	flagx.StringFromEnv(&config.SMTPPassword, "SMTP_PASSWORD")
	flagx.StringFromEnv(&config.DashboardPath, "DASHBOARD_PATH")
	flagx.StringFromEnv(&config.PublicPath, "PUBLIC_PATH")
	flagx.StringFromEnv(&config.PlatformName, "PLATFORM_NAME")
}
