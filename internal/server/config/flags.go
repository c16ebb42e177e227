package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-t int      token ttl, seconds
//	-m string   SMTP relay URL (smtp://host:port)
//	-q int      mail queue size
//	-f string   dashboard assets directory
//	-w string   public files directory
//	-n string   platform name
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The ttl flag is an integer number of seconds.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-t", "-m", "-q", "-f", "-w", "-n", "-u", "-p", "-b", "-r", "-e", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Seconds()), "token ttl (in seconds)")

	fs.StringVar(&config.SMTPURL, "m", config.SMTPURL, "SMTP relay URL")
	fs.IntVar(&config.MailQueueSize, "q", config.MailQueueSize, "mail queue size")
	fs.StringVar(&config.DashboardPath, "f", config.DashboardPath, "dashboard assets directory")
	fs.StringVar(&config.PublicPath, "w", config.PublicPath, "public files directory")
	fs.StringVar(&config.PlatformName, "n", config.PlatformName, "platform name")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket with dashboard assets")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Second
}
