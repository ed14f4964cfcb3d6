package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/lms/internal/flagx"
)

var serverFlags = []string{
	"-a", "-grpc", "-d", "-s", "-t", "-r", "-cost", "-origin",
	"-u", "-p", "-b", "-g", "-e", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string         HTTP bind address (e.g. ":8000")
//	-grpc string      gRPC health endpoint bind address ("" disables it)
//	-d string         PostgreSQL DSN
//	-s string         token HMAC secret key
//	-t int            access token validity, minutes
//	-r int            refresh token validity, minutes
//	-cost int         bcrypt cost
//	-origin string    CORS allowed origin
//	-u string         S3 root user
//	-p string         S3 root password
//	-b string         S3 bucket name
//	-g string         S3 region
//	-e string         S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-log-level string debug, info, warn or error
//
// os.Args is filtered through flagx.FilterArgs first so flags owned by
// other loaders (-c, -env-file) do not cause parse errors.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "address and port to run the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret key")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.BcryptCost, "cost", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.AllowedOrigin, "origin", config.AllowedOrigin, "CORS allowed origin")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// minute-granular flags only replace durations they were given for
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
		}
	})
	return nil
}
