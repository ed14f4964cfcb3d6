package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/lms/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv overlays Config with LMS_* environment variables. Variables from a
// dotenv file (-env-file, or ./.env when present) are loaded first without
// overriding variables already set in the process environment.
//
// JWT_SECRET is honoured as an alias of LMS_SECRET_KEY.
func parseEnv(config *Config) error {
	if err := loadEnvFile(flagx.EnvFileFlag()); err != nil {
		return err
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	str("LMS_HTTP_ADDR", &config.EndpointAddrHTTP)
	str("LMS_GRPC_ADDR", &config.EndpointAddrGRPC)
	str("LMS_DATABASE_DSN", &config.DatabaseDSN)
	str("JWT_SECRET", &config.SecretKey)
	str("LMS_SECRET_KEY", &config.SecretKey)
	str("LMS_ALLOWED_ORIGIN", &config.AllowedOrigin)
	str("LMS_S3_ROOT_USER", &config.S3RootUser)
	str("LMS_S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("LMS_S3_BUCKET", &config.S3Bucket)
	str("LMS_S3_REGION", &config.S3Region)
	str("LMS_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("LMS_LOG_LEVEL", &config.LogLevel)

	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	dur("LMS_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("LMS_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	dur("LMS_TOKEN_LEEWAY", &config.TokenLeeway)

	if v, ok := os.LookupEnv("LMS_BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LMS_BCRYPT_COST: %w", err))
		} else {
			config.BcryptCost = n
		}
	}
	if v, ok := os.LookupEnv("LMS_MAX_UPLOAD_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LMS_MAX_UPLOAD_SIZE: %w", err))
		} else {
			config.MaxUploadSize = n
		}
	}

	return errors.Join(errs...)
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}
