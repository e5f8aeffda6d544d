package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseEnv overlays environment variables:
//
//	ADDRESS           HTTP bind address (e.g. ":4001")
//	PORT              shorthand for ADDRESS=":<PORT>", ignored when ADDRESS is set
//	DATABASE_URL      PostgreSQL DSN; set to "memory" for the in-memory store
//	JWT_SECRET        HMAC signing secret
//	BCRYPT_COST       bcrypt work factor
//	PASSWORD_SIG_KEY  key for the password signature
//	LOG_LEVEL         log level
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get("ADDRESS"); ok {
		config.EndpointAddrHTTP = v
	} else if v, ok := get("PORT"); ok {
		config.EndpointAddrHTTP = ":" + v
	}
	if v, ok := get("DATABASE_URL"); ok {
		if v == "memory" {
			v = ""
		}
		config.DatabaseDSN = v
	}
	if v, ok := get("JWT_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := get("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST must be an integer: %w", err)
		}
		config.BcryptCost = cost
	}
	if v, ok := get("PASSWORD_SIG_KEY"); ok {
		config.PasswordSigKey = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		config.LogLevel = v
	}
	return nil
}
