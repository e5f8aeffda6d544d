package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/authgate/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":4001")
//	-d string   PostgreSQL DSN ("" selects the in-memory store)
//	-s string   JWT HMAC secret key
//	-b int      bcrypt cost
//	-k string   password signature key
//	-l string   log level
//
// Args are filtered through flagx.FilterArgs first so -c/-config and flags
// owned by other components do not trip the parser.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("authgate", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.PasswordSigKey, "k", config.PasswordSigKey, "password signature key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-b", "-k", "-l"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
