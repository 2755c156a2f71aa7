package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/filmkeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-w", "-n", "-d", "-s", "-t", "-i",
	"-seed", "-log-level", "-log-format",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string         gRPC bind address (e.g. ":50051")
//	-w string         HTTP bind address (e.g. ":8080")
//	-n string         database driver, "pgx" or "sqlite3"
//	-d string         database DSN
//	-s string         token signing secret
//	-t duration       access token validity (e.g. "1h")
//	-i string         token issuer
//	-seed string      YAML file with users to create at start
//	-log-level string
//	-log-format string
//
// os.Args is filtered with flagx.FilterArgs first so the -c/-config flag
// handled by parseFile does not trip this flag set.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.DatabaseDriver, "n", config.DatabaseDriver, "database driver (pgx|sqlite3)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity duration")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.SeedFile, "seed", config.SeedFile, "users seed file")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json|text)")

	return fs.Parse(args)
}
