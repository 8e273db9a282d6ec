package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/possync/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   admin HTTP bind address (e.g., ":8080")
//	-b string   backend: postgres, dynamodb or memory
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      shop token validity, minutes
//	-x string   admin API token
//	-r string   Redis address for the barcode cache
//	-k string   comma separated Kafka brokers
//	-j string   Jaeger collector endpoint
//	-l string   log format: json or zap
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The token validity is accepted in minutes and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-h", "-b", "-d", "-s", "-t", "-x", "-r", "-k", "-j", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "address and port to run admin HTTP server")
	fs.StringVar(&config.Backend, "b", config.Backend, "catalog backend (postgres, dynamodb, memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.StringVar(&config.AdminToken, "x", config.AdminToken, "admin API token")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	brokers := fs.String("k", "", "kafka brokers (comma separated)")
	fs.StringVar(&config.JaegerEndpoint, "j", config.JaegerEndpoint, "jaeger collector endpoint")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json, zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	if *brokers != "" {
		config.KafkaBrokers = flagx.SplitList(*brokers)
	}
}
