package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-l",
	"-s", "-S", "-R", "-t", "-r", "-x",
	"-H", "-k",
	"-api", "-client",
	"-m", "-kafka", "-redis", "-trust-proxy",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-l string   log level
//	-s string   access token secret
//	-S string   refresh token secret
//	-R string   reset token secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x int      reset token validity, minutes
//	-H string   password hasher (bcrypt|argon2id)
//	-k int      bcrypt cost
//	-api string     public API base URL used in activation links
//	-client string  client base URL used in reset links and redirects
//	-m string       mail transport (log|smtp|kafka)
//	-kafka string   comma-separated Kafka brokers
//	-redis string   Redis URL for rate limiting (empty disables it)
//	-trust-proxy    key rate limits by X-Forwarded-For
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.ResetTokenSecret, "R", config.ResetTokenSecret, "reset token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("x", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.PasswordHasher, "H", config.PasswordHasher, "password hasher")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")

	fs.StringVar(&config.APIURL, "api", config.APIURL, "public API URL")
	fs.StringVar(&config.ClientURL, "client", config.ClientURL, "client URL")

	fs.StringVar(&config.MailTransport, "m", config.MailTransport, "mail transport")
	kafkaBrokers := fs.String("kafka", strings.Join(config.KafkaBrokers, ","), "kafka brokers")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis URL")
	fs.BoolVar(&config.TrustProxyHeaders, "trust-proxy", config.TrustProxyHeaders, "trust X-Forwarded-For")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
	config.KafkaBrokers = splitList(*kafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
