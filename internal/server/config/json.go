package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/flagx"
	"github.com/dmitrijs2005/credkeeper/internal/timex"
)

// ConfigFileEnv names the environment variable consulted when no -c/-config
// flag is given.
const ConfigFileEnv = "CREDKEEPER_CONFIG"

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so they can be written as "30m" or as nanoseconds.
type JsonConfig struct {
	HTTPAddr    string `json:"http_addr"`
	GRPCAddr    string `json:"grpc_addr"`
	DatabaseDSN string `json:"database_dsn"`
	LogLevel    string `json:"log_level"`

	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	ResetTokenSecret             string         `json:"reset_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`

	PasswordHasher string `json:"password_hasher"`
	BcryptCost     int    `json:"bcrypt_cost"`

	APIURL    string `json:"api_url"`
	ClientURL string `json:"client_url"`

	MailTransport  string         `json:"mail_transport"`
	MailFrom       string         `json:"mail_from"`
	MailTimeout    timex.Duration `json:"mail_timeout"`
	SMTPAddr       string         `json:"smtp_addr"`
	SMTPUser       string         `json:"smtp_user"`
	SMTPPassword   string         `json:"smtp_password"`
	KafkaBrokers   []string       `json:"kafka_brokers"`
	KafkaMailTopic string         `json:"kafka_mail_topic"`

	RedisURL          string         `json:"redis_url"`
	RateLimitRequests int            `json:"rate_limit_requests"`
	RateLimitWindow   timex.Duration `json:"rate_limit_window"`
	TrustProxyHeaders *bool          `json:"trust_proxy_headers"`

	JanitorInterval timex.Duration `json:"janitor_interval"`

	CookieSecure *bool `json:"cookie_secure"`
}

// parseJson overlays values from a JSON file onto config. The file path
// comes from -c/-config or, failing that, from CREDKEEPER_CONFIG. Keys that
// are absent or empty in the file leave the current value untouched.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath(ConfigFileEnv)

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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.ResetTokenSecret, c.ResetTokenSecret)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)

	setString(&config.PasswordHasher, c.PasswordHasher)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}

	setString(&config.APIURL, c.APIURL)
	setString(&config.ClientURL, c.ClientURL)

	setString(&config.MailTransport, c.MailTransport)
	setString(&config.MailFrom, c.MailFrom)
	setDuration(&config.MailTimeout, c.MailTimeout)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaMailTopic, c.KafkaMailTopic)

	setString(&config.RedisURL, c.RedisURL)
	if c.RateLimitRequests != 0 {
		config.RateLimitRequests = c.RateLimitRequests
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	if c.TrustProxyHeaders != nil {
		config.TrustProxyHeaders = *c.TrustProxyHeaders
	}

	setDuration(&config.JanitorInterval, c.JanitorInterval)

	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if !v.IsZero() {
		*dst = v.Duration
	}
}
