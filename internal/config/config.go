package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	EtherscanURL    string
	EtherscanAPIKey string

	InferenceURL    string
	InferenceAPIKey string
	InferenceModel  string

	IdempTTLSecs        int
	RiskCacheTTLSecs    int
	GatewayTimeoutSecs  int
	InferenceTimeoutSec int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "lending"),
		MySQLUser: getenv("MYSQL_USER", "lending"),
		MySQLPass: getenv("MYSQL_PASS", "lending"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		EtherscanURL:    getenv("ETHERSCAN_URL", "https://api.etherscan.io/api"),
		EtherscanAPIKey: os.Getenv("ETHERSCAN_API_KEY"),

		InferenceURL:    getenv("INFERENCE_URL", "https://api.openai.com/v1/chat/completions"),
		InferenceAPIKey: os.Getenv("INFERENCE_API_KEY"),
		InferenceModel:  getenv("INFERENCE_MODEL", "gpt-4o-mini"),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),
		// risk assessments stay valid for 30 minutes
		RiskCacheTTLSecs:    getint("RISK_CACHE_TTL_SECONDS", 1800),
		GatewayTimeoutSecs:  getint("GATEWAY_TIMEOUT_SECONDS", 10),
		InferenceTimeoutSec: getint("INFERENCE_TIMEOUT_SECONDS", 30),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.RiskCacheTTLSecs <= 0 {
		return errors.New("RISK_CACHE_TTL_SECONDS must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
