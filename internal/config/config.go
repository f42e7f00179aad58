// Package config loads ledger node and operator settings from the
// environment, after merging an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Server is the ledger node configuration.
type Server struct {
	HTTPAddr string

	Store       string
	PostgresDSN string
	BoltPath    string

	KafkaBrokers     []string
	KafkaTopic       string
	KafkaCompression string

	LogLevel string
	LogFile  string

	RateLimit   float64 // requests per second, 0 disables
	RateBurst   int
	CORSOrigins []string
}

// Operator is the tokenctl configuration.
type Operator struct {
	PrivateKey    string
	DeploymentLog string
	RPCURLs       map[string]string // network name -> endpoint
	LogLevel      string
}

// LoadEnv merges the given .env files into the process environment. Missing
// files are ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// LoadServer reads the node configuration.
func LoadServer() (*Server, error) {
	cfg := &Server{
		HTTPAddr:         getEnv("LEDGER_HTTP_ADDR", ":8080"),
		Store:            strings.ToLower(getEnv("LEDGER_STORE", StoreMemory)),
		PostgresDSN:      os.Getenv("LEDGER_POSTGRES_DSN"),
		BoltPath:         getEnv("LEDGER_BOLT_PATH", "ledger.db"),
		KafkaBrokers:     splitList(os.Getenv("LEDGER_KAFKA_BROKERS")),
		KafkaTopic:       getEnv("LEDGER_KAFKA_TOPIC", "token_transfers"),
		KafkaCompression: strings.ToLower(getEnv("LEDGER_KAFKA_COMPRESSION", "none")),
		LogLevel:         getEnv("LEDGER_LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LEDGER_LOG_FILE"),
		CORSOrigins:      splitList(getEnv("LEDGER_CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("LEDGER_RATE_LIMIT", "20"), 64); err != nil {
		return nil, errors.Wrap(err, "LEDGER_RATE_LIMIT")
	}
	if cfg.RateBurst, err = strconv.Atoi(getEnv("LEDGER_RATE_BURST", "40")); err != nil {
		return nil, errors.Wrap(err, "LEDGER_RATE_BURST")
	}

	switch cfg.Store {
	case StoreMemory, StoreBolt:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("LEDGER_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return nil, errors.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}

// Networks known to tokenctl, with their default endpoints.
var Networks = map[string]string{
	"local":    "http://127.0.0.1:8080",
	"unichain": "",
	"sepolia":  "",
	"mainnet":  "",
}

// LoadOperator reads the tokenctl configuration. <NETWORK>_RPC_URL overrides
// the endpoint of a network.
func LoadOperator() *Operator {
	cfg := &Operator{
		PrivateKey:    os.Getenv("WALLET_PRIVATE_KEY"),
		DeploymentLog: getEnv("DEPLOYMENT_LOG", "deployment_log.json"),
		RPCURLs:       make(map[string]string, len(Networks)),
		LogLevel:      getEnv("TOKENCTL_LOG_LEVEL", "warn"),
	}
	for name, def := range Networks {
		cfg.RPCURLs[name] = getEnv(strings.ToUpper(name)+"_RPC_URL", def)
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
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
