package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/filmkeeper/internal/flagx"
	"github.com/dmitrijs2005/filmkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a config file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted.
// Zero values leave the corresponding Config field untouched.
type FileConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDriver              string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	TokenIssuer                 string         `json:"token_issuer" yaml:"token_issuer"`
	ClockSkew                   timex.Duration `json:"clock_skew" yaml:"clock_skew"`
	HashMemoryKiB               uint32         `json:"hash_memory_kib" yaml:"hash_memory_kib"`
	HashIterations              uint32         `json:"hash_iterations" yaml:"hash_iterations"`
	HashParallelism             uint8          `json:"hash_parallelism" yaml:"hash_parallelism"`
	MaxConcurrentHashes         int            `json:"max_concurrent_hashes" yaml:"max_concurrent_hashes"`
	SeedFile                    string         `json:"seed_file" yaml:"seed_file"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
	LogFormat                   string         `json:"log_format" yaml:"log_format"`
}

// parseFile loads configuration values from the file named by -c/-config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// Without the flag nothing is loaded.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.TokenIssuer, fc.TokenIssuer)
	setString(&c.SeedFile, fc.SeedFile)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.AccessTokenValidityDuration.Duration != 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.ClockSkew.Duration != 0 {
		c.ClockSkew = fc.ClockSkew.Duration
	}
	if fc.HashMemoryKiB != 0 {
		c.HashMemoryKiB = fc.HashMemoryKiB
	}
	if fc.HashIterations != 0 {
		c.HashIterations = fc.HashIterations
	}
	if fc.HashParallelism != 0 {
		c.HashParallelism = fc.HashParallelism
	}
	if fc.MaxConcurrentHashes != 0 {
		c.MaxConcurrentHashes = fc.MaxConcurrentHashes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
