// Package config loads this store's settings from the process
// environment. There is no config file: every knob here is an env var,
// matching how the rest of this service's ambient settings (log level,
// bind address) are already sourced.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-derived setting the store needs to
// start.
type Config struct {
	DBPath             string
	AuthToken          string
	BindAddr           string
	Port               int
	SSLCert            string
	SSLKey             string
	SSLPort            int
	CompressionLevel   int
	CacheCapacityBytes uint64
	FlushIntervalMS    uint64
}

const (
	defaultDBPath          = "./kv_db"
	defaultBindAddr        = "0.0.0.0"
	defaultPort            = 3000
	defaultSSLPort         = 3443
	defaultCompressionLvl  = 1
	defaultFlushIntervalMS = 1000
)

// FromEnv reads every setting from the process environment. TOKEN is
// the only required variable; every other one falls back to a
// default matching this service's original deployment defaults.
func FromEnv() (*Config, error) {
	token := os.Getenv("TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TOKEN environment variable must be set")
	}

	cfg := &Config{
		DBPath:           envOr("DB_PATH", defaultDBPath),
		AuthToken:        token,
		CompressionLevel: defaultCompressionLvl,
		FlushIntervalMS:  defaultFlushIntervalMS,
	}

	cfg.BindAddr, cfg.Port = resolveBindAddrAndPort()

	sslCert := os.Getenv("SSL_CERT")
	sslKey := os.Getenv("SSL_KEY")
	if (sslCert == "") != (sslKey == "") {
		return nil, fmt.Errorf("both SSL_CERT and SSL_KEY must be set to enable TLS")
	}
	cfg.SSLCert = sslCert
	cfg.SSLKey = sslKey
	if sslCert != "" {
		cfg.SSLPort = envOrInt("SSL_PORT", defaultSSLPort)
	}

	if v, err := strconv.Atoi(os.Getenv("COMPRESSION_LEVEL")); err == nil {
		cfg.CompressionLevel = v
	}

	if v, ok := parseSize(os.Getenv("KV_CACHE_CAPACITY")); ok {
		cfg.CacheCapacityBytes = v
	}

	if v, err := strconv.ParseUint(os.Getenv("KV_FLUSH_INTERVAL_MS"), 10, 64); err == nil {
		cfg.FlushIntervalMS = v
	}

	return cfg, nil
}

// TLSEnabled reports whether both SSL_CERT and SSL_KEY were set.
func (c *Config) TLSEnabled() bool {
	return c.SSLCert != "" && c.SSLKey != ""
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envOrInt(name string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return v
	}
	return def
}

// resolveBindAddrAndPort follows the original precedence: PORT wins
// over any port embedded in BIND_ADDR, and BIND_ADDR's host wins over
// HOST. BIND_ADDR is expected as "host:port" but a bare host is
// tolerated.
func resolveBindAddrAndPort() (string, int) {
	bindAddr := defaultBindAddr
	bindAddrPort := 0

	if full := os.Getenv("BIND_ADDR"); full != "" {
		host, portStr, found := strings.Cut(full, ":")
		bindAddr = host
		if found {
			if p, err := strconv.Atoi(portStr); err == nil {
				bindAddrPort = p
			}
		}
	} else if host := os.Getenv("HOST"); host != "" {
		bindAddr = host
	}

	port := defaultPort
	if bindAddrPort != 0 {
		port = bindAddrPort
	}
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		port = p
	}

	return bindAddr, port
}

// parseSize parses a byte-count string with an optional K/M/G suffix
// (case-insensitive), e.g. "256M", "1G", "512000000".
func parseSize(s string) (uint64, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	multiplier := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}
