package api

import (
	"crypto/tls"
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
)

// TLSConfig holds the certificate paths for serving the API over HTTPS.
type TLSConfig struct {
	CertFile string `env:"SCENE_TLS_CERT"`
	KeyFile  string `env:"SCENE_TLS_KEY"`
}

// tlsConfig is the package-level TLS configuration, set by InitTLS.
var tlsConfig *TLSConfig

// InitTLS reads SCENE_TLS_CERT and SCENE_TLS_KEY. TLS is enabled only when
// both are set.
func InitTLS() error {
	var cfg TLSConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse tls env: %w", err)
	}
	tlsConfig = nil
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig = &cfg
	}
	return nil
}

// IsTLSEnabled returns true if TLS is configured.
func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// GetTLSConfig returns the current TLS configuration (may be nil).
func GetTLSConfig() *TLSConfig {
	return tlsConfig
}

// LoadTLSConfig loads a tls.Config from the cert and key files.
// Returns nil and logs an error if loading fails.
func LoadTLSConfig() *tls.Config {
	if !IsTLSEnabled() {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
	if err != nil {
		log.Printf("api: failed to load TLS certificate: %v", err)
		return nil
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// SetTLSConfigForTest allows tests to set TLS config directly.
func SetTLSConfigForTest(cfg *TLSConfig) {
	tlsConfig = cfg
}
