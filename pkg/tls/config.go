// Package tls builds client TLS settings for stream connections.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientConfig represents TLS configuration for stream connections
type ClientConfig struct {
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	ServerName         string `yaml:"serverName"`
	RootCAFile         string `yaml:"rootCAFile"`
	ClientCertFile     string `yaml:"clientCertFile"`
	ClientKeyFile      string `yaml:"clientKeyFile"`
	MinVersion         string `yaml:"minVersion"`
}

// IsZero reports whether c leaves every setting at its default
func (c ClientConfig) IsZero() bool {
	return c == ClientConfig{}
}

// Build returns the crypto/tls configuration, or nil when c is zero so the
// transport keeps Go's defaults.
func (c ClientConfig) Build() (*tls.Config, error) {
	if c.IsZero() {
		return nil, nil
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.InsecureSkipVerify,
		ServerName:         c.ServerName,
		MinVersion:         ParseTLSVersion(c.MinVersion),
	}

	if c.RootCAFile != "" {
		pem, err := os.ReadFile(c.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("reading root CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.RootCAFile)
		}
		cfg.RootCAs = pool
	}

	if (c.ClientCertFile == "") != (c.ClientKeyFile == "") {
		return nil, fmt.Errorf("client certificate and key must be set together")
	}
	if c.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCertFile, c.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// ParseTLSVersion converts "1.0" through "1.3" to a crypto/tls version.
// Anything else yields TLS 1.2.
func ParseTLSVersion(version string) uint16 {
	switch version {
	case "1.0":
		return tls.VersionTLS10
	case "1.1":
		return tls.VersionTLS11
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
