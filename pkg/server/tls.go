package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"mercator-hq/chronicle/pkg/config"
)

// certExpiryWarning is how close to expiry a server certificate is logged.
const certExpiryWarning = 30 * 24 * time.Hour

// newTLSConfig loads the server certificate and, when a client CA is
// configured, sets up client certificate verification.
func newTLSConfig(cfg *config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if err := checkValidity(leaf, time.Now()); err != nil {
		return nil, err
	}
	if remaining := time.Until(leaf.NotAfter); remaining < certExpiryWarning {
		logger.Warn("server certificate expires soon",
			"subject", leaf.Subject.String(),
			"not_after", leaf.NotAfter.Format(time.RFC3339),
		)
	}

	// #nosec G402 - MinVersion is validated to 1.2 or 1.3
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}
	if cfg.MinVersion == "1.2" {
		tlsCfg.MinVersion = tls.VersionTLS12
	}

	if cfg.ClientCAFile != "" {
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in client CA file %s", cfg.ClientCAFile)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
		if cfg.ClientAuth == "verify_if_given" {
			tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}
	return tlsCfg, nil
}

func checkValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// clientIdentity returns the common name of a verified client certificate.
func clientIdentity(r *http.Request) string {
	if r.TLS == nil || len(r.TLS.VerifiedChains) == 0 {
		return ""
	}
	return r.TLS.VerifiedChains[0][0].Subject.CommonName
}
