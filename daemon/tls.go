package daemon

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
)

// tlsOptions locates the client material under certPath.
func tlsOptions(c Config) tlsconfig.Options {
	opts := tlsconfig.Options{
		ExclusiveRootPools: true,
		InsecureSkipVerify: !c.TLSVerify,
	}

	if c.TLSVerify {
		opts.CAFile = filepath.Join(c.CertPath, "ca.pem")
	}

	cert := filepath.Join(c.CertPath, "cert.pem")
	key := filepath.Join(c.CertPath, "key.pem")

	if fileExists(cert) && fileExists(key) {
		opts.CertFile = cert
		opts.KeyFile = key
	}

	return opts
}

// tlsClientConfig loads the TLS material for c.
func tlsClientConfig(c Config) (*tls.Config, error) {
	tc, err := tlsconfig.Client(tlsOptions(c))
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS material from %s: %w", c.CertPath, err)
	}

	if c.TLSVerify && !c.StrictHostname {
		skipHostnameVerification(tc)
	}

	return tc, nil
}

// skipHostnameVerification keeps chain verification against tc.RootCAs but
// stops checking that the leaf certificate names the dialed host.
func skipHostnameVerification(tc *tls.Config) {
	roots := tc.RootCAs

	tc.InsecureSkipVerify = true
	tc.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("daemon presented no certificate")
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))

		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return fmt.Errorf("failed to parse daemon certificate: %w", err)
			}

			certs = append(certs, cert)
		}

		intermediates := x509.NewCertPool()
		for _, cert := range certs[1:] {
			intermediates.AddCert(cert)
		}

		_, err := certs[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})

		return err
	}
}

// tlsHTTPClient returns an HTTP client carrying the TLS material for c.
func tlsHTTPClient(c Config) (*http.Client, error) {
	tc, err := tlsClientConfig(c)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport:     &http.Transport{TLSClientConfig: tc},
		CheckRedirect: client.CheckRedirect,
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
