package daemon

import (
	"net/http"
	"time"
)

// Option defines a functional option for a daemon Config.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithHost sets an explicit daemon host, bypassing platform resolution.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithEnvHost sets the DOCKER_HOST value consulted on VM-hosted platforms.
func WithEnvHost(host string) Option {
	return func(c *Config) {
		c.EnvHost = host
	}
}

// WithTLS sets the certificate directory and whether the daemon chain is verified.
func WithTLS(certPath string, verify bool) Option {
	return func(c *Config) {
		c.CertPath = certPath
		c.TLSVerify = verify
	}
}

// WithStrictHostname requires the daemon certificate to name the daemon host.
func WithStrictHostname(strict bool) Option {
	return func(c *Config) {
		c.StrictHostname = strict
	}
}

// WithVersion pins the API version.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}

// WithGOOS overrides the platform used for resolution.
func WithGOOS(goos string) Option {
	return func(c *Config) {
		c.GOOS = goos
	}
}

// WithHTTPClient sets a custom HTTP client for unix and tcp transports.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithPingTimeout bounds the initial ping.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.PingTimeout = d
	}
}

// WithSSH sets the ssh:// transport settings.
func WithSSH(s SSHConfig) Option {
	return func(c *Config) {
		c.SSH = s
	}
}
