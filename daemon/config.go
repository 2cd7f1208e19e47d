package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultSocket is the local daemon socket.
	DefaultSocket = "unix:///var/run/docker.sock"
	// LocalHost is the diagnostic host recorded for socket connections.
	LocalHost = "127.0.0.1"
	// DefaultRemoteSocket is the daemon socket dialed on the far side of an ssh:// host.
	DefaultRemoteSocket = "/var/run/docker.sock"

	defaultPingTimeout = 10 * time.Second
	defaultSSHTimeout  = 10 * time.Second
)

// Transport identifies how the daemon API is reached.
type Transport int

const (
	TransportUnix Transport = iota
	TransportTCP
	TransportTLS
	TransportSSH
)

func (t Transport) String() string {
	switch t {
	case TransportUnix:
		return "unix"
	case TransportTCP:
		return "tcp"
	case TransportTLS:
		return "tls"
	case TransportSSH:
		return "ssh"
	default:
		return "unknown"
	}
}

// Config holds the parameters used to establish a daemon connection.
type Config struct {
	// Host overrides platform resolution (e.g. "unix:///run/docker.sock",
	// "tcp://10.0.0.5:2375", "ssh://ops@build-01").
	Host string
	// EnvHost is the value of DOCKER_HOST. Only consulted on darwin and windows.
	EnvHost string
	// CertPath is the directory holding ca.pem, cert.pem and key.pem (DOCKER_CERT_PATH).
	CertPath string
	// TLSVerify enables verification of the daemon certificate chain (DOCKER_TLS_VERIFY).
	TLSVerify bool
	// StrictHostname additionally requires the daemon certificate to name the host.
	StrictHostname bool
	// Version pins the API version. Empty negotiates with the daemon.
	Version string
	// GOOS selects the platform policy (default runtime.GOOS).
	GOOS string
	// HTTPClient replaces the client used for unix and tcp transports.
	HTTPClient *http.Client
	// PingTimeout bounds the initial daemon ping.
	PingTimeout time.Duration

	SSH SSHConfig
}

// SSHConfig holds settings for the ssh:// transport.
type SSHConfig struct {
	ConfigPath         string        // OpenSSH client config used to resolve aliases (default ~/.ssh/config)
	KnownHostsPath     string        // Known hosts file (default ~/.ssh/known_hosts)
	KeyPath            string        // Private key, used when the alias names no IdentityFile
	UseAgent           bool          // Also authenticate through SSH_AUTH_SOCK
	InsecureSkipVerify bool          // Disable host key checking. Testing only.
	Timeout            time.Duration // Dial timeout (default 10s)
}

// Endpoint is a resolved daemon address.
type Endpoint struct {
	URL       string    // Address handed to the Docker client
	Host      string    // Host component kept for diagnostics
	Transport Transport // How the API is reached

	// ssh:// only
	User   string
	Port   string
	Socket string
}

// NewConfig builds a Config from defaults and opts.
func NewConfig(opts ...Option) Config {
	var c Config
	for _, o := range opts {
		o(&c)
	}

	return c.WithDefaults()
}

// WithDefaults fills zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}

	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}

	if c.TLSVerify && c.CertPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CertPath = filepath.Join(home, ".docker")
		}
	}

	if c.SSH.Timeout == 0 {
		c.SSH.Timeout = defaultSSHTimeout
	}

	return c
}

// Validate checks that the configuration resolves to a usable endpoint.
func (c Config) Validate() error {
	if c.PingTimeout < 0 {
		return errors.New("configuration error: ping timeout cannot be negative")
	}

	if c.StrictHostname && !c.TLSVerify {
		return errors.New("configuration error: strict hostname checking requires TLS verification")
	}

	_, err := c.Resolve()

	return err
}

// Resolve applies the platform policy and returns the daemon endpoint.
func (c Config) Resolve() (Endpoint, error) {
	if c.Host != "" {
		return c.parseEndpoint(c.Host)
	}

	if vmHosted(c.GOOS) && c.EnvHost != "" {
		return c.parseEndpoint(c.EnvHost)
	}

	return Endpoint{URL: DefaultSocket, Host: LocalHost, Transport: TransportUnix}, nil
}

// vmHosted reports whether the daemon normally runs inside a VM on goos.
func vmHosted(goos string) bool {
	return goos == "darwin" || goos == "windows"
}

func (c Config) parseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid daemon host %q: %w", raw, err)
	}

	switch u.Scheme {
	case "unix":
		if u.Path == "" {
			return Endpoint{}, fmt.Errorf("invalid daemon host %q: missing socket path", raw)
		}

		return Endpoint{URL: raw, Host: LocalHost, Transport: TransportUnix}, nil
	case "tcp":
		if u.Hostname() == "" {
			return Endpoint{}, fmt.Errorf("invalid daemon host %q: missing host", raw)
		}

		transport := TransportTCP
		if c.TLSVerify || c.CertPath != "" {
			transport = TransportTLS
		}

		return Endpoint{URL: raw, Host: u.Hostname(), Transport: transport}, nil
	case "ssh":
		if u.Hostname() == "" {
			return Endpoint{}, fmt.Errorf("invalid daemon host %q: missing host", raw)
		}

		socket := u.Path
		if socket == "" || socket == "/" {
			socket = DefaultRemoteSocket
		}

		return Endpoint{
			URL:       raw,
			Host:      u.Hostname(),
			Transport: TransportSSH,
			User:      u.User.Username(),
			Port:      u.Port(),
			Socket:    socket,
		}, nil
	default:
		return Endpoint{}, fmt.Errorf("invalid daemon host %q: unsupported scheme %q", raw, strings.TrimSuffix(u.Scheme, ":"))
	}
}
