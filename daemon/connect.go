package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/docker/docker/client"
)

// sshTunnelHost is the placeholder API address used when requests are
// tunnelled through an SSH connection.
const sshTunnelHost = "http://docker.example.com"

// ConnectionError reports a failure to establish the daemon connection.
// It is fatal to the process.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("cannot connect to the docker daemon: %v", e.Err)
	}

	return fmt.Sprintf("cannot connect to the docker daemon at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Connection is an established daemon connection. It is created once per
// process and is immutable.
type Connection struct {
	Host      string
	Transport Transport
	Client    *client.Client

	tunnel *sshTunnel
}

// Close releases the API client and any SSH tunnel.
func (c *Connection) Close() error {
	var errs []error

	if c.Client != nil {
		errs = append(errs, c.Client.Close())
	}

	if c.tunnel != nil {
		errs = append(errs, c.tunnel.Close())
	}

	return errors.Join(errs...)
}

// Connect resolves the daemon endpoint for cfg, builds the API client and
// pings the daemon. Any failure is returned as a *ConnectionError.
func Connect(ctx context.Context, cfg Config) (*Connection, error) {
	cfg = cfg.WithDefaults()

	ep, err := cfg.Resolve()
	if err != nil {
		return nil, &ConnectionError{Endpoint: firstNonEmpty(cfg.Host, cfg.EnvHost), Err: err}
	}

	fail := func(err error) (*Connection, error) {
		return nil, &ConnectionError{Endpoint: ep.URL, Err: err}
	}

	if ep.Transport == TransportUnix {
		if err := checkSocket(ep.URL); err != nil {
			return fail(err)
		}
	}

	conn := &Connection{Host: ep.Host, Transport: ep.Transport}

	opts, err := conn.clientOpts(ctx, cfg, ep)
	if err != nil {
		_ = conn.Close()

		return fail(err)
	}

	conn.Client, err = client.NewClientWithOpts(opts...)
	if err != nil {
		_ = conn.Close()

		return fail(fmt.Errorf("failed to create docker client: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	if _, err := conn.Client.Ping(pingCtx); err != nil {
		_ = conn.Close()

		return fail(fmt.Errorf("ping failed: %w", err))
	}

	return conn, nil
}

// clientOpts converts the resolved endpoint into Docker client options.
// An SSH tunnel, when needed, is opened here and owned by conn.
func (conn *Connection) clientOpts(ctx context.Context, cfg Config, ep Endpoint) ([]client.Opt, error) {
	opts := []client.Opt{}

	if cfg.Version != "" {
		opts = append(opts, client.WithVersion(cfg.Version))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	switch ep.Transport {
	case TransportTLS:
		httpClient, err := tlsHTTPClient(cfg)
		if err != nil {
			return nil, err
		}

		opts = append(opts, client.WithHTTPClient(httpClient), client.WithHost(ep.URL))
	case TransportSSH:
		tunnel, err := dialSSH(ctx, cfg.SSH, ep)
		if err != nil {
			return nil, err
		}

		conn.tunnel = tunnel
		dial := socketDialer(tunnel.Client, ep.Socket)

		opts = append(opts,
			client.WithHTTPClient(&http.Client{Transport: &http.Transport{DialContext: dial}}),
			client.WithHost(sshTunnelHost),
			client.WithDialContext(dial),
		)
	default:
		if cfg.HTTPClient != nil {
			opts = append(opts, client.WithHTTPClient(cfg.HTTPClient))
		}

		opts = append(opts, client.WithHost(ep.URL))
	}

	return opts, nil
}

// checkSocket fails fast when a unix socket path does not exist.
func checkSocket(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if _, err := os.Stat(u.Path); err != nil {
		return fmt.Errorf("daemon socket unavailable: %w", err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
