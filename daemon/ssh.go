package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshTarget is an ssh:// endpoint after alias resolution.
type sshTarget struct {
	HostName     string
	User         string
	Port         string
	IdentityFile string
	Insecure     bool
}

// Addr returns host:port.
func (t sshTarget) Addr() string {
	port := t.Port
	if port == "" {
		port = "22"
	}

	return net.JoinHostPort(t.HostName, port)
}

// resolveSSHAlias resolves alias through an OpenSSH client config. Values
// already present on the endpoint win over the config file.
func resolveSSHAlias(ep Endpoint, r io.Reader) (sshTarget, error) {
	target := sshTarget{HostName: ep.Host, User: ep.User, Port: ep.Port}

	if r == nil {
		return target.withCurrentUser(), nil
	}

	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return sshTarget{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	if hostName, _ := cfg.Get(ep.Host, "HostName"); hostName != "" {
		target.HostName = hostName
	}

	if target.User == "" {
		target.User, _ = cfg.Get(ep.Host, "User")
	}

	if target.Port == "" {
		target.Port, _ = cfg.Get(ep.Host, "Port")
	}

	identity, _ := cfg.Get(ep.Host, "IdentityFile")
	target.IdentityFile = expandHome(identity)

	if strict, _ := cfg.Get(ep.Host, "StrictHostKeyChecking"); strict == "no" {
		target.Insecure = true
	}

	return target.withCurrentUser(), nil
}

func (t sshTarget) withCurrentUser() sshTarget {
	if t.User == "" {
		if u, _ := user.Current(); u != nil {
			t.User = u.Username
		}
	}

	return t
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}

func defaultSSHPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ssh", name)
}

// loadSSHTarget resolves ep against the configured OpenSSH client config.
// A missing config file is not an error.
func loadSSHTarget(c SSHConfig, ep Endpoint) (sshTarget, error) {
	path := c.ConfigPath
	if path == "" {
		path = defaultSSHPath("config")
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || path == "" {
			return resolveSSHAlias(ep, nil)
		}

		return sshTarget{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return resolveSSHAlias(ep, f)
}

// hostKeyCallback verifies host keys against known_hosts unless disabled.
func hostKeyCallback(c SSHConfig, target sshTarget) (ssh.HostKeyCallback, error) {
	if c.InsecureSkipVerify || target.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicitly requested
	}

	path := c.KnownHostsPath
	if path == "" {
		path = defaultSSHPath("known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return cb, nil
}

// loadPrivateKeyAuth loads a private key from a file and returns an ssh.AuthMethod.
// Returns nil if the path is empty.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	if keyPath == "" {
		return nil, nil //nolint:nilnil // no key configured
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// loadAgentAuth returns signers from SSH_AUTH_SOCK, or nil when unavailable.
// The returned connection to the agent must be closed once the SSH session ends.
func loadAgentAuth(ctx context.Context, useAgent bool) (ssh.AuthMethod, io.Closer) {
	if !useAgent {
		return nil, nil
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, nil
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), conn
}

// sshClientConfig builds the client configuration for target. The closer, if
// any, holds the agent connection used for authentication.
func sshClientConfig(ctx context.Context, c SSHConfig, target sshTarget) (*ssh.ClientConfig, io.Closer, error) {
	if target.User == "" {
		return nil, nil, errors.New("configuration error: ssh user cannot be empty")
	}

	hostKeys, err := hostKeyCallback(c, target)
	if err != nil {
		return nil, nil, err
	}

	keyPath := target.IdentityFile
	if keyPath == "" {
		keyPath = c.KeyPath
	}

	var methods []ssh.AuthMethod

	keyAuth, err := loadPrivateKeyAuth(keyPath)
	if err != nil {
		return nil, nil, err
	}

	if keyAuth != nil {
		methods = append(methods, keyAuth)
	}

	agentAuth, agentConn := loadAgentAuth(ctx, c.UseAgent)
	if agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	if len(methods) == 0 {
		return nil, nil, errors.New("configuration error: no ssh authentication method (set a key path or enable the agent)")
	}

	return &ssh.ClientConfig{
		User:            target.User,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         c.Timeout,
	}, agentConn, nil
}

// sshTunnel is an SSH connection to the daemon host together with the agent
// connection that authenticated it.
type sshTunnel struct {
	*ssh.Client

	agent io.Closer
}

// Close closes the SSH connection and the agent connection.
func (t *sshTunnel) Close() error {
	var errs []error

	if t.Client != nil {
		errs = append(errs, t.Client.Close())
	}

	if t.agent != nil {
		errs = append(errs, t.agent.Close())
	}

	return errors.Join(errs...)
}

// dialSSH opens an SSH connection to the endpoint's host.
func dialSSH(ctx context.Context, c SSHConfig, ep Endpoint) (*sshTunnel, error) {
	target, err := loadSSHTarget(c, ep)
	if err != nil {
		return nil, err
	}

	clientConfig, agentConn, err := sshClientConfig(ctx, c, target)
	if err != nil {
		return nil, err
	}

	tunnel := &sshTunnel{agent: agentConn}

	addr := target.Addr()
	d := net.Dialer{Timeout: c.Timeout}

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		_ = tunnel.Close()

		return nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		_ = conn.Close()
		_ = tunnel.Close()

		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	tunnel.Client = ssh.NewClient(sshConn, chans, reqs)

	return tunnel, nil
}

// socketDialer dials the remote daemon socket through client.
func socketDialer(client *ssh.Client, socket string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, _, _ string) (net.Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return client.Dial("unix", socket)
	}
}
