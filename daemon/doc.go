// Package daemon resolves how to reach the Docker daemon and establishes the
// single connection a tsaotun process uses.
//
// Resolution follows the host platform. On darwin and windows, where the
// daemon usually runs inside a VM, DOCKER_HOST (Config.EnvHost) is honored
// and TLS material from DOCKER_CERT_PATH is used when present. Everywhere
// else the local socket is used. An explicit Config.Host overrides both and
// may use the unix://, tcp:// or ssh:// schemes.
//
// Usage:
//
//	conn, err := daemon.Connect(ctx, daemon.NewConfig(daemon.WithHost("ssh://ops@build-01")))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
// TLS connections verify the certificate chain against the configured CA but,
// unless Config.StrictHostname is set, do not check that the certificate names
// the daemon's host. VM-hosted daemons are commonly reached by an address that
// their certificate does not list.
package daemon
