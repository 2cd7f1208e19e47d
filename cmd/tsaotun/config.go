package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/shlex"
	"github.com/ruffel/tsaotun"
	"github.com/ruffel/tsaotun/daemon"
	"github.com/spf13/viper"
)

const (
	appName        = "tsaotun"
	configFileName = "config.yaml"
)

// Settings is the merged CLI configuration: defaults, config file,
// environment and flags, in increasing precedence.
type Settings struct {
	Host           string        `mapstructure:"host"`
	DockerHost     string        `mapstructure:"docker_host"`
	CertPath       string        `mapstructure:"cert_path"`
	TLSVerify      bool          `mapstructure:"tls_verify"`
	StrictHostname bool          `mapstructure:"strict_hostname"`
	APIVersion     string        `mapstructure:"api_version"`
	LogLevel       string        `mapstructure:"log_level"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Shell          string        `mapstructure:"shell"`
	DryRun         bool          `mapstructure:"dry_run"`
	SSH            SSHSettings   `mapstructure:"ssh"`
}

// SSHSettings configures the ssh:// transport.
type SSHSettings struct {
	ConfigPath string `mapstructure:"config_path"`
	KnownHosts string `mapstructure:"known_hosts"`
	KeyPath    string `mapstructure:"key_path"`
	UseAgent   bool   `mapstructure:"use_agent"`
	Insecure   bool   `mapstructure:"insecure"`
}

// newViper returns a viper instance with defaults and environment bindings.
// Every key can be overridden with TSAOTUN_<KEY>; the Docker variables are
// honored under their usual names.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("host", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("timeout", tsaotun.DefaultInactivityTimeout)
	v.SetDefault("shell", strings.Join(tsaotun.DefaultShell, " "))
	v.SetDefault("dry_run", false)
	v.SetDefault("strict_hostname", false)
	v.SetDefault("ssh.use_agent", true)
	v.SetDefault("ssh.insecure", false)

	v.SetEnvPrefix("TSAOTUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("docker_host", "TSAOTUN_DOCKER_HOST", "DOCKER_HOST")
	_ = v.BindEnv("cert_path", "TSAOTUN_CERT_PATH", "DOCKER_CERT_PATH")
	_ = v.BindEnv("tls_verify", "TSAOTUN_TLS_VERIFY", "DOCKER_TLS_VERIFY")
	_ = v.BindEnv("api_version", "TSAOTUN_API_VERSION", "DOCKER_API_VERSION")
	_ = v.BindEnv("ssh.config_path")
	_ = v.BindEnv("ssh.known_hosts")
	_ = v.BindEnv("ssh.key_path")

	return v
}

// configDir returns the per-user configuration directory for tsaotun.
func configDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error

		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}

	return filepath.Join(dir, appName), nil
}

// loadSettings reads configFile (or the default config file, when present)
// into v and decodes the result.
func loadSettings(v *viper.Viper, configFile string) (Settings, error) {
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if dir, err := configDir(); err == nil {
		path := filepath.Join(dir, configFileName)
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)

			if err := v.ReadInConfig(); err != nil {
				return Settings{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return s, s.Validate()
}

// Validate checks values viper cannot type-check.
func (s Settings) Validate() error {
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}

	if s.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if _, err := s.ShellArgv(); err != nil {
		return err
	}

	return nil
}

// ShellArgv splits the shell setting. An empty setting runs commands directly.
func (s Settings) ShellArgv() ([]string, error) {
	argv, err := shlex.Split(s.Shell)
	if err != nil {
		return nil, fmt.Errorf("invalid shell %q: %w", s.Shell, err)
	}

	return argv, nil
}

// DaemonConfig maps the settings onto a daemon connection config.
func (s Settings) DaemonConfig() daemon.Config {
	return daemon.NewConfig(
		daemon.WithHost(s.Host),
		daemon.WithEnvHost(s.DockerHost),
		daemon.WithTLS(s.CertPath, s.TLSVerify),
		daemon.WithStrictHostname(s.StrictHostname),
		daemon.WithVersion(s.APIVersion),
		daemon.WithSSH(daemon.SSHConfig{
			ConfigPath:         s.SSH.ConfigPath,
			KnownHostsPath:     s.SSH.KnownHosts,
			KeyPath:            s.SSH.KeyPath,
			UseAgent:           s.SSH.UseAgent,
			InsecureSkipVerify: s.SSH.Insecure,
		}),
	)
}

// EngineOptions maps the settings onto engine options.
func (s Settings) EngineOptions(logger tsaotun.Logger, host string) []tsaotun.Option {
	argv, _ := s.ShellArgv()

	return []tsaotun.Option{
		tsaotun.WithLogger(logger),
		tsaotun.WithHost(host),
		tsaotun.WithInactivityTimeout(s.Timeout),
		tsaotun.WithShell(argv...),
	}
}
