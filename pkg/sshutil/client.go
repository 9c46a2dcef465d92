// Package sshutil manages command-execution sessions against remote hosts.
// A session knows nothing about disks or metrics; it dials one host, runs
// commands with a timeout, and is closed on every exit path.
package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/spacefleet/spacefleet/internal/errors"
	"github.com/spacefleet/spacefleet/internal/util"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default timeouts for connection and remote command execution.
// Filesystem scans (find over a whole mount) get the extended timeout.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultCommandTimeout = 300 * time.Second
	ScanCommandTimeout    = 3600 * time.Second
)

// Config holds the connection parameters for one remote host.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string // password auth, used when KeyPath is empty
	KeyPath  string // private key auth, takes precedence over Password
	Sudo     bool   // wrap commands with non-interactive privilege escalation

	// StrictHostKey enables verification against ~/.ssh/known_hosts.
	// Off by default: fleet hosts are provisioned faster than known_hosts
	// entries are curated, matching standard automation practice.
	StrictHostKey bool
}

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	host    string
	address string
	sudo    bool
}

// Dial establishes an SSH connection to the configured host.
// Auth methods are tried in order: explicit key file, password, default key
// files under ~/.ssh. Fails with an ErrSSH structured error on auth failure,
// unreachable network, or timeout.
func Dial(cfg Config, timeout time.Duration) (*Client, error) {
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	settings := resolveSettings(cfg)

	clientConfig, err := buildClientConfig(cfg, settings)
	if err != nil {
		var sfErr *errors.Error
		if stderrors.As(err, &sfErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", cfg.Host),
			"Check the target's credentials and key path")
	}
	clientConfig.Timeout = timeout

	address := net.JoinHostPort(settings.hostname, settings.port)
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", cfg.Host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientConfig)
	if err != nil {
		conn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", cfg.Host),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		host:    cfg.Host,
		address: address,
		sudo:    cfg.Sudo,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Host returns the host this client is connected to.
func (c *Client) Host() string {
	return c.host
}

// Address returns the resolved host:port address.
func (c *Client) Address() string {
	return c.address
}

// Wrap prefixes a command with a non-interactive privilege-escalation
// invocation when the target is sudo-capable. sudo -n fails immediately with a
// non-zero exit instead of prompting, so escalation failures surface the same
// way any failed remote command does.
func (c *Client) Wrap(cmd string) string {
	if !c.sudo {
		return cmd
	}
	return "sudo -n sh -c " + util.ShellQuote(cmd)
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

// resolveSettings fills connection parameters, consulting ~/.ssh/config for
// anything the target config leaves unset.
func resolveSettings(cfg Config) *sshSettings {
	settings := &sshSettings{
		hostname: cfg.Host,
		port:     "22",
		user:     currentUser(),
	}
	if cfg.Port > 0 {
		settings.port = strconv.Itoa(cfg.Port)
	}
	if cfg.User != "" {
		settings.user = cfg.User
	}
	if cfg.KeyPath != "" {
		settings.identityFile = expandPath(cfg.KeyPath)
	}

	sshConfigPath := filepath.Join(homeDir(), ".ssh", "config")
	content, err := os.ReadFile(sshConfigPath)
	if err != nil {
		return settings
	}
	parsed, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return settings
	}

	if hostname, _ := parsed.Get(cfg.Host, "HostName"); hostname != "" {
		settings.hostname = hostname
	}
	if cfg.Port == 0 {
		if port, _ := parsed.Get(cfg.Host, "Port"); port != "" {
			settings.port = port
		}
	}
	if cfg.User == "" {
		if user, _ := parsed.Get(cfg.Host, "User"); user != "" {
			settings.user = user
		}
	}
	if cfg.KeyPath == "" {
		if identity, _ := parsed.Get(cfg.Host, "IdentityFile"); identity != "" {
			settings.identityFile = expandPath(identity)
		}
	}

	return settings
}

// buildClientConfig creates an SSH client config with authentication methods.
func buildClientConfig(cfg Config, settings *sshSettings) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if settings.identityFile != "" {
		if keyAuth, err := keyFileAuth(settings.identityFile); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	// Fall back to default key files when nothing explicit was configured.
	if len(authMethods) == 0 {
		defaultKeys := []string{
			filepath.Join(homeDir(), ".ssh", "id_ed25519"),
			filepath.Join(homeDir(), ".ssh", "id_rsa"),
			filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
		}
		for _, keyPath := range defaultKeys {
			if keyAuth, err := keyFileAuth(keyPath); err == nil {
				authMethods = append(authMethods, keyAuth)
			}
		}
	}

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrSSH,
			fmt.Sprintf("No SSH auth methods available for '%s'", cfg.Host),
			"Configure a password or key path for the target, or place a key under ~/.ssh")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if cfg.StrictHostKey {
		knownHostsPath := filepath.Join(homeDir(), ".ssh", "known_hosts")
		callback, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKeyCallback = callback
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Auto-accept mirrors fleet provisioning practice
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// keyFileAuth returns an auth method using a private key file.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Auth failed. Check the target's username, password, or key path."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
