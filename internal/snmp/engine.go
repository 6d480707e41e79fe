package snmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// DefaultPort is the well-known SNMP agent port.
const DefaultPort = 161

// ErrEngineClosed is returned by Dial once the engine has been closed.
var ErrEngineClosed = errors.New("snmp engine closed")

// Config holds the protocol settings shared by every session.
type Config struct {
	Version   string
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
	V3        V3Config
}

// V3Config carries USM credentials for SNMPv3.
type V3Config struct {
	SecurityLevel string
	SecurityName  string
	AuthProtocol  string
	AuthPassword  string
	PrivProtocol  string
	PrivPassword  string
	ContextName   string
}

// Fetcher issues get requests against a single device.
type Fetcher interface {
	Fetch(ctx context.Context, oid string) Outcome
	Close() error
}

// Engine is the shared protocol handle. It is immutable after NewEngine and
// safe for concurrent Dial calls; each device gets its own Session.
type Engine struct {
	cfg     Config
	version gosnmp.SnmpVersion
	usm     *usm
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

type usm struct {
	flags  gosnmp.SnmpV3MsgFlags
	params *gosnmp.UsmSecurityParameters
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	version, err := ParseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		version:  version,
		logger:   logger,
		sessions: make(map[*Session]struct{}),
	}

	if version == gosnmp.Version3 {
		e.usm, err = buildUSM(cfg.V3)
		if err != nil {
			return nil, err
		}
	} else if cfg.Community == "" {
		return nil, fmt.Errorf("community string is required for SNMP %s", cfg.Version)
	}

	return e, nil
}

// ParseVersion maps a configured version string to a gosnmp version.
func ParseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "v1":
		return gosnmp.Version1, nil
	case "2c", "v2c":
		return gosnmp.Version2c, nil
	case "3", "v3":
		return gosnmp.Version3, nil
	default:
		return 0, fmt.Errorf("unsupported SNMP version: %q", v)
	}
}

func buildUSM(cfg V3Config) (*usm, error) {
	var flags gosnmp.SnmpV3MsgFlags
	switch cfg.SecurityLevel {
	case "noAuthNoPriv":
		flags = gosnmp.NoAuthNoPriv
	case "authNoPriv":
		flags = gosnmp.AuthNoPriv
	case "authPriv":
		flags = gosnmp.AuthPriv
	default:
		return nil, fmt.Errorf("invalid security level: %s", cfg.SecurityLevel)
	}

	var authProto gosnmp.SnmpV3AuthProtocol
	switch strings.ToUpper(cfg.AuthProtocol) {
	case "MD5":
		authProto = gosnmp.MD5
	case "SHA":
		authProto = gosnmp.SHA
	case "SHA224":
		authProto = gosnmp.SHA224
	case "SHA256":
		authProto = gosnmp.SHA256
	case "SHA384":
		authProto = gosnmp.SHA384
	case "SHA512":
		authProto = gosnmp.SHA512
	case "":
		authProto = gosnmp.MD5
	default:
		return nil, fmt.Errorf("invalid auth protocol: %s", cfg.AuthProtocol)
	}

	var privProto gosnmp.SnmpV3PrivProtocol
	switch strings.ToUpper(cfg.PrivProtocol) {
	case "DES":
		privProto = gosnmp.DES
	case "AES":
		privProto = gosnmp.AES
	case "AES192":
		privProto = gosnmp.AES192
	case "AES256":
		privProto = gosnmp.AES256
	case "":
		privProto = gosnmp.NoPriv
	default:
		return nil, fmt.Errorf("invalid privacy protocol: %s", cfg.PrivProtocol)
	}

	params := &gosnmp.UsmSecurityParameters{UserName: cfg.SecurityName}
	switch flags {
	case gosnmp.AuthNoPriv:
		params.AuthenticationProtocol = authProto
		params.AuthenticationPassphrase = cfg.AuthPassword
	case gosnmp.AuthPriv:
		params.AuthenticationProtocol = authProto
		params.AuthenticationPassphrase = cfg.AuthPassword
		params.PrivacyProtocol = privProto
		params.PrivacyPassphrase = cfg.PrivPassword
	}

	return &usm{flags: flags, params: params}, nil
}

// Timeout is the bound on a single fetch including retransmits.
func (e *Engine) Timeout() time.Duration {
	return e.cfg.Timeout * time.Duration(e.cfg.Retries+1)
}

// Dial opens a session to device on the engine's port. The returned session
// must be closed by the caller; Close on the engine releases any left open.
func (e *Engine) Dial(ctx context.Context, device string) (Fetcher, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.mu.Unlock()

	client := &gosnmp.GoSNMP{
		Target:    device,
		Port:      e.cfg.Port,
		Transport: "udp",
		Community: e.cfg.Community,
		Version:   e.version,
		Timeout:   e.cfg.Timeout,
		Retries:   e.cfg.Retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}
	if e.usm != nil {
		client.SecurityModel = gosnmp.UserSecurityModel
		client.MsgFlags = e.usm.flags
		client.SecurityParameters = e.usm.params.Copy()
		client.ContextName = e.cfg.V3.ContextName
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("SNMP connection to %s failed: %w", device, err)
	}

	s := &Session{device: device, client: client, getter: client, engine: e}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = client.Conn.Close()
		return nil, ErrEngineClosed
	}
	e.sessions[s] = struct{}{}

	return s, nil
}

// Close stops new dials and releases sessions still open.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	open := make([]*Session, 0, len(e.sessions))
	for s := range e.sessions {
		open = append(open, s)
	}
	e.mu.Unlock()

	if len(open) > 0 {
		e.logger.Warn("Closing SNMP sessions left open", slog.Int("count", len(open)))
	}

	var errs []error
	for _, s := range open {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) release(s *Session) {
	e.mu.Lock()
	delete(e.sessions, s)
	e.mu.Unlock()
}
