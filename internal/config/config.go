// Package config loads fleetpoll's YAML configuration and applies
// environment overrides and defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/poller"
	"github.com/nmslite/fleetpoll/internal/report"
	"github.com/nmslite/fleetpoll/internal/snmp"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLEETPOLL_"

// Sector sources.
const (
	SectorSourceCSV      = "csv"
	SectorSourcePostgres = "postgres"
)

type Config struct {
	SNMP      SNMPConfig      `yaml:"snmp"`
	Inventory InventoryConfig `yaml:"inventory"`
	Poller    PollerConfig    `yaml:"poller"`
	Sectors   SectorsConfig   `yaml:"sectors"`
	Output    OutputConfig    `yaml:"output"`
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type SNMPConfig struct {
	Version            string       `yaml:"version" validate:"oneof=1 2c 3"`
	Community          string       `yaml:"community,omitempty"`
	CommunityEncrypted string       `yaml:"community_encrypted,omitempty"`
	Port               int          `yaml:"port" validate:"min=1,max=65535"`
	TimeoutMS          int          `yaml:"timeout_ms" validate:"min=1"`
	Retries            int          `yaml:"retries" validate:"min=0,max=10"`
	V3                 SNMPv3Config `yaml:"v3,omitempty"`
}

type SNMPv3Config struct {
	SecurityLevel string `yaml:"security_level,omitempty" validate:"omitempty,oneof=noAuthNoPriv authNoPriv authPriv"`
	SecurityName  string `yaml:"security_name,omitempty"`
	AuthProtocol  string `yaml:"auth_protocol,omitempty"`
	AuthPassword  string `yaml:"auth_password,omitempty"`
	PrivProtocol  string `yaml:"priv_protocol,omitempty"`
	PrivPassword  string `yaml:"priv_password,omitempty"`
	ContextName   string `yaml:"context_name,omitempty"`
}

type InventoryConfig struct {
	Devices    []string          `yaml:"devices" validate:"dive,target"`
	Attributes []AttributeConfig `yaml:"attributes" validate:"dive"`
	Fallback   FallbackConfig    `yaml:"fallback"`
}

type AttributeConfig struct {
	Name string `yaml:"name" validate:"required"`
	OID  string `yaml:"oid" validate:"required,oid"`
}

type FallbackConfig struct {
	Name string   `yaml:"name" validate:"required"`
	OIDs []string `yaml:"oids" validate:"min=1,dive,oid"`
}

type PollerConfig struct {
	Concurrency     int `yaml:"concurrency" validate:"min=0,max=4096"`
	DeviceTimeoutMS int `yaml:"device_timeout_ms" validate:"min=0"`
}

type SectorsConfig struct {
	Source  string `yaml:"source" validate:"oneof=csv postgres"`
	CSVPath string `yaml:"csv_path" validate:"required_if=Source csv"`
}

type OutputConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms" validate:"min=0"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms" validate:"min=0"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

type AuthConfig struct {
	AdminUsername     string `yaml:"admin_username"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	JWTSecret         string `yaml:"jwt_secret"`
	JWTExpiryHours    int    `yaml:"jwt_expiry_hours" validate:"min=0"`
	EncryptionKey     string `yaml:"encryption_key"`
}

// PoolConfig defines connection pool settings
type PoolConfig struct {
	MaxConns                 int `yaml:"max_conns"`
	MinConns                 int `yaml:"min_conns"`
	MaxConnLifetimeMinutes   int `yaml:"max_conn_lifetime_minutes"`
	MaxConnIdleTimeMinutes   int `yaml:"max_conn_idle_time_minutes"`
	HealthCheckPeriodSeconds int `yaml:"health_check_period_seconds"`
}

type DatabaseConfig struct {
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port"`
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	DBName   string     `yaml:"dbname"`
	SSLMode  string     `yaml:"ssl_mode"`
	Pool     PoolConfig `yaml:"pool"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" validate:"oneof=json text"`
	Output   string `yaml:"output" validate:"oneof=stdout stderr file"`
	FilePath string `yaml:"file_path" validate:"required_if=Output file"`
}

// Default returns a configuration matching the reference printer
// deployment: SNMPv1 with the public community and the printer attributes.
func Default() *Config {
	cfg := &Config{
		SNMP: SNMPConfig{
			Version:   "1",
			Community: "public",
		},
		Sectors: SectorsConfig{
			Source:  SectorSourceCSV,
			CSVPath: "ip_sector.csv",
		},
		Output: OutputConfig{Path: report.DefaultPath},
		Server: ServerConfig{Host: "0.0.0.0"},
		Auth:   AuthConfig{AdminUsername: "admin"},
		Database: DatabaseConfig{
			Host:    "localhost",
			User:    "fleetpoll",
			DBName:  "fleetpoll",
			SSLMode: "disable",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from file and applies environment variable
// overrides. Fields absent from the file keep their defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.SNMP.Version = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.SNMP.Version)), "v")
	if c.SNMP.Version == "" {
		c.SNMP.Version = "1"
	}
	if c.SNMP.Port == 0 {
		c.SNMP.Port = snmp.DefaultPort
	}
	if c.SNMP.TimeoutMS == 0 {
		c.SNMP.TimeoutMS = 2000
	}

	if len(c.Inventory.Attributes) == 0 {
		for _, a := range inventory.DefaultAttributes().Specs() {
			c.Inventory.Attributes = append(c.Inventory.Attributes, AttributeConfig{Name: a.Name, OID: a.OID})
		}
	}
	if c.Inventory.Fallback.Name == "" && len(c.Inventory.Fallback.OIDs) == 0 {
		fb := inventory.DefaultFallback()
		c.Inventory.Fallback = FallbackConfig{Name: fb.Name(), OIDs: fb.OIDs()}
	}

	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = poller.DefaultConcurrency
	}
	if c.Sectors.Source == "" {
		c.Sectors.Source = SectorSourceCSV
	}
	if c.Output.Path == "" {
		c.Output.Path = report.DefaultPath
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutMS == 0 {
		c.Server.ReadTimeoutMS = 30000
	}
	if c.Server.WriteTimeoutMS == 0 {
		c.Server.WriteTimeoutMS = 120000
	}
	if c.Auth.JWTExpiryHours == 0 {
		c.Auth.JWTExpiryHours = 24
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	c.Database.Pool.ApplyDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// applyEnvOverrides checks for environment variables with the FLEETPOLL_ prefix
func applyEnvOverrides(cfg *Config) {
	// SNMP overrides
	envString("SNMP_VERSION", &cfg.SNMP.Version)
	envString("SNMP_COMMUNITY", &cfg.SNMP.Community)
	envString("SNMP_COMMUNITY_ENCRYPTED", &cfg.SNMP.CommunityEncrypted)
	envInt("SNMP_PORT", &cfg.SNMP.Port)
	envInt("SNMP_TIMEOUT_MS", &cfg.SNMP.TimeoutMS)
	envInt("SNMP_RETRIES", &cfg.SNMP.Retries)
	envString("SNMP_V3_AUTH_PASSWORD", &cfg.SNMP.V3.AuthPassword)
	envString("SNMP_V3_PRIV_PASSWORD", &cfg.SNMP.V3.PrivPassword)

	// Inventory and poller overrides
	if v := os.Getenv(EnvPrefix + "INVENTORY_DEVICES"); v != "" {
		cfg.Inventory.Devices = splitList(v)
	}
	envInt("POLLER_CONCURRENCY", &cfg.Poller.Concurrency)
	envInt("POLLER_DEVICE_TIMEOUT_MS", &cfg.Poller.DeviceTimeoutMS)

	envString("SECTORS_SOURCE", &cfg.Sectors.Source)
	envString("SECTORS_CSV_PATH", &cfg.Sectors.CSVPath)
	envString("OUTPUT_PATH", &cfg.Output.Path)

	envInt("SERVER_PORT", &cfg.Server.Port)

	// Database overrides
	envString("DATABASE_HOST", &cfg.Database.Host)
	envInt("DATABASE_PORT", &cfg.Database.Port)
	envString("DATABASE_PASSWORD", &cfg.Database.Password)

	// Auth overrides
	envString("AUTH_ADMIN_PASSWORD_HASH", &cfg.Auth.AdminPasswordHash)
	envString("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("AUTH_ENCRYPTION_KEY", &cfg.Auth.EncryptionKey)

	envString("LOGGING_LEVEL", &cfg.Logging.Level)
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		fmt.Sscanf(v, "%d", dst)
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EngineConfig converts the SNMP section. The community is passed in
// because it may first need decrypting.
func (s *SNMPConfig) EngineConfig(community string) snmp.Config {
	return snmp.Config{
		Version:   s.Version,
		Community: community,
		Port:      uint16(s.Port),
		Timeout:   s.Timeout(),
		Retries:   s.Retries,
		V3: snmp.V3Config{
			SecurityLevel: s.V3.SecurityLevel,
			SecurityName:  s.V3.SecurityName,
			AuthProtocol:  s.V3.AuthProtocol,
			AuthPassword:  s.V3.AuthPassword,
			PrivProtocol:  s.V3.PrivProtocol,
			PrivPassword:  s.V3.PrivPassword,
			ContextName:   s.V3.ContextName,
		},
	}
}

// Timeout returns the per-request timeout as a duration
func (s *SNMPConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Targets expands the device list into individual addresses.
func (i *InventoryConfig) Targets() ([]string, error) {
	return inventory.ExpandTargets(i.Devices)
}

// AttributeSet builds the ordered attribute table.
func (i *InventoryConfig) AttributeSet() (inventory.AttributeSet, error) {
	specs := make([]inventory.AttributeSpec, len(i.Attributes))
	for n, a := range i.Attributes {
		specs[n] = inventory.AttributeSpec{Name: a.Name, OID: a.OID}
	}
	return inventory.NewAttributeSet(specs...)
}

// FallbackSpec builds the fallback candidate list.
func (i *InventoryConfig) FallbackSpec() (inventory.FallbackSpec, error) {
	return inventory.NewFallbackSpec(i.Fallback.Name, i.Fallback.OIDs...)
}

// DeviceTimeout returns the whole-device probe bound, zero when unset
func (p *PollerConfig) DeviceTimeout() time.Duration {
	return time.Duration(p.DeviceTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the read timeout as a duration
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the write timeout as a duration
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// JWTExpiry returns JWT expiry as duration
func (a *AuthConfig) JWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

// ConnString returns the PostgreSQL connection string in postgres:// URL format
func (d *DatabaseConfig) ConnString() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}

	query := url.Values{}
	if d.SSLMode != "" {
		query.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = query.Encode()

	return u.String()
}

// ApplyDefaults sets default values for pool configuration
func (p *PoolConfig) ApplyDefaults() {
	if p.MaxConns == 0 {
		p.MaxConns = 10
	}
	if p.MinConns == 0 {
		p.MinConns = 1
	}
	if p.MaxConnLifetimeMinutes == 0 {
		p.MaxConnLifetimeMinutes = 60
	}
	if p.MaxConnIdleTimeMinutes == 0 {
		p.MaxConnIdleTimeMinutes = 10
	}
	if p.HealthCheckPeriodSeconds == 0 {
		p.HealthCheckPeriodSeconds = 30
	}
}

// MaxConnLifetime returns the max connection lifetime as a duration
func (p *PoolConfig) MaxConnLifetime() time.Duration {
	return time.Duration(p.MaxConnLifetimeMinutes) * time.Minute
}

// MaxConnIdleTime returns the max connection idle time as a duration
func (p *PoolConfig) MaxConnIdleTime() time.Duration {
	return time.Duration(p.MaxConnIdleTimeMinutes) * time.Minute
}

// HealthCheckPeriod returns the health check period as a duration
func (p *PoolConfig) HealthCheckPeriod() time.Duration {
	return time.Duration(p.HealthCheckPeriodSeconds) * time.Second
}

// IsLogLevelValid checks if the log level is valid
func (l *LoggingConfig) IsLogLevelValid() bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	return slices.Contains(validLevels, strings.ToLower(l.Level))
}
