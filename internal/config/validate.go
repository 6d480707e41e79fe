package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nmslite/fleetpoll/internal/inventory"
)

var oidPattern = regexp.MustCompile(`^\.?[0-9]+(\.[0-9]+)+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("oid", func(fl validator.FieldLevel) bool {
		return oidPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("target", func(fl validator.FieldLevel) bool {
		_, err := inventory.ExpandTarget(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface for ValidationErrors
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (v *ValidationErrors) add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

func (v *ValidationErrors) orNil() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Validate checks everything a poll run needs.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, e := range fieldErrs {
			errs.add(fieldPath(e), formatValidationMessage(e))
		}
	}

	switch c.SNMP.Version {
	case "1", "2c":
		if c.SNMP.Community == "" && c.SNMP.CommunityEncrypted == "" {
			errs.add("snmp.community", "community or community_encrypted is required for SNMPv1/v2c")
		}
	case "3":
		if c.SNMP.V3.SecurityName == "" {
			errs.add("snmp.v3.security_name", "security_name is required for SNMPv3")
		}
	}
	if c.SNMP.CommunityEncrypted != "" && len(c.Auth.EncryptionKey) != 32 {
		errs.add("auth.encryption_key", "encryption_key must be exactly 32 bytes to decrypt community_encrypted")
	}

	seen := make(map[string]bool, len(c.Inventory.Attributes))
	for _, a := range c.Inventory.Attributes {
		if seen[a.Name] {
			errs.add("inventory.attributes", fmt.Sprintf("duplicate attribute name %q", a.Name))
		}
		seen[a.Name] = true
	}
	if seen[c.Inventory.Fallback.Name] {
		errs.add("inventory.fallback.name", fmt.Sprintf("%q is already an attribute name", c.Inventory.Fallback.Name))
	}

	if c.Sectors.Source == SectorSourcePostgres {
		c.Database.validate(errs)
	}

	return errs.orNil()
}

// ValidateServe adds the checks the HTTP API needs on top of Validate.
func (c *Config) ValidateServe() error {
	errs := &ValidationErrors{}
	if err := c.Validate(); err != nil {
		var ve *ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		errs.Errors = append(errs.Errors, ve.Errors...)
	}

	if c.Auth.AdminUsername == "" {
		errs.add("auth.admin_username", "admin_username is required")
	}
	if !strings.HasPrefix(c.Auth.AdminPasswordHash, "$2") {
		errs.add("auth.admin_password_hash", "admin_password_hash must be a bcrypt hash (see `fleetpoll hash-password`)")
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs.add("auth.jwt_secret", "jwt_secret must be at least 32 characters")
	}

	return errs.orNil()
}

// ValidateDatabase checks the database section for commands that need it.
func (c *Config) ValidateDatabase() error {
	errs := &ValidationErrors{}
	c.Database.validate(errs)
	return errs.orNil()
}

func (d *DatabaseConfig) validate(errs *ValidationErrors) {
	if d.Host == "" || d.DBName == "" {
		errs.add("database", "database host and dbname are required")
	}
	if d.Pool.MinConns > d.Pool.MaxConns {
		errs.add("database.pool.min_conns", "min_conns must not exceed max_conns")
	}
}

func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// formatValidationMessage creates human-readable error messages
func formatValidationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "target":
		return fmt.Sprintf("%q is not an IP address, CIDR block or address range", e.Value())
	case "oid":
		return fmt.Sprintf("%q is not a numeric OID", e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
