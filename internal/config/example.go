package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DumpExampleConfig writes an example configuration to the provided writer
func DumpExampleConfig(w io.Writer) error {
	example := Default()
	example.Inventory.Devices = []string{"10.1.1.12", "10.1.1.17", "10.1.1.129"}
	example.Poller.DeviceTimeoutMS = 15000
	example.CORS = CORSConfig{
		Enabled:        false,
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAgeSeconds:  3600,
	}
	example.Auth.AdminPasswordHash = "$2a$10$replace.with.output.of.fleetpoll.hash-password"
	example.Auth.JWTSecret = "your-secret-key-minimum-32-chars-required"
	example.Auth.EncryptionKey = "32-character-encryption-key!!!!!"
	example.Database.Password = "changeme"

	// Create a YAML node for custom formatting with comments
	var node yaml.Node
	if err := node.Encode(example); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	annotate(&node)

	header := `# =============================================================================
# fleetpoll Example Configuration
# =============================================================================
# Copy this file to config.yaml and adjust it for your fleet.
#
# Environment variable overrides follow the pattern: FLEETPOLL_<SECTION>_<KEY>
# Example: FLEETPOLL_SNMP_COMMUNITY, FLEETPOLL_AUTH_JWT_SECRET
# =============================================================================

`
	if _, err := fmt.Fprint(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	footer := `
# =============================================================================
# Notes:
# =============================================================================
#
# 1. Devices listed on the command line replace inventory.devices.
# 2. The sector file needs IP and Sector columns, in any order.
#    Devices missing from it are reported as "N/A - sector not found".
# 3. The auth and database sections are only needed by "serve" and by the
#    postgres sector source.
# =============================================================================
`
	if _, err := fmt.Fprint(w, footer); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	return nil
}

var sectionComments = map[string]string{
	"snmp":      "SNMP agent settings shared by every device. community_encrypted takes\nthe output of `fleetpoll encrypt` and needs auth.encryption_key.",
	"inventory": "Devices to poll and the attributes read from each. The fallback\nattribute tries each OID in order until one answers.",
	"poller":    "concurrency caps in-flight devices; device_timeout_ms bounds one\ndevice end to end (0 disables).",
	"sectors":   "source is csv or postgres.",
	"output":    "CSV report written by `fleetpoll poll`.",
}

func annotate(doc *yaml.Node) {
	if doc.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := sectionComments[key.Value]; ok {
			key.HeadComment = c
		}
	}
}
