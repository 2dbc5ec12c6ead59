// Package config loads, validates and stores the per-workspace .impyla.yml
// document describing how to reach Impala and how to render templates.
//
// A loaded *Config is never mutated; reloads replace it. Callers take one
// snapshot from the Store at the start of a command and use it throughout.
package config

import (
	"bytes"
	"fmt"
	"strings"

	"impyla/cli/internal/errors"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up at the workspace root.
const FileName = ".impyla.yml"

// Authentication mechanisms understood by impyla.
const (
	AuthNoSASL   = "NOSASL"
	AuthPlain    = "PLAIN"
	AuthLDAP     = "LDAP"
	AuthKerberos = "KERBEROS"
)

// AuthMechanisms lists the accepted auth_mechanism values in display order.
var AuthMechanisms = []string{AuthNoSASL, AuthPlain, AuthLDAP, AuthKerberos}

// ValidAuthMechanism reports whether s is an accepted auth_mechanism value.
func ValidAuthMechanism(s string) bool {
	for _, m := range AuthMechanisms {
		if s == m {
			return true
		}
	}
	return false
}

// Config is the parsed .impyla.yml document.
type Config struct {
	Connection Connection `yaml:"connection"`
	Jinja      Jinja      `yaml:"jinja"`
	Extension  Extension  `yaml:"extension"`
}

// Connection holds the parameters handed to the query helper.
type Connection struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	Database      string `yaml:"database" json:"database"`
	AuthMechanism string `yaml:"auth_mechanism" json:"auth_mechanism"`
	User          string `yaml:"user,omitempty" json:"user,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	Timeout       int    `yaml:"timeout" json:"timeout"`
	UseSSL        bool   `yaml:"use_ssl" json:"use_ssl"`
	CACert        string `yaml:"ca_cert,omitempty" json:"ca_cert,omitempty"`
}

// NeedsCredentials reports whether the auth mechanism takes a user and password.
func (c Connection) NeedsCredentials() bool {
	return c.AuthMechanism == AuthPlain || c.AuthMechanism == AuthLDAP
}

// Jinja holds template rendering settings.
type Jinja struct {
	PluginPaths []string       `yaml:"plugin_paths"`
	Variables   map[string]any `yaml:"variables"`
}

// Extension holds behaviour knobs of the tool itself.
type Extension struct {
	MaxRows     int    `yaml:"max_rows"`
	PythonPath  string `yaml:"python_path"`
	AutoPreview *bool  `yaml:"auto_preview,omitempty"`
	PreviewAddr string `yaml:"preview_addr,omitempty"`
}

// Preview reports whether results should be served live.
func (e Extension) Preview() bool {
	return e.AutoPreview == nil || *e.AutoPreview
}

// Default returns a configuration with every default applied and no host.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	conn := &c.Connection
	if conn.Port == 0 {
		conn.Port = 21050
	}
	if conn.Database == "" {
		conn.Database = "default"
	}
	if conn.AuthMechanism == "" {
		conn.AuthMechanism = AuthNoSASL
	}
	conn.AuthMechanism = strings.ToUpper(conn.AuthMechanism)
	if conn.Timeout == 0 {
		conn.Timeout = 300
	}
	if c.Jinja.PluginPaths == nil {
		c.Jinja.PluginPaths = []string{}
	}
	if c.Jinja.Variables == nil {
		c.Jinja.Variables = map[string]any{}
	}
	if c.Extension.MaxRows == 0 {
		c.Extension.MaxRows = 10000
	}
	if c.Extension.PythonPath == "" {
		c.Extension.PythonPath = "python3"
	}
	if c.Extension.AutoPreview == nil {
		on := true
		c.Extension.AutoPreview = &on
	}
	if c.Extension.PreviewAddr == "" {
		c.Extension.PreviewAddr = "127.0.0.1:0"
	}
}

// Validate checks the invariants of a defaulted configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Connection.Host) == "" {
		return errors.New(errors.InvalidConfig, "missing required field: connection.host")
	}
	if !ValidAuthMechanism(c.Connection.AuthMechanism) {
		return errors.New(errors.InvalidConfig, fmt.Sprintf("unknown connection.auth_mechanism %q (use %s)",
			c.Connection.AuthMechanism, strings.Join(AuthMechanisms, ", ")))
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return errors.New(errors.InvalidConfig, fmt.Sprintf("connection.port %d is out of range 1..65535", c.Connection.Port))
	}
	if c.Connection.Timeout < 0 {
		return errors.New(errors.InvalidConfig, "connection.timeout must not be negative")
	}
	if c.Extension.MaxRows < 0 {
		return errors.New(errors.InvalidConfig, "extension.max_rows must not be negative")
	}
	return nil
}

// Parse decodes a configuration document. Every string scalar has its ${VAR}
// tokens replaced through lookup; tokens lookup cannot resolve stay verbatim.
// Defaults are applied before validation.
func Parse(data []byte, lookup Lookup) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.InvalidConfig, "failed to parse YAML", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New(errors.InvalidConfig, "missing required field: connection")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.InvalidConfig, "configuration must be a mapping")
	}
	if !hasKey(root, "connection") {
		return nil, errors.New(errors.InvalidConfig, "missing required field: connection")
	}
	if lookup != nil {
		substitute(root, "", lookup)
	}

	var c Config
	if err := root.Decode(&c); err != nil {
		return nil, errors.Wrap(errors.InvalidConfig, "invalid configuration", err)
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			return !(v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null")
		}
	}
	return false
}

// Marshal renders c as a .impyla.yml document.
func Marshal(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# impyla configuration. Values may reference ${ENV_VAR}s.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
