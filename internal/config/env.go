package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Lookup resolves a variable name; ok is false when it is not set.
type Lookup func(name string) (value string, ok bool)

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// EnvLookup resolves variables from the process environment first and then
// from <root>/.env. The .env file is read without touching the environment.
func EnvLookup(root string) Lookup {
	dotenv, _ := godotenv.Read(filepath.Join(root, ".env"))
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok && v != ""
	}
}

// MapLookup resolves variables from a fixed map.
func MapLookup(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok && v != ""
	}
}

// Expand replaces resolvable ${VAR} tokens in s.
func Expand(s string, lookup Lookup) string {
	return varPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := varPattern.FindStringSubmatch(tok)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return tok
	})
}

// typedFields are the settings that decode into non-string Go fields. A
// substituted value there is re-resolved ("port: ${PORT}" becomes an int);
// everywhere else it stays the exact text.
var typedFields = map[string]bool{
	"connection.port":        true,
	"connection.timeout":     true,
	"connection.use_ssl":     true,
	"extension.max_rows":     true,
	"extension.auto_preview": true,
}

// substitute walks the document and expands string scalars in place. path
// is the dotted key path of n.
func substitute(n *yaml.Node, path string, lookup Lookup) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			substitute(c, path, lookup)
		}
	case yaml.MappingNode:
		// keys are left alone
		for i := 1; i < len(n.Content); i += 2 {
			key := n.Content[i-1].Value
			if path != "" {
				key = path + "." + key
			}
			substitute(n.Content[i], key, lookup)
		}
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" || !varPattern.MatchString(n.Value) {
			return
		}
		expanded := Expand(n.Value, lookup)
		if expanded == n.Value {
			return
		}
		n.Value = expanded
		if typedFields[path] && n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			n.Tag = ""
			return
		}
		n.Tag = "!!str"
	}
}
