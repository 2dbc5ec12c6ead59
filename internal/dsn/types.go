// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "fmt"

// Scheme is the URL scheme accepted for Impala connection strings.
const Scheme = "impala"

// DefaultPort is the HiveServer2 port Impala daemons listen on.
const DefaultPort = "21050"

// Info contains parsed information from an impala:// URL.
type Info struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the original URL with the password masked.
func (i *Info) String() string {
	return Format(i)
}

// ParseError represents an error that occurred during URL parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid connection URL: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid connection URL: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
