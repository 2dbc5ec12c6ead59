// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"
)

// Password storage choices offered by the wizard.
const (
	StoreKeychain  = "Store in the OS keychain"
	StoreEnvRef    = "Reference ${IMPALA_PASSWORD}"
	StoreInline    = "Write into " + config.FileName
	passwordEnvRef = "${IMPALA_PASSWORD}"
	maxPortTries   = 3
)

// Defaults seeds the configuration wizard, e.g. from a connection URL.
type Defaults struct {
	Connection *config.Connection
	// Force skips the overwrite confirmation.
	Force bool
}

// CreateConfig asks for connection settings and writes a new configuration
// file to the workspace root. Answering no to the overwrite question is not
// an error.
func (s *Session) CreateConfig(ctx context.Context, d Defaults) error {
	path := s.config.Path()
	if _, err := os.Stat(path); err == nil && !d.Force {
		ok, err := s.prompter.Confirm(config.FileName+" already exists. Overwrite?", false)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	seed := config.Default().Connection
	if d.Connection != nil {
		seed = *d.Connection
	}
	if seed.Host == "" {
		seed.Host = "localhost"
	}

	cfg := config.Default()
	conn := &cfg.Connection
	var err error

	if conn.Host, err = s.prompter.Input("Impala host", seed.Host); err != nil {
		return err
	}
	if conn.Host = strings.TrimSpace(conn.Host); conn.Host == "" {
		return errors.New(errors.InvalidConfig, "host is required")
	}
	if conn.Port, err = s.askPort(seed.Port); err != nil {
		return err
	}
	if conn.Database, err = s.prompter.Input("Database", seed.Database); err != nil {
		return err
	}
	if conn.AuthMechanism, err = s.prompter.Select("Authentication mechanism", config.AuthMechanisms, seed.AuthMechanism); err != nil {
		return err
	}
	conn.Timeout = seed.Timeout
	conn.UseSSL = seed.UseSSL
	conn.CACert = seed.CACert

	var keychainPassword string
	if conn.NeedsCredentials() {
		userDefault := seed.User
		if userDefault == "" {
			userDefault = "${IMPALA_USER}"
		}
		if conn.User, err = s.prompter.Input("Username (${ENV_VAR} allowed)", userDefault); err != nil {
			return err
		}
		choice, err := s.prompter.Select("Where should the password be kept?", []string{StoreKeychain, StoreEnvRef, StoreInline}, StoreEnvRef)
		if err != nil {
			return err
		}
		switch choice {
		case StoreEnvRef:
			conn.Password = passwordEnvRef
		case StoreKeychain, StoreInline:
			pw := seed.Password
			if pw == "" {
				if pw, err = s.prompter.Password("Password"); err != nil {
					return err
				}
			}
			if choice == StoreInline {
				conn.Password = pw
			} else {
				keychainPassword = pw
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.Cancelled, "configuration cancelled", err)
	}

	if keychainPassword != "" {
		if s.secrets == nil {
			return errors.New(errors.InvalidConfig, "no keychain available")
		}
		if err := s.secrets.SavePassword(conn.User, conn.Host, keychainPassword); err != nil {
			s.prompter.Error("Failed to store password in keychain: " + err.Error())
			return reported(err)
		}
		s.log.Info("password stored in keychain", "user", conn.User, "host", conn.Host)
	}

	if err := s.config.Save(cfg); err != nil {
		s.prompter.Error("Failed to create configuration: " + message(err))
		return reported(err)
	}
	s.log.Info("configuration created", "path", path)
	s.prompter.Success("Configuration file created: " + path)

	if ok, err := s.prompter.Confirm("Open "+config.FileName+" for editing?", false); err == nil && ok {
		if err := s.prompter.Open(path); err != nil {
			s.log.Warn("failed to open configuration", "error", err.Error())
		}
	}
	return nil
}

func (s *Session) askPort(def int) (int, error) {
	for i := 0; i < maxPortTries; i++ {
		in, err := s.prompter.Input("Port", strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		port, err := strconv.Atoi(strings.TrimSpace(in))
		if err == nil && port >= 1 && port <= 65535 {
			return port, nil
		}
		s.prompter.Warn(fmt.Sprintf("%q is not a valid port (1-65535)", in))
	}
	return 0, errors.New(errors.InvalidConfig, "no valid port given")
}
