// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for impyla.
// It stores Impala connection passwords in the OS keychain/credential store so that
// .impyla.yml can leave connection.password empty for PLAIN and LDAP logins.
//
// macOS uses the native security command when available and falls back to the
// keyring library; Windows uses Credential Manager; Linux uses the Secret Service,
// KWallet or pass.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("no password stored in keychain")

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "impyla"

// keyPrefix namespaces password entries inside the service.
const keyPrefix = "password:"

// Account returns the keychain account name for a user on an Impala host.
func Account(user, host string) string {
	return strings.ToLower(strings.TrimSpace(user)) + "@" + strings.ToLower(strings.TrimSpace(host))
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// There is deliberately no encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		// KWallet folder name
		KWalletAppID:  ServiceName,
		KWalletFolder: ServiceName,
		// Secret Service collection
		LibSecretCollectionName: "login",
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}

	return ring, nil
}

// SavePassword stores the password for an account.
// This method is thread-safe.
func (m *Manager) SavePassword(account, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyPrefix + account
	if m.backend != nil {
		return m.backend.Set(key, password)
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(password), Label: "impyla " + account})
}

// LoadPassword retrieves the password for an account.
// It returns ErrNotFound when nothing is stored.
// This method is thread-safe.
func (m *Manager) LoadPassword(account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := keyPrefix + account
	if m.backend != nil {
		pw, err := m.backend.Get(key)
		if err != nil {
			return "", err
		}
		if pw == "" {
			return "", ErrNotFound
		}
		return pw, nil
	}

	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if len(it.Data) == 0 {
		return "", ErrNotFound
	}
	return string(it.Data), nil
}

// ClearPassword removes the password for an account.
// This method is thread-safe.
func (m *Manager) ClearPassword(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyPrefix + account
	if m.backend != nil {
		return m.backend.Delete(key)
	}
	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Secrets adapts the global manager to the config store's secret lookup.
type Secrets struct{}

// Password looks up the stored password for user on host.
func (Secrets) Password(user, host string) (string, error) {
	m, err := GetManager()
	if err != nil {
		return "", err
	}
	return m.LoadPassword(Account(user, host))
}

// SavePassword stores the password for user on host.
func (Secrets) SavePassword(user, host, password string) error {
	m, err := GetManager()
	if err != nil {
		return err
	}
	return m.SavePassword(Account(user, host), password)
}
