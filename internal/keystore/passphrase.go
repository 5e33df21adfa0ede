package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"github.com/99designs/keyring"
)

// DefaultPassphraseEnv is read when no other passphrase source is configured.
const DefaultPassphraseEnv = "UAPDF_KEYSTORE_PASSPHRASE"

// ErrPassphrase indicates a configured passphrase source could not be read.
var ErrPassphrase = errors.New("passphrase unavailable")

// KeyringOpener opens the OS keyring for a service name.
type KeyringOpener func(service string) (keyring.Keyring, error)

// OpenKeyring opens the platform keyring (Keychain, Secret Service, WinCred...).
func OpenKeyring(service string) (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{ServiceName: service})
}

// Passphrase describes where the key store passphrase comes from.
// Sources are tried in field order; the first configured one wins.
type Passphrase struct {
	Literal        string // inline value, discouraged outside tests
	KeyringService string
	KeyringItem    string
	Env            string // variable name; empty means DefaultPassphraseEnv
}

// Resolve returns the passphrase bytes. The caller owns the slice and should
// Zeroize it once the key store is decoded. A source that is not configured
// yields an empty passphrase, which PKCS#12 permits.
func (p Passphrase) Resolve(getenv func(string) string, open KeyringOpener) ([]byte, error) {
	if p.Literal != "" {
		return []byte(p.Literal), nil
	}

	if p.KeyringItem != "" {
		if p.KeyringService == "" {
			return nil, fmt.Errorf("%w: keyring item %q has no service", ErrPassphrase, p.KeyringItem)
		}
		if open == nil {
			open = OpenKeyring
		}
		ring, err := open(p.KeyringService)
		if err != nil {
			return nil, fmt.Errorf("%w: opening keyring: %v", ErrPassphrase, err)
		}
		item, err := ring.Get(p.KeyringItem)
		if err != nil {
			return nil, fmt.Errorf("%w: keyring item %q: %v", ErrPassphrase, p.KeyringItem, err)
		}
		return bytes.Clone(item.Data), nil
	}

	name := p.Env
	if name == "" {
		name = DefaultPassphraseEnv
	}
	if getenv == nil {
		return nil, nil
	}
	return []byte(getenv(name)), nil
}

// Zeroize overwrites b with zeros.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
