package uapdf

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/alnah/go-uapdf/internal/keystore"
)

// LoadSigningIdentity reads the PKCS#12 key store at path. The store must
// hold exactly one private key; its certificate chain is returned leaf first.
// The caller keeps ownership of passphrase.
func LoadSigningIdentity(path string, passphrase []byte) (*Identity, error) {
	id, err := keystore.Load(path, passphrase)
	if err != nil {
		return nil, mapKeystoreError(err)
	}
	return fromKeystore(id), nil
}

// DecodeSigningIdentity is LoadSigningIdentity for key store bytes.
func DecodeSigningIdentity(data, passphrase []byte) (*Identity, error) {
	id, err := keystore.Decode(data, passphrase)
	if err != nil {
		return nil, mapKeystoreError(err)
	}
	return fromKeystore(id), nil
}

func fromKeystore(id *keystore.Identity) *Identity {
	return &Identity{
		Signer:      id.Signer,
		Certificate: id.Certificate,
		Chain:       id.Chain,
		Alias:       id.Alias,
	}
}

// issuers returns the chain without the leaf.
func (id *Identity) issuers() []*x509.Certificate {
	if len(id.Chain) <= 1 {
		return nil
	}
	return id.Chain[1:]
}

func mapKeystoreError(err error) error {
	switch {
	case errors.Is(err, keystore.ErrRead):
		return fmt.Errorf("%w: %v", ErrIO, err)
	case errors.Is(err, keystore.ErrNoKey):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, keystore.ErrAmbiguous):
		return fmt.Errorf("%w: %v", ErrAmbiguousIdentity, err)
	case errors.Is(err, keystore.ErrUnsupportedKey):
		return fmt.Errorf("%w: %v", ErrSigning, err)
	default:
		// wrong passphrase, corrupt container, key/certificate mismatch
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
}
