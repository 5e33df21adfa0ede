// Package keystore loads signing identities from PKCS#12 containers.
//
// A container must hold exactly one private key. Stores with several keys are
// rejected instead of picking one, because PKCS#12 bag order is not a
// property callers can rely on.
package keystore

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Sentinel errors for key store operations.
var (
	ErrRead           = errors.New("cannot read key store")
	ErrAuthentication = errors.New("wrong passphrase or corrupt key store")
	ErrNoKey          = errors.New("key store holds no private key")
	ErrAmbiguous      = errors.New("key store holds more than one private key")
	ErrKeyMismatch    = errors.New("private key does not match certificate")
	ErrUnsupportedKey = errors.New("private key cannot sign")
)

// Identity is a private key with its certificate chain.
type Identity struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
	// Chain starts with Certificate and follows issuers toward the root.
	Chain []*x509.Certificate
	// Alias names the identity: the leaf's common name, or its full subject.
	Alias string
}

// Load reads and decodes the PKCS#12 file at path.
func Load(path string, passphrase []byte) (*Identity, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return Decode(data, passphrase)
}

// Decode decodes a PKCS#12 container.
func Decode(data, passphrase []byte) (*Identity, error) {
	password := string(passphrase)

	key, leaf, cas, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, classify(err, data, password)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	leaf, cas, err = selectLeaf(signer, leaf, cas)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Signer:      signer,
		Certificate: leaf,
		Chain:       OrderChain(leaf, cas),
		Alias:       alias(leaf),
	}, nil
}

// selectLeaf returns the certificate whose public key matches signer, with
// every other certificate moved to the issuer pool. DecodeChain takes the
// first certificate bag as the leaf, which does not hold for stores that list
// their CA certificates first.
func selectLeaf(signer crypto.Signer, first *x509.Certificate, cas []*x509.Certificate) (*x509.Certificate, []*x509.Certificate, error) {
	certs := append([]*x509.Certificate{first}, cas...)
	for i, c := range certs {
		if cryptoutils.EqualKeys(c.PublicKey, signer.Public()) != nil {
			continue
		}
		pool := make([]*x509.Certificate, 0, len(certs)-1)
		pool = append(pool, certs[:i]...)
		pool = append(pool, certs[i+1:]...)
		return c, pool, nil
	}
	return nil, nil, fmt.Errorf("%w: none of %d certificates", ErrKeyMismatch, len(certs))
}

// Messages of software.sslmate.com/src/go-pkcs12 v0.6.0 (DecodeChain), which
// has no sentinels for these cases.
const (
	msgSecondKeyBag = "pkcs12: expected exactly one key bag"
	msgNoKey        = "pkcs12: private key missing"
)

// classify maps a decoding failure onto the package's sentinels.
func classify(err error, data []byte, password string) error {
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	switch err.Error() {
	case msgSecondKeyBag:
		return fmt.Errorf("%w: %v", ErrAmbiguous, err)
	case msgNoKey:
		return fmt.Errorf("%w: %v", ErrNoKey, err)
	}
	if data != nil {
		if certs, tsErr := pkcs12.DecodeTrustStore(data, password); tsErr == nil && len(certs) > 0 {
			return fmt.Errorf("%w: found %d certificates only", ErrNoKey, len(certs))
		}
	}
	return fmt.Errorf("%w: %v", ErrAuthentication, err)
}

// OrderChain returns leaf followed by its issuers from pool, nearest first,
// matching each certificate's issuer to a subject. Certificates of pool that
// are not part of the path are dropped.
func OrderChain(leaf *x509.Certificate, pool []*x509.Certificate) []*x509.Certificate {
	chain := []*x509.Certificate{leaf}
	used := make([]bool, len(pool))
	cur := leaf
	for !bytes.Equal(cur.RawIssuer, cur.RawSubject) {
		next := -1
		for i, c := range pool {
			if used[i] || !bytes.Equal(c.RawSubject, cur.RawIssuer) {
				continue
			}
			if cur.CheckSignatureFrom(c) == nil {
				next = i
				break
			}
			if next < 0 {
				next = i
			}
		}
		if next < 0 {
			break
		}
		used[next] = true
		cur = pool[next]
		chain = append(chain, cur)
	}
	return chain
}

func alias(c *x509.Certificate) string {
	if c.Subject.CommonName != "" {
		return c.Subject.CommonName
	}
	return c.Subject.String()
}
