package fixture

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// KeyType selects the algorithm of generated keys.
type KeyType int

const (
	RSA KeyType = iota
	ECDSA
)

// Chain is a three-level certificate hierarchy with the leaf's private key.
type Chain struct {
	Key          crypto.Signer
	Leaf         *x509.Certificate
	Intermediate *x509.Certificate
	Root         *x509.Certificate
}

// Certificates returns leaf, intermediate and root in issuance order.
func (c *Chain) Certificates() []*x509.Certificate {
	return []*x509.Certificate{c.Leaf, c.Intermediate, c.Root}
}

// NewChain generates a root CA, an intermediate CA and a document-signing leaf
// whose common name is cn.
func NewChain(tb testing.TB, kt KeyType, cn string) *Chain {
	tb.Helper()

	rootKey := newKey(tb, kt)
	root := issue(tb, &x509.Certificate{
		Subject:               pkix.Name{CommonName: "Fixture Root CA"},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}, nil, rootKey.Public(), rootKey)

	interKey := newKey(tb, kt)
	inter := issue(tb, &x509.Certificate{
		Subject:               pkix.Name{CommonName: "Fixture Intermediate CA"},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}, root, interKey.Public(), rootKey)

	leafKey := newKey(tb, kt)
	leaf := issue(tb, &x509.Certificate{
		Subject:     pkix.Name{CommonName: cn, Organization: []string{"Fixture"}},
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}, inter, leafKey.Public(), interKey)

	return &Chain{Key: leafKey, Leaf: leaf, Intermediate: inter, Root: root}
}

// PKCS12 encodes the chain's key, leaf and CA certificates with password.
// CA certificates are stored root first so loaders cannot rely on bag order.
func PKCS12(tb testing.TB, c *Chain, password string) []byte {
	tb.Helper()

	data, err := pkcs12.Modern.Encode(c.Key, c.Leaf, []*x509.Certificate{c.Root, c.Intermediate}, password)
	if err != nil {
		tb.Fatalf("encoding PKCS#12: %v", err)
	}
	return data
}

// PKCS12CAFirst encodes the chain with the root in the first certificate bag,
// where readers conventionally expect the key's certificate.
func PKCS12CAFirst(tb testing.TB, c *Chain, password string) []byte {
	tb.Helper()

	data, err := pkcs12.Modern.Encode(c.Key, c.Root, []*x509.Certificate{c.Intermediate, c.Leaf}, password)
	if err != nil {
		tb.Fatalf("encoding PKCS#12: %v", err)
	}
	return data
}

// pfxPDU and contentInfo mirror the PKCS#12 PFX and PKCS#7 ContentInfo
// structures far enough to splice safe bags between containers.
type pfxPDU struct {
	Version  int
	AuthSafe contentInfo
	MacData  asn1.RawValue `asn1:"optional"`
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"tag:0,explicit,optional"`
}

// TwoKeyStore returns an unprotected container (empty password) holding the
// keys and certificates of both a and b. go-pkcs12 only encodes single-key
// stores, so two passwordless encodings are merged: b's key bags are appended
// to a's key safe and b's certificate bags to a's certificate safe.
func TwoKeyStore(tb testing.TB, a, b *Chain) []byte {
	tb.Helper()

	encode := func(c *Chain) (*pfxPDU, []contentInfo) {
		data, err := pkcs12.Passwordless.Encode(c.Key, c.Leaf, []*x509.Certificate{c.Intermediate, c.Root}, "")
		if err != nil {
			tb.Fatalf("encoding PKCS#12: %v", err)
		}
		var pfx pfxPDU
		mustUnmarshal(tb, data, &pfx)
		var authSafe []byte
		mustUnmarshal(tb, pfx.AuthSafe.Content.Bytes, &authSafe)
		var safes []contentInfo
		mustUnmarshal(tb, authSafe, &safes)
		if len(safes) != 2 {
			tb.Fatalf("expected 2 safe contents, got %d", len(safes))
		}
		return &pfx, safes
	}

	pfx, safes := encode(a)
	_, other := encode(b)
	for i := range safes {
		safes[i].Content = octetContent(tb, append(safeBags(tb, safes[i]), safeBags(tb, other[i])...))
	}

	authSafe := mustMarshal(tb, safes)
	pfx.AuthSafe.Content = asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: mustMarshal(tb, authSafe)}
	return mustMarshal(tb, *pfx)
}

// safeBags decodes the bags of an unencrypted (data) safe.
func safeBags(tb testing.TB, ci contentInfo) []asn1.RawValue {
	tb.Helper()

	var data []byte
	mustUnmarshal(tb, ci.Content.Bytes, &data)
	var bags []asn1.RawValue
	mustUnmarshal(tb, data, &bags)
	return bags
}

func octetContent(tb testing.TB, bags []asn1.RawValue) asn1.RawValue {
	tb.Helper()

	return asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      mustMarshal(tb, mustMarshal(tb, bags)),
	}
}

func mustUnmarshal(tb testing.TB, data []byte, v any) {
	tb.Helper()

	if _, err := asn1.Unmarshal(data, v); err != nil {
		tb.Fatalf("decoding ASN.1: %v", err)
	}
}

func mustMarshal(tb testing.TB, v any) []byte {
	tb.Helper()

	data, err := asn1.Marshal(v)
	if err != nil {
		tb.Fatalf("encoding ASN.1: %v", err)
	}
	return data
}

// TrustStore encodes certificates without any private key.
func TrustStore(tb testing.TB, certs []*x509.Certificate, password string) []byte {
	tb.Helper()

	data, err := pkcs12.Modern.EncodeTrustStore(certs, password)
	if err != nil {
		tb.Fatalf("encoding PKCS#12 trust store: %v", err)
	}
	return data
}

func newKey(tb testing.TB, kt KeyType) crypto.Signer {
	tb.Helper()

	var (
		key crypto.Signer
		err error
	)
	switch kt {
	case ECDSA:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		tb.Fatalf("generating key: %v", err)
	}
	return key
}

var serial atomic.Int64

func issue(tb testing.TB, tmpl, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) *x509.Certificate {
	tb.Helper()

	tmpl.SerialNumber = big.NewInt(time.Now().UnixNano() + serial.Add(1))
	tmpl.NotBefore = time.Now().Add(-time.Hour)
	tmpl.NotAfter = time.Now().Add(24 * time.Hour)
	if parent == nil {
		parent = tmpl
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	if err != nil {
		tb.Fatalf("creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("parsing certificate: %v", err)
	}
	return cert
}
