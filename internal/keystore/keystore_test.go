package keystore

// Notes:
// - Containers are produced with go-pkcs12's Modern encoder from freshly
//   generated chains; CA certificates are stored root first so ordering is
//   reconstructed rather than inherited from bag order.
// - go-pkcs12 cannot encode several keys in one container; fixture.TwoKeyStore
//   splices two passwordless encodings so the ambiguous case runs through the
//   real decoder.

import (
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-uapdf/internal/fixture"
)

// ---------------------------------------------------------------------------
// TestLoad - Identity extraction
// ---------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	t.Parallel()

	for _, kt := range []fixture.KeyType{fixture.RSA, fixture.ECDSA} {
		chain := fixture.NewChain(t, kt, "Jane Author")
		path := filepath.Join(t.TempDir(), "identity.p12")
		require.NoError(t, os.WriteFile(path, fixture.PKCS12(t, chain, "s3cret"), 0o600))

		id, err := Load(path, []byte("s3cret"))
		require.NoError(t, err)
		require.Equal(t, "Jane Author", id.Alias)
		require.True(t, id.Certificate.Equal(chain.Leaf))
		require.Len(t, id.Chain, 3)
		require.True(t, id.Chain[0].Equal(chain.Leaf))
		require.True(t, id.Chain[1].Equal(chain.Intermediate))
		require.True(t, id.Chain[2].Equal(chain.Root))
		require.NotNil(t, id.Signer.Public())
	}
}

func TestDecode_CAFirst(t *testing.T) {
	t.Parallel()

	for _, kt := range []fixture.KeyType{fixture.RSA, fixture.ECDSA} {
		chain := fixture.NewChain(t, kt, "Jane Author")

		id, err := Decode(fixture.PKCS12CAFirst(t, chain, "pw"), []byte("pw"))
		require.NoError(t, err)
		require.Equal(t, "Jane Author", id.Alias)
		require.True(t, id.Certificate.Equal(chain.Leaf))
		require.Len(t, id.Chain, 3)
		require.True(t, id.Chain[1].Equal(chain.Intermediate))
		require.True(t, id.Chain[2].Equal(chain.Root))
	}
}

func TestDecode_TwoKeys(t *testing.T) {
	t.Parallel()

	a := fixture.NewChain(t, fixture.ECDSA, "Jane Author")
	b := fixture.NewChain(t, fixture.ECDSA, "John Author")

	id, err := Decode(fixture.TwoKeyStore(t, a, b), nil)
	require.ErrorIs(t, err, ErrAmbiguous)
	require.Nil(t, id)
}

func TestDecode_Alias(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.ECDSA, "")

	id, err := Decode(fixture.PKCS12(t, chain, "pw"), []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, "O=Fixture", id.Alias)
}

func TestLoad_Stable(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.RSA, "Jane Author")
	data := fixture.PKCS12(t, chain, "pw")

	first, err := Decode(data, []byte("pw"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Decode(data, []byte("pw"))
		require.NoError(t, err)
		require.Equal(t, first.Alias, again.Alias)
		require.True(t, first.Certificate.Equal(again.Certificate))
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.RSA, "Jane Author")
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}

	tests := []struct {
		name       string
		path       string
		passphrase string
		want       error
	}{
		{
			name:       "missing file",
			path:       filepath.Join(dir, "absent.p12"),
			passphrase: "pw",
			want:       ErrRead,
		},
		{
			name:       "wrong passphrase",
			path:       write("id.p12", fixture.PKCS12(t, chain, "pw")),
			passphrase: "not-it",
			want:       ErrAuthentication,
		},
		{
			name:       "corrupt container",
			path:       write("garbage.p12", []byte("definitely not DER")),
			passphrase: "pw",
			want:       ErrAuthentication,
		},
		{
			name:       "certificates only",
			path:       write("trust.p12", fixture.TrustStore(t, chain.Certificates(), "pw")),
			passphrase: "pw",
			want:       ErrNoKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := Load(tt.path, []byte(tt.passphrase))
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, id)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want error
	}{
		{"pkcs12: expected exactly one key bag", ErrAmbiguous},
		{"pkcs12: private key missing", ErrNoKey},
		{"pkcs12: expected exactly one certificate in the certBag", ErrAuthentication},
		{"pkcs12: error reading P12 data: asn1: structure error", ErrAuthentication},
	}
	for _, tt := range tests {
		require.ErrorIs(t, classify(errors.New(tt.msg), nil, ""), tt.want, tt.msg)
	}
}

// ---------------------------------------------------------------------------
// TestOrderChain
// ---------------------------------------------------------------------------

func TestOrderChain(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.ECDSA, "Jane Author")
	unrelated := fixture.NewChain(t, fixture.ECDSA, "Other")

	got := OrderChain(chain.Leaf, []*x509.Certificate{unrelated.Root, chain.Root, unrelated.Intermediate, chain.Intermediate})
	require.Len(t, got, 3)
	require.True(t, got[1].Equal(chain.Intermediate))
	require.True(t, got[2].Equal(chain.Root))

	// Missing intermediate stops the path at the leaf.
	got = OrderChain(chain.Leaf, []*x509.Certificate{chain.Root})
	require.Len(t, got, 1)
}

// ---------------------------------------------------------------------------
// TestPassphrase - Sources
// ---------------------------------------------------------------------------

func TestPassphrase_Resolve(t *testing.T) {
	t.Parallel()

	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: "signing", Data: []byte("from-keyring")}})
	openRing := func(service string) (keyring.Keyring, error) {
		if service != "uapdf" {
			return nil, errors.New("unknown service")
		}
		return ring, nil
	}
	env := map[string]string{
		DefaultPassphraseEnv: "from-default-env",
		"CUSTOM_PASS":        "from-custom-env",
	}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		name    string
		source  Passphrase
		want    string
		wantErr bool
	}{
		{name: "literal wins", source: Passphrase{Literal: "inline", KeyringService: "uapdf", KeyringItem: "signing"}, want: "inline"},
		{name: "keyring", source: Passphrase{KeyringService: "uapdf", KeyringItem: "signing"}, want: "from-keyring"},
		{name: "custom env", source: Passphrase{Env: "CUSTOM_PASS"}, want: "from-custom-env"},
		{name: "default env", source: Passphrase{}, want: "from-default-env"},
		{name: "unset env", source: Passphrase{Env: "NOPE"}, want: ""},
		{name: "missing item", source: Passphrase{KeyringService: "uapdf", KeyringItem: "absent"}, wantErr: true},
		{name: "keyring unavailable", source: Passphrase{KeyringService: "other", KeyringItem: "signing"}, wantErr: true},
		{name: "item without service", source: Passphrase{KeyringItem: "signing"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.source.Resolve(getenv, openRing)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPassphrase)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestZeroize(t *testing.T) {
	t.Parallel()

	b := []byte("secret")
	Zeroize(b)
	require.Equal(t, make([]byte, 6), b)
}
