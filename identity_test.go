package uapdf

// Notes:
// - Key stores are generated per test with internal/fixture; mapping from
//   internal/keystore errors to package sentinels is what is checked here.

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alnah/go-uapdf/internal/fixture"
)

func TestLoadSigningIdentity(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.ECDSA, "Jane Author")
	path := filepath.Join(t.TempDir(), "keystore.p12")
	require.NoError(t, os.WriteFile(path, fixture.PKCS12(t, chain, "secret"), 0o600))

	id, err := LoadSigningIdentity(path, []byte("secret"))
	require.NoError(t, err)
	require.Equal(t, chain.Leaf.Raw, id.Certificate.Raw)
	require.Len(t, id.Chain, 3)
	require.Equal(t, chain.Intermediate.Raw, id.Chain[1].Raw)
	require.Equal(t, chain.Root.Raw, id.Chain[2].Raw)
	require.Len(t, id.issuers(), 2)
	require.NotNil(t, id.Signer)
}

func TestDecodeSigningIdentity_CAFirst(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.RSA, "Jane Author")

	id, err := DecodeSigningIdentity(fixture.PKCS12CAFirst(t, chain, "secret"), []byte("secret"))
	require.NoError(t, err)
	require.Equal(t, chain.Leaf.Raw, id.Certificate.Raw)
	require.Equal(t, "Jane Author", id.Alias)
	require.Len(t, id.issuers(), 2)
}

func TestLoadSigningIdentity_Errors(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.RSA, "Jane Author")
	good := fixture.PKCS12(t, chain, "secret")
	certsOnly := fixture.TrustStore(t, chain.Certificates(), "secret")
	twoKeys := fixture.TwoKeyStore(t, chain, fixture.NewChain(t, fixture.RSA, "John Author"))

	tests := []struct {
		name       string
		data       []byte
		passphrase string
		want       error
	}{
		{name: "wrong passphrase", data: good, passphrase: "wrong", want: ErrAuthentication},
		{name: "corrupt container", data: []byte("not a key store"), passphrase: "secret", want: ErrAuthentication},
		{name: "no private key", data: certsOnly, passphrase: "secret", want: ErrNotFound},
		{name: "two private keys", data: twoKeys, passphrase: "", want: ErrAmbiguousIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeSigningIdentity(tt.data, []byte(tt.passphrase))
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadSigningIdentity(filepath.Join(t.TempDir(), "absent.p12"), nil)
		require.ErrorIs(t, err, ErrIO)
	})
}

func TestIdentity_IssuersSingleCertificate(t *testing.T) {
	t.Parallel()

	chain := fixture.NewChain(t, fixture.ECDSA, "Solo")
	id := &Identity{Certificate: chain.Leaf, Chain: chain.Certificates()[:1]}
	require.Empty(t, id.issuers())
}
