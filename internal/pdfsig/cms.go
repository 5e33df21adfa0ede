package pdfsig

import (
	"crypto"
	"encoding/asn1"
	"fmt"

	"github.com/digitorus/pkcs7"
)

func digestOID(h crypto.Hash) (asn1.ObjectIdentifier, error) {
	switch h {
	case 0, crypto.SHA256:
		return pkcs7.OIDDigestAlgorithmSHA256, nil
	case crypto.SHA384:
		return pkcs7.OIDDigestAlgorithmSHA384, nil
	case crypto.SHA512:
		return pkcs7.OIDDigestAlgorithmSHA512, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDigest, h)
	}
}

// signCMS returns a DER-encoded detached SignedData over content.
func signCMS(content []byte, opts *Options) ([]byte, error) {
	oid, err := digestOID(opts.Digest)
	if err != nil {
		return nil, err
	}

	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMS, err)
	}
	sd.SetDigestAlgorithm(oid)
	if err := sd.AddSignerChain(opts.Certificate, opts.Signer, opts.Chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMS, err)
	}
	sd.Detach()

	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMS, err)
	}
	return der, nil
}

// trimDER strips the zero padding that follows a DER value in /Contents.
func trimDER(contents []byte) []byte {
	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(contents, &raw)
	if err != nil {
		return contents
	}
	return contents[:len(contents)-len(rest)]
}
