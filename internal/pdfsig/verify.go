package pdfsig

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"

	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// Sentinel errors for verification.
var (
	ErrNoSignatures = errors.New("document has no signatures")
	ErrByteRange    = errors.New("invalid /ByteRange")
)

// Signature is the verification outcome of one signature field.
//
// Valid means the CMS signature verifies over the signed byte ranges using
// the embedded signer certificate. ChainValid means every certificate in
// Chain is signed by the next one and the last is self-signed. Neither is a
// statement about trust in the root.
type Signature struct {
	FieldName     string
	Name          string
	Reason        string
	Location      string
	ContactInfo   string
	SubFilter     string
	SigningTime   time.Time
	Certification CertificationLevel
	ByteRange     [4]int64

	Signer     *x509.Certificate
	Chain      []*x509.Certificate
	Valid      bool
	ChainValid bool
	// ModifiedAfter reports bytes following the signed revision.
	ModifiedAfter bool
	Err           error
}

// Verify checks every signature field of data in revision order.
func Verify(data []byte) (sigs []Signature, err error) {
	u, err := pdfupdate.Open(data)
	if err != nil {
		return nil, err
	}
	defer pdfupdate.Recover(&err)

	for _, f := range formFields(u.Catalog()) {
		if fieldType(f.value) != "Sig" {
			continue
		}
		v := f.value.Key("V")
		if v.Kind() != pdf.Dict {
			continue
		}
		sigs = append(sigs, verifySignature(data, f.name, v))
	}
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}

	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].ByteRange[2]+sigs[i].ByteRange[3] < sigs[j].ByteRange[2]+sigs[j].ByteRange[3]
	})
	return sigs, nil
}

func verifySignature(data []byte, name string, v pdf.Value) Signature {
	s := Signature{
		FieldName:     name,
		Name:          v.Key("Name").Text(),
		Reason:        v.Key("Reason").Text(),
		Location:      v.Key("Location").Text(),
		ContactInfo:   v.Key("ContactInfo").Text(),
		SubFilter:     v.Key("SubFilter").Name(),
		Certification: certificationOf(v),
	}
	s.SigningTime, _ = ParseDate(v.Key("M").Text())

	br, err := readByteRange(v.Key("ByteRange"), len(data))
	if err != nil {
		s.Err = err
		return s
	}
	s.ByteRange = br
	end := br[2] + br[3]
	s.ModifiedAfter = end < int64(len(data))

	if data[br[1]] != '<' || data[br[2]-1] != '>' {
		s.Err = fmt.Errorf("%w: gap does not match /Contents", ErrByteRange)
		return s
	}

	signed := make([]byte, 0, br[1]+br[3])
	signed = append(signed, data[br[0]:br[0]+br[1]]...)
	signed = append(signed, data[br[2]:end]...)

	p7, err := pkcs7.Parse(trimDER([]byte(v.Key("Contents").RawString())))
	if err != nil {
		s.Err = fmt.Errorf("%w: %v", ErrCMS, err)
		return s
	}
	p7.Content = signed
	s.Signer = p7.GetOnlySigner()
	if s.Signer != nil {
		s.Chain, s.ChainValid = buildChain(s.Signer, p7.Certificates)
	}

	if err := p7.Verify(); err != nil {
		s.Err = fmt.Errorf("%w: %v", ErrCMS, err)
		return s
	}
	s.Valid = s.Signer != nil
	return s
}

func readByteRange(v pdf.Value, size int) ([4]int64, error) {
	var br [4]int64
	if v.Kind() != pdf.Array || v.Len() != 4 {
		return br, fmt.Errorf("%w: want 4 integers", ErrByteRange)
	}
	for i := range br {
		br[i] = v.Index(i).Int64()
	}
	switch {
	case br[0] != 0:
		return br, fmt.Errorf("%w: does not start at 0", ErrByteRange)
	case br[1] <= 0 || br[2] <= br[1] || br[3] < 0:
		return br, fmt.Errorf("%w: %v", ErrByteRange, br)
	case br[2]+br[3] > int64(size):
		return br, fmt.Errorf("%w: exceeds file size %d", ErrByteRange, size)
	}
	return br, nil
}

// buildChain orders certs from leaf to a self-signed root by issuer linkage.
func buildChain(leaf *x509.Certificate, certs []*x509.Certificate) ([]*x509.Certificate, bool) {
	chain := []*x509.Certificate{leaf}
	valid := true
	cur := leaf
	for len(chain) <= len(certs)+1 {
		if bytes.Equal(cur.RawIssuer, cur.RawSubject) {
			err := cur.CheckSignature(cur.SignatureAlgorithm, cur.RawTBSCertificate, cur.Signature)
			return chain, valid && err == nil
		}
		issuer := findIssuer(cur, certs)
		if issuer == nil {
			return chain, false
		}
		if err := cur.CheckSignatureFrom(issuer); err != nil {
			valid = false
		}
		chain = append(chain, issuer)
		cur = issuer
	}
	return chain, false
}

func findIssuer(c *x509.Certificate, certs []*x509.Certificate) *x509.Certificate {
	for _, cand := range certs {
		if cand.Equal(c) {
			continue
		}
		if bytes.Equal(cand.RawSubject, c.RawIssuer) {
			return cand
		}
	}
	return nil
}

// ParseDate parses a PDF date string such as "D:20260102150405+01'00'".
// Missing trailing components default to their minimum.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	digits := 0
	for digits < len(s) && digits < 14 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits < 4 || digits%2 != 0 {
		return time.Time{}, fmt.Errorf("invalid PDF date %q", s)
	}

	fields := []int{0, 1, 1, 0, 0, 0}
	fields[0], _ = strconv.Atoi(s[:4])
	for i := 1; 4+2*i <= digits; i++ {
		fields[i], _ = strconv.Atoi(s[2+2*i : 4+2*i])
	}

	loc := time.UTC
	if tz := strings.TrimSuffix(s[digits:], "'"); tz != "" && tz[0] != 'Z' {
		sign := 1
		if tz[0] == '-' {
			sign = -1
		} else if tz[0] != '+' {
			return time.Time{}, fmt.Errorf("invalid PDF date zone %q", tz)
		}
		parts := strings.SplitN(tz[1:], "'", 2)
		hh, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid PDF date zone %q", tz)
		}
		mm := 0
		if len(parts) == 2 && parts[1] != "" {
			if mm, err = strconv.Atoi(parts[1]); err != nil {
				return time.Time{}, fmt.Errorf("invalid PDF date zone %q", tz)
			}
		}
		loc = time.FixedZone("", sign*(hh*3600+mm*60))
	}

	return time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc), nil
}
