package uapdf

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alnah/go-uapdf/internal/pdfsig"
	"github.com/alnah/go-uapdf/internal/pdfua"
)

// SignatureInfo is the verification outcome of one signature.
type SignatureInfo struct {
	FieldName     string
	Name          string
	Reason        string
	Location      string
	ContactInfo   string
	SubFilter     string
	SigningTime   time.Time
	Certification CertificationLevel
	ByteRange     [4]int64
	Signer        *x509.Certificate
	Chain         []*x509.Certificate

	// Valid means the CMS signature verifies over the signed bytes.
	Valid bool
	// ChainValid means each certificate is signed by the next and the last
	// is self-signed. It says nothing about trust in the root.
	ChainValid bool
	// ModifiedAfter reports bytes appended after this signature's revision.
	ModifiedAfter bool
	Err           error
}

// Accessibility is the PDF/UA document-level report of a verified file.
type Accessibility struct {
	Version         string
	Pages           int
	Tagged          bool
	Marked          bool
	DisplayDocTitle bool
	Title           string
	Lang            string
	UAPart          int
	Conforms        bool
}

// VerifyResult describes every signature of a document, in signing order.
type VerifyResult struct {
	Signatures    []SignatureInfo
	Accessibility Accessibility
}

// Valid reports whether every signature and its chain verify.
func (r *VerifyResult) Valid() bool {
	for _, s := range r.Signatures {
		if !s.Valid || !s.ChainValid {
			return false
		}
	}
	return len(r.Signatures) > 0
}

// Verify checks the signatures of the PDF read from in.
// A document without signatures yields ErrNotFound.
func Verify(in io.ReaderAt, size int64) (*VerifyResult, error) {
	data, err := readAll(in, size)
	if err != nil {
		return nil, err
	}

	sigs, err := pdfsig.Verify(data)
	if err != nil {
		if errors.Is(err, pdfsig.ErrNoSignatures) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	result := &VerifyResult{Signatures: make([]SignatureInfo, 0, len(sigs))}
	for _, s := range sigs {
		result.Signatures = append(result.Signatures, SignatureInfo{
			FieldName:     s.FieldName,
			Name:          s.Name,
			Reason:        s.Reason,
			Location:      s.Location,
			ContactInfo:   s.ContactInfo,
			SubFilter:     s.SubFilter,
			SigningTime:   s.SigningTime,
			Certification: s.Certification,
			ByteRange:     s.ByteRange,
			Signer:        s.Signer,
			Chain:         s.Chain,
			Valid:         s.Valid,
			ChainValid:    s.ChainValid,
			ModifiedAfter: s.ModifiedAfter,
			Err:           s.Err,
		})
	}

	if rep, err := pdfua.Inspect(data); err == nil {
		result.Accessibility = Accessibility{
			Version:         rep.Version,
			Pages:           rep.Pages,
			Tagged:          rep.Tagged,
			Marked:          rep.Marked,
			DisplayDocTitle: rep.DisplayDocTitle,
			Title:           rep.Title,
			Lang:            rep.Lang,
			UAPart:          rep.Part,
			Conforms:        rep.Conforms(),
		}
	}
	return result, nil
}

// VerifyFile is Verify for a file on disk.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return Verify(f, info.Size())
}
