// Package pdfsig adds and verifies detached CMS signatures in PDF files.
//
// Signing appends one incremental update holding a signature dictionary, a
// signature widget field, the page carrying the widget and a catalog with an
// updated /AcroForm. The bytes of the input are never rewritten, so earlier
// signatures and the structure tree stay intact. The CMS container is
// produced by github.com/digitorus/pkcs7 over the /ByteRange of the output,
// which covers every byte except the /Contents hex string.
package pdfsig

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digitorus/pdf"
	"github.com/sigstore/sigstore/pkg/cryptoutils"

	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// Sentinel errors for signing operations.
var (
	ErrInvalidOptions    = errors.New("invalid signature options")
	ErrKeyMismatch       = errors.New("private key does not match certificate")
	ErrUnsupportedDigest = errors.New("unsupported digest algorithm")
	ErrFieldExists       = errors.New("form field already exists")
	ErrAlreadyCertified  = errors.New("document is already certified")
	ErrAlreadySigned     = errors.New("certification must be the first signature")
	ErrCMS               = errors.New("CMS signature failed")
	ErrContentsTooSmall  = errors.New("signature does not fit the reserved space")
)

const (
	// baseContentsSize is the space reserved for the CMS container before
	// certificates are accounted for: signed attributes, digest and a
	// signature value up to RSA-4096.
	baseContentsSize = 8192

	// widgetFlags marks the widget Print (4) and Locked (128).
	widgetFlags = 132

	// byteRangeWidth is the number of digits reserved per /ByteRange entry.
	byteRangeWidth = 10
)

var byteRangePlaceholder = "[0 " + strings.TrimSpace(strings.Repeat(strings.Repeat("0", byteRangeWidth)+" ", 3)) + "]"

// Rect is an annotation rectangle in default user space:
// lower-left x, lower-left y, upper-right x, upper-right y.
type Rect [4]float64

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r[2] - r[0] }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r[3] - r[1] }

// Options describes one signature.
type Options struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
	// Chain holds the issuers of Certificate, nearest first. It is embedded
	// in the CMS container and must link to Certificate.
	Chain []*x509.Certificate

	Name        string
	Reason      string
	Location    string
	ContactInfo string

	FieldName       string
	AlternativeName string // /TU, read by assistive technology
	Page            int    // 1-based; 0 selects the last page
	Rect            Rect

	Digest        crypto.Hash // zero selects SHA-256
	Certification CertificationLevel
	SigningTime   time.Time // zero means now
}

func (o *Options) validate() error {
	switch {
	case o.Signer == nil:
		return fmt.Errorf("%w: no signer", ErrInvalidOptions)
	case o.Certificate == nil:
		return fmt.Errorf("%w: no certificate", ErrInvalidOptions)
	case o.FieldName == "":
		return fmt.Errorf("%w: empty field name", ErrInvalidOptions)
	case strings.Contains(o.FieldName, "."):
		return fmt.Errorf("%w: field name %q contains a period", ErrInvalidOptions, o.FieldName)
	case o.Page < 0:
		return fmt.Errorf("%w: negative page %d", ErrInvalidOptions, o.Page)
	case o.Rect.Width() < 0 || o.Rect.Height() < 0:
		return fmt.Errorf("%w: rectangle %v is inverted", ErrInvalidOptions, o.Rect)
	case !o.Certification.Valid():
		return fmt.Errorf("%w: certification level %d", ErrInvalidOptions, o.Certification)
	}
	if _, err := digestOID(o.Digest); err != nil {
		return err
	}
	if err := cryptoutils.EqualKeys(o.Certificate.PublicKey, o.Signer.Public()); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	return nil
}

// Result describes a completed signature.
type Result struct {
	Data      []byte
	Page      int
	FieldName string
	ByteRange [4]int64
}

// Sign appends a signature described by opts to the PDF in base.
func Sign(base []byte, opts Options) (res *Result, err error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.SigningTime.IsZero() {
		opts.SigningTime = time.Now()
	}

	u, err := pdfupdate.Open(base)
	if err != nil {
		return nil, err
	}
	defer pdfupdate.Recover(&err)

	pageNum := opts.Page
	if pageNum == 0 {
		pageNum = u.NumPages()
	}
	page, err := u.Page(pageNum)
	if err != nil {
		return nil, err
	}

	catalog := u.Catalog()
	if err := checkState(catalog, &opts); err != nil {
		return nil, err
	}

	sigRef, widgetRef, apRef := u.Alloc(), u.Alloc(), u.Alloc()
	pageRef := pdfupdate.RefOf(page)

	u.Set(sigRef, signatureDict(&opts, contentsSize(&opts)))
	u.Set(widgetRef, widgetDict(&opts, sigRef, pageRef, apRef))
	u.Set(apRef, appearance(opts.Rect))

	pageBody, err := appendAnnotation(page, widgetRef)
	if err != nil {
		return nil, err
	}
	u.Set(pageRef, pageBody)

	catalogBody, err := catalogWithField(catalog, widgetRef, sigRef, opts.Certification, u.Version())
	if err != nil {
		return nil, err
	}
	u.Set(pdfupdate.RefOf(catalog), catalogBody)

	out, err := u.Bytes()
	if err != nil {
		return nil, err
	}
	data := out.Data

	ph, err := locatePlaceholders(data, out.Offset(sigRef))
	if err != nil {
		return nil, err
	}
	byteRange := [4]int64{0, int64(ph.contentsStart), int64(ph.contentsEnd), int64(len(data) - ph.contentsEnd)}
	patchByteRange(data[ph.byteRangeStart:ph.byteRangeStart+len(byteRangePlaceholder)], byteRange)

	signed := make([]byte, 0, len(data)-(ph.contentsEnd-ph.contentsStart))
	signed = append(signed, data[:ph.contentsStart]...)
	signed = append(signed, data[ph.contentsEnd:]...)

	der, err := signCMS(signed, &opts)
	if err != nil {
		return nil, err
	}
	capacity := (ph.contentsEnd - ph.contentsStart - 2) / 2
	if len(der) > capacity {
		return nil, fmt.Errorf("%w: %d bytes, %d reserved", ErrContentsTooSmall, len(der), capacity)
	}
	hex.Encode(data[ph.contentsStart+1:], der)

	return &Result{Data: data, Page: pageNum, FieldName: opts.FieldName, ByteRange: byteRange}, nil
}

// checkState rejects signatures that conflict with the existing document.
func checkState(catalog pdf.Value, opts *Options) error {
	signed := false
	for _, f := range formFields(catalog) {
		if f.name == opts.FieldName {
			return fmt.Errorf("%w: %q", ErrFieldExists, f.name)
		}
		if fieldType(f.value) == "Sig" && f.value.Key("V").Kind() == pdf.Dict {
			signed = true
		}
	}

	if mdp := catalog.Key("Perms").Key("DocMDP"); mdp.Kind() == pdf.Dict {
		if opts.Certification != NotCertified {
			return ErrAlreadyCertified
		}
		if certificationOf(mdp) == CertifiedNoChanges {
			return fmt.Errorf("%w: no changes permitted", ErrAlreadyCertified)
		}
	}
	if signed && opts.Certification != NotCertified {
		return ErrAlreadySigned
	}
	return nil
}

// certificationOf returns the DocMDP level recorded in a signature dictionary.
func certificationOf(sig pdf.Value) CertificationLevel {
	refs := sig.Key("Reference")
	for i := 0; i < refs.Len(); i++ {
		ref := refs.Index(i)
		if ref.Key("TransformMethod").Name() == "DocMDP" {
			return levelFromPermission(ref.Key("TransformParams").Key("P").Int64())
		}
	}
	return NotCertified
}

func contentsSize(opts *Options) int {
	size := baseContentsSize + len(opts.Certificate.Raw)
	for _, c := range opts.Chain {
		size += len(c.Raw)
	}
	return size
}

func signatureDict(opts *Options, contents int) []byte {
	var b strings.Builder
	b.WriteString("<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached")
	b.WriteString(" /ByteRange ")
	b.WriteString(byteRangePlaceholder)
	b.WriteString(" /Contents <")
	b.WriteString(strings.Repeat("0", contents*2))
	b.WriteString(">")
	b.WriteString(" /M ")
	b.WriteString(pdfupdate.Date(opts.SigningTime))
	for _, e := range []struct{ key, val string }{
		{"Name", opts.Name},
		{"Reason", opts.Reason},
		{"Location", opts.Location},
		{"ContactInfo", opts.ContactInfo},
	} {
		if e.val == "" {
			continue
		}
		b.WriteString(" /" + e.key + " ")
		b.WriteString(pdfupdate.TextString(e.val))
	}
	if p := opts.Certification.Permission(); p != 0 {
		fmt.Fprintf(&b, " /Reference [<< /Type /SigRef /TransformMethod /DocMDP"+
			" /TransformParams << /Type /TransformParams /P %d /V /1.2 >> >>]", p)
	}
	b.WriteString(" /Prop_Build << /App << /Name /uapdf >> >> >>")
	return []byte(b.String())
}

func widgetDict(opts *Options, sig, page, ap pdfupdate.Ref) []byte {
	var b strings.Builder
	b.WriteString("<< /Type /Annot /Subtype /Widget /FT /Sig")
	b.WriteString(" /T " + pdfupdate.TextString(opts.FieldName))
	if opts.AlternativeName != "" {
		b.WriteString(" /TU " + pdfupdate.TextString(opts.AlternativeName))
	}
	r := opts.Rect
	fmt.Fprintf(&b, " /V %s /Rect [%s %s %s %s] /P %s /F %d /AP << /N %s >> >>",
		sig, pdfupdate.Real(r[0]), pdfupdate.Real(r[1]), pdfupdate.Real(r[2]), pdfupdate.Real(r[3]),
		page, widgetFlags, ap)
	return []byte(b.String())
}

// appearance draws a thin frame marked as an artifact, so the visible
// signature needs no font resources.
func appearance(r Rect) []byte {
	w, h := r.Width(), r.Height()
	var content string
	if w > 1 && h > 1 {
		content = fmt.Sprintf("/Artifact BMC q 0.5 w 0 G 0.25 0.25 %s %s re S Q EMC",
			pdfupdate.Real(w-0.5), pdfupdate.Real(h-0.5))
	}
	entries := fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %s %s] /Resources << >>",
		pdfupdate.Real(w), pdfupdate.Real(h))
	return pdfupdate.Stream(entries, []byte(content))
}

// appendArray returns the elements of arr followed by extra, as raw syntax.
func appendArray(arr pdf.Value, extra pdfupdate.Ref) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	owner := pdfupdate.RefOf(arr)
	for i := 0; i < arr.Len(); i++ {
		if err := pdfupdate.WriteValue(&buf, arr.Index(i), owner); err != nil {
			return "", err
		}
		buf.WriteByte(' ')
	}
	buf.WriteString(extra.String())
	buf.WriteByte(']')
	return buf.String(), nil
}

func appendAnnotation(page pdf.Value, widget pdfupdate.Ref) ([]byte, error) {
	annots, err := appendArray(page.Key("Annots"), widget)
	if err != nil {
		return nil, fmt.Errorf("copying /Annots: %w", err)
	}
	var body bytes.Buffer
	if err := pdfupdate.WriteDict(&body, page, pdfupdate.RefOf(page), map[string]string{
		"Annots": annots,
		"Tabs":   "/S",
	}); err != nil {
		return nil, fmt.Errorf("writing page: %w", err)
	}
	return body.Bytes(), nil
}

// catalogWithField adds the field to /AcroForm, records a certification in
// /Perms and raises /Version when the base file predates the syntax the
// update writes.
func catalogWithField(catalog pdf.Value, widget, sig pdfupdate.Ref, level CertificationLevel, version string) ([]byte, error) {
	acro := catalog.Key("AcroForm")
	fields, err := appendArray(acro.Key("Fields"), widget)
	if err != nil {
		return nil, fmt.Errorf("copying /Fields: %w", err)
	}

	var acroBuf bytes.Buffer
	if err := pdfupdate.WriteDict(&acroBuf, acro, pdfupdate.RefOf(acro), map[string]string{
		"Fields":   fields,
		"SigFlags": "3",
	}); err != nil {
		return nil, fmt.Errorf("writing /AcroForm: %w", err)
	}

	set := map[string]string{"AcroForm": acroBuf.String()}
	if pdfupdate.VersionBefore(version, pdfupdate.DocumentVersion) {
		set["Version"] = pdfupdate.Name(pdfupdate.DocumentVersion)
	}
	if level != NotCertified {
		perms := catalog.Key("Perms")
		var permsBuf bytes.Buffer
		if err := pdfupdate.WriteDict(&permsBuf, perms, pdfupdate.RefOf(perms), map[string]string{
			"DocMDP": sig.String(),
		}); err != nil {
			return nil, fmt.Errorf("writing /Perms: %w", err)
		}
		set["Perms"] = permsBuf.String()
	}

	var body bytes.Buffer
	if err := pdfupdate.WriteDict(&body, catalog, pdfupdate.RefOf(catalog), set); err != nil {
		return nil, fmt.Errorf("writing catalog: %w", err)
	}
	return body.Bytes(), nil
}

type placeholders struct {
	byteRangeStart int
	contentsStart  int // offset of '<'
	contentsEnd    int // offset after '>'
}

func locatePlaceholders(data []byte, sigOffset int) (placeholders, error) {
	var ph placeholders
	if sigOffset < 0 {
		return ph, fmt.Errorf("%w: signature object not written", pdfupdate.ErrMalformed)
	}
	obj := data[sigOffset:]

	br := bytes.Index(obj, []byte("/ByteRange "+byteRangePlaceholder))
	if br < 0 {
		return ph, fmt.Errorf("%w: /ByteRange placeholder not found", pdfupdate.ErrMalformed)
	}
	ph.byteRangeStart = sigOffset + br + len("/ByteRange ")

	c := bytes.Index(obj, []byte("/Contents <"))
	if c < 0 {
		return ph, fmt.Errorf("%w: /Contents placeholder not found", pdfupdate.ErrMalformed)
	}
	ph.contentsStart = sigOffset + c + len("/Contents ")
	end := bytes.IndexByte(data[ph.contentsStart:], '>')
	if end < 0 {
		return ph, fmt.Errorf("%w: unterminated /Contents", pdfupdate.ErrMalformed)
	}
	ph.contentsEnd = ph.contentsStart + end + 1
	return ph, nil
}

// patchByteRange overwrites the placeholder in dst, padding with spaces.
func patchByteRange(dst []byte, br [4]int64) {
	s := fmt.Sprintf("[%d %d %d %d]", br[0], br[1], br[2], br[3])
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}
