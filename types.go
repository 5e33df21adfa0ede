package uapdf

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-uapdf/internal/pdfsig"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// PageSettings configures PDF page dimensions.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
}

// DefaultPageSettings returns A4 portrait with half-inch margins.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeA4,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if _, _, ok := paperSize(p.Size); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	switch strings.ToLower(p.Orientation) {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// dimensions returns paper width and height in inches after orientation.
func (p *PageSettings) dimensions() (width, height float64) {
	width, height, _ = paperSize(p.Size)
	if strings.EqualFold(p.Orientation, OrientationLandscape) {
		width, height = height, width
	}
	return width, height
}

// paperSize returns portrait dimensions in inches for a known size.
func paperSize(size string) (width, height float64, ok bool) {
	switch strings.ToLower(size) {
	case PageSizeLetter:
		return 8.5, 11, true
	case PageSizeA4:
		return 8.27, 11.69, true
	case PageSizeLegal:
		return 8.5, 14, true
	}
	return 0, 0, false
}

// Document is the source of a render. Exactly one of HTML or Markdown is set.
// Rendering never mutates a Document.
type Document struct {
	HTML     string // complete HTML document or fragment
	Markdown string // converted to HTML first

	// FontPath is a TrueType or OpenType file to make available to the markup.
	FontPath string
	// FontFamily is the family name the markup uses for FontPath.
	// Empty means the families of @font-face rules whose url() names the
	// same file, plus the font's own family name.
	FontFamily string

	// BaseDir resolves relative references (images, stylesheets, url()).
	BaseDir string

	// Title and Lang override <title> and <html lang>.
	Title string
	Lang  string
}

func (d *Document) validate() error {
	html, md := strings.TrimSpace(d.HTML), strings.TrimSpace(d.Markdown)
	if html == "" && md == "" {
		return ErrEmptyDocument
	}
	if html != "" && md != "" {
		return fmt.Errorf("%w: HTML and Markdown are mutually exclusive", ErrInvalidDocument)
	}
	return nil
}

// RenderResult describes a rendered PDF.
type RenderResult struct {
	Pages        int
	Title        string
	Lang         string
	FontFamily   string // registered family, empty without a font
	FontEmbedded bool   // a font file was registered with the browser
	Size         int    // bytes written
}

// CertificationLevel is the DocMDP permission a certifying signature grants.
type CertificationLevel = pdfsig.CertificationLevel

// Certification levels.
const (
	NotCertified                       = pdfsig.NotCertified
	CertifiedNoChanges                 = pdfsig.CertifiedNoChanges
	CertifiedFormFilling               = pdfsig.CertifiedFormFilling
	CertifiedFormFillingAndAnnotations = pdfsig.CertifiedFormFillingAndAnnotations
)

// ParseCertificationLevel parses the names printed by CertificationLevel.String.
func ParseCertificationLevel(s string) (CertificationLevel, bool) {
	return pdfsig.ParseCertificationLevel(s)
}

// Rect is a rectangle in PDF points: lower-left x, y, upper-right x, y.
type Rect [4]float64

// Defaults of a SignatureDescriptor.
const (
	DefaultReason    = "I am the author of this document"
	DefaultLocation  = "Earth"
	DefaultFieldName = "Signature"
)

// DefaultRect places the signature widget in the lower-left corner.
var DefaultRect = Rect{0, 0, 200, 100}

// SignatureDescriptor describes the signature to apply.
type SignatureDescriptor struct {
	Name            string // signer display name; empty uses the certificate CN
	Reason          string
	Location        string
	ContactInfo     string
	FieldName       string // partial field name, no '.'
	AlternativeName string // accessible field description; empty uses FieldName
	Page            int    // 1-based; 0 selects the last page
	Rect            Rect
	Digest          crypto.Hash // zero selects SHA-256
	Certification   CertificationLevel
	SigningTime     time.Time // zero means now
}

// DefaultSignatureDescriptor returns a certifying signature on the last page
// that still allows form filling and annotations.
func DefaultSignatureDescriptor() SignatureDescriptor {
	return SignatureDescriptor{
		Reason:          DefaultReason,
		Location:        DefaultLocation,
		FieldName:       DefaultFieldName,
		AlternativeName: DefaultFieldName,
		Rect:            DefaultRect,
		Digest:          crypto.SHA256,
		Certification:   CertifiedFormFillingAndAnnotations,
	}
}

// Validate checks the descriptor without looking at any document.
func (d *SignatureDescriptor) Validate() error {
	if d.FieldName == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidDescriptor)
	}
	if strings.Contains(d.FieldName, ".") {
		return fmt.Errorf("%w: field name %q contains '.'", ErrInvalidDescriptor, d.FieldName)
	}
	if d.Page < 0 {
		return fmt.Errorf("%w: page %d", ErrInvalidDescriptor, d.Page)
	}
	if d.Rect[2] < d.Rect[0] || d.Rect[3] < d.Rect[1] {
		return fmt.Errorf("%w: rectangle %v is inverted", ErrInvalidDescriptor, d.Rect)
	}
	if !d.Certification.Valid() {
		return fmt.Errorf("%w: certification level %d", ErrInvalidDescriptor, int(d.Certification))
	}
	switch d.Digest {
	case 0, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return fmt.Errorf("%w: digest %s", ErrInvalidDescriptor, d.Digest)
	}
	return nil
}

// SignResult describes an applied signature.
type SignResult struct {
	FieldName     string
	Page          int
	Certification CertificationLevel
	ByteRange     [4]int64
	Signer        string // leaf certificate subject
	Size          int    // bytes written
}

// Identity is a private key with its certificate chain, loaded from a key store.
type Identity struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
	// Chain starts with Certificate, then issuers in issuance order.
	Chain []*x509.Certificate
	Alias string
}
