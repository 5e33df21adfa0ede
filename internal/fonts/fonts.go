// Package fonts registers local font files for HTML rendering.
//
// The browser cannot read fonts through relative URLs once markup is loaded
// from a temporary file, so every registered font is exposed through an
// @font-face rule with an absolute file:// URL. Fonts are validated and
// named with golang.org/x/image/font/sfnt before the browser sees them.
package fonts

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"
)

// Sentinel errors for font registration.
var (
	ErrNotFound    = errors.New("font file not found")
	ErrInvalidFont = errors.New("unsupported or corrupt font file")
)

// MaxFontSize caps the size of font files read into memory.
const MaxFontSize = 32 << 20

// Font is a registered font file.
type Font struct {
	Path    string   // absolute path
	Family  string   // family name from the font's name table
	Aliases []string // additional family names the markup uses for this file
	Format  string   // CSS format() hint: "truetype" or "opentype"
}

// Families returns Family followed by Aliases, without duplicates.
func (f *Font) Families() []string {
	out := []string{f.Family}
	for _, a := range f.Aliases {
		dup := false
		for _, o := range out {
			if strings.EqualFold(o, a) {
				dup = true
				break
			}
		}
		if !dup && a != "" {
			out = append(out, a)
		}
	}
	return out
}

// URL returns the file:// URL of the font.
func (f *Font) URL() string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(f.Path)}
	return u.String()
}

// Provider holds the fonts available to a render.
// The zero value is ready to use. A Provider is not safe for concurrent use.
type Provider struct {
	fonts []*Font
}

// Add loads the font at path and registers it under its own family name and
// the given aliases.
func (p *Provider) Add(path string, aliases ...string) (*Font, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, abs)
	}
	if info.Size() > MaxFontSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidFont, abs, MaxFontSize)
	}

	data, err := os.ReadFile(abs) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	family, format, err := Describe(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	f := &Font{Path: abs, Family: family, Aliases: aliases, Format: format}
	p.fonts = append(p.fonts, f)
	return f, nil
}

// Fonts returns the registered fonts in registration order.
func (p *Provider) Fonts() []*Font {
	return p.fonts
}

// Describe parses an sfnt font and returns its family name and CSS format.
func Describe(data []byte) (family, format string, err error) {
	format = sniffFormat(data)
	if format == "" {
		return "", "", fmt.Errorf("%w: not a TrueType or OpenType file", ErrInvalidFont)
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}

	var buf sfnt.Buffer
	for _, id := range []sfnt.NameID{sfnt.NameIDTypographicFamily, sfnt.NameIDFamily} {
		name, err := f.Name(&buf, id)
		if err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name), format, nil
		}
	}
	return "", "", fmt.Errorf("%w: no family name", ErrInvalidFont)
}

func sniffFormat(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch string(data[:4]) {
	case "\x00\x01\x00\x00", "true":
		return "truetype"
	case "OTTO":
		return "opentype"
	default:
		return ""
	}
}

// CSS returns one @font-face rule per registered family name.
func (p *Provider) CSS() string {
	var b strings.Builder
	for _, f := range p.fonts {
		for _, family := range f.Families() {
			fmt.Fprintf(&b, "@font-face { font-family: %s; src: url(%s) format(%q); }\n",
				quoteCSS(family), quoteCSS(f.URL()), f.Format)
		}
	}
	return b.String()
}

// quoteCSS returns s as a double-quoted CSS string.
func quoteCSS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `, "<", `\3c `)
	return `"` + r.Replace(s) + `"`
}
