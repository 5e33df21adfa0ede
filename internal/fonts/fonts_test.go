package fonts

// Notes:
// - Valid fonts come from golang.org/x/image/font/gofont, written to a
//   temporary directory; no font file ships with the repository.

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// ---------------------------------------------------------------------------
// TestProvider_Add - Validation
// ---------------------------------------------------------------------------

func TestProvider_Add_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notFont := filepath.Join(dir, "notes.ttf")
	if err := os.WriteFile(notFont, []byte("just some text"), 0o600); err != nil {
		t.Fatal(err)
	}
	badTable := filepath.Join(dir, "broken.ttf")
	if err := os.WriteFile(badTable, []byte("\x00\x01\x00\x00\x00\xff garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.ttf"), want: ErrNotFound},
		{name: "directory", path: dir, want: ErrNotFound},
		{name: "not a font", path: notFont, want: ErrInvalidFont},
		{name: "corrupt tables", path: badTable, want: ErrInvalidFont},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var p Provider
			_, err := p.Add(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
			if len(p.Fonts()) != 0 {
				t.Error("failed Add() registered a font")
			}
		})
	}
}

func TestProvider_Add(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Go-Regular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o600); err != nil {
		t.Fatal(err)
	}

	var p Provider
	f, err := p.Add(path, "MyCustomFont", "go")
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if f.Family != "Go" {
		t.Errorf("Family = %q, want %q", f.Family, "Go")
	}
	if f.Format != "truetype" {
		t.Errorf("Format = %q, want truetype", f.Format)
	}
	if !filepath.IsAbs(f.Path) {
		t.Errorf("Path = %q, want absolute", f.Path)
	}
	if got := f.Families(); !reflect.DeepEqual(got, []string{"Go", "MyCustomFont"}) {
		t.Errorf("Families() = %v, want [Go MyCustomFont]", got)
	}
	if len(p.Fonts()) != 1 {
		t.Errorf("Fonts() has %d entries, want 1", len(p.Fonts()))
	}
	if !strings.Contains(p.CSS(), `font-family: "MyCustomFont"`) {
		t.Errorf("CSS() lacks alias rule:\n%s", p.CSS())
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	family, format, err := Describe(goregular.TTF)
	if err != nil {
		t.Fatalf("Describe() unexpected error: %v", err)
	}
	if family != "Go" || format != "truetype" {
		t.Errorf("Describe() = %q, %q; want Go, truetype", family, format)
	}

	if _, _, err := Describe([]byte("OTTO")); !errors.Is(err, ErrInvalidFont) {
		t.Errorf("Describe(truncated) error = %v, want ErrInvalidFont", err)
	}
}

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"\x00\x01\x00\x00rest", "truetype"},
		{"true....", "truetype"},
		{"OTTO....", "opentype"},
		{"wOFF....", ""},
		{"ab", ""},
	}
	for _, tt := range tests {
		if got := sniffFormat([]byte(tt.in)); got != tt.want {
			t.Errorf("sniffFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestProvider_CSS
// ---------------------------------------------------------------------------

func TestProvider_CSS(t *testing.T) {
	t.Parallel()

	p := Provider{fonts: []*Font{{
		Path:    "/usr/share/fonts/Free Sans.ttf",
		Family:  "FreeSans",
		Aliases: []string{"MyCustomFont", "freesans", ""},
		Format:  "truetype",
	}}}

	css := p.CSS()
	for _, want := range []string{
		`font-family: "FreeSans"; src: url("file:///usr/share/fonts/Free%20Sans.ttf") format("truetype");`,
		`font-family: "MyCustomFont";`,
	} {
		if !strings.Contains(css, want) {
			t.Errorf("CSS() missing %q in:\n%s", want, css)
		}
	}
	if got := strings.Count(css, "@font-face"); got != 2 {
		t.Errorf("CSS() has %d rules, want 2 (case-insensitive duplicates dropped)", got)
	}
}

func TestQuoteCSS(t *testing.T) {
	t.Parallel()

	if got := quoteCSS(`a"b\c</style>`); got != `"a\"b\\c\3c /style>"` {
		t.Errorf("quoteCSS() = %s", got)
	}
}

// ---------------------------------------------------------------------------
// TestParseFaces
// ---------------------------------------------------------------------------

func TestParseFaces(t *testing.T) {
	t.Parallel()

	css := `
		@font-face {
			font-family: MyCustomFont;
			src: url('./FreeSans.ttf') format('truetype');
		}
		body { font-family: MyCustomFont, Arial, sans-serif; }
		@FONT-FACE { font-family: "Bold Face"; src: local("X"), url("fonts/FreeSansBold.ttf?v=2"), url(other.otf); }
		@font-face { src: url(nofamily.ttf); }
	`

	got := ParseFaces(css)
	want := []Face{
		{Family: "MyCustomFont", URLs: []string{"./FreeSans.ttf"}},
		{Family: "Bold Face", URLs: []string{"fonts/FreeSansBold.ttf?v=2", "other.otf"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFaces() = %+v, want %+v", got, want)
	}

	if fams := FamiliesFor(got, "/opt/assets/freesans.TTF"); !reflect.DeepEqual(fams, []string{"MyCustomFont"}) {
		t.Errorf("FamiliesFor(FreeSans) = %v", fams)
	}
	if fams := FamiliesFor(got, `C:\fonts\FreeSansBold.ttf`); !reflect.DeepEqual(fams, []string{"Bold Face"}) {
		t.Errorf("FamiliesFor(FreeSansBold) = %v", fams)
	}
	if fams := FamiliesFor(got, "missing.ttf"); fams != nil {
		t.Errorf("FamiliesFor(missing) = %v, want nil", fams)
	}
}
