package main

// Notes:
// - loadConfig: we test defaults, file loading and environment overrides
//   through the injected Getenv, never the process environment.
// - merge*Flags: we test that set flags win and unset flags keep config values.
// - buildDescriptor, buildPageSettings, buildDocument, renderOptions and
//   passphraseSource: we test the conversion from config to library values.

import (
	"crypto"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadConfig - Defaults, file and environment
// ---------------------------------------------------------------------------

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv(&fakeRenderer{}, nil)
	cfg, err := loadConfig(commonFlags{}, env)
	if err != nil {
		t.Fatalf("loadConfig() unexpected error: %v", err)
	}
	if cfg.Render.Output != config.DefaultRenderOutput || cfg.Signature.Output != config.DefaultSignOutput {
		t.Errorf("outputs = %q/%q, want defaults", cfg.Render.Output, cfg.Signature.Output)
	}
	if cfg.Signature.Certification != config.DefaultCertLevel {
		t.Errorf("certification = %q, want %q", cfg.Signature.Certification, config.DefaultCertLevel)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "team.yaml", `render:
  font: brand.ttf
  page:
    size: letter
keystore:
  path: from-file.p12
signature:
  reason: Reviewed
  certification: form-filling
`)

	tests := []struct {
		name         string
		flags        commonFlags
		vars         map[string]string
		wantKeystore string
		wantFont     string
	}{
		{
			name:         "config flag",
			flags:        commonFlags{config: path},
			wantKeystore: "from-file.p12",
			wantFont:     "brand.ttf",
		},
		{
			name:         "config from environment",
			vars:         map[string]string{"UAPDF_CONFIG": path},
			wantKeystore: "from-file.p12",
			wantFont:     "brand.ttf",
		},
		{
			name:         "environment overrides file",
			flags:        commonFlags{config: path},
			vars:         map[string]string{"UAPDF_KEYSTORE": "env.p12", "UAPDF_FONT": "env.ttf"},
			wantKeystore: "env.p12",
			wantFont:     "env.ttf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv(&fakeRenderer{}, tt.vars)
			cfg, err := loadConfig(tt.flags, env)
			if err != nil {
				t.Fatalf("loadConfig() unexpected error: %v", err)
			}
			if cfg.Keystore.Path != tt.wantKeystore {
				t.Errorf("Keystore.Path = %q, want %q", cfg.Keystore.Path, tt.wantKeystore)
			}
			if cfg.Render.Font != tt.wantFont {
				t.Errorf("Render.Font = %q, want %q", cfg.Render.Font, tt.wantFont)
			}
			if cfg.Signature.Reason != "Reviewed" || cfg.Signature.Certification != "form-filling" {
				t.Errorf("signature = %+v, want file values", cfg.Signature)
			}
			if cfg.Signature.Location != config.DefaultLocation {
				t.Errorf("Location = %q, want default kept", cfg.Signature.Location)
			}
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unknown := writeFile(t, dir, "bad.yaml", "render:\n  colour: red\n")

	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), config.ErrConfigNotFound},
		{"unknown field", unknown, config.ErrConfigParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv(&fakeRenderer{}, nil)
			_, err := loadConfig(commonFlags{config: tt.config}, env)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("loadConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMergeFlags - Flags over config
// ---------------------------------------------------------------------------

func TestMergeRenderFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		flags        renderFlags
		input        string
		startHTML    string
		wantHTML     string
		wantMarkdown string
	}{
		{"html input", renderFlags{}, "doc.html", "", "doc.html", ""},
		{"markdown input", renderFlags{}, "notes.MD", "", "", "notes.MD"},
		{"markdown flag wins", renderFlags{markdown: "a.txt"}, "doc.html", "", "", "a.txt"},
		{"no input keeps config", renderFlags{}, "", "cfg.html", "cfg.html", ""},
		{"input replaces config", renderFlags{}, "x.markdown", "cfg.html", "", "x.markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Render.HTML = tt.startHTML
			mergeRenderFlags(&tt.flags, tt.input, cfg)
			if cfg.Render.HTML != tt.wantHTML || cfg.Render.Markdown != tt.wantMarkdown {
				t.Errorf("html/markdown = %q/%q, want %q/%q",
					cfg.Render.HTML, cfg.Render.Markdown, tt.wantHTML, tt.wantMarkdown)
			}
		})
	}
}

func TestMergeRenderFlags_Values(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Render.Title = "From config"
	cfg.Render.Page.Size = "letter"

	f := renderFlags{
		font:        "f.ttf",
		fontFamily:  "Brand",
		strictFonts: true,
		lang:        "de",
		output:      "out.pdf",
		timeout:     "45s",
		page:        pageFlags{orientation: "landscape", margin: 1},
	}
	mergeRenderFlags(&f, "", cfg)

	r := cfg.Render
	if r.Font != "f.ttf" || r.FontFamily != "Brand" || !r.StrictFonts {
		t.Errorf("font settings = %+v", r)
	}
	if r.Title != "From config" {
		t.Errorf("Title = %q, want config value kept", r.Title)
	}
	if r.Lang != "de" || r.Output != "out.pdf" || r.Timeout != "45s" {
		t.Errorf("lang/output/timeout = %q/%q/%q", r.Lang, r.Output, r.Timeout)
	}
	if r.Page.Size != "letter" || r.Page.Orientation != "landscape" || r.Page.Margin != 1 {
		t.Errorf("page = %+v", r.Page)
	}
}

func TestMergeKeystoreFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Keystore.Path = "cfg.p12"
	mergeKeystoreFlags(&keystoreFlags{passphraseEnv: "PASS", keyringService: "svc", keyringItem: "item"}, cfg)

	k := cfg.Keystore
	if k.Path != "cfg.p12" || k.PassphraseEnv != "PASS" || k.KeyringService != "svc" || k.KeyringItem != "item" {
		t.Errorf("keystore = %+v", k)
	}

	src := passphraseSource(cfg)
	if src.Env != "PASS" || src.KeyringService != "svc" || src.KeyringItem != "item" || src.Literal != "" {
		t.Errorf("passphraseSource() = %+v", src)
	}
}

func TestMergeSignatureFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	mergeSignatureFlags(&signatureFlags{
		output:          "s.pdf",
		name:            "Jane",
		contact:         "jane@example.com",
		alternativeName: "Author signature",
		page:            2,
		rect:            []float64{10, 10, 110, 60},
	}, cfg)

	s := cfg.Signature
	if s.Output != "s.pdf" || s.Name != "Jane" || s.ContactInfo != "jane@example.com" {
		t.Errorf("signature = %+v", s)
	}
	if s.Reason != config.DefaultReason || s.FieldName != config.DefaultFieldName {
		t.Errorf("defaults lost: reason %q field %q", s.Reason, s.FieldName)
	}
	if s.Page != 2 || len(s.Rect) != 4 || s.Rect[2] != 110 {
		t.Errorf("page/rect = %d/%v", s.Page, s.Rect)
	}
}

// ---------------------------------------------------------------------------
// TestBuildDescriptor - Config to SignatureDescriptor
// ---------------------------------------------------------------------------

func TestBuildDescriptor(t *testing.T) {
	t.Parallel()

	d, err := buildDescriptor(config.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("buildDescriptor() unexpected error: %v", err)
	}
	if d.Certification != uapdf.CertifiedFormFillingAndAnnotations {
		t.Errorf("Certification = %v, want form-filling-and-annotations", d.Certification)
	}
	if d.Rect != uapdf.DefaultRect {
		t.Errorf("Rect = %v, want %v", d.Rect, uapdf.DefaultRect)
	}
	if d.Digest != crypto.SHA256 {
		t.Errorf("Digest = %v, want SHA-256", d.Digest)
	}
	if !d.SigningTime.Equal(testNow) {
		t.Errorf("SigningTime = %v, want %v", d.SigningTime, testNow)
	}
	if d.FieldName != config.DefaultFieldName || d.Page != 0 {
		t.Errorf("field/page = %q/%d", d.FieldName, d.Page)
	}
}

func TestBuildDescriptor_Values(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		check   func(*testing.T, uapdf.SignatureDescriptor)
		wantErr error
	}{
		{
			name:   "approval signature",
			modify: func(c *config.Config) { c.Signature.Certification = "not-certified" },
			check: func(t *testing.T, d uapdf.SignatureDescriptor) {
				if d.Certification != uapdf.NotCertified {
					t.Errorf("Certification = %v", d.Certification)
				}
			},
		},
		{
			name:   "level is case insensitive",
			modify: func(c *config.Config) { c.Signature.Certification = "No-Changes" },
			check: func(t *testing.T, d uapdf.SignatureDescriptor) {
				if d.Certification != uapdf.CertifiedNoChanges {
					t.Errorf("Certification = %v", d.Certification)
				}
			},
		},
		{
			name:   "empty level uses default",
			modify: func(c *config.Config) { c.Signature.Certification = "" },
			check: func(t *testing.T, d uapdf.SignatureDescriptor) {
				if d.Certification != uapdf.CertifiedFormFillingAndAnnotations {
					t.Errorf("Certification = %v", d.Certification)
				}
			},
		},
		{
			name:   "sha512",
			modify: func(c *config.Config) { c.Signature.Digest = "SHA512" },
			check: func(t *testing.T, d uapdf.SignatureDescriptor) {
				if d.Digest != crypto.SHA512 {
					t.Errorf("Digest = %v", d.Digest)
				}
			},
		},
		{
			name:   "custom rect",
			modify: func(c *config.Config) { c.Signature.Rect = []float64{50, 50, 250, 120} },
			check: func(t *testing.T, d uapdf.SignatureDescriptor) {
				if d.Rect != (uapdf.Rect{50, 50, 250, 120}) {
					t.Errorf("Rect = %v", d.Rect)
				}
			},
		},
		{
			name:    "unknown level",
			modify:  func(c *config.Config) { c.Signature.Certification = "p3" },
			wantErr: uapdf.ErrInvalidDescriptor,
		},
		{
			name:    "unknown digest",
			modify:  func(c *config.Config) { c.Signature.Digest = "md5" },
			wantErr: uapdf.ErrInvalidDescriptor,
		},
		{
			name:    "short rect",
			modify:  func(c *config.Config) { c.Signature.Rect = []float64{1, 2} },
			wantErr: uapdf.ErrInvalidDescriptor,
		},
		{
			name:    "inverted rect",
			modify:  func(c *config.Config) { c.Signature.Rect = []float64{100, 100, 0, 0} },
			wantErr: uapdf.ErrInvalidDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)
			d, err := buildDescriptor(cfg, testNow)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("buildDescriptor() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDescriptor() unexpected error: %v", err)
			}
			tt.check(t, d)
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuildPageSettings - Page defaults and validation
// ---------------------------------------------------------------------------

func TestBuildPageSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		page    config.PageConfig
		want    uapdf.PageSettings
		wantErr error
	}{
		{"defaults", config.PageConfig{}, *uapdf.DefaultPageSettings(), nil},
		{"letter landscape", config.PageConfig{Size: "Letter", Orientation: "LANDSCAPE", Margin: 1},
			uapdf.PageSettings{Size: uapdf.PageSizeLetter, Orientation: uapdf.OrientationLandscape, Margin: 1}, nil},
		{"unknown size", config.PageConfig{Size: "tabloid"}, uapdf.PageSettings{}, uapdf.ErrInvalidPageSize},
		{"margin too large", config.PageConfig{Margin: 9}, uapdf.PageSettings{}, uapdf.ErrInvalidMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Render.Page = tt.page
			got, err := buildPageSettings(cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("buildPageSettings() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildPageSettings() unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("buildPageSettings() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuildDocument - Source selection
// ---------------------------------------------------------------------------

func TestBuildDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	html := writeFile(t, dir, "a.html", "<p>html</p>")
	md := writeFile(t, dir, "b.md", "# md")
	txt := writeFile(t, dir, "c.txt", "# forced markdown")

	tests := []struct {
		name         string
		modify       func(*config.Config)
		wantHTML     string
		wantMarkdown string
	}{
		{"html", func(c *config.Config) { c.Render.HTML = html }, "<p>html</p>", ""},
		{"markdown", func(c *config.Config) { c.Render.Markdown = md }, "", "# md"},
		{"markdown any extension", func(c *config.Config) { c.Render.Markdown = txt }, "", "# forced markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Render.Font = "brand.ttf"
			cfg.Render.FontFamily = "Brand"
			cfg.Render.Title = "T"
			cfg.Render.Lang = "fr"
			tt.modify(cfg)

			doc, err := buildDocument(cfg)
			if err != nil {
				t.Fatalf("buildDocument() unexpected error: %v", err)
			}
			if doc.HTML != tt.wantHTML || doc.Markdown != tt.wantMarkdown {
				t.Errorf("html/markdown = %q/%q, want %q/%q", doc.HTML, doc.Markdown, tt.wantHTML, tt.wantMarkdown)
			}
			if doc.FontPath != "brand.ttf" || doc.FontFamily != "Brand" || doc.Title != "T" || doc.Lang != "fr" {
				t.Errorf("overrides not applied: %+v", doc)
			}
			if doc.BaseDir != dir {
				t.Errorf("BaseDir = %q, want %q", doc.BaseDir, dir)
			}
		})
	}
}

func TestBuildDocument_Sample(t *testing.T) {
	t.Parallel()

	doc, err := buildDocument(config.DefaultConfig())
	if err != nil {
		t.Fatalf("buildDocument() unexpected error: %v", err)
	}
	if strings.TrimSpace(doc.HTML+doc.Markdown) == "" {
		t.Error("embedded sample is empty")
	}
	if doc.BaseDir == "" {
		t.Error("sample has no base directory")
	}
}

func TestBuildDocument_NamedSample(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Render.Sample = "report"
	doc, err := buildDocument(cfg)
	if err != nil {
		t.Fatalf("buildDocument() unexpected error: %v", err)
	}
	if doc.Markdown == "" || doc.HTML != "" {
		t.Errorf("report sample not loaded as Markdown: html %d bytes, markdown %d bytes", len(doc.HTML), len(doc.Markdown))
	}

	cfg.Render.Sample = "nope"
	_, err = buildDocument(cfg)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("buildDocument() error = %v, want ErrUsage", err)
	}
	if !strings.Contains(err.Error(), "ua-compliant") {
		t.Errorf("error = %q, want the available samples", err)
	}
}

func TestBuildDocument_Missing(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Render.HTML = filepath.Join(t.TempDir(), "missing.html")
	if _, err := buildDocument(cfg); !errors.Is(err, uapdf.ErrIO) {
		t.Errorf("buildDocument() error = %v, want ErrIO", err)
	}
}

// ---------------------------------------------------------------------------
// TestRenderOptions - Library options
// ---------------------------------------------------------------------------

func TestRenderOptions(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv(&fakeRenderer{}, nil)
	log := newLogger(env.Stderr, commonFlags{})

	cfg := config.DefaultConfig()
	base, err := renderOptions(cfg, env, log)
	if err != nil {
		t.Fatalf("renderOptions() unexpected error: %v", err)
	}

	cfg.Render.Timeout = "90s"
	withTimeout, err := renderOptions(cfg, env, log)
	if err != nil {
		t.Fatalf("renderOptions() unexpected error: %v", err)
	}
	if len(withTimeout) != len(base)+1 {
		t.Errorf("timeout option not added: %d vs %d options", len(withTimeout), len(base))
	}

	cfg.Render.Page.Size = "tabloid"
	if _, err := renderOptions(cfg, env, log); !errors.Is(err, uapdf.ErrInvalidPageSize) {
		t.Errorf("renderOptions() error = %v, want ErrInvalidPageSize", err)
	}
}
