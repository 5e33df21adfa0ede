package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-uapdf/internal/fileutil"
	"github.com/alnah/go-uapdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength       = 4096 // PATH_MAX on Linux
	MaxTitleLength      = 200  // Document title
	MaxLangLength       = 35   // BCP 47 tags are short in practice
	MaxFamilyLength     = 100  // CSS font-family name
	MaxPageSizeLength   = 10   // "letter", "a4", "legal"
	MaxOrientationLen   = 10   // "portrait", "landscape"
	MaxEnvNameLength    = 100  // Environment variable name
	MaxKeyringLength    = 200  // Keyring service/item name
	MaxSignerNameLength = 100  // Signer display name
	MaxReasonLength     = 500  // Free-form reason
	MaxLocationLength   = 200  // Location
	MaxContactLength    = 254  // RFC 5321
	MaxFieldNameLength  = 100  // AcroForm partial field name
	MaxDurationLength   = 20   // "2m30s"
	MaxLevelLength      = 40   // "form-filling-and-annotations"
	MaxSampleLength     = 64   // embedded sample name
	MaxDigestLength     = 10   // "sha256"
)

// Defaults matching the reference workflow.
const (
	DefaultRenderOutput = "unsigned.pdf"
	DefaultSignOutput   = "signed.pdf"
	DefaultFieldName    = "Signature"
	DefaultReason       = "I am the author of this document"
	DefaultLocation     = "Earth"
	DefaultCertLevel    = "form-filling-and-annotations"
	DefaultDigest       = "sha256"
	DefaultPassEnv      = "UAPDF_KEYSTORE_PASSPHRASE"
)

// DefaultRect is the signature widget rectangle in points (llx, lly, urx, ury).
var DefaultRect = []float64{0, 0, 200, 100}

// Config holds all configuration for rendering and signing.
type Config struct {
	Render    RenderConfig    `yaml:"render"`
	Keystore  KeystoreConfig  `yaml:"keystore"`
	Signature SignatureConfig `yaml:"signature"`
}

// RenderConfig defines the HTML to PDF phase.
type RenderConfig struct {
	HTML        string     `yaml:"html"`        // HTML source path (empty = embedded sample)
	Markdown    string     `yaml:"markdown"`    // Markdown source path, exclusive with html
	Sample      string     `yaml:"sample"`      // Embedded sample used when no source is set
	Font        string     `yaml:"font"`        // TrueType/OpenType file to register
	FontFamily  string     `yaml:"fontFamily"`  // Family the markup uses (empty = detect)
	StrictFonts bool       `yaml:"strictFonts"` // Fail instead of falling back
	Title       string     `yaml:"title"`       // Overrides <title>
	Lang        string     `yaml:"lang"`        // Overrides <html lang>
	Output      string     `yaml:"output"`      // Unsigned PDF path
	Timeout     string     `yaml:"timeout"`     // Go duration (empty = library default)
	Page        PageConfig `yaml:"page"`
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "letter", "a4", "legal" (default: "a4")
	Orientation string  `yaml:"orientation"` // "portrait", "landscape" (default: "portrait")
	Margin      float64 `yaml:"margin"`      // inches (default: 0.5)
}

// KeystoreConfig defines where the PKCS#12 store and its passphrase come from.
type KeystoreConfig struct {
	Path           string `yaml:"path"`
	Passphrase     string `yaml:"passphrase"`     // Literal, discouraged outside tests
	PassphraseEnv  string `yaml:"passphraseEnv"`  // Default UAPDF_KEYSTORE_PASSPHRASE
	KeyringService string `yaml:"keyringService"` // OS keyring service name
	KeyringItem    string `yaml:"keyringItem"`    // OS keyring item key
}

// SignatureConfig defines the signing phase.
type SignatureConfig struct {
	Input           string    `yaml:"input"`  // PDF to sign (empty = render output)
	Output          string    `yaml:"output"` // Signed PDF path
	Name            string    `yaml:"name"`   // Signer name (empty = certificate CN)
	Reason          string    `yaml:"reason"`
	Location        string    `yaml:"location"`
	ContactInfo     string    `yaml:"contactInfo"`
	FieldName       string    `yaml:"fieldName"`
	AlternativeName string    `yaml:"alternativeName"` // Field tooltip (empty = field name)
	Page            int       `yaml:"page"`            // 1-based, 0 = last page
	Rect            []float64 `yaml:"rect"`            // llx, lly, urx, ury
	Certification   string    `yaml:"certification"`   // see pdfsig.ParseCertificationLevel
	Digest          string    `yaml:"digest"`          // sha256, sha384, sha512
}

// TimeoutDuration parses Render.Timeout. Zero means unset.
func (r RenderConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: render.timeout %q: %v", ErrInvalidValue, r.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: render.timeout must be positive, got %s", ErrInvalidValue, d)
	}
	return d, nil
}

// SignInput returns the PDF the signing phase reads.
func (c *Config) SignInput() string {
	if c.Signature.Input != "" {
		return c.Signature.Input
	}
	return c.Render.Output
}

// Validate checks field lengths and enumerations.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., library users).
func (c *Config) Validate() error {
	lengths := []struct {
		name  string
		value string
		max   int
	}{
		{"render.html", c.Render.HTML, MaxPathLength},
		{"render.markdown", c.Render.Markdown, MaxPathLength},
		{"render.sample", c.Render.Sample, MaxSampleLength},
		{"render.font", c.Render.Font, MaxPathLength},
		{"render.fontFamily", c.Render.FontFamily, MaxFamilyLength},
		{"render.title", c.Render.Title, MaxTitleLength},
		{"render.lang", c.Render.Lang, MaxLangLength},
		{"render.output", c.Render.Output, MaxPathLength},
		{"render.timeout", c.Render.Timeout, MaxDurationLength},
		{"render.page.size", c.Render.Page.Size, MaxPageSizeLength},
		{"render.page.orientation", c.Render.Page.Orientation, MaxOrientationLen},
		{"keystore.path", c.Keystore.Path, MaxPathLength},
		{"keystore.passphraseEnv", c.Keystore.PassphraseEnv, MaxEnvNameLength},
		{"keystore.keyringService", c.Keystore.KeyringService, MaxKeyringLength},
		{"keystore.keyringItem", c.Keystore.KeyringItem, MaxKeyringLength},
		{"signature.input", c.Signature.Input, MaxPathLength},
		{"signature.output", c.Signature.Output, MaxPathLength},
		{"signature.name", c.Signature.Name, MaxSignerNameLength},
		{"signature.reason", c.Signature.Reason, MaxReasonLength},
		{"signature.location", c.Signature.Location, MaxLocationLength},
		{"signature.contactInfo", c.Signature.ContactInfo, MaxContactLength},
		{"signature.fieldName", c.Signature.FieldName, MaxFieldNameLength},
		{"signature.alternativeName", c.Signature.AlternativeName, MaxFieldNameLength},
		{"signature.certification", c.Signature.Certification, MaxLevelLength},
		{"signature.digest", c.Signature.Digest, MaxDigestLength},
	}
	for _, f := range lengths {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Render.HTML != "" && c.Render.Markdown != "" {
		return fmt.Errorf("%w: render.html and render.markdown are mutually exclusive", ErrInvalidValue)
	}
	if _, err := c.Render.TimeoutDuration(); err != nil {
		return err
	}
	if c.Render.Page.Orientation != "" {
		switch strings.ToLower(c.Render.Page.Orientation) {
		case "portrait", "landscape":
		default:
			return fmt.Errorf("%w: render.page.orientation %q (must be portrait or landscape)", ErrInvalidValue, c.Render.Page.Orientation)
		}
	}
	if c.Render.Page.Margin < 0 {
		return fmt.Errorf("%w: render.page.margin must not be negative, got %.2f", ErrInvalidValue, c.Render.Page.Margin)
	}

	if strings.Contains(c.Signature.FieldName, ".") {
		return fmt.Errorf("%w: signature.fieldName %q must not contain '.'", ErrInvalidValue, c.Signature.FieldName)
	}
	if c.Signature.Page < 0 {
		return fmt.Errorf("%w: signature.page must be 0 (last) or positive, got %d", ErrInvalidValue, c.Signature.Page)
	}
	if r := c.Signature.Rect; len(r) != 0 {
		if len(r) != 4 {
			return fmt.Errorf("%w: signature.rect needs 4 numbers, got %d", ErrInvalidValue, len(r))
		}
		if r[2] < r[0] || r[3] < r[1] {
			return fmt.Errorf("%w: signature.rect upper-right must not be below or left of lower-left", ErrInvalidValue)
		}
	}
	if d := c.Signature.Digest; d != "" {
		switch strings.ToLower(d) {
		case "sha256", "sha384", "sha512":
		default:
			return fmt.Errorf("%w: signature.digest %q (must be sha256, sha384 or sha512)", ErrInvalidValue, d)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration of the reference workflow:
// embedded sample document, unsigned.pdf then signed.pdf, a certifying
// signature in the lower-left corner of the last page.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Output: DefaultRenderOutput,
		},
		Keystore: KeystoreConfig{
			PassphraseEnv: DefaultPassEnv,
		},
		Signature: SignatureConfig{
			Output:        DefaultSignOutput,
			Reason:        DefaultReason,
			Location:      DefaultLocation,
			FieldName:     DefaultFieldName,
			Rect:          append([]float64(nil), DefaultRect...),
			Certification: DefaultCertLevel,
			Digest:        DefaultDigest,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	cfg.Signature.Rect = nil
	if err := yamlutil.DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if cfg.Signature.Rect == nil {
		cfg.Signature.Rect = append([]float64(nil), DefaultRect...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides values from environment variables read through getenv.
// Recognized: UAPDF_KEYSTORE, UAPDF_FONT, UAPDF_OUTPUT, UAPDF_SIGNED_OUTPUT.
// The passphrase itself is never read here; see keystore.Passphrase.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("UAPDF_KEYSTORE"); v != "" {
		c.Keystore.Path = v
	}
	if v := getenv("UAPDF_FONT"); v != "" {
		c.Render.Font = v
	}
	if v := getenv("UAPDF_OUTPUT"); v != "" {
		c.Render.Output = v
	}
	if v := getenv("UAPDF_SIGNED_OUTPUT"); v != "" {
		c.Signature.Output = v
	}
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-uapdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-uapdf", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// SearchedPaths lists where resolveConfigPath looks for name, for hints.
func SearchedPaths(name string) []string {
	paths := []string{name + ".yaml", name + ".yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "go-uapdf", name+".yaml"),
			filepath.Join(dir, "go-uapdf", name+".yml"))
	}
	return paths
}
