// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-uapdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-uapdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-uapdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForFont returns hints for font registration errors.
func ForFont() string {
	return format("supported formats: TrueType (.ttf), OpenType (.otf); the file must be readable")
}

// ForUnresolvedFont returns hints when declared families did not resolve to a registered font.
func ForUnresolvedFont(families []string) string {
	if len(families) == 0 {
		return ""
	}
	return format("register a file for " + strings.Join(families, ", ") + " with --font, or drop --strict-fonts")
}

// ForPassphrase returns hints for missing keystore passphrases.
func ForPassphrase(envName string) string {
	return format("set " + envName + ", use --keyring-service/--keyring-item, or pass --passphrase")
}

// ForAuthentication returns hints for keystores that could not be opened.
func ForAuthentication() string {
	return format("check the passphrase; the keystore must be a PKCS#12 (.p12/.pfx) file")
}

// ForIdentity returns hints for keystores without a usable signing identity.
func ForIdentity() string {
	return format("the keystore must hold exactly one private key with its certificate")
}

// ForState returns hints for documents whose signature state forbids the operation.
func ForState() string {
	return format("sign the unsigned rendering, or use --certification not-certified for an approval signature")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
