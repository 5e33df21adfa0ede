package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
	"github.com/alnah/go-uapdf/internal/fonts"
	"github.com/alnah/go-uapdf/internal/keystore"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Signing  signingInfo `json:"signing"`
	Font     fontInfo    `json:"font"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// signingInfo holds key store readiness. The key store is only opened when
// a passphrase is available without prompting.
type signingInfo struct {
	Keystore      string `json:"keystore,omitempty"`
	Found         bool   `json:"found"`
	PassphraseEnv string `json:"passphrase_env"`
	PassphraseSet bool   `json:"passphrase_set"`
	Opened        bool   `json:"opened"`
	Signer        string `json:"signer,omitempty"`
}

// fontInfo holds the configured font check.
type fontInfo struct {
	Path   string `json:"path,omitempty"`
	Family string `json:"family,omitempty"`
	Valid  bool   `json:"valid"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	configName := ""
	for i, arg := range args {
		switch {
		case arg == "--json":
			jsonOutput = true
		case (arg == "--config" || arg == "-c") && i+1 < len(args):
			configName = args[i+1]
		case strings.HasPrefix(arg, "--config="):
			configName = strings.TrimPrefix(arg, "--config=")
		}
	}

	cfg, err := loadConfig(commonFlags{config: configName}, env)
	result := runDoctor(env, cfg)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		result.Status = "errors"
	}

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks. cfg may be nil.
func runDoctor(env *Environment, cfg *config.Config) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkChrome(result)
	checkEnvironment(result, env.Getenv)
	checkSystem(result)
	if cfg != nil {
		checkSigning(result, cfg, env)
		checkFont(result, cfg)
	}

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		// Use rod's launcher to locate Chrome
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- path comes from rod or ROD_BROWSER_BIN
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, getenv func(string) string) {
	result.Env.Container, result.Env.ContainerHint = isContainer(getenv)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("UAPDF_CONTAINER") == "1" {
		return true, "UAPDF_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "uapdf-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// checkSigning reports whether the configured key store can be opened.
// A missing key store is a warning: render works without one.
func checkSigning(result *doctorResult, cfg *config.Config, env *Environment) {
	s := &result.Signing
	s.Keystore = cfg.Keystore.Path
	s.PassphraseEnv = cfg.Keystore.PassphraseEnv
	if s.PassphraseEnv == "" {
		s.PassphraseEnv = keystore.DefaultPassphraseEnv
	}
	s.PassphraseSet = cfg.Keystore.Passphrase != "" || env.Getenv(s.PassphraseEnv) != ""

	if s.Keystore == "" {
		result.Warnings = append(result.Warnings,
			"No key store configured. Set UAPDF_KEYSTORE or keystore.path to sign")
		return
	}
	if _, err := os.Stat(s.Keystore); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Key store not found at %s", s.Keystore))
		return
	}
	s.Found = true

	// Keyring lookups may prompt; leave them to the sign command.
	if cfg.Keystore.KeyringItem != "" || !s.PassphraseSet {
		return
	}

	secret, err := passphraseSource(cfg).Resolve(env.Getenv, nil)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Passphrase: %v", err))
		return
	}
	defer keystore.Zeroize(secret)

	id, err := uapdf.LoadSigningIdentity(s.Keystore, secret)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Key store: %v", err))
		return
	}
	s.Opened = true
	s.Signer = id.Certificate.Subject.String()
}

// checkFont validates the configured font file, if any.
func checkFont(result *doctorResult, cfg *config.Config) {
	if cfg.Render.Font == "" {
		return
	}
	result.Font.Path = cfg.Render.Font

	var p fonts.Provider
	f, err := p.Add(cfg.Render.Font)
	if err != nil {
		msg := fmt.Sprintf("Font: %v", err)
		if cfg.Render.StrictFonts {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg+" (browser fallback fonts will be used)")
		}
		return
	}
	result.Font.Valid = true
	result.Font.Family = f.Family
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "uapdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Signing")
	switch {
	case r.Signing.Keystore == "":
		fmt.Fprintln(w, "  [WARN] Key store: not configured")
	case r.Signing.Opened:
		fmt.Fprintf(w, "  [OK] Key store: %s\n", r.Signing.Keystore)
		fmt.Fprintf(w, "  [OK] Signer: %s\n", r.Signing.Signer)
	case r.Signing.Found:
		fmt.Fprintf(w, "  [OK] Key store: %s (not opened)\n", r.Signing.Keystore)
	default:
		fmt.Fprintf(w, "  [ERROR] Key store: %s missing\n", r.Signing.Keystore)
	}
	if r.Signing.PassphraseSet {
		fmt.Fprintf(w, "  [OK] Passphrase: available (%s)\n", r.Signing.PassphraseEnv)
	} else {
		fmt.Fprintf(w, "  [WARN] Passphrase: %s not set\n", r.Signing.PassphraseEnv)
	}
	if r.Font.Path != "" {
		if r.Font.Valid {
			fmt.Fprintf(w, "  [OK] Font: %s (%s)\n", r.Font.Path, r.Font.Family)
		} else {
			fmt.Fprintf(w, "  [WARN] Font: %s unusable\n", r.Font.Path)
		}
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render and sign")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
