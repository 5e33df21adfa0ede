package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alnah/go-uapdf/internal/assets"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render HTML or Markdown to a tagged PDF/UA file")
	fmt.Fprintln(w, "  sign       Sign a PDF with a PKCS#12 key store")
	fmt.Fprintln(w, "  run        Render, then sign the result")
	fmt.Fprintln(w, "  verify     Check the signatures and PDF/UA declaration of a PDF")
	fmt.Fprintln(w, "  doctor     Check Chrome, key store and font setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'uapdf help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>         Config file name or path (or UAPDF_CONFIG)")
	fmt.Fprintln(w, "  -q, --quiet                 Only show errors")
	fmt.Fprintln(w, "  -v, --verbose               Show debug logs")
}

func printRenderFlagsUsage(w io.Writer) {
	fmt.Fprintln(w, "Render:")
	fmt.Fprintln(w, "  -o, --output <path>         Unsigned PDF (default: unsigned.pdf)")
	fmt.Fprintln(w, "      --markdown <path>       Markdown source instead of HTML")
	fmt.Fprintf(w, "      --sample <name>         Sample used without input: %s\n", strings.Join(assets.SampleNames(), ", "))
	fmt.Fprintln(w, "  -f, --font <path>           TrueType/OpenType file to embed (or UAPDF_FONT)")
	fmt.Fprintln(w, "      --font-family <s>       Family the markup uses for --font")
	fmt.Fprintln(w, "      --strict-fonts          Fail when a font cannot be resolved")
	fmt.Fprintln(w, "      --title <s>             Document title (\"\" = <title> or first heading)")
	fmt.Fprintln(w, "      --lang <s>              Document language (\"\" = <html lang>, then en)")
	fmt.Fprintln(w, "  -t, --timeout <d>           Page load timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>         Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>       Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>            Margin in inches (0.25-3.0)")
}

func printSignFlagsUsage(w io.Writer) {
	fmt.Fprintln(w, "Key Store:")
	fmt.Fprintln(w, "  -k, --keystore <path>       PKCS#12 key store (or UAPDF_KEYSTORE)")
	fmt.Fprintln(w, "      --passphrase-env <s>    Variable holding the passphrase")
	fmt.Fprintln(w, "                              (default: UAPDF_KEYSTORE_PASSPHRASE)")
	fmt.Fprintln(w, "      --keyring-service <s>   OS keyring service holding the passphrase")
	fmt.Fprintln(w, "      --keyring-item <s>      OS keyring item holding the passphrase")
	fmt.Fprintln(w, "      --passphrase <s>        Literal passphrase (visible in process lists)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signature:")
	fmt.Fprintln(w, "      --signer-name <s>       Signer name (\"\" = certificate common name)")
	fmt.Fprintln(w, "      --reason <s>            Reason (default: I am the author of this document)")
	fmt.Fprintln(w, "      --location <s>          Location (default: Earth)")
	fmt.Fprintln(w, "      --contact <s>           Contact information")
	fmt.Fprintln(w, "      --field <s>             Field name (default: Signature)")
	fmt.Fprintln(w, "      --field-description <s> Accessible field description")
	fmt.Fprintln(w, "      --sig-page <n>          Widget page, 1-based (default: last page)")
	fmt.Fprintln(w, "      --rect <f,f,f,f>        Widget rectangle in points (default: 0,0,200,100)")
	fmt.Fprintln(w, "      --certification <s>     not-certified, no-changes, form-filling,")
	fmt.Fprintln(w, "                              form-filling-and-annotations (default)")
	fmt.Fprintln(w, "      --digest <s>            sha256 (default), sha384, sha512")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf render [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render HTML or Markdown to a tagged PDF declaring PDF/UA-1.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    HTML or Markdown file (.md, .markdown); default: built-in sample")
	fmt.Fprintln(w)
	printRenderFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printSignUsage prints usage for the sign command.
func printSignUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf sign [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Append a detached CMS signature to a PDF without altering its bytes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    PDF to sign (default: unsigned.pdf)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -o, --output <path>         Signed PDF (default: signed.pdf)")
	fmt.Fprintln(w)
	printSignFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printRunUsage prints usage for the run command.
func printRunUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf run [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render the input, then sign the rendered PDF. The unsigned PDF is kept")
	fmt.Fprintln(w, "when signing fails.")
	fmt.Fprintln(w)
	printRenderFlagsUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signed Output:")
	fmt.Fprintln(w, "  -s, --signed-output <path>  Signed PDF (default: signed.pdf)")
	fmt.Fprintln(w, "      --sign-input <path>     Sign this PDF instead of the rendered one")
	fmt.Fprintln(w)
	printSignFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printVerifyUsage prints usage for the verify command.
func printVerifyUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf verify <file.pdf> [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Verify every signature, its certificate chain and the PDF/UA declaration.")
	fmt.Fprintln(w, "Exits with 6 when any signature or chain fails to verify.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: uapdf doctor [--json] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, the environment, the key store and the configured font.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "sign":
		printSignUsage(env.Stdout)
	case "run":
		printRunUsage(env.Stdout)
	case "verify":
		printVerifyUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: uapdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: uapdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
