package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alnah/go-uapdf"
)

// ErrVerification indicates a signature or its chain did not verify.
var ErrVerification = fmt.Errorf("%w: verification failed", uapdf.ErrSigning)

// signatureReport is the JSON shape of one verified signature.
type signatureReport struct {
	Field         string    `json:"field"`
	Signer        string    `json:"signer"`
	Name          string    `json:"name,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Location      string    `json:"location,omitempty"`
	ContactInfo   string    `json:"contact_info,omitempty"`
	SigningTime   time.Time `json:"signing_time,omitzero"`
	Certification string    `json:"certification"`
	ByteRange     [4]int64  `json:"byte_range"`
	Valid         bool      `json:"valid"`
	ChainValid    bool      `json:"chain_valid"`
	ModifiedAfter bool      `json:"modified_after"`
	Error         string    `json:"error,omitempty"`
}

// verifyReport is the JSON shape of the verify command.
type verifyReport struct {
	File          string              `json:"file"`
	Valid         bool                `json:"valid"`
	Signatures    []signatureReport   `json:"signatures"`
	Accessibility uapdf.Accessibility `json:"accessibility"`
}

// runVerifyCmd checks the signatures and PDF/UA declaration of a file.
func runVerifyCmd(_ context.Context, args []string, env *Environment) error {
	flags, positional, err := parseVerifyFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: verify takes exactly one PDF", ErrUsage)
	}
	path := positional[0]

	res, err := uapdf.VerifyFile(path)
	if errors.Is(err, uapdf.ErrNotFound) {
		// an unsigned document is a verification outcome, not a key store problem
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if err != nil {
		return err
	}

	report := newVerifyReport(path, res)
	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("%w: %v", uapdf.ErrIO, err)
		}
	} else if !flags.common.quiet {
		printVerifyReport(env.Stdout, report)
	}

	if !report.Valid {
		return ErrVerification
	}
	return nil
}

func newVerifyReport(path string, res *uapdf.VerifyResult) verifyReport {
	report := verifyReport{
		File:          path,
		Valid:         res.Valid(),
		Signatures:    make([]signatureReport, 0, len(res.Signatures)),
		Accessibility: res.Accessibility,
	}
	for _, s := range res.Signatures {
		sr := signatureReport{
			Field:         s.FieldName,
			Name:          s.Name,
			Reason:        s.Reason,
			Location:      s.Location,
			ContactInfo:   s.ContactInfo,
			SigningTime:   s.SigningTime,
			Certification: s.Certification.String(),
			ByteRange:     s.ByteRange,
			Valid:         s.Valid,
			ChainValid:    s.ChainValid,
			ModifiedAfter: s.ModifiedAfter,
		}
		if s.Signer != nil {
			sr.Signer = s.Signer.Subject.String()
		}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		report.Signatures = append(report.Signatures, sr)
	}
	return report
}

func printVerifyReport(w io.Writer, r verifyReport) {
	fmt.Fprintf(w, "%s\n\n", r.File)

	for i, s := range r.Signatures {
		fmt.Fprintf(w, "Signature %d: %s\n", i+1, s.Field)
		fmt.Fprintf(w, "  Signer:        %s\n", s.Signer)
		if !s.SigningTime.IsZero() {
			fmt.Fprintf(w, "  Signed at:     %s\n", s.SigningTime.Format(time.RFC3339))
		}
		if s.Reason != "" {
			fmt.Fprintf(w, "  Reason:        %s\n", s.Reason)
		}
		if s.Location != "" {
			fmt.Fprintf(w, "  Location:      %s\n", s.Location)
		}
		fmt.Fprintf(w, "  Certification: %s\n", s.Certification)
		fmt.Fprintf(w, "  %s Signature\n", status(s.Valid))
		fmt.Fprintf(w, "  %s Certificate chain\n", status(s.ChainValid))
		if s.ModifiedAfter {
			fmt.Fprintln(w, "  [INFO] Document was updated after this signature")
		}
		if s.Error != "" {
			fmt.Fprintf(w, "  [ERROR] %s\n", s.Error)
		}
		fmt.Fprintln(w)
	}

	a := r.Accessibility
	fmt.Fprintln(w, "Accessibility")
	fmt.Fprintf(w, "  %s Tagged (structure tree)\n", status(a.Tagged))
	fmt.Fprintf(w, "  %s Marked content\n", status(a.Marked))
	fmt.Fprintf(w, "  %s Display document title\n", status(a.DisplayDocTitle))
	fmt.Fprintf(w, "  %s PDF/UA part %d declared\n", status(a.UAPart == 1), a.UAPart)
	fmt.Fprintf(w, "  Title: %q, Lang: %q, Pages: %d\n", a.Title, a.Lang, a.Pages)
	fmt.Fprintln(w)

	if r.Valid {
		fmt.Fprintln(w, "Status: All signatures valid")
	} else {
		fmt.Fprintln(w, "Status: Verification failed")
	}
}

func status(ok bool) string {
	if ok {
		return "[OK]   "
	}
	return "[ERROR]"
}
