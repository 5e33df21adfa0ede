package uapdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/alnah/go-uapdf/internal/fileutil"
	"github.com/alnah/go-uapdf/internal/pdfsig"
	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// MaxInputSize bounds the documents Sign and Verify read into memory.
const MaxInputSize = 512 << 20

// Sign appends a signature to the PDF read from in and writes the complete
// signed document to w. The input bytes are reproduced unchanged, followed
// by one incremental update; the signature covers everything but its own
// /Contents value.
func Sign(ctx context.Context, in io.ReaderAt, size int64, id *Identity, d SignatureDescriptor, w io.Writer) (*SignResult, error) {
	return sign(ctx, in, size, id, d, w, zerolog.Nop())
}

func sign(ctx context.Context, in io.ReaderAt, size int64, id *Identity, d SignatureDescriptor, w io.Writer, log zerolog.Logger) (*SignResult, error) {
	if id == nil || id.Signer == nil || id.Certificate == nil {
		return nil, fmt.Errorf("%w: no signing identity", ErrInvalidDescriptor)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := readAll(in, size)
	if err != nil {
		return nil, err
	}

	altName := d.AlternativeName
	if altName == "" {
		altName = d.FieldName
	}
	name := d.Name
	if name == "" {
		name = id.Certificate.Subject.CommonName
	}

	res, err := pdfsig.Sign(base, pdfsig.Options{
		Signer:          id.Signer,
		Certificate:     id.Certificate,
		Chain:           id.issuers(),
		Name:            name,
		Reason:          d.Reason,
		Location:        d.Location,
		ContactInfo:     d.ContactInfo,
		FieldName:       d.FieldName,
		AlternativeName: altName,
		Page:            d.Page,
		Rect:            pdfsig.Rect(d.Rect),
		Digest:          d.Digest,
		Certification:   d.Certification,
		SigningTime:     d.SigningTime,
	})
	if err != nil {
		return nil, mapSignError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := w.Write(res.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: writing signed PDF: %v", ErrIO, err)
	}

	log.Info().
		Str("field", res.FieldName).
		Int("page", res.Page).
		Stringer("certification", d.Certification).
		Str("signer", id.Certificate.Subject.String()).
		Msg("signed")

	return &SignResult{
		FieldName:     res.FieldName,
		Page:          res.Page,
		Certification: d.Certification,
		ByteRange:     res.ByteRange,
		Signer:        id.Certificate.Subject.String(),
		Size:          n,
	}, nil
}

// SignFile signs the PDF at inPath into outPath. outPath is replaced
// atomically and may equal inPath.
func SignFile(ctx context.Context, inPath, outPath string, id *Identity, d SignatureDescriptor, opts ...Option) (*SignResult, error) {
	o := newOptions(opts)

	f, err := os.Open(inPath) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	if d.SigningTime.IsZero() {
		d.SigningTime = o.now()
	}

	var result *SignResult
	err = fileutil.WriteAtomic(outPath, func(w io.Writer) error {
		var err error
		result, err = sign(ctx, f, info.Size(), id, d, w, o.logger)
		return err
	})
	if err != nil {
		if !isLibraryError(err) {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return nil, err
	}
	return result, nil
}

func readAll(in io.ReaderAt, size int64) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty input", ErrSigning)
	}
	if size > MaxInputSize {
		return nil, fmt.Errorf("%w: input of %d bytes exceeds %d", ErrIO, size, MaxInputSize)
	}
	data, err := io.ReadAll(io.NewSectionReader(in, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: reading input: %v", ErrIO, err)
	}
	return data, nil
}

func mapSignError(err error) error {
	switch {
	case errors.Is(err, pdfsig.ErrFieldExists),
		errors.Is(err, pdfsig.ErrAlreadyCertified),
		errors.Is(err, pdfsig.ErrAlreadySigned),
		errors.Is(err, pdfupdate.ErrPageRange):
		return fmt.Errorf("%w: %v", ErrState, err)
	case errors.Is(err, pdfsig.ErrInvalidOptions),
		errors.Is(err, pdfsig.ErrUnsupportedDigest):
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	default:
		// malformed input, key mismatch, CMS failure
		return fmt.Errorf("%w: %v", ErrSigning, err)
	}
}
