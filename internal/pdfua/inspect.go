package pdfua

import (
	"io"
	"regexp"
	"strconv"

	"github.com/digitorus/pdf"

	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// maxMetadataSize caps how much of the XMP stream Inspect reads.
const maxMetadataSize = 1 << 20

var partPattern = regexp.MustCompile(`<pdfuaid:part>\s*(\d+)\s*</pdfuaid:part>|pdfuaid:part="(\d+)"`)

// Report describes the accessibility-relevant document properties.
type Report struct {
	Version         string
	Pages           int
	Tagged          bool // catalog has a structure tree
	Marked          bool // /MarkInfo /Marked true
	DisplayDocTitle bool
	Title           string
	Lang            string
	Part            int // pdfuaid:part from XMP, 0 when absent
}

// Conforms reports whether every PDF/UA document-level requirement checked by
// Inspect holds.
func (r *Report) Conforms() bool {
	return r.Tagged && r.Marked && r.DisplayDocTitle && r.Title != "" && r.Lang != "" && r.Part == 1
}

// Inspect reads the document-level properties of data.
func Inspect(data []byte) (rep *Report, err error) {
	u, err := pdfupdate.Open(data)
	if err != nil {
		return nil, err
	}
	defer pdfupdate.Recover(&err)

	catalog := u.Catalog()
	rep = &Report{
		Version:         pdfupdate.HeaderVersion(data),
		Pages:           u.NumPages(),
		Tagged:          catalog.Key("StructTreeRoot").Kind() == pdf.Dict,
		Marked:          catalog.Key("MarkInfo").Key("Marked").Bool(),
		DisplayDocTitle: catalog.Key("ViewerPreferences").Key("DisplayDocTitle").Bool(),
		Title:           u.Reader().Trailer().Key("Info").Key("Title").Text(),
		Lang:            catalog.Key("Lang").Text(),
	}
	if v := catalog.Key("Version"); v.Kind() == pdf.Name {
		rep.Version = v.Name()
	}
	if meta := catalog.Key("Metadata"); meta.Kind() == pdf.Stream {
		rep.Part = metadataPart(meta)
	}
	return rep, nil
}

func metadataPart(meta pdf.Value) int {
	rc := meta.Reader()
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxMetadataSize))
	if err != nil {
		return 0
	}
	m := partPattern.FindSubmatch(data)
	if m == nil {
		return 0
	}
	digits := m[1]
	if len(digits) == 0 {
		digits = m[2]
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0
	}
	return n
}
