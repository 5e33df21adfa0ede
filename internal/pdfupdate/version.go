package pdfupdate

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/digitorus/pdf"
)

// DocumentVersion is the PDF version written documents declare. Tagged
// output, /Perms and /Tabs all need at least this version.
const DocumentVersion = "1.7"

// HeaderVersion returns the version from the "%PDF-x.y" file header, or ""
// when the header is missing or malformed.
func HeaderVersion(data []byte) string {
	const prefix = "%PDF-"
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ""
	}
	rest := data[len(prefix):]
	end := bytes.IndexAny(rest, "\r\n \t%")
	if end < 0 || end > 8 {
		return ""
	}
	return string(rest[:end])
}

// Version returns the effective version of the base file: the later of the
// header version and the catalog /Version entry.
func (u *Update) Version() string {
	v := HeaderVersion(u.base)
	if cv := u.Catalog().Key("Version"); cv.Kind() == pdf.Name && VersionBefore(v, cv.Name()) {
		v = cv.Name()
	}
	return v
}

// VersionBefore reports whether version v is earlier than want. An
// unparsable v counts as earlier than any valid version.
func VersionBefore(v, want string) bool {
	vMajor, vMinor, ok := parseVersion(v)
	if !ok {
		_, _, wantOK := parseVersion(want)
		return wantOK
	}
	wMajor, wMinor, ok := parseVersion(want)
	if !ok {
		return false
	}
	if vMajor != wMajor {
		return vMajor < wMajor
	}
	return vMinor < wMinor
}

func parseVersion(v string) (major, minor int, ok bool) {
	a, b, found := strings.Cut(v, ".")
	if !found {
		return 0, 0, false
	}
	major, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(b)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
