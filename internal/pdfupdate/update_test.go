package pdfupdate

// Notes:
// - Every update is re-parsed with the same reader the production code uses;
//   the property under test is "base bytes untouched, new revision readable".
// - Both cross-reference flavours are covered because incremental sections
//   must match the form of the section they chain to.

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/digitorus/pdf"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-uapdf/internal/fixture"
)

func reparse(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return rdr
}

// ---------------------------------------------------------------------------
// TestUpdate_ReplaceCatalog - Round trip through both xref forms
// ---------------------------------------------------------------------------

func TestUpdate_ReplaceCatalog(t *testing.T) {
	t.Parallel()

	for _, xrefStream := range []bool{false, true} {
		name := "xref table"
		if xrefStream {
			name = "xref stream"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			base := fixture.Build(fixture.Options{Pages: 2, Tagged: true, XrefStream: xrefStream})
			u, err := Open(base)
			require.NoError(t, err)
			require.Equal(t, xrefStream, u.xrefStream)

			catalog := u.Catalog()
			var body bytes.Buffer
			require.NoError(t, WriteDict(&body, catalog, RefOf(catalog), map[string]string{
				"ViewerPreferences": "<< /DisplayDocTitle true >>",
			}))
			u.Set(RefOf(catalog), body.Bytes())

			out, err := u.Bytes()
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(out.Data, base), "base bytes must be preserved")
			require.GreaterOrEqual(t, out.Offset(RefOf(catalog)), len(base))

			rdr := reparse(t, out.Data)
			root := rdr.Trailer().Key("Root")
			require.True(t, root.Key("ViewerPreferences").Key("DisplayDocTitle").Bool())
			require.Equal(t, "StructTreeRoot", root.Key("StructTreeRoot").Key("Type").Name())
			require.True(t, root.Key("MarkInfo").Key("Marked").Bool())
			require.Equal(t, 2, rdr.NumPage())
			require.Equal(t, "Test document", rdr.Trailer().Key("Info").Key("Title").Text())
		})
	}
}

func TestUpdate_AllocAndNewObjects(t *testing.T) {
	t.Parallel()

	base := fixture.Build(fixture.Options{})
	u, err := Open(base)
	require.NoError(t, err)

	size := reparse(t, base).Trailer().Key("Size").Int64()
	ref := u.Alloc()
	require.Equal(t, uint32(size), ref.ID)
	require.Equal(t, ref.ID+1, u.Alloc().ID)

	catalog := u.Catalog()
	var body bytes.Buffer
	require.NoError(t, WriteDict(&body, catalog, RefOf(catalog), map[string]string{"Extra": ref.String()}))
	u.Set(ref, []byte("<< /Marker (present) >>"))
	u.Set(RefOf(catalog), body.Bytes())

	out, err := u.Bytes()
	require.NoError(t, err)

	rdr := reparse(t, out.Data)
	require.Equal(t, "present", rdr.Trailer().Key("Root").Key("Extra").Key("Marker").Text())
	require.Equal(t, -1, out.Offset(Ref{ID: 9999}))
}

func TestUpdate_ChainedUpdates(t *testing.T) {
	t.Parallel()

	data := fixture.Build(fixture.Options{})
	for i := 0; i < 2; i++ {
		u, err := Open(data)
		require.NoError(t, err)

		catalog := u.Catalog()
		var body bytes.Buffer
		require.NoError(t, WriteDict(&body, catalog, RefOf(catalog), map[string]string{
			"Revision": strings.Repeat("1", i+1),
		}))
		u.Set(RefOf(catalog), body.Bytes())

		out, err := u.Bytes()
		require.NoError(t, err)
		data = out.Data
	}

	rdr := reparse(t, data)
	require.Equal(t, int64(11), rdr.Trailer().Key("Root").Key("Revision").Int64())
}

func TestUpdate_Bytes_Empty(t *testing.T) {
	t.Parallel()

	u, err := Open(fixture.Build(fixture.Options{}))
	require.NoError(t, err)

	_, err = u.Bytes()
	require.Error(t, err)
}

func TestUpdate_Page(t *testing.T) {
	t.Parallel()

	u, err := Open(fixture.Build(fixture.Options{Pages: 3}))
	require.NoError(t, err)
	require.Equal(t, 3, u.NumPages())

	page, err := u.Page(3)
	require.NoError(t, err)
	require.Equal(t, "Page", page.Key("Type").Name())

	for _, n := range []int{0, 4, -1} {
		_, err := u.Page(n)
		require.True(t, errors.Is(err, ErrPageRange), "page %d: %v", n, err)
	}
}

// ---------------------------------------------------------------------------
// TestOpen - Malformed input
// ---------------------------------------------------------------------------

func TestOpen_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not a PDF", data: []byte("hello world")},
		{name: "truncated", data: fixture.Build(fixture.Options{})[:200]},
		{name: "empty", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Open(tt.data)
			require.Error(t, err)
		})
	}
}

func TestFindStartXref(t *testing.T) {
	t.Parallel()

	off, err := findStartXref([]byte("%PDF-1.4\n....\nstartxref\n9\n%%EOF\n"))
	require.NoError(t, err)
	require.Equal(t, int64(9), off)

	_, err = findStartXref([]byte("%PDF-1.4\n%%EOF\n"))
	require.ErrorIs(t, err, ErrNoStartXref)

	_, err = findStartXref([]byte("startxref\n99999\n%%EOF"))
	require.ErrorIs(t, err, ErrNoStartXref)
}

// ---------------------------------------------------------------------------
// Encoding helpers
// ---------------------------------------------------------------------------

func TestName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/Signature", Name("Signature"))
	require.Equal(t, "/A#20B", Name("A B"))
	require.Equal(t, "/x#2Fy#23", Name("x/y#"))
}

func TestTextString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "(I am the author \\(me\\))", TextString("I am the author (me)"))
	require.Equal(t, "<FEFF00E9>", TextString("é"))
	require.Equal(t, "(a\\\\b)", LiteralString([]byte(`a\b`)))
}

func TestDate(t *testing.T) {
	t.Parallel()

	utc := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	require.Equal(t, "(D:20261019083000Z)", Date(utc))

	cet := time.Date(2026, 1, 2, 15, 4, 5, 0, time.FixedZone("CET", 3600))
	require.Equal(t, "(D:20260102150405+01'00')", Date(cet))

	west := time.Date(2026, 1, 2, 15, 4, 5, 0, time.FixedZone("X", -(3*3600+30*60)))
	require.Equal(t, "(D:20260102150405-03'30')", Date(west))
}

func TestStream(t *testing.T) {
	t.Parallel()

	got := string(Stream("/Type /Metadata", []byte("abc")))
	require.Equal(t, "<< /Type /Metadata /Length 3 >>\nstream\nabc\nendstream", got)
}

func TestHexStringAndReal(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<00FF10>", HexString([]byte{0x00, 0xff, 0x10}))
	require.Equal(t, "200", Real(200))
	require.Equal(t, "0.5", Real(0.5))
}

// ---------------------------------------------------------------------------
// TestVersion - Header, catalog and comparison
// ---------------------------------------------------------------------------

func TestHeaderVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"%PDF-1.7\n", "1.7"},
		{"%PDF-2.0\r\n", "2.0"},
		{"%PDF-1.4%comment", "1.4"},
		{"garbage", ""},
		{"%PDF-" + strings.Repeat("9", 20), ""},
	}
	for _, tt := range tests {
		if got := HeaderVersion([]byte(tt.in)); got != tt.want {
			t.Errorf("HeaderVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionBefore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v, want string
		before  bool
	}{
		{"1.4", "1.7", true},
		{"1.7", "1.7", false},
		{"1.10", "1.7", false},
		{"2.0", "1.7", false},
		{"1.7", "2.0", true},
		{"", "1.7", true},
		{"x.y", "1.7", true},
		{"1.4", "", false},
	}
	for _, tt := range tests {
		if got := VersionBefore(tt.v, tt.want); got != tt.before {
			t.Errorf("VersionBefore(%q, %q) = %v, want %v", tt.v, tt.want, got, tt.before)
		}
	}
}

func TestUpdate_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts fixture.Options
		want string
	}{
		{name: "header only", opts: fixture.Options{}, want: "1.4"},
		{name: "catalog raises", opts: fixture.Options{Version: "1.7"}, want: "1.7"},
		{name: "catalog lower than header", opts: fixture.Options{Header: "1.7", Version: "1.3"}, want: "1.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := Open(fixture.Build(tt.opts))
			require.NoError(t, err)
			require.Equal(t, tt.want, u.Version())
		})
	}
}
