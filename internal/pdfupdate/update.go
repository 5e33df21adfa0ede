// Package pdfupdate appends incremental updates to existing PDF files.
//
// An update never rewrites bytes of the base file: new and replaced objects
// are written after the last %%EOF together with a cross-reference section
// that chains to the previous one through /Prev. The section is written in
// the same form (classic table or cross-reference stream) as the base file's
// latest section so readers that follow /Prev strictly can still parse it.
package pdfupdate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/digitorus/pdf"
)

// Sentinel errors for update operations.
var (
	ErrMalformed   = errors.New("malformed PDF")
	ErrNoStartXref = errors.New("startxref not found")
	ErrPageRange   = errors.New("page out of range")
)

// startxrefWindow is how far from the end of the file the startxref keyword is searched.
const startxrefWindow = 2048

// Ref identifies an indirect object.
type Ref struct {
	ID  uint32
	Gen uint16
}

// String renders the reference as it appears inside PDF objects ("12 0 R").
func (r Ref) String() string {
	return strconv.FormatUint(uint64(r.ID), 10) + " " + strconv.FormatUint(uint64(r.Gen), 10) + " R"
}

// IsZero reports whether r does not point to any object.
func (r Ref) IsZero() bool {
	return r.ID == 0
}

// RefOf returns the indirect object v was loaded from. Direct values report
// the reference of the object that contains them.
func RefOf(v pdf.Value) Ref {
	p := v.GetPtr()
	return Ref{ID: p.GetID(), Gen: p.GetGen()}
}

type object struct {
	ref  Ref
	body []byte
}

// Update collects objects for one incremental update of a base file.
type Update struct {
	base       []byte
	reader     *pdf.Reader
	nextID     uint32
	prevXref   int64
	xrefStream bool
	objects    map[Ref][]byte
}

// Open parses base and prepares an update on top of it.
// The base slice must not be modified while the Update is in use.
func Open(base []byte) (u *Update, err error) {
	defer Recover(&err)

	rdr, err := pdf.NewReader(bytes.NewReader(base), int64(len(base)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	prev, err := findStartXref(base)
	if err != nil {
		return nil, err
	}

	size := rdr.Trailer().Key("Size").Int64()
	if size <= 0 {
		return nil, fmt.Errorf("%w: trailer has no /Size", ErrMalformed)
	}
	if rdr.Trailer().Key("Root").Kind() != pdf.Dict {
		return nil, fmt.Errorf("%w: trailer has no /Root catalog", ErrMalformed)
	}

	section := bytes.TrimLeft(base[prev:], " \t\r\n")

	return &Update{
		base:       base,
		reader:     rdr,
		nextID:     uint32(size),
		prevXref:   prev,
		xrefStream: !bytes.HasPrefix(section, []byte("xref")),
		objects:    make(map[Ref][]byte),
	}, nil
}

// Recover converts a panic raised while walking a malformed object graph
// into ErrMalformed. The PDF reader reports lexical errors by panicking.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}

// Reader returns the parsed base document.
func (u *Update) Reader() *pdf.Reader {
	return u.reader
}

// Catalog returns the document catalog of the base file.
func (u *Update) Catalog() pdf.Value {
	return u.reader.Trailer().Key("Root")
}

// NumPages returns the page count of the base file.
func (u *Update) NumPages() int {
	return u.reader.NumPage()
}

// Page returns the page dictionary for the 1-based page number n.
func (u *Update) Page(n int) (pdf.Value, error) {
	if n < 1 || n > u.reader.NumPage() {
		return pdf.Value{}, fmt.Errorf("%w: page %d of %d", ErrPageRange, n, u.reader.NumPage())
	}
	return u.reader.Page(n).V, nil
}

// Alloc reserves a new object number.
func (u *Update) Alloc() Ref {
	ref := Ref{ID: u.nextID}
	u.nextID++
	return ref
}

// Set stores body (the content between "obj" and "endobj") for ref.
// Setting an existing reference of the base file replaces that object.
func (u *Update) Set(ref Ref, body []byte) {
	u.objects[ref] = body
}

// Output is the serialized file produced by an update.
type Output struct {
	Data    []byte
	offsets map[Ref]int
}

// Offset returns the byte offset of the "N G obj" header of ref, or -1 when
// ref was not part of the update.
func (o *Output) Offset(ref Ref) int {
	if off, ok := o.offsets[ref]; ok {
		return off
	}
	return -1
}

// Bytes serializes the base file followed by the update.
func (u *Update) Bytes() (*Output, error) {
	if len(u.objects) == 0 {
		return nil, errors.New("pdfupdate: no objects to write")
	}

	var buf bytes.Buffer
	buf.Grow(len(u.base) + 4096)
	buf.Write(u.base)
	if len(u.base) > 0 && u.base[len(u.base)-1] != '\n' {
		buf.WriteByte('\n')
	}

	objs := u.sortedObjects()
	offsets := make(map[Ref]int, len(objs)+1)
	for _, obj := range objs {
		offsets[obj.ref] = buf.Len()
		fmt.Fprintf(&buf, "%d %d obj\n", obj.ref.ID, obj.ref.Gen)
		buf.Write(obj.body)
		buf.WriteString("\nendobj\n")
	}

	trailer, err := u.trailerEntries()
	if err != nil {
		return nil, err
	}

	xrefOffset := buf.Len()
	if u.xrefStream {
		xrefRef := Ref{ID: u.nextID}
		offsets[xrefRef] = xrefOffset
		objs = append(objs, object{ref: xrefRef})
		writeXrefStream(&buf, objs, offsets, xrefRef, trailer)
	} else {
		writeXrefTable(&buf, objs, offsets, u.nextID, trailer)
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return &Output{Data: buf.Bytes(), offsets: offsets}, nil
}

func (u *Update) sortedObjects() []object {
	objs := make([]object, 0, len(u.objects))
	for ref, body := range u.objects {
		objs = append(objs, object{ref: ref, body: body})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ref.ID < objs[j].ref.ID })
	return objs
}

// trailerEntries carries /Root, /Info and /ID over from the base trailer and
// links back to the previous section.
func (u *Update) trailerEntries() (s string, err error) {
	defer Recover(&err)

	tr := u.reader.Trailer()
	var b strings.Builder
	fmt.Fprintf(&b, "/Root %s", RefOf(tr.Key("Root")))
	if info := tr.Key("Info"); info.Kind() == pdf.Dict {
		fmt.Fprintf(&b, " /Info %s", RefOf(info))
	}
	if id := tr.Key("ID"); id.Kind() == pdf.Array {
		var idBuf bytes.Buffer
		if err := WriteValue(&idBuf, id, Ref{}); err != nil {
			return "", err
		}
		b.WriteString(" /ID ")
		b.Write(idBuf.Bytes())
	}
	fmt.Fprintf(&b, " /Prev %d", u.prevXref)
	return b.String(), nil
}

func writeXrefTable(buf *bytes.Buffer, objs []object, offsets map[Ref]int, size uint32, trailer string) {
	buf.WriteString("xref\n")
	for start := 0; start < len(objs); {
		end := start + 1
		for end < len(objs) && objs[end].ref.ID == objs[end-1].ref.ID+1 {
			end++
		}
		fmt.Fprintf(buf, "%d %d\n", objs[start].ref.ID, end-start)
		for _, obj := range objs[start:end] {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[obj.ref], obj.ref.Gen)
		}
		start = end
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d %s >>\n", size, trailer)
}

func writeXrefStream(buf *bytes.Buffer, objs []object, offsets map[Ref]int, self Ref, trailer string) {
	var index strings.Builder
	data := make([]byte, 0, len(objs)*7)
	entry := make([]byte, 7)
	for i, obj := range objs {
		if i > 0 {
			index.WriteByte(' ')
		}
		fmt.Fprintf(&index, "%d 1", obj.ref.ID)
		entry[0] = 1
		binary.BigEndian.PutUint32(entry[1:5], uint32(offsets[obj.ref]))
		binary.BigEndian.PutUint16(entry[5:7], obj.ref.Gen)
		data = append(data, entry...)
	}

	fmt.Fprintf(buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Index [%s] %s /Length %d >>\nstream\n",
		self.ID, self.ID+1, index.String(), trailer, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream\nendobj\n")
}

// findStartXref returns the offset recorded after the last startxref keyword.
func findStartXref(data []byte) (int64, error) {
	tail := data
	if len(tail) > startxrefWindow {
		tail = tail[len(tail)-startxrefWindow:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXref
	}

	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: missing offset", ErrNoStartXref)
	}
	off, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || off < 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("%w: invalid offset %q", ErrNoStartXref, fields[0])
	}
	return off, nil
}
