// Package docx reads, edits and writes WordprocessingML packages.
//
// Only word/document.xml, its relationships and the content types part are
// parsed; every other part is carried through byte for byte. The parsed parts
// are held as lossless node trees so unknown markup survives a round trip.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-eform/internal/fileutil"
)

// Part names and namespaces used by the package.
const (
	MainPart         = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	documentRelsPart = "word/_rels/document.xml.rels"

	WordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relationshipsNS  = "http://schemas.openxmlformats.org/package/2006/relationships"
	ImageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// maxPartSize caps a single decompressed part.
const maxPartSize = 256 << 20

// Sentinel errors for package operations.
var (
	ErrOpen             = errors.New("cannot open document")
	ErrInvalidPackage   = errors.New("not a WordprocessingML package")
	ErrMalformedXML     = errors.New("malformed XML part")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrPartTooLarge     = errors.New("package part too large")
)

type part struct {
	name     string
	data     []byte
	modified time.Time
}

// Document is an editable WordprocessingML package.
type Document struct {
	parts  []*part
	index  map[string]*part
	xml    map[string]*Node
	nextID int
}

// Open reads the package at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- template path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return Parse(data)
}

// Parse reads a package held in memory.
func Parse(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read reads a package from r.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}

	d := &Document{
		index: make(map[string]*part, len(zr.File)),
		xml:   make(map[string]*Node, 3),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		p := &part{name: f.Name, data: data, modified: f.Modified}
		d.parts = append(d.parts, p)
		d.index[f.Name] = p
	}

	if _, ok := d.index[MainPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, MainPart)
	}
	if _, ok := d.index[contentTypesPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, contentTypesPart)
	}

	for _, name := range []string{MainPart, contentTypesPart, documentRelsPart} {
		p, ok := d.index[name]
		if !ok {
			continue
		}
		tree, err := ParseXML(p.data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		d.xml[name] = tree
	}

	root := d.Root()
	if root == nil || !root.Is("w:document") {
		return nil, fmt.Errorf("%w: root element is not w:document", ErrInvalidPackage)
	}
	if ns, _ := root.AttrValue("xmlns:w"); ns != WordprocessingNS {
		return nil, fmt.Errorf("%w: prefix w is not bound to the WordprocessingML namespace", ErrInvalidPackage)
	}
	if d.Body() == nil {
		return nil, fmt.Errorf("%w: missing w:body", ErrInvalidPackage)
	}

	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxPartSize {
		return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackage, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackage, f.Name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
	}
	return data, nil
}

// Root returns the w:document element.
func (d *Document) Root() *Node {
	return d.xml[MainPart].RootElement()
}

// Body returns the w:body element.
func (d *Document) Body() *Node {
	root := d.Root()
	if root == nil {
		return nil
	}
	return root.Child("w:body")
}

// Part returns the raw bytes of a package part.
func (d *Document) Part(name string) ([]byte, bool) {
	if tree, ok := d.xml[name]; ok {
		return tree.Bytes(), true
	}
	p, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return p.data, true
}

// Relationship resolves a relationship of the main part to the name of the
// part it targets. External targets are not resolved.
func (d *Document) Relationship(id string) (string, bool) {
	rels := d.xml[documentRelsPart]
	if rels == nil {
		return "", false
	}
	root := rels.RootElement()
	if root == nil {
		return "", false
	}
	for _, rel := range root.Children {
		if rel.Type != ElementNode || rel.Name.Local != "Relationship" {
			continue
		}
		if v, _ := rel.AttrValue("Id"); v != id {
			continue
		}
		if mode, _ := rel.AttrValue("TargetMode"); mode == "External" {
			return "", false
		}
		target, _ := rel.AttrValue("Target")
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/"), true
		}
		return path.Clean(path.Join("word", target)), true
	}
	return "", false
}

// imageContentTypes maps extensions accepted by AddImage to MIME types.
var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// ImageContentType returns the MIME type for an image extension.
func ImageContentType(ext string) (string, bool) {
	ct, ok := imageContentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ct, ok
}

// AddImage stores data as a new media part and returns the relationship id
// that references it from the main part.
func (d *Document) AddImage(data []byte, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	ct, ok := imageContentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, ext)
	}

	var name string
	for i := 1; ; i++ {
		name = "word/media/eform_image" + strconv.Itoa(i) + "." + ext
		if _, exists := d.index[name]; !exists {
			break
		}
	}
	p := &part{name: name, data: data, modified: time.Now()}
	d.parts = append(d.parts, p)
	d.index[name] = p

	d.ensureDefaultContentType(ext, ct)

	rels := d.relationships()
	id := nextRelID(rels)
	rels.AppendChild(NewElement("Relationship",
		"Id", id,
		"Type", ImageRelType,
		"Target", strings.TrimPrefix(name, "word/"),
	))
	return id, nil
}

// NextDrawingID returns an id unused by any wp:docPr in the main part.
func (d *Document) NextDrawingID() int {
	if d.nextID == 0 {
		for _, n := range d.Root().Find(Named("wp:docPr"), nil) {
			v, _ := n.AttrValue("id")
			if id, err := strconv.Atoi(v); err == nil && id > d.nextID {
				d.nextID = id
			}
		}
	}
	d.nextID++
	return d.nextID
}

func (d *Document) relationships() *Node {
	tree := d.xml[documentRelsPart]
	if tree == nil {
		tree = &Node{Type: DocumentNode}
		tree.AppendChild(&Node{Type: ProcInstNode, Name: ParseName("xml"), Data: `version="1.0" encoding="UTF-8" standalone="yes"`})
		tree.AppendChild(NewElement("Relationships", "xmlns", relationshipsNS))
		d.xml[documentRelsPart] = tree
		p := &part{name: documentRelsPart, modified: time.Now()}
		d.parts = append(d.parts, p)
		d.index[documentRelsPart] = p
	}
	return tree.RootElement()
}

func nextRelID(rels *Node) string {
	highest := 0
	for _, rel := range rels.Children {
		v, _ := rel.AttrValue("Id")
		if n, err := strconv.Atoi(strings.TrimPrefix(v, "rId")); err == nil && n > highest {
			highest = n
		}
	}
	return "rId" + strconv.Itoa(highest+1)
}

func (d *Document) ensureDefaultContentType(ext, ct string) {
	types := d.xml[contentTypesPart].RootElement()
	for _, c := range types.Children {
		if c.Type != ElementNode || c.Name.Local != "Default" {
			continue
		}
		if v, _ := c.AttrValue("Extension"); strings.EqualFold(v, ext) {
			return
		}
	}
	types.InsertChild(0, NewElement("Default", "Extension", ext, "ContentType", ct))
}

// Write serializes the package to w.
func (d *Document) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, p := range d.parts {
		data := p.data
		if tree, ok := d.xml[p.name]; ok {
			data = tree.Bytes()
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: p.modified,
		})
		if err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

// Bytes serializes the package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path, replacing any existing file atomically.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o600)
}
