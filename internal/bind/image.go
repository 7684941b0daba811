package bind

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"strconv"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/alnah/go-eform/internal/docx"
	"github.com/alnah/go-eform/internal/fileutil"
)

// emuPerPixel converts 96 DPI pixels to English Metric Units.
const emuPerPixel = 9525

// maxImageBytes caps image files read from disk.
const maxImageBytes = 20 << 20

const (
	nsDrawingML = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPicture   = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsWPDrawing = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsRelations = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// imageRun stores img in doc and returns a run holding an inline drawing.
func (b *Binder) imageRun(doc *docx.Document, props *docx.Node, img Image) (*docx.Node, error) {
	data := img.Data
	if len(data) == 0 {
		var err error
		if data, err = b.readImage(img.Path); err != nil {
			return nil, err
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no size")
	}

	relID, err := doc.AddImage(data, format)
	if err != nil {
		return nil, err
	}

	w, h := b.fit(img.Width, img.Height, cfg.Width, cfg.Height)
	id := doc.NextDrawingID()
	b.logger.Debug("image bound", "relationship", relID, "format", format, "width", w, "height", h)

	r := docx.NewElement("w:r")
	if props != nil {
		r.AppendChild(props.Clone())
	}
	r.AppendChild(drawing(relID, id, w, h))
	return r, nil
}

func (b *Binder) readImage(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("image path is empty")
	}
	if b.imageRoot != "" {
		resolved, err := fileutil.ContainedPath(b.imageRoot, path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", path, maxImageBytes)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path checked against the image root when configured
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// fit resolves the requested size against the natural size, keeping the
// aspect ratio when one side is missing and capping the width.
func (b *Binder) fit(reqW, reqH, natW, natH int) (int, int) {
	w, h := natW, natH
	switch {
	case reqW > 0 && reqH > 0:
		w, h = reqW, reqH
	case reqW > 0:
		w, h = reqW, reqW*natH/natW
	case reqH > 0:
		w, h = reqH*natW/natH, reqH
	}
	if b.maxImageWidth > 0 && w > b.maxImageWidth {
		h = h * b.maxImageWidth / w
		w = b.maxImageWidth
	}
	return max(w, 1), max(h, 1)
}

// drawing builds a w:drawing with an inline picture. Namespaces are declared
// locally so the markup is valid whatever the root element declares.
func drawing(relID string, id, w, h int) *docx.Node {
	cx := strconv.Itoa(w * emuPerPixel)
	cy := strconv.Itoa(h * emuPerPixel)
	name := "Picture " + strconv.Itoa(id)

	inline := docx.NewElement("wp:inline",
		"xmlns:wp", nsWPDrawing,
		"distT", "0", "distB", "0", "distL", "0", "distR", "0")
	inline.AppendChild(docx.NewElement("wp:extent", "cx", cx, "cy", cy))
	inline.AppendChild(docx.NewElement("wp:docPr", "id", strconv.Itoa(id), "name", name))

	frame := docx.NewElement("wp:cNvGraphicFramePr")
	frame.AppendChild(docx.NewElement("a:graphicFrameLocks", "xmlns:a", nsDrawingML, "noChangeAspect", "1"))
	inline.AppendChild(frame)

	graphic := docx.NewElement("a:graphic", "xmlns:a", nsDrawingML)
	gdata := docx.NewElement("a:graphicData", "uri", nsPicture)
	pic := docx.NewElement("pic:pic", "xmlns:pic", nsPicture)

	nv := docx.NewElement("pic:nvPicPr")
	nv.AppendChild(docx.NewElement("pic:cNvPr", "id", "0", "name", name))
	nv.AppendChild(docx.NewElement("pic:cNvPicPr"))
	pic.AppendChild(nv)

	fill := docx.NewElement("pic:blipFill")
	fill.AppendChild(docx.NewElement("a:blip", "xmlns:r", nsRelations, "r:embed", relID))
	stretch := docx.NewElement("a:stretch")
	stretch.AppendChild(docx.NewElement("a:fillRect"))
	fill.AppendChild(stretch)
	pic.AppendChild(fill)

	sp := docx.NewElement("pic:spPr")
	xfrm := docx.NewElement("a:xfrm")
	xfrm.AppendChild(docx.NewElement("a:off", "x", "0", "y", "0"))
	xfrm.AppendChild(docx.NewElement("a:ext", "cx", cx, "cy", cy))
	sp.AppendChild(xfrm)
	geom := docx.NewElement("a:prstGeom", "prst", "rect")
	geom.AppendChild(docx.NewElement("a:avLst"))
	sp.AppendChild(geom)
	pic.AppendChild(sp)

	gdata.AppendChild(pic)
	graphic.AppendChild(gdata)
	inline.AppendChild(graphic)

	d := docx.NewElement("w:drawing")
	d.AppendChild(inline)
	return d
}
