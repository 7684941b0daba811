package convert

import (
	"encoding/base64"
	"html"
	"strings"

	"github.com/alnah/go-eform/internal/assets"
)

// buildDocument wraps a sanitized body fragment in a standalone page whose
// text renders only with the faces of fonts.
func buildDocument(title string, fonts *assets.FontSet, baseCSS, fragment string) string {
	family := cssString(fonts.Family)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString(`<meta charset="utf-8">` + "\n")
	sb.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	sb.WriteString("<style>\n")
	for _, f := range fonts.Faces() {
		sb.WriteString(fontFace(family, f))
	}
	sb.WriteString(baseCSS)
	sb.WriteString("\nbody, p, span, td { font-family: " + family + "; }\n")
	sb.WriteString("body { font-size: 12pt; }\n")
	sb.WriteString("</style>\n</head>\n<body>\n")
	sb.WriteString(fragment)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}

func fontFace(family string, f assets.StyledFace) string {
	mime := "font/ttf"
	if f.Face.Format == "opentype" {
		mime = "font/otf"
	}
	weight, style := "normal", "normal"
	if f.Bold {
		weight = "bold"
	}
	if f.Italic {
		style = "italic"
	}
	return "@font-face { font-family: " + family +
		"; src: url(data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Face.Data) +
		`) format("` + f.Face.Format + `"); font-weight: ` + weight +
		"; font-style: " + style + "; }\n"
}

// cssString quotes s as a CSS string that cannot close the style element.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "<", `\3c `, "\n", " ")
	return `"` + r.Replace(s) + `"`
}
