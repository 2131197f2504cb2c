// Package svg strips editor metadata and active content from SVG markup.
package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidSVG is returned when the input is not well-formed SVG.
var ErrInvalidSVG = errors.New("invalid SVG document")

// editorPrefixes are namespace prefixes written by drawing tools.
var editorPrefixes = map[string]bool{
	"sodipodi": true,
	"inkscape": true,
	"rdf":      true,
	"cc":       true,
	"dc":       true,
	"sketch":   true,
}

// droppedElements are removed together with their children.
var droppedElements = map[string]bool{
	"metadata":      true,
	"script":        true,
	"foreignObject": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\t", "&#x9;")
)

// Clean returns doc with comments, metadata, editor namespaces, scripts,
// event handler attributes and script or non-image data: URLs removed.
func Clean(doc string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))

	var out bytes.Buffer
	var pending *xml.StartElement
	var open []xml.Name
	skipDepth := 0
	sawRoot := false

	flush := func(selfClose bool) {
		if pending == nil {
			return
		}
		writeStart(&out, *pending, selfClose)
		pending = nil
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			if len(open) > 0 || skipDepth > 0 {
				return "", fmt.Errorf("%w: unexpected end of document", ErrInvalidSVG)
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidSVG, err)
		}

		if skipDepth > 0 {
			switch tok.(type) {
			case xml.StartElement:
				skipDepth++
			case xml.EndElement:
				skipDepth--
			}
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !sawRoot {
				if t.Name.Local != "svg" {
					return "", fmt.Errorf("%w: root element is <%s>", ErrInvalidSVG, t.Name.Local)
				}
				sawRoot = true
			}
			flush(false)
			if droppedElements[t.Name.Local] || editorPrefixes[t.Name.Space] {
				skipDepth = 1
				continue
			}
			el := xml.StartElement{Name: t.Name, Attr: cleanAttrs(t.Attr)}
			pending = &el
			open = append(open, t.Name)

		case xml.EndElement:
			if len(open) == 0 || open[len(open)-1] != t.Name {
				return "", fmt.Errorf("%w: unexpected </%s>", ErrInvalidSVG, qualified(t.Name))
			}
			open = open[:len(open)-1]
			if pending != nil && pending.Name == t.Name {
				flush(true)
				continue
			}
			flush(false)
			out.WriteString("</" + qualified(t.Name) + ">")

		case xml.CharData:
			if pending != nil && len(bytes.TrimSpace(t)) == 0 {
				// Whitespace-only content inside an otherwise empty element
				// is dropped so the element can self-close.
				continue
			}
			flush(false)
			out.WriteString(textEscaper.Replace(string(t)))

		case xml.ProcInst:
			if t.Target == "xml" && out.Len() == 0 {
				out.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
				out.WriteByte('\n')
			}

		case xml.Comment, xml.Directive:
		}
	}

	if !sawRoot {
		return "", fmt.Errorf("%w: no root element", ErrInvalidSVG)
	}
	return out.String(), nil
}

func cleanAttrs(attrs []xml.Attr) []xml.Attr {
	kept := attrs[:0:0]
	for _, a := range attrs {
		switch {
		case editorPrefixes[a.Name.Space]:
		case a.Name.Space == "xmlns" && editorPrefixes[a.Name.Local]:
		case a.Name.Space == "" && len(a.Name.Local) > 2 && strings.EqualFold(a.Name.Local[:2], "on"):
		case urlAttrs[a.Name.Local] && hasActiveURL(a.Value):
		default:
			kept = append(kept, a)
		}
	}
	return kept
}

// urlAttrs hold a URL or, on animation elements, a value that can be
// assigned to one.
var urlAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"to":     true,
	"from":   true,
	"by":     true,
	"values": true,
}

// safeDataPrefixes are the data: URL media types kept in images.
var safeDataPrefixes = []string{
	"data:image/png",
	"data:image/jpeg",
	"data:image/gif",
	"data:image/webp",
}

// hasActiveURL reports whether any ;-separated part of v is a script URL or
// a data: URL other than a raster image.
func hasActiveURL(v string) bool {
	v = strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v))
	for _, part := range strings.Split(v, ";") {
		switch {
		case strings.HasPrefix(part, "javascript:"), strings.HasPrefix(part, "vbscript:"):
			return true
		case strings.HasPrefix(part, "data:") && !hasSafeDataPrefix(part):
			return true
		}
	}
	return false
}

func hasSafeDataPrefix(v string) bool {
	for _, p := range safeDataPrefixes {
		if v == p || strings.HasPrefix(v, p+",") {
			return true
		}
	}
	return false
}

func writeStart(out *bytes.Buffer, el xml.StartElement, selfClose bool) {
	out.WriteString("<" + qualified(el.Name))
	for _, a := range el.Attr {
		out.WriteString(" " + qualified(a.Name) + `="`)
		out.WriteString(attrEscaper.Replace(a.Value))
		out.WriteByte('"')
	}
	if selfClose {
		out.WriteString("/>")
		return
	}
	out.WriteByte('>')
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
