package pdfparser

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"image"
	"io"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// style is the subset of SVG paint state that decides visibility. Values
// inherit from enclosing groups; empty means unset.
type style struct {
	fill          string
	fillOpacity   string
	stroke        string
	strokeOpacity string
	strokeWidth   string
}

func (s style) apply(attrs []xml.Attr) style {
	set := func(name, value string) {
		switch name {
		case "fill":
			s.fill = value
		case "fill-opacity":
			s.fillOpacity = value
		case "stroke":
			s.stroke = value
		case "stroke-opacity":
			s.strokeOpacity = value
		case "stroke-width":
			s.strokeWidth = value
		}
	}
	for _, a := range attrs {
		if a.Name.Local == "style" {
			for _, decl := range strings.Split(a.Value, ";") {
				if name, value, ok := strings.Cut(decl, ":"); ok {
					set(strings.TrimSpace(name), strings.TrimSpace(value))
				}
			}
			continue
		}
		set(a.Name.Local, a.Value)
	}
	return s
}

// visible reports whether the element paints anything: a non-none fill
// with non-zero opacity, or a non-none stroke with non-zero opacity and
// positive width.
func (s style) visible() bool {
	filled := s.fill != "" && s.fill != "none" && !zeroNumber(s.fillOpacity)
	stroked := s.stroke != "" && s.stroke != "none" &&
		!zeroNumber(s.strokeOpacity) && positiveOrUnset(s.strokeWidth)
	return filled || stroked
}

func zeroNumber(v string) bool {
	if v == "" {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}

func positiveOrUnset(v string) bool {
	if v == "" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err != nil || f > 0
}

// scanDrawings walks a page's SVG rendition and counts its visible vector
// primitives. The second return value reports whether the page has any
// drawing at all, visible or not.
func scanDrawings(svg string) (models.DrawingStats, bool, error) {
	var (
		stats       models.DrawingStats
		hasDrawings bool
		stack       = []style{{}}
	)

	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.DrawingStats{}, false, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			st := stack[len(stack)-1].apply(t.Attr)
			stack = append(stack, st)

			switch t.Name.Local {
			case "rect":
				hasDrawings = true
				if st.visible() {
					stats.Rects++
				}
			case "line", "polyline", "polygon":
				hasDrawings = true
				if st.visible() {
					stats.Lines++
				}
			case "path":
				hasDrawings = true
				if st.visible() {
					countPath(pathData(t.Attr), &stats)
				}
			}

		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stats, hasDrawings, nil
}

func pathData(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "d" {
			return a.Value
		}
	}
	return ""
}

// countPath classifies one path by its drawing commands. A closed path of
// exactly four axis-aligned segments is a rectangle; a closed four-segment
// path with free line segments is a quadrilateral; otherwise each curve
// and line command counts individually.
func countPath(d string, stats *models.DrawingStats) {
	var curves, lines, axisLines int
	closed := false
	for _, r := range d {
		switch r {
		case 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a':
			curves++
		case 'L', 'l':
			lines++
		case 'H', 'h', 'V', 'v':
			axisLines++
		case 'Z', 'z':
			closed = true
		}
	}

	if closed && curves == 0 {
		// Z closes the final segment, so a four-sided shape shows three
		// explicit segments.
		switch lines + axisLines {
		case 3, 4:
			if lines == 0 {
				stats.Rects++
			} else {
				stats.Quads++
			}
			return
		}
	}
	stats.Curves += curves
	stats.Lines += lines + axisLines
}

// scanImages pulls the embedded raster images out of a page's SVG
// rendition, in document order. Unsupported or external references are
// skipped.
func scanImages(svg string) ([]models.RawImage, error) {
	var images []models.RawImage

	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		t, ok := tok.(xml.StartElement)
		if !ok || t.Name.Local != "image" {
			continue
		}
		for _, a := range t.Attr {
			if a.Name.Local != "href" {
				continue
			}
			data, ok := decodeDataURI(a.Value)
			if !ok {
				continue
			}
			images = append(images, models.RawImage{Data: data, Unicolor: isUnicolor(data)})
			break
		}
	}
	return images, nil
}

func decodeDataURI(uri string) ([]byte, bool) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, false
	}
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return nil, false
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}

// isUnicolor reports whether every sampled pixel has the same color.
// Single-color images are decorative fills and backgrounds, not content.
// Undecodable images count as informative.
func isUnicolor(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}

	b := img.Bounds()
	if b.Empty() {
		return true
	}

	// Sample on a grid of at most 64x64 points.
	stepX := max(1, b.Dx()/64)
	stepY := max(1, b.Dy()/64)

	r0, g0, b0, a0 := img.At(b.Min.X, b.Min.Y).RGBA()
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 || a != a0 {
				return false
			}
		}
	}
	return true
}
