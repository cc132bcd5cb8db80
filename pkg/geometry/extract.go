package geometry

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// Extract parses an SVG document and returns the center of every labelled node.
//
// A node is any <g> element (at any depth) with a direct <text> child carrying
// non-blank text and a direct shape child. Shapes are tried in order:
//   - <ellipse>: center is (cx, cy)
//   - <circle>:  center is (cx, cy)
//   - <rect>:    center is (x + width/2, y + height/2)
//
// Groups missing a label or a shape are skipped. A labelled shape with a
// missing or non-numeric attribute fails the whole artifact with
// PARSE_FAILED. Transforms are not applied.
func Extract(r io.Reader) (Map, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "read svg")
	}
	if doc.Root() == nil {
		return nil, errors.New(errors.ErrCodeParseFailed, "svg has no root element")
	}

	centers := make(Map)
	for _, g := range doc.FindElements("//g") {
		label := groupLabel(g)
		if label == "" {
			continue
		}
		p, ok, err := shapeCenter(g)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "node %q", label)
		}
		if ok {
			centers[label] = p
		}
	}
	return centers, nil
}

// ExtractBytes is [Extract] over an in-memory document.
func ExtractBytes(data []byte) (Map, error) {
	return Extract(bytes.NewReader(data))
}

// ExtractFile is [Extract] over the file at path.
func ExtractFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "open %s", path)
	}
	defer f.Close()

	m, err := Extract(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "%s", path)
	}
	return m, nil
}

func groupLabel(g *etree.Element) string {
	for _, text := range g.SelectElements("text") {
		if label := strings.TrimSpace(text.Text()); label != "" {
			return label
		}
	}
	return ""
}

func shapeCenter(g *etree.Element) (Point, bool, error) {
	for _, tag := range []string{"ellipse", "circle"} {
		if el := g.SelectElement(tag); el != nil {
			cx, err := floatAttr(el, "cx")
			if err != nil {
				return Point{}, false, err
			}
			cy, err := floatAttr(el, "cy")
			if err != nil {
				return Point{}, false, err
			}
			return Point{X: cx, Y: cy}, true, nil
		}
	}

	rect := g.SelectElement("rect")
	if rect == nil {
		return Point{}, false, nil
	}
	var v [4]float64
	for i, key := range []string{"x", "y", "width", "height"} {
		f, err := floatAttr(rect, key)
		if err != nil {
			return Point{}, false, err
		}
		v[i] = f
	}
	return Point{X: v[0] + v[2]/2, Y: v[1] + v[3]/2}, true, nil
}

func floatAttr(el *etree.Element, key string) (float64, error) {
	attr := el.SelectAttr(key)
	if attr == nil {
		return 0, errors.New(errors.ErrCodeParseFailed, "<%s> is missing attribute %q", el.Tag, key)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeParseFailed, err, "<%s> attribute %s=%q", el.Tag, key, attr.Value)
	}
	return f, nil
}
