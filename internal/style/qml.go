package style

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// qmlDocument is the subset of the QGIS layer style format needed for a
// categorized polygon renderer keyed on the zone code attribute.
type qmlDocument struct {
	XMLName         xml.Name    `xml:"qgis"`
	Version         string      `xml:"version,attr"`
	StyleCategories string      `xml:"styleCategories,attr"`
	Renderer        qmlRenderer `xml:"renderer-v2"`
}

type qmlRenderer struct {
	Type       string        `xml:"type,attr"`
	Attr       string        `xml:"attr,attr"`
	Categories []qmlCategory `xml:"categories>category"`
	Symbols    []qmlSymbol   `xml:"symbols>symbol"`
}

type qmlCategory struct {
	Value  string `xml:"value,attr"`
	Symbol string `xml:"symbol,attr"`
	Label  string `xml:"label,attr"`
	Render bool   `xml:"render,attr"`
}

type qmlSymbol struct {
	Type    string     `xml:"type,attr"`
	Name    string     `xml:"name,attr"`
	Options []qmlValue `xml:"layer>Option>Option"`
}

type qmlValue struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

const qmlVersion = "3.28.0"

// WriteZoneQML writes the categorized zone style to w.
func WriteZoneQML(w io.Writer) error {
	doc := qmlDocument{
		Version:         qmlVersion,
		StyleCategories: "Symbology",
		Renderer: qmlRenderer{
			Type: "categorizedSymbol",
			Attr: "code",
		},
	}

	for i, cat := range ZoneCategories {
		name := fmt.Sprintf("%d", i)
		doc.Renderer.Categories = append(doc.Renderer.Categories, qmlCategory{
			Value:  fmt.Sprintf("%d", cat.Code),
			Symbol: name,
			Label:  cat.Label,
			Render: true,
		})
		doc.Renderer.Symbols = append(doc.Renderer.Symbols, qmlSymbol{
			Type: "fill",
			Name: name,
			Options: []qmlValue{
				{Type: "QString", Name: "color", Value: cat.Fill.String()},
				{Type: "QString", Name: "outline_color", Value: cat.Outline.String()},
				{Type: "QString", Name: "outline_width", Value: "0.26"},
				{Type: "QString", Name: "style", Value: "solid"},
			},
		})
	}

	return writeQML(w, doc)
}

// WriteSlopeQML writes the graduated slope legend style to w. The slope
// raster itself is produced by the external GIS engine; this is only its
// legend coloring.
func WriteSlopeQML(w io.Writer) error {
	doc := qmlDocument{
		Version:         qmlVersion,
		StyleCategories: "Symbology",
		Renderer: qmlRenderer{
			Type: "graduatedSymbol",
			Attr: "slope",
		},
	}

	for i, band := range SlopeBands {
		name := fmt.Sprintf("%d", i)
		doc.Renderer.Categories = append(doc.Renderer.Categories, qmlCategory{
			Value:  fmt.Sprintf("%g-%g", band.Lower, band.Upper),
			Symbol: name,
			Label:  band.Label,
			Render: true,
		})
		doc.Renderer.Symbols = append(doc.Renderer.Symbols, qmlSymbol{
			Type: "fill",
			Name: name,
			Options: []qmlValue{
				{Type: "QString", Name: "color", Value: band.Color.String()},
			},
		})
	}

	return writeQML(w, doc)
}

func writeQML(w io.Writer, doc qmlDocument) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return eris.Wrap(err, "style: write xml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "style: encode qml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "style: close encoder")
	}
	_, err := io.WriteString(w, "\n")
	return eris.Wrap(err, "style: write trailing newline")
}

// WriteStyleFiles writes lateral_spreading.qml and slope.qml into dir.
func WriteStyleFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "style: create dir %s", dir)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"lateral_spreading.qml", WriteZoneQML},
		{"slope.qml", WriteSlopeQML},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		out, err := os.Create(path)
		if err != nil {
			return written, eris.Wrapf(err, "style: create %s", path)
		}
		err = f.write(out)
		closeErr := out.Close()
		if err != nil {
			return written, err
		}
		if closeErr != nil {
			return written, eris.Wrapf(closeErr, "style: close %s", path)
		}
		written = append(written, path)
	}

	return written, nil
}
