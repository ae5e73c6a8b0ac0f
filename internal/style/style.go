// Package style reproduces the QGIS visual styling that ships with the
// original tool: a fixed mapping from zone code to fill/outline colors and
// labels, emitted as .qml documents. It carries no classification logic.
package style

import "fmt"

// RGBA is a color in the 0-255 channel form QGIS uses.
type RGBA struct {
	R, G, B, A uint8
}

// String renders the color as the comma-separated channel list found in
// .qml symbol options.
func (c RGBA) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", c.R, c.G, c.B, c.A)
}

// Category maps one zone code to its rendering.
type Category struct {
	Code    int
	Family  string
	Label   string
	Fill    RGBA
	Outline RGBA
}

var zoneOutline = RGBA{35, 35, 35, 255}

// ZoneCategories is the categorized-renderer mapping for the lateral
// spreading zones layer: Z0 green, SZ orange shades, RZ red shades.
var ZoneCategories = []Category{
	{Code: 300, Family: "Z0", Label: "Z0 - Low Susceptibility Zone", Fill: RGBA{76, 175, 80, 255}, Outline: zoneOutline},
	{Code: 201, Family: "SZ", Label: "SZ - Susceptibility Zone (201)", Fill: RGBA{255, 224, 130, 255}, Outline: zoneOutline},
	{Code: 202, Family: "SZ", Label: "SZ - Susceptibility Zone (202)", Fill: RGBA{255, 167, 38, 255}, Outline: zoneOutline},
	{Code: 203, Family: "SZ", Label: "SZ - Susceptibility Zone (203)", Fill: RGBA{230, 126, 13, 255}, Outline: zoneOutline},
	{Code: 101, Family: "RZ", Label: "RZ - Respect Zone (101)", Fill: RGBA{240, 128, 128, 255}, Outline: zoneOutline},
	{Code: 102, Family: "RZ", Label: "RZ - Respect Zone (102)", Fill: RGBA{227, 26, 28, 255}, Outline: zoneOutline},
	{Code: 103, Family: "RZ", Label: "RZ - Respect Zone (103)", Fill: RGBA{178, 24, 43, 255}, Outline: zoneOutline},
	{Code: 104, Family: "RZ", Label: "RZ - Respect Zone (104)", Fill: RGBA{103, 0, 13, 255}, Outline: zoneOutline},
}

// SlopeBand is one legend entry of the slope raster style.
type SlopeBand struct {
	Lower, Upper float64
	Label        string
	Color        RGBA
}

// SlopeBands is the graduated legend for the slope percentage raster,
// using the same breaks the zone criteria are defined on.
var SlopeBands = []SlopeBand{
	{Lower: 0, Upper: 2, Label: "0-2% flat", Color: RGBA{247, 252, 245, 255}},
	{Lower: 2, Upper: 5, Label: "2-5% gentle", Color: RGBA{199, 233, 192, 255}},
	{Lower: 5, Upper: 15, Label: "5-15% moderate", Color: RGBA{253, 174, 107, 255}},
	{Lower: 15, Upper: 100, Label: ">15% steep", Color: RGBA{165, 15, 21, 255}},
}

// CategoryForCode returns the rendering category for a zone code.
func CategoryForCode(code int) (Category, bool) {
	for _, cat := range ZoneCategories {
		if cat.Code == code {
			return cat, true
		}
	}
	return Category{}, false
}
