// Package export renders a finished CuttingPlan to vector, raster, document,
// and structured output formats.
package export

import "hash/fnv"

// ColorScheme selects the palette exporters use for placed pieces.
type ColorScheme string

const (
	ColorSchemeDefault  ColorScheme = "default"
	ColorSchemeGrayscale ColorScheme = "grayscale"
	ColorSchemeByMaterial ColorScheme = "by_material"
)

// Options is the generic export configuration shared by every exporter in
// this package (spec §6.2). Not every field applies to every format.
type Options struct {
	ImageWidth       int
	ImageHeight      int
	Scale            float64
	ShowGrid         bool
	ShowLabels       bool
	ShowRotations    bool
	ShowUtilization  bool
	ColorScheme      ColorScheme
	IncludeMetadata  bool
	Title            string
	Description      string
}

// DefaultOptions returns reasonable defaults for a single-sheet render.
func DefaultOptions() Options {
	return Options{
		ImageWidth:      1600,
		ImageHeight:     1200,
		Scale:           1.0,
		ShowGrid:        true,
		ShowLabels:      true,
		ShowRotations:   true,
		ShowUtilization: true,
		ColorScheme:     ColorSchemeDefault,
		IncludeMetadata: true,
		Title:           "Cutting Plan",
	}
}

// pieceColor is an RGB triple for one placed piece.
type pieceColor struct {
	R, G, B int
}

// pieceColors mirrors the teacher's palette for placed-piece fills.
var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},
	{R: 33, G: 150, B: 243},
	{R: 255, G: 152, B: 0},
	{R: 156, G: 39, B: 176},
	{R: 0, G: 188, B: 212},
	{R: 244, G: 67, B: 54},
	{R: 255, G: 235, B: 59},
	{R: 121, G: 85, B: 72},
}

// colorFor picks a placement's fill color under the given scheme. material
// is the placed piece's material name; it's ignored by every scheme except
// ColorSchemeByMaterial, where pieces sharing a material always get the same
// color regardless of placement order.
func colorFor(index int, scheme ColorScheme, material string) pieceColor {
	switch scheme {
	case ColorSchemeGrayscale:
		shade := 80 + (index*35)%150
		return pieceColor{R: shade, G: shade, B: shade}
	case ColorSchemeByMaterial:
		if material == "" {
			return pieceColors[index%len(pieceColors)]
		}
		return pieceColors[materialHash(material)%len(pieceColors)]
	default:
		return pieceColors[index%len(pieceColors)]
	}
}

func materialHash(material string) int {
	h := fnv.New32a()
	h.Write([]byte(material))
	return int(h.Sum32())
}
