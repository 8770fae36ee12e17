package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/piwi3910/cutplan/internal/model"
)

// ExportDXF writes a cutting plan as a vector drawing: one layer per stock
// instance holding its boundary, one layer per placement holding its
// rectangle, each rectangle drawn as four LINE entities. Re-grounded from the teacher's DXF outline *reader*
// (internal/importer's former dxf.go) onto the write side, since the plan
// produced here is always rectangular.
func ExportDXF(path string, plan model.CuttingPlan) error {
	if len(plan.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}

	drawing := dxf.NewDrawing()

	for _, sheet := range sheetsOf(plan) {
		layerName := fmt.Sprintf("STOCK_%s", sheet.instanceID)
		drawing.AddLayer(layerName, color.White, true)
		drawing.ChangeLayer(layerName)
		drawRectangleOutline(drawing, 0, 0, sheet.stock.Width, sheet.stock.Height)

		for _, p := range sheet.placements {
			pieceLayer := fmt.Sprintf("PIECE_%s", p.ID)
			drawing.AddLayer(pieceLayer, color.Yellow, true)
			drawing.ChangeLayer(pieceLayer)
			w, h := p.EffectiveDims()
			drawRectangleOutline(drawing, p.X, p.Y, p.X+w, p.Y+h)
		}
	}

	return drawing.SaveAs(path)
}

// drawRectangleOutline draws the four edges of a rectangle as LINE entities.
func drawRectangleOutline(drawing *dxf.Drawing, x0, y0, x1, y1 float64) {
	drawing.Line(x0, y0, 0, x1, y0, 0)
	drawing.Line(x1, y0, 0, x1, y1, 0)
	drawing.Line(x1, y1, 0, x0, y1, 0)
	drawing.Line(x0, y1, 0, x0, y0, 0)
}
