package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/cutplan/internal/model"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF generates a PDF document containing a cutting plan. Each stock
// instance that received at least one placement is rendered on its own
// page with a visual layout diagram, followed by a summary page.
func ExportPDF(path string, plan model.CuttingPlan, opts Options) error {
	if len(plan.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, sheet := range sheetsOf(plan) {
		pdf.AddPage()
		renderSheetPage(pdf, sheet, opts)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, plan, opts)

	return pdf.OutputFileAndClose(path)
}

// sheetView groups one stock instance's placements with its dimensions.
type sheetView struct {
	instanceID string
	stock      model.Stock
	placements []model.PlacedPiece
}

func sheetsOf(plan model.CuttingPlan) []sheetView {
	byInstance := make(map[string][]model.PlacedPiece)
	var order []string
	for _, p := range plan.Placements {
		if _, seen := byInstance[p.StockInstanceID]; !seen {
			order = append(order, p.StockInstanceID)
		}
		byInstance[p.StockInstanceID] = append(byInstance[p.StockInstanceID], p)
	}

	stockLookup := make(map[string]model.Stock)
	for _, s := range plan.Stocks {
		stockLookup[s.ID] = s
	}

	var views []sheetView
	for _, instanceID := range order {
		views = append(views, sheetView{
			instanceID: instanceID,
			stock:      stockLookup[baseStockID(instanceID)],
			placements: byInstance[instanceID],
		})
	}
	return views
}

func baseStockID(instanceID string) string {
	for i := len(instanceID) - 1; i >= 0; i-- {
		if instanceID[i] == '#' {
			return instanceID[:i]
		}
	}
	return instanceID
}

// renderSheetPage draws a single stock instance's placements on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet sheetView, opts Options) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("%s (%.0f x %.0f mm)", sheet.stock.Name, sheet.stock.Width, sheet.stock.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	usedArea := 0.0
	for _, p := range sheet.placements {
		usedArea += p.Area()
	}
	totalArea := sheet.stock.Area()
	efficiency := 0.0
	if totalArea > 0 {
		efficiency = 100 * usedArea / totalArea
	}
	stats := fmt.Sprintf("Pieces: %d | Used area: %.0f mm² | Total area: %.0f mm² | Efficiency: %.1f%%",
		len(sheet.placements), usedArea, totalArea, efficiency)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	scaleX := drawWidth / sheet.stock.Width
	scaleY := drawHeight / sheet.stock.Height
	scale := math.Min(scaleX, scaleY)

	canvasW := sheet.stock.Width * scale
	canvasH := sheet.stock.Height * scale

	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	pdf.SetFillColor(210, 180, 140)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	if opts.ShowGrid {
		drawGrid(pdf, scale, offsetX, offsetY, canvasW, canvasH)
	}

	for i, p := range sheet.placements {
		col := colorFor(i, opts.ColorScheme, p.Piece.Material)
		w, h := p.EffectiveDims()
		pw := w * scale
		ph := h * scale
		px := offsetX + p.X*scale
		py := offsetY + p.Y*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if opts.ShowLabels && pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			label := p.Piece.Name
			dims := fmt.Sprintf("%.0fx%.0f", p.Piece.Width, p.Piece.Height)
			if opts.ShowRotations && p.Rotation != model.Rotation0 {
				dims += fmt.Sprintf(" R%d", int(p.Rotation))
			}

			labelW := pdf.GetStringWidth(label)
			dimsW := pdf.GetStringWidth(dims)

			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			if ph > 14 && dimsW < pw-2 {
				pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, sheet.stock, scale, offsetX, offsetY, canvasW, canvasH)
	drawPiecesLegend(pdf, sheet, offsetY+canvasH+5, opts)
}

// drawGrid draws a light reference grid at 100-unit intervals.
func drawGrid(pdf *fpdf.Fpdf, scale, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetLineWidth(0.1)
	step := 100.0 * scale
	if step <= 0 {
		return
	}
	for x := step; x < canvasW; x += step {
		pdf.Line(offsetX+x, offsetY, offsetX+x, offsetY+canvasH)
	}
	for y := step; y < canvasH; y += step {
		pdf.Line(offsetX, offsetY+y, offsetX+canvasW, offsetY+y)
	}
}

// drawDimensionAnnotations adds width and height dimension labels outside the sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, stock model.Stock, scale, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", stock.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f mm", stock.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPiecesLegend renders a compact legend of placed pieces at the bottom of the sheet page.
func drawPiecesLegend(pdf *fpdf.Fpdf, sheet sheetView, startY float64, opts Options) {
	if !opts.ShowLabels || len(sheet.placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Pieces placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.placements {
		col := colorFor(i, opts.ColorScheme, p.Piece.Material)
		label := fmt.Sprintf("%s (%.0fx%.0f)", p.Piece.Name, p.Piece.Width, p.Piece.Height)
		if p.Rotation != model.Rotation0 {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, plan model.CuttingPlan, opts Options) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	title := opts.Title
	if title == "" {
		title = "Cutting Plan Summary"
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	sheets := sheetsOf(plan)
	summaryItems := []struct{ label, value string }{
		{"Stock Instances Used", fmt.Sprintf("%d", len(sheets))},
		{"Overall Utilization", fmt.Sprintf("%.1f%%", plan.Metrics.UtilizationPercentage)},
		{"Pieces Placed", fmt.Sprintf("%d", plan.Metrics.PiecesPlaced)},
		{"Pieces Remaining", fmt.Sprintf("%d", plan.Metrics.PiecesRemaining)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Stock Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 60, 50, 35, 50}
	headers := []string{"Instance", "Stock", "Dimensions", "Pieces", "Used / Total Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, sheet := range sheets {
		xPos = marginLeft
		used := 0.0
		for _, p := range sheet.placements {
			used += p.Area()
		}
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			sheet.stock.Name,
			fmt.Sprintf("%.0f x %.0f mm", sheet.stock.Width, sheet.stock.Height),
			fmt.Sprintf("%d", len(sheet.placements)),
			fmt.Sprintf("%.0f / %.0f mm²", used, sheet.stock.Area()),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if plan.Metrics.PiecesRemaining > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Pieces", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, w := range plan.Warnings {
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(200, 5, "- "+w, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by cutplan", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
