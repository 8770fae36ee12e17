package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/cutplan/internal/model"
)

// LabelInfo holds the data encoded into each placed piece's label QR code.
type LabelInfo struct {
	PieceName       string  `json:"name"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	StockInstanceID string  `json:"stock_instance_id"`
	Rotation        int     `json:"rotation"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Material        string  `json:"material,omitempty"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7
	labelMarginLeft = 4.8
	labelWidth      = 66.7
	labelHeight     = 25.4
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0
	labelPadding    = 2.0
)

// ExportLabels generates a PDF of QR-coded labels for every placement in a
// plan. Each label contains the piece name, dimensions, and a QR code
// encoding its placement metadata as JSON.
func ExportLabels(path string, plan model.CuttingPlan, opts Options) error {
	if len(plan.Placements) == 0 {
		return fmt.Errorf("no placements to generate labels for")
	}

	labels := CollectLabelInfos(plan)

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label, opts); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.PieceName, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo, opts Options) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%s_%d", info.PieceName, int(info.X*1000+info.Y))
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	pieceName := info.PieceName
	if pdf.GetStringWidth(pieceName) > textW {
		for len(pieceName) > 0 && pdf.GetStringWidth(pieceName+"...") > textW {
			pieceName = pieceName[:len(pieceName)-1]
		}
		pieceName += "..."
	}
	pdf.CellFormat(textW, 4.5, pieceName, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%.0f x %.0f", info.Width, info.Height)
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	if opts.IncludeMetadata {
		pdf.SetFont("Helvetica", "", 6)
		pdf.SetTextColor(100, 100, 100)
		pdf.SetXY(textX, y+labelPadding+9)
		placementInfo := fmt.Sprintf("%s @ (%.0f, %.0f)", info.StockInstanceID, info.X, info.Y)
		pdf.CellFormat(textW, 3, placementInfo, "", 1, "L", false, 0, "")
	}

	if info.Rotation != 0 {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, fmt.Sprintf("Rotated %d\xb0", info.Rotation), "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectLabelInfos extracts label information from a cutting plan for use
// in testing or alternative export formats.
func CollectLabelInfos(plan model.CuttingPlan) []LabelInfo {
	materials := make(map[string]string)
	for _, p := range plan.Pieces {
		materials[p.ID] = p.Material
	}

	var labels []LabelInfo
	for _, p := range plan.Placements {
		labels = append(labels, LabelInfo{
			PieceName:       p.Piece.Name,
			Width:           p.Piece.Width,
			Height:          p.Piece.Height,
			StockInstanceID: p.StockInstanceID,
			Rotation:        int(p.Rotation),
			X:               p.X,
			Y:               p.Y,
			Material:        materials[p.Piece.ID],
		})
	}
	return labels
}
