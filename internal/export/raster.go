package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"

	"github.com/piwi3910/cutplan/internal/model"
)

// ExportPNG renders one stock instance's layout as a flat-filled raster
// image, one rectangle per placement. Grounded on the atlas-compositing
// idiom of imaging.New + draw.Draw(..., draw.Src) for blitting fixed-color
// rectangles onto a canvas.
func ExportPNG(path string, plan model.CuttingPlan, instanceID string, opts Options) error {
	placements := placementsForInstance(plan, instanceID)
	if len(placements) == 0 {
		return fmt.Errorf("no placements found for stock instance %q", instanceID)
	}

	stock, ok := stockFor(plan, instanceID)
	if !ok {
		return fmt.Errorf("stock instance %q has no matching stock definition", instanceID)
	}

	width, height := opts.ImageWidth, opts.ImageHeight
	if width <= 0 {
		width = 1600
	}
	if height <= 0 {
		height = 1200
	}

	scaleX := float64(width) / stock.Width
	scaleY := float64(height) / stock.Height
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	canvas := imaging.New(width, height, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
	board := image.NewNRGBA(image.Rect(0, 0, int(stock.Width*scale), int(stock.Height*scale)))
	draw.Draw(board, board.Bounds(), &image.Uniform{C: color.NRGBA{R: 210, G: 180, B: 140, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(canvas, board.Bounds(), board, image.Point{}, draw.Src)

	if opts.ShowGrid {
		drawPNGGrid(canvas, stock, scale)
	}

	for i, p := range placements {
		col := colorFor(i, opts.ColorScheme, p.Piece.Material)
		w, h := p.EffectiveDims()
		rect := image.Rect(int(p.X*scale), int(p.Y*scale), int((p.X+w)*scale), int((p.Y+h)*scale))
		fill := image.NewUniform(color.NRGBA{R: uint8(col.R), G: uint8(col.G), B: uint8(col.B), A: 255})
		draw.Draw(canvas, rect, fill, image.Point{}, draw.Src)
		drawBorder(canvas, rect, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create PNG file: %w", err)
	}
	defer out.Close()

	return imaging.Encode(out, canvas, imaging.PNG)
}

func placementsForInstance(plan model.CuttingPlan, instanceID string) []model.PlacedPiece {
	var out []model.PlacedPiece
	for _, p := range plan.Placements {
		if p.StockInstanceID == instanceID {
			out = append(out, p)
		}
	}
	return out
}

func stockFor(plan model.CuttingPlan, instanceID string) (model.Stock, bool) {
	baseID := baseStockID(instanceID)
	for _, s := range plan.Stocks {
		if s.ID == baseID {
			return s, true
		}
	}
	return model.Stock{}, false
}

func drawPNGGrid(img draw.Image, stock model.Stock, scale float64) {
	step := 100.0 * scale
	if step <= 0 {
		return
	}
	gridColor := color.NRGBA{R: 160, G: 160, B: 160, A: 255}
	w := int(stock.Width * scale)
	h := int(stock.Height * scale)
	for x := 0; x < w; x += int(step) {
		for y := 0; y < h; y++ {
			img.Set(x, y, gridColor)
		}
	}
	for y := 0; y < h; y += int(step) {
		for x := 0; x < w; x++ {
			img.Set(x, y, gridColor)
		}
	}
}

func drawBorder(img draw.Image, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}
