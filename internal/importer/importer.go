// Package importer provides CSV, Excel, and JSON import for piece lists.
// It supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Pieces   []model.Piece
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
// -1 means the role was not located.
type ColumnMapping struct {
	Label    int
	Width    int
	Height   int
	Quantity int
	Material int
	Rotation int
}

func (m ColumnMapping) missingRequired() []string {
	var missing []string
	if m.Width == -1 {
		missing = append(missing, "Width")
	}
	if m.Height == -1 {
		missing = append(missing, "Height")
	}
	if m.Quantity == -1 {
		missing = append(missing, "Quantity")
	}
	return missing
}

// roleAliases is a reverse index: lowercase header text -> the column role
// it names. Built once from the grouped alias lists below so that matching
// a row against every role is a single map lookup per cell rather than a
// role-by-role, alias-by-alias scan.
var roleAliases = invertAliases(map[string][]string{
	"label":    {"label", "name", "part", "part name", "description", "desc", "piece", "item"},
	"width":    {"width", "w", "length", "len", "x"},
	"height":   {"height", "h", "depth", "d", "y"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"material": {"material", "mat", "substrate"},
	"rotation": {"rotation", "allowed_rotations", "allowed rotations", "rotate", "grain"},
})

func invertAliases(roles map[string][]string) map[string]string {
	reverse := make(map[string]string)
	for role, aliases := range roles {
		for _, alias := range aliases {
			reverse[alias] = role
		}
	}
	return reverse
}

// DetectCSVDelimiter picks the candidate delimiter whose per-line occurrence
// count is the most consistent. Genuine tabular data produces (almost) the
// same separator count on every line; a delimiter that's only sometimes
// present inside free-text fields produces counts that swing around, so the
// winner is the candidate with the highest mean-minus-variance score.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	lines := nonEmptyLines(data)
	if len(lines) == 0 {
		return ','
	}

	best := candidates[0]
	bestScore := math.Inf(-1)

	for _, delim := range candidates {
		counts := make([]float64, len(lines))
		for i, line := range lines {
			counts[i] = float64(strings.Count(line, string(delim)))
		}

		mean := mean(counts)
		if mean < 1 {
			continue // this delimiter barely appears; not a real candidate
		}
		if score := mean - variance(counts, mean); score > bestScore {
			bestScore = score
			best = delim
		}
	}

	return best
}

func nonEmptyLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// DetectColumns matches a row's cells against roleAliases. It reports a
// positional fallback mapping and false when no role name is recognized at
// all, otherwise the roles it found (unmatched roles stay -1) and true.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Label: -1, Width: -1, Height: -1, Quantity: -1, Material: -1, Rotation: -1}

	matched := 0
	for i, cell := range row {
		role, ok := roleAliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		matched++
		mapping.assign(role, i)
	}

	if matched == 0 {
		return ColumnMapping{Label: 0, Width: 1, Height: 2, Quantity: 3, Material: 4, Rotation: 5}, false
	}
	return mapping, true
}

func (m *ColumnMapping) assign(role string, index int) {
	field := map[string]*int{
		"label":    &m.Label,
		"width":    &m.Width,
		"height":   &m.Height,
		"quantity": &m.Quantity,
		"material": &m.Material,
		"rotation": &m.Rotation,
	}[role]
	if field != nil && *field == -1 {
		*field = index
	}
}

// looksLikeUnrecognizedHeader reports whether row is probably a header row
// whose column names DetectColumns didn't recognize: its positional Width
// cell doesn't parse as a number, the way real piece dimensions would.
func looksLikeUnrecognizedHeader(row []string, mapping ColumnMapping) bool {
	if mapping.Width < 0 || mapping.Width >= len(row) {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(row[mapping.Width]), 64)
	return err != nil
}

// rowCells wraps one row for out-of-range-safe, trimmed positional access.
type rowCells []string

func (r rowCells) at(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

func isBlank(row []string) bool {
	return strings.TrimSpace(strings.Join(row, "")) == ""
}

// parseRow extracts a Piece from a row using the given column mapping.
// Returns the piece, any error message, and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, pieceCount int) (model.Piece, string, string) {
	cells := rowCells(row)

	label := cells.at(mapping.Label)
	if label == "" {
		label = fmt.Sprintf("Piece %d", pieceCount+1)
	}

	widthStr := cells.at(mapping.Width)
	if widthStr == "" {
		return model.Piece{}, fmt.Sprintf("%s: Missing width value", rowLabel), ""
	}
	width, err := strconv.ParseFloat(widthStr, 64)
	if err != nil {
		return model.Piece{}, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr), ""
	}

	heightStr := cells.at(mapping.Height)
	if heightStr == "" {
		return model.Piece{}, fmt.Sprintf("%s: Missing height value", rowLabel), ""
	}
	height, err := strconv.ParseFloat(heightStr, 64)
	if err != nil {
		return model.Piece{}, fmt.Sprintf("%s: Invalid height '%s'", rowLabel, heightStr), ""
	}

	qtyStr := cells.at(mapping.Quantity)
	if qtyStr == "" {
		return model.Piece{}, fmt.Sprintf("%s: Missing quantity value", rowLabel), ""
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return model.Piece{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), ""
	}

	if width <= 0 || height <= 0 || qty <= 0 {
		return model.Piece{}, fmt.Sprintf("%s: Width, height, and quantity must be positive", rowLabel), ""
	}

	piece := model.NewPiece(label, width, height, qty)
	piece.Material = cells.at(mapping.Material)

	var warning string
	if rotationStr := cells.at(mapping.Rotation); rotationStr != "" {
		if rs, ok := model.ParseRotationSet(strings.ToLower(rotationStr)); ok {
			piece.AllowedRotations = rs
			piece.AllowRotation = rs != model.RotationNone
		} else {
			warning = fmt.Sprintf("%s: Unknown rotation policy '%s', defaulting to none", rowLabel, rotationStr)
		}
	}

	return piece, "", warning
}

// rowSource yields one row of cells at a time, returning io.EOF once
// exhausted. CSV and Excel each implement it so the header-detection and
// parsing pipeline below is written exactly once.
type rowSource interface {
	next() ([]string, error)
}

type csvRowSource struct {
	reader *csv.Reader
}

func (s *csvRowSource) next() ([]string, error) {
	return s.reader.Read()
}

func newCSVRowSource(r io.Reader, delimiter rune) *csvRowSource {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return &csvRowSource{reader: reader}
}

type sliceRowSource struct {
	rows []([]string)
	pos  int
}

func (s *sliceRowSource) next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// ImportCSV imports pieces from a CSV file, auto-detecting its delimiter.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportResult{Errors: []string{"File is empty"}}
	}

	delimiter := DetectCSVDelimiter(data)
	result := importRows(newCSVRowSource(bytes.NewReader(data), delimiter), "Line")

	if delimiter != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append([]string{fmt.Sprintf("Detected %s delimiter", name)}, result.Warnings...)
	}
	return result
}

// ImportCSVFromReader imports pieces from a CSV reader with a specific
// delimiter. Useful for testing or when the delimiter is already known.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	return importRows(newCSVRowSource(reader, delimiter), "Line")
}

// ImportExcel imports pieces from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"Excel file has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	if len(rows) == 0 {
		return ImportResult{Errors: []string{"Sheet is empty"}}
	}

	return importRows(&sliceRowSource{rows: rows}, "Row")
}

// importRows drives the shared CSV/Excel pipeline: peek the first row to
// decide whether it's a header, then stream every remaining row through
// parseRow, accumulating pieces, errors, and warnings as it goes.
func importRows(source rowSource, rowPrefix string) ImportResult {
	var result ImportResult

	first, err := source.next()
	if err == io.EOF {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read data: %v", err))
		return result
	}

	mapping, hasHeader := DetectColumns(first)
	switch {
	case hasHeader:
		result.Warnings = append(result.Warnings, "Detected header row, skipping")
		if missing := mapping.missingRequired(); len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	case looksLikeUnrecognizedHeader(first, mapping):
		result.Warnings = append(result.Warnings, "Detected header row with unrecognized column names, skipping")
	default:
		consumeRow(&result, first, mapping, rowPrefix, 1)
	}

	for lineNum := 2; ; lineNum++ {
		row, err := source.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Cannot read data: %v", err))
			break
		}
		consumeRow(&result, row, mapping, rowPrefix, lineNum)
	}

	return result
}

func consumeRow(result *ImportResult, row []string, mapping ColumnMapping, rowPrefix string, lineNum int) {
	if isBlank(row) {
		return
	}

	rowLabel := fmt.Sprintf("%s %d", rowPrefix, lineNum)
	piece, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Pieces))

	if errMsg != "" {
		result.Errors = append(result.Errors, errMsg)
		return
	}
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	result.Pieces = append(result.Pieces, piece)
}
