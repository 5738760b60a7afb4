package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"datapilot/domain/analysis"

	"github.com/xuri/excelize/v2"
)

// DataReader turns an uploaded spreadsheet into a dataset
type DataReader struct {
	fileName string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that picks the format from the file extension
func NewDataReader(fileName string) *DataReader {
	ext := strings.ToLower(filepath.Ext(fileName))
	fileType := strings.TrimPrefix(ext, ".")
	return &DataReader{fileName: fileName, fileType: fileType}
}

// ReadData parses r into a dataset. The first row holds the column names.
func (r *DataReader) ReadData(src io.Reader) (*analysis.Dataset, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.fileName)

	switch r.fileType {
	case "csv":
		return r.readCSVData(src)
	case "xlsx":
		return r.readExcelData(src)
	case "xls":
		return nil, fmt.Errorf("legacy .xls workbooks are not supported, save %s as .xlsx", r.fileName)
	default:
		return nil, fmt.Errorf("unsupported file type: %q", r.fileType)
	}
}

// readExcelData reads the first sheet of an xlsx workbook
func (r *DataReader) readExcelData(src io.Reader) (*analysis.Dataset, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// readCSVData reads CSV data, sniffing ';' and tab delimiters
func (r *DataReader) readCSVData(src io.Reader) (*analysis.Dataset, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffDelimiter(raw)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[DataReader] CSV file read (%d rows)", len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into typed rows
func (r *DataReader) processRows(rows [][]string) (*analysis.Dataset, error) {
	headerRow := rows[0]
	headers := make([]string, 0, len(headerRow))
	seen := make(map[string]int, len(headerRow))
	for i, header := range headerRow {
		name := strings.TrimSpace(header)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		headers = append(headers, name)
	}

	dataRows := make([]analysis.Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowData := make(analysis.Row, len(headers))
		for j, header := range headers {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			rowData[header] = CoerceCell(cell)
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &analysis.Dataset{
		Columns:  headers,
		Rows:     dataRows,
		RowCount: len(dataRows),
	}, nil
}

// CoerceCell maps blank cells to nil and numeric text to float64. Text that
// parses to NaN or an infinity stays a string since JSON cannot carry it.
func CoerceCell(cell string) interface{} {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err == nil && !strings.HasPrefix(cell, "0x") && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return cell
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
