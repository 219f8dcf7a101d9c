package fileproc

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"spendlens/domain/table"
)

// FileReader loads contract files in any supported format into a Table
type FileReader struct {
	filePath string
	fileType string // "csv", "tsv", "xlsx" or "json"
}

// SupportedExtensions lists the file types accepted by directory ingestion
var SupportedExtensions = []string{".csv", ".tsv", ".xlsx", ".xls", ".json"}

// IsSupported reports whether a filename has an ingestible extension
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// NewFileReader creates a reader, detecting the format from the extension
func NewFileReader(filePath string) *FileReader {
	fileType := "csv"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".tsv":
		fileType = "tsv"
	case ".xlsx", ".xls":
		fileType = "xlsx"
	case ".json":
		fileType = "json"
	}
	return &FileReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the file into the canonical tabular frame
func (r *FileReader) ReadTable() (*table.Table, error) {
	log.Printf("[FileReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readDelimited(',')
	case "tsv":
		return r.readDelimited('\t')
	case "xlsx":
		return r.readExcel()
	case "json":
		return r.readJSON()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readDelimited reads CSV or TSV data
func (r *FileReader) readDelimited(comma rune) (*table.Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // ragged rows are padded by the table
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", r.fileType, err)
	}
	readTime := time.Since(readStart)
	log.Printf("[FileReader] %s file read in %.2fms (%d rows)",
		strings.ToUpper(r.fileType), float64(readTime.Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}

	return r.processRows(rows)
}

// readExcel reads the first worksheet, preferring Sheet1 when present
func (r *FileReader) readExcel() (*table.Table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	fileOpenTime := time.Since(startTime)
	log.Printf("[FileReader] Excel file opened in %.2fms", float64(fileOpenTime.Nanoseconds())/1e6)

	sheet := "Sheet1"
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no worksheets")
		}
		sheet = sheets[0]
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	readTime := time.Since(readStart)
	log.Printf("[FileReader] Sheet %s read in %.2fms (%d rows)", sheet, float64(readTime.Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// readJSON reads an array of flat objects, unioning keys into columns
func (r *FileReader) readJSON() (*table.Table, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("JSON file must contain an array of objects: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("JSON file contains no records")
	}

	// Union keys across records, sorted for a stable column order
	keySet := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			keySet[k] = true
		}
	}
	headers := make([]string, 0, len(keySet))
	for k := range keySet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	t := table.New(headers...)
	for _, rec := range records {
		cells := make([]string, len(headers))
		for i, k := range headers {
			if v, ok := rec[k]; ok && v != nil {
				cells[i] = strings.TrimSpace(fmt.Sprintf("%v", v))
			}
		}
		t.AppendRow(cells...)
	}

	log.Printf("[FileReader] JSON file processed (%d columns, %d rows)", len(headers), t.NumRows())
	return t, nil
}

// processRows converts raw string rows into the tabular frame
func (r *FileReader) processRows(rows [][]string) (*table.Table, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	t := table.New(headers...)
	for i := 1; i < len(rows); i++ {
		cells := make([]string, len(rows[i]))
		for j, cell := range rows[i] {
			cells[j] = strings.TrimSpace(cell)
		}
		t.AppendRow(cells...)
	}

	log.Printf("[FileReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), t.NumRows())

	return t, nil
}
