package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gaussfit/internal/errors"
	"gaussfit/internal/sample"
)

// MarksFile is the raw content of a marks file: a title and the unclassified tokens
type MarksFile struct {
	Path   string
	Format string
	Title  string
	Tokens []string
}

// MarksReader reads marks from text, CSV or Excel files.
//
// Text files hold a title line followed by one delimited line of marks or one mark per
// line. CSV and Excel files hold the title in the first cell of the first row; if a single
// data row follows, all of its cells are marks, otherwise the first column is.
type MarksReader struct {
	filePath string
	fileType string // "text", "csv" or "xlsx"
}

// NewMarksReader creates a reader choosing the format from the file extension
func NewMarksReader(filePath string) *MarksReader {
	fileType := "text"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	}
	return &MarksReader{filePath: filePath, fileType: fileType}
}

// Read loads the file
func (r *MarksReader) Read() (*MarksFile, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("marks file %s", r.filePath))
	}

	startTime := time.Now()
	var (
		mf  *MarksFile
		err error
	)
	switch r.fileType {
	case "csv":
		mf, err = r.readCSV()
	case "xlsx":
		mf, err = r.readExcel()
	default:
		mf, err = r.readText()
	}
	if err != nil {
		return nil, err
	}
	mf.Path = r.filePath
	mf.Format = r.fileType

	log.Printf("[MarksReader] %s file %s read in %.2fms (%d tokens)",
		r.fileType, r.filePath, float64(time.Since(startTime).Nanoseconds())/1e6, len(mf.Tokens))
	return mf, nil
}

// ReadText splits a text marks body from any reader
func ReadText(rd io.Reader) (*MarksFile, error) {
	body, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read marks")
	}
	title, tokens := sample.SplitText(string(body))
	return &MarksFile{Format: "text", Title: title, Tokens: tokens}, nil
}

func (r *MarksReader) readText() (*MarksFile, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open marks file")
	}
	defer f.Close()
	return ReadText(f)
}

func (r *MarksReader) readCSV() (*MarksFile, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return fromRows(rows), nil
}

func (r *MarksReader) readExcel() (*MarksFile, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError("Excel file has no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if name == "Sheet1" {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", sheet)
	}
	return fromRows(rows), nil
}

// fromRows applies the title/marks layout to spreadsheet rows
func fromRows(rows [][]string) *MarksFile {
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	mf := &MarksFile{}
	if len(rows) == 0 {
		return mf
	}

	mf.Title = strings.TrimSpace(rows[0][0])
	data := rows[1:]
	if len(data) == 1 {
		for _, cell := range data[0] {
			mf.Tokens = append(mf.Tokens, strings.TrimSpace(cell))
		}
		for len(mf.Tokens) > 0 && mf.Tokens[len(mf.Tokens)-1] == "" {
			mf.Tokens = mf.Tokens[:len(mf.Tokens)-1]
		}
		return mf
	}
	for _, row := range data {
		cell := ""
		if len(row) > 0 {
			cell = strings.TrimSpace(row[0])
		}
		mf.Tokens = append(mf.Tokens, cell)
	}
	return mf
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
