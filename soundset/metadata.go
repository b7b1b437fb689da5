// Package soundset loads labeled audio clips organized
// the way UrbanSound8K is: a metadata table plus one
// sub-directory of audio files per fold.
package soundset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/soundnet"
)

// Positions of the metadata columns that are used.
const (
	fileNameColumn  = 0
	foldColumn      = 5
	labelColumn     = 6
	classNameColumn = 7
)

// A Record is one row of the metadata table.
type Record struct {
	FileName string
	Fold     int
	Label    int

	// ClassName is empty if the table has no class column.
	ClassName string
}

// Metadata is an immutable list of records.
type Metadata struct {
	Records []Record
}

// ReadMetadataFile reads a metadata table from a CSV file.
func ReadMetadataFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("read metadata", err)
	}
	defer f.Close()
	return ReadMetadata(f)
}

// ReadMetadata reads a metadata table in CSV format.
//
// Columns are used by position: the file name comes
// first, the fold is the sixth column, the class label is
// the seventh, and an optional eighth column names the
// class.
// A leading header row is detected and skipped.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &Metadata{}
	for rowIdx := 1; ; rowIdx++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, essentials.AddCtx("read metadata", err)
		}
		if rowIdx == 1 && isHeader(row) {
			continue
		}
		record, err := parseRecord(row)
		if err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("read metadata: row %d", rowIdx), err)
		}
		res.Records = append(res.Records, record)
	}
	return res, nil
}

// Len returns the number of records.
func (m *Metadata) Len() int {
	return len(m.Records)
}

// Folds returns the distinct folds, in the order they
// first appear.
func (m *Metadata) Folds() []int {
	seen := map[int]bool{}
	var res []int
	for _, r := range m.Records {
		if !seen[r.Fold] {
			seen[r.Fold] = true
			res = append(res, r.Fold)
		}
	}
	return res
}

// ClassNames maps each label to its class name.
// Labels without a named record map to "".
func (m *Metadata) ClassNames() []string {
	res := make([]string, soundnet.NumClasses)
	for _, r := range m.Records {
		if res[r.Label] == "" {
			res[r.Label] = r.ClassName
		}
	}
	return res
}

func isHeader(row []string) bool {
	if len(row) <= foldColumn {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(row[foldColumn]))
	return err != nil
}

func parseRecord(row []string) (Record, error) {
	if len(row) <= labelColumn {
		return Record{}, fmt.Errorf("expected at least %d columns but got %d",
			labelColumn+1, len(row))
	}
	fileName := strings.TrimSpace(row[fileNameColumn])
	if fileName == "" {
		return Record{}, errors.New("empty file name")
	}
	fold, err := strconv.Atoi(strings.TrimSpace(row[foldColumn]))
	if err != nil {
		return Record{}, essentials.AddCtx("parse fold", err)
	}
	label, err := strconv.Atoi(strings.TrimSpace(row[labelColumn]))
	if err != nil {
		return Record{}, essentials.AddCtx("parse label", err)
	}
	if label < 0 || label >= soundnet.NumClasses {
		return Record{}, fmt.Errorf("label %d out of range [0, %d)", label,
			soundnet.NumClasses)
	}
	res := Record{FileName: fileName, Fold: fold, Label: label}
	if len(row) > classNameColumn {
		res.ClassName = strings.TrimSpace(row[classNameColumn])
	}
	return res, nil
}
