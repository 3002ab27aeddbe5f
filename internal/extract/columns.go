package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Selection holds the validated column choices for one request.
type Selection struct {
	ImageCol int // 1-based column holding embedded images
	NameCol  int // 1-based column holding output names
}

// NewSelection validates the two column letters and converts them to column
// numbers. The image and name columns must be distinct.
func NewSelection(imageLetter, nameLetter string) (Selection, error) {
	imageCol, err := parseColumn(imageLetter)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: image column %q", ErrInvalidColumnSelection, imageLetter)
	}
	nameCol, err := parseColumn(nameLetter)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: name column %q", ErrInvalidColumnSelection, nameLetter)
	}
	if imageCol == nameCol {
		return Selection{}, fmt.Errorf("%w: image and name columns must be different", ErrInvalidColumnSelection)
	}
	return Selection{ImageCol: imageCol, NameCol: nameCol}, nil
}

func parseColumn(letter string) (int, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return 0, fmt.Errorf("empty column letter")
	}
	return excelize.ColumnNameToNumber(letter)
}

// rowNameIndex maps a 1-based row number to the name-column value for that
// row. Blank cells are absent; lookups for them return the empty string.
type rowNameIndex map[int]string

func buildRowNameIndex(rows [][]string, nameCol int) rowNameIndex {
	index := make(rowNameIndex, len(rows))
	for i, row := range rows {
		if nameCol-1 >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[nameCol-1]); value != "" {
			index[i+1] = value
		}
	}
	return index
}
