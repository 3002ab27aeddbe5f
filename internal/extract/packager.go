package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// archiveDir is the folder inside the ZIP that holds the extracted images.
const archiveDir = "images/"

// manifestRow mirrors one line of the report.csv written into every archive.
type manifestRow struct {
	Sheet    string
	Row      int
	RawName  string
	Filename string
	Action   string // "Saved" or "Duplicate"
}

// packArchive writes the surviving images and the manifest into an in-memory
// ZIP archive and returns its bytes.
func packArchive(images []namedImage, manifest []manifestRow) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, img := range images {
		w, err := zw.Create(archiveDir + img.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: creating entry %s: %v", ErrPackaging, img.Filename, err)
		}
		if _, err := w.Write(img.Data); err != nil {
			return nil, fmt.Errorf("%w: writing entry %s: %v", ErrPackaging, img.Filename, err)
		}
	}

	report, err := zw.Create("report.csv")
	if err != nil {
		return nil, fmt.Errorf("%w: creating report.csv: %v", ErrPackaging, err)
	}
	cw := csv.NewWriter(report)
	records := [][]string{{"sheet", "row", "part_name", "filename", "action"}}
	for _, row := range manifest {
		records = append(records, []string{row.Sheet, strconv.Itoa(row.Row), row.RawName, row.Filename, row.Action})
	}
	if err := cw.WriteAll(records); err != nil {
		return nil, fmt.Errorf("%w: writing report.csv: %v", ErrPackaging, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing archive: %v", ErrPackaging, err)
	}
	return buf.Bytes(), nil
}
