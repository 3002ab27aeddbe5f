package extract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/xuri/excelize/v2"
)

// Image is one embedded picture pulled from a workbook, in drawing order.
type Image struct {
	Sheet string
	Row   int    // 1-based anchor row
	Name  string // raw name-column value, "" when the cell is blank
	Data  []byte
	Ext   string // detected extension without the dot, e.g. "png"
}

// readWorkbook opens xlsx bytes and returns the pictures anchored in the
// selected image column, paired with their name-column values. The order of
// the returned slice follows the workbook's drawing order, which keeps
// downstream dedup and naming deterministic.
func readWorkbook(data []byte, sel Selection) ([]Image, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	var images []Image
	for _, sheet := range f.GetSheetList() {
		cells, err := f.GetPictureCells(sheet)
		if err != nil {
			return nil, fmt.Errorf("listing pictures in sheet %q: %w", sheet, err)
		}
		if len(cells) == 0 {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading rows in sheet %q: %w", sheet, err)
		}
		names := buildRowNameIndex(rows, sel.NameCol)

		for _, cell := range cells {
			col, row, err := excelize.CellNameToCoordinates(cell)
			if err != nil {
				return nil, fmt.Errorf("resolving anchor %s!%s: %w", sheet, cell, err)
			}
			if col != sel.ImageCol {
				continue
			}

			pictures, err := f.GetPictures(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("reading picture at %s!%s: %w", sheet, cell, err)
			}
			for _, pic := range pictures {
				images = append(images, Image{
					Sheet: sheet,
					Row:   row,
					Name:  names[row],
					Data:  pic.File,
					Ext:   detectExtension(pic.File, pic.Extension),
				})
			}
		}
	}
	return images, nil
}

// extAliases normalizes container extensions to the conventional short form.
var extAliases = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

// detectExtension prefers the extension recorded in the workbook and falls
// back to sniffing the image bytes. Unknown formats default to png.
func detectExtension(data []byte, hint string) string {
	ext := strings.ToLower(strings.TrimPrefix(hint, "."))
	if ext == "" {
		if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			ext = format
		} else {
			ext = "png"
		}
	}
	if alias, ok := extAliases[ext]; ok {
		return alias
	}
	return ext
}
