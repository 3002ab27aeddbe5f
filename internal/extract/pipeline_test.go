package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

func TestExtract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extract Suite")
}

// pngBytes renders a 1x1 PNG with the given color so test images have
// distinct byte content.
func pngBytes(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var (
	redPNG  = pngBytes(color.RGBA{R: 255, A: 255})
	bluePNG = pngBytes(color.RGBA{B: 255, A: 255})
)

type fixtureImage struct {
	cell string
	name string // value for the name column (B) at the anchor row; "" leaves it blank
	data []byte
}

// buildWorkbook creates an in-memory workbook with pictures anchored at the
// given cells and names in column B of the matching rows.
func buildWorkbook(images ...fixtureImage) []byte {
	f := excelize.NewFile()
	defer f.Close()

	for _, fi := range images {
		if fi.name != "" {
			_, row, err := excelize.CellNameToCoordinates(fi.cell)
			Expect(err).NotTo(HaveOccurred())
			nameCell, err := excelize.CoordinatesToCellName(2, row)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.SetCellValue("Sheet1", nameCell, fi.name)).To(Succeed())
		}
		Expect(f.AddPictureFromBytes("Sheet1", fi.cell, &excelize.Picture{
			Extension: ".png",
			File:      fi.data,
		})).To(Succeed())
	}

	buf, err := f.WriteToBuffer()
	Expect(err).NotTo(HaveOccurred())
	return buf.Bytes()
}

// archiveEntries reads the archive back and returns entry name -> content.
func archiveEntries(archive []byte) map[string][]byte {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	Expect(err).NotTo(HaveOccurred())

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		Expect(err).NotTo(HaveOccurred())
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		Expect(err).NotTo(HaveOccurred())
		entries[f.Name] = buf.Bytes()
	}
	return entries
}

func mustSelection(imageCol, nameCol string) Selection {
	sel, err := NewSelection(imageCol, nameCol)
	Expect(err).NotTo(HaveOccurred())
	return sel
}

var _ = Describe("NewSelection", func() {
	It("accepts distinct column letters", func() {
		sel, err := NewSelection("A", "B")
		Expect(err).NotTo(HaveOccurred())
		Expect(sel.ImageCol).To(Equal(1))
		Expect(sel.NameCol).To(Equal(2))
	})

	It("accepts lowercase and multi-letter columns", func() {
		sel, err := NewSelection("a", "aa")
		Expect(err).NotTo(HaveOccurred())
		Expect(sel.ImageCol).To(Equal(1))
		Expect(sel.NameCol).To(Equal(27))
	})

	It("rejects identical columns", func() {
		_, err := NewSelection("C", "C")
		Expect(err).To(MatchError(ErrInvalidColumnSelection))
	})

	It("rejects malformed column letters", func() {
		for _, letter := range []string{"", "1", "A1", "?"} {
			_, err := NewSelection(letter, "B")
			Expect(err).To(MatchError(ErrInvalidColumnSelection), "letter %q", letter)
		}
	})
})

var _ = Describe("Job", func() {
	var (
		job *Job
		sel Selection
	)

	BeforeEach(func() {
		sel = mustSelection("A", "B")
		job = NewJob(sel)
	})

	When("a workbook holds distinct images with distinct names", func() {
		BeforeEach(func() {
			wb := buildWorkbook(
				fixtureImage{cell: "A1", name: "part1", data: redPNG},
				fixtureImage{cell: "A2", name: "part2", data: bluePNG},
			)
			Expect(job.AddWorkbook("parts.xlsx", wb)).To(Succeed())
		})

		It("saves every image and reports no duplicates", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(Equal(Summary{Processed: 2, Saved: 2, Duplicates: 0}))
		})

		It("names archive entries after the name column", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			entries := archiveEntries(result.Archive)
			Expect(entries).To(HaveKeyWithValue("images/part1.png", redPNG))
			Expect(entries).To(HaveKeyWithValue("images/part2.png", bluePNG))
		})

		It("includes a manifest", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			entries := archiveEntries(result.Archive)
			Expect(entries).To(HaveKey("report.csv"))
			Expect(string(entries["report.csv"])).To(ContainSubstring("part1.png"))
		})
	})

	When("two images share identical byte content", func() {
		BeforeEach(func() {
			wb := buildWorkbook(
				fixtureImage{cell: "A1", name: "first", data: redPNG},
				fixtureImage{cell: "A2", name: "second", data: redPNG},
			)
			Expect(job.AddWorkbook("dupes.xlsx", wb)).To(Succeed())
		})

		It("keeps only the first occurrence", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(Equal(Summary{Processed: 2, Saved: 1, Duplicates: 1}))

			entries := archiveEntries(result.Archive)
			Expect(entries).To(HaveKey("images/first.png"))
			Expect(entries).NotTo(HaveKey("images/second.png"))
		})
	})

	When("distinct images share a sanitized name", func() {
		BeforeEach(func() {
			wb := buildWorkbook(
				fixtureImage{cell: "A1", name: "part", data: redPNG},
				fixtureImage{cell: "A2", name: "part", data: bluePNG},
			)
			Expect(job.AddWorkbook("collide.xlsx", wb)).To(Succeed())
		})

		It("disambiguates with numeric suffixes in encounter order", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary.Saved).To(Equal(2))

			entries := archiveEntries(result.Archive)
			Expect(entries).To(HaveKeyWithValue("images/part.png", redPNG))
			Expect(entries).To(HaveKeyWithValue("images/part_1.png", bluePNG))
		})
	})

	When("the name column is blank for an anchor row", func() {
		BeforeEach(func() {
			wb := buildWorkbook(fixtureImage{cell: "A3", data: redPNG})
			Expect(job.AddWorkbook("blank.xlsx", wb)).To(Succeed())
		})

		It("falls back to a positional placeholder", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(archiveEntries(result.Archive)).To(HaveKey("images/image_3.png"))
		})
	})

	When("the workbook has no embedded images", func() {
		BeforeEach(func() {
			f := excelize.NewFile()
			Expect(f.SetCellValue("Sheet1", "B1", "no pictures here")).To(Succeed())
			buf, err := f.WriteToBuffer()
			Expect(err).NotTo(HaveOccurred())
			f.Close()
			Expect(job.AddWorkbook("empty.xlsx", buf.Bytes())).To(Succeed())
		})

		It("succeeds with zero counters and no image entries", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(Equal(Summary{}))

			for name := range archiveEntries(result.Archive) {
				Expect(name).NotTo(HavePrefix(archiveDir))
			}
		})
	})

	When("images are anchored outside the image column", func() {
		BeforeEach(func() {
			wb := buildWorkbook(fixtureImage{cell: "C5", name: "ignored", data: redPNG})
			Expect(job.AddWorkbook("offcolumn.xlsx", wb)).To(Succeed())
		})

		It("ignores them entirely", func() {
			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary.Processed).To(BeZero())
		})
	})

	When("the upload is not an xlsx workbook", func() {
		It("fails with an unsupported format error naming the file", func() {
			err := job.AddWorkbook("notes.txt", []byte("plain text, not a workbook"))
			Expect(err).To(MatchError(ErrUnsupportedFormat))

			var fileErr *FileError
			Expect(errors.As(err, &fileErr)).To(BeTrue())
			Expect(fileErr.Filename).To(Equal("notes.txt"))
		})
	})

	When("the same image appears in two workbooks of one job", func() {
		It("deduplicates across the whole request", func() {
			first := buildWorkbook(fixtureImage{cell: "A1", name: "part1", data: redPNG})
			second := buildWorkbook(fixtureImage{cell: "A1", name: "copy", data: redPNG})

			Expect(job.AddWorkbook("first.xlsx", first)).To(Succeed())
			Expect(job.AddWorkbook("second.xlsx", second)).To(Succeed())

			result, err := job.Finish()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(Equal(Summary{Processed: 2, Saved: 1, Duplicates: 1}))
		})
	})
})

var _ = Describe("sanitizeName", func() {
	It("strips characters illegal in filenames", func() {
		Expect(sanitizeName(`bolt <M8> "zinc": a/b\c|d?e*`)).To(Equal("bolt_M8_zinc_abcde"))
	})

	It("collapses whitespace into underscores", func() {
		Expect(sanitizeName("  spring   washer ")).To(Equal("spring_washer"))
	})

	It("truncates long names", func() {
		long := strings.Repeat("x", 80)
		Expect(sanitizeName(long)).To(HaveLen(50))
	})

	It("returns empty for unusable input", func() {
		Expect(sanitizeName(`???***`)).To(BeEmpty())
		Expect(sanitizeName("   ")).To(BeEmpty())
	})
})
