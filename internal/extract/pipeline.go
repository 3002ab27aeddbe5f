// Package extract turns uploaded xlsx workbooks into a ZIP of renamed,
// deduplicated embedded images.
package extract

// Summary reports the counters for one extraction request.
type Summary struct {
	Processed  int `json:"processed"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
}

// Result is the finished archive plus its summary.
type Result struct {
	Archive []byte
	Summary Summary
}

// namedImage is an image that survived dedup, carrying its final filename.
type namedImage struct {
	Filename string
	Data     []byte
}

// Job accumulates the workbooks of a single request and packages the
// surviving images into one archive. All state (dedup set, name registry,
// counters) is scoped to the Job; a Job must not be reused across requests.
type Job struct {
	sel       Selection
	seen      dedupSet
	names     *namer
	images    []namedImage
	manifest  []manifestRow
	processed int
}

// NewJob creates a Job for the given column selection.
func NewJob(sel Selection) *Job {
	return &Job{
		sel:   sel,
		seen:  make(dedupSet),
		names: newNamer(),
	}
}

// AddWorkbook extracts the images anchored in the selected column of one
// uploaded workbook, deduplicates them against everything seen so far in
// this job, and assigns output filenames in encounter order.
func (j *Job) AddWorkbook(filename string, data []byte) error {
	images, err := readWorkbook(data, j.sel)
	if err != nil {
		return &FileError{Filename: filename, Err: err}
	}

	for _, img := range images {
		j.processed++
		row := manifestRow{Sheet: img.Sheet, Row: img.Row, RawName: img.Name}
		if j.seen.seen(img.Data) {
			row.Action = "Duplicate"
			j.manifest = append(j.manifest, row)
			continue
		}
		row.Filename = j.names.next(img)
		row.Action = "Saved"
		j.manifest = append(j.manifest, row)
		j.images = append(j.images, namedImage{Filename: row.Filename, Data: img.Data})
	}
	return nil
}

// Finish writes the archive and returns it together with the final counters.
// A job with zero processed images is a valid outcome and yields an archive
// with no image entries.
func (j *Job) Finish() (*Result, error) {
	archive, err := packArchive(j.images, j.manifest)
	if err != nil {
		return nil, err
	}
	return &Result{
		Archive: archive,
		Summary: Summary{
			Processed:  j.processed,
			Saved:      len(j.images),
			Duplicates: j.processed - len(j.images),
		},
	}, nil
}
