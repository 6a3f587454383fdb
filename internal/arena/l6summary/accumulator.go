package l6summary

// FileRow is a bin aggregate tagged with the file it came from.
type FileRow struct {
	File string
	Row
}

// Accumulator collects summaries across a batch of runs. The zero value
// is ready to use.
type Accumulator struct {
	rows  []FileRow
	files []string
}

// Add appends the summary rows of one file.
func (a *Accumulator) Add(file string, rows []Row) {
	a.files = append(a.files, file)
	for _, r := range rows {
		a.rows = append(a.rows, FileRow{File: file, Row: r})
	}
}

// Rows returns every accumulated row in insertion order.
func (a *Accumulator) Rows() []FileRow { return a.rows }

// Files returns the files added so far, in order.
func (a *Accumulator) Files() []string { return a.files }

// Len returns the number of accumulated rows.
func (a *Accumulator) Len() int { return len(a.rows) }
