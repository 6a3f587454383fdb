package pipeline

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/units"
)

// formatFloat writes NaN as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// WriteLocationCSV writes one row per frame: position, step distance, the
// scaled distance when a scale is set, and one membership column per
// region.
func WriteLocationCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	scaled := res.ScaledDistances()

	header := []string{"File", "Frame", "X", "Y", "Distance_px"}
	if scaled != nil {
		header = append(header, res.Job.Scale.Column())
	}
	header = append(header, res.Membership.Names...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, r := range res.Trajectory.Rows {
		rec := []string{res.Job.File, strconv.Itoa(r.Frame), formatFloat(r.X), formatFloat(r.Y), formatFloat(r.DistancePx)}
		if scaled != nil {
			rec = append(rec, formatFloat(scaled[i]))
		}
		for _, name := range res.Membership.Names {
			rec = append(rec, formatBool(res.Membership.Inside[name][i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// summaryHeader lists the summary columns for a set of regions.
func summaryHeader(regions []string, scale units.Scale, timeBin bool) []string {
	h := []string{"File", "bin", "bin_start", "bin_end"}
	if timeBin {
		h = append(h, "bin_start_min", "bin_end_min")
	}
	h = append(h, "Frames", "Distance_px")
	if !scale.IsZero() {
		h = append(h, scale.Column())
	}
	h = append(h, regions...)
	return append(h, "Cross_Region")
}

func summaryRecord(file string, row l6summary.Row, regions []string, scale units.Scale, timeBin bool) []string {
	rec := []string{file, row.Bin.Label, formatFloat(row.Bin.Start), formatFloat(row.Bin.End)}
	if timeBin {
		if row.RangeMinutes != nil {
			rec = append(rec, formatFloat(row.RangeMinutes[0]), formatFloat(row.RangeMinutes[1]))
		} else {
			rec = append(rec, "", "")
		}
	}
	rec = append(rec, strconv.Itoa(row.Frames), formatFloat(row.DistancePx))
	if !scale.IsZero() {
		rec = append(rec, formatFloat(scale.Convert(row.DistancePx)))
	}
	for _, name := range regions {
		v, ok := row.Occupancy[name]
		if !ok {
			v = math.NaN()
		}
		rec = append(rec, formatFloat(v))
	}
	return append(rec, strconv.Itoa(row.CrossRegion))
}

// WriteSummaryCSV writes one row per bin.
func WriteSummaryCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	regions := res.Membership.Names
	if err := cw.Write(summaryHeader(regions, res.Job.Scale, res.Job.Bins.TimeBin)); err != nil {
		return err
	}
	for _, row := range res.Summary {
		if err := cw.Write(summaryRecord(res.Job.File, row, regions, res.Job.Scale, res.Job.Bins.TimeBin)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFramesCSV writes the per-frame broadcast of bin aggregates: one row
// per frame carrying its bin's values, empty cells for uncovered frames.
func WriteFramesCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	regions := res.Membership.Names
	header := append([]string{"Frame", "X", "Y"}, summaryHeader(regions, res.Job.Scale, res.Job.Bins.TimeBin)...)
	if err := cw.Write(header); err != nil {
		return err
	}
	blank := make([]string, len(header)-3)
	for _, fr := range res.Frames {
		rec := []string{strconv.Itoa(fr.Frame), formatFloat(fr.X), formatFloat(fr.Y)}
		if fr.Summary == nil {
			rec = append(rec, blank...)
		} else {
			rec = append(rec, summaryRecord(res.Job.File, *fr.Summary, regions, res.Job.Scale, res.Job.Bins.TimeBin)...)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCrossingsCSV writes one row per crossing event.
func WriteCrossingsCSV(w io.Writer, crossings []l5regions.Crossing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Region_From", "Region_To", "Frame_From", "Frame_To"}); err != nil {
		return err
	}
	for _, c := range crossings {
		if err := cw.Write([]string{c.RegionFrom, c.RegionTo, strconv.Itoa(c.FrameFrom), strconv.Itoa(c.FrameTo)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCountsCSV writes crossing counts per ordered region pair.
func WriteCountsCSV(w io.Writer, counts []l5regions.CrossCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Region_From", "Region_To", "Count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.RegionFrom, c.RegionTo, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchCSV writes every accumulated summary row. regions fixes the
// occupancy columns, since files in a batch share one configuration.
func WriteBatchCSV(w io.Writer, acc *l6summary.Accumulator, regions []string, scale units.Scale, timeBin bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader(regions, scale, timeBin)); err != nil {
		return err
	}
	for _, fr := range acc.Rows() {
		if err := cw.Write(summaryRecord(fr.File, fr.Row, regions, scale, timeBin)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
