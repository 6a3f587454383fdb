package l5regions

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/banshee-data/arena.tracker/internal/monitoring"
)

var logf = monitoring.Tagged("Crossings")

// PairingMode selects how exits are matched to entries.
type PairingMode string

const (
	// PairRankOrder pairs the k-th exit with the k-th entry after sorting
	// both by frame. It is the default.
	PairRankOrder PairingMode = "rank"
	// PairNearestEntry pairs each exit with the earliest unmatched entry
	// that follows it.
	PairNearestEntry PairingMode = "nearest"
)

// ParsePairingMode validates a mode name. Empty selects PairRankOrder.
func ParsePairingMode(s string) (PairingMode, error) {
	switch m := PairingMode(s); m {
	case "":
		return PairRankOrder, nil
	case PairRankOrder, PairNearestEntry:
		return m, nil
	}
	return "", fmt.Errorf("unknown pairing mode %q (want rank or nearest)", s)
}

// Crossing is one exit from RegionFrom (last inside frame FrameFrom)
// paired with an entry into RegionTo (first inside frame FrameTo).
type Crossing struct {
	RegionFrom string `json:"region_from"`
	RegionTo   string `json:"region_to"`
	FrameFrom  int    `json:"frame_from"`
	FrameTo    int    `json:"frame_to"`
}

// CrossCount is the number of crossings between an ordered region pair.
type CrossCount struct {
	RegionFrom string `json:"region_from"`
	RegionTo   string `json:"region_to"`
	Count      int    `json:"count"`
}

// Mismatch records unequal exit and entry totals. The longer side's
// excess events were dropped.
type Mismatch struct {
	From int
	To   int
}

// CrossingResult is the output of DetectCrossings.
type CrossingResult struct {
	Crossings []Crossing
	Mode      PairingMode
	Mismatch  *Mismatch
}

// event is a single membership transition.
type event struct {
	region string
	order  int
	frame  int
}

// transitions extracts entry and exit events from every region's series.
// An entry at row i is reported at Frames[i]; an exit at row i is reported
// at Frames[i-1], the last frame inside. The initial state is not an event.
func transitions(m Membership) (froms, tos []event) {
	for order, name := range m.Names {
		in := m.Inside[name]
		for i := 1; i < len(in) && i < len(m.Frames); i++ {
			switch {
			case in[i] && !in[i-1]:
				tos = append(tos, event{region: name, order: order, frame: m.Frames[i]})
			case !in[i] && in[i-1]:
				froms = append(froms, event{region: name, order: order, frame: m.Frames[i-1]})
			}
		}
	}
	byFrame := func(a, b event) int {
		return cmp.Or(cmp.Compare(a.frame, b.frame), cmp.Compare(a.order, b.order))
	}
	slices.SortStableFunc(froms, byFrame)
	slices.SortStableFunc(tos, byFrame)
	return froms, tos
}

// DetectCrossings pairs region exits with region entries. Unequal exit and
// entry totals are logged and reported in Mismatch rather than failing.
func DetectCrossings(m Membership, mode PairingMode) CrossingResult {
	if mode == "" {
		mode = PairRankOrder
	}
	froms, tos := transitions(m)

	res := CrossingResult{Mode: mode}
	switch mode {
	case PairNearestEntry:
		res.Crossings = pairNearest(froms, tos)
	default:
		res.Mode = PairRankOrder
		res.Crossings = pairRank(froms, tos)
	}

	if len(froms) != len(tos) {
		res.Mismatch = &Mismatch{From: len(froms), To: len(tos)}
		monitoring.Warnf("[Crossings] %d exits but %d entries; %d crossings paired (%s)",
			len(froms), len(tos), len(res.Crossings), res.Mode)
	} else {
		logf("%d crossings paired (%s)", len(res.Crossings), res.Mode)
	}
	return res
}

func pairRank(froms, tos []event) []Crossing {
	n := min(len(froms), len(tos))
	out := make([]Crossing, 0, n)
	for k := range n {
		out = append(out, Crossing{
			RegionFrom: froms[k].region,
			RegionTo:   tos[k].region,
			FrameFrom:  froms[k].frame,
			FrameTo:    tos[k].frame,
		})
	}
	return out
}

func pairNearest(froms, tos []event) []Crossing {
	used := make([]bool, len(tos))
	var out []Crossing
	for _, f := range froms {
		for j, t := range tos {
			if used[j] || t.frame <= f.frame {
				continue
			}
			used[j] = true
			out = append(out, Crossing{
				RegionFrom: f.region,
				RegionTo:   t.region,
				FrameFrom:  f.frame,
				FrameTo:    t.frame,
			})
			break
		}
	}
	return out
}

// Counts aggregates crossings by (RegionFrom, RegionTo), sorted by both.
func (r CrossingResult) Counts() []CrossCount {
	return CountCrossings(r.Crossings)
}

// CountCrossings aggregates crossings by ordered region pair.
func CountCrossings(cs []Crossing) []CrossCount {
	idx := make(map[[2]string]int)
	var out []CrossCount
	for _, c := range cs {
		key := [2]string{c.RegionFrom, c.RegionTo}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, CrossCount{RegionFrom: c.RegionFrom, RegionTo: c.RegionTo})
		}
		out[i].Count++
	}
	slices.SortFunc(out, func(a, b CrossCount) int {
		return cmp.Or(cmp.Compare(a.RegionFrom, b.RegionFrom), cmp.Compare(a.RegionTo, b.RegionTo))
	})
	return out
}
