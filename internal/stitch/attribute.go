package stitch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type taggedRow struct {
	values     []string
	originalID int
	interval   int
}

// StitchAttribute concatenates one attribute type's per-interval frames
// (already time-ordered) into a single run-wide frame, per spec §4.9
// steps 3-4:
//
//  1. every id is offset by the running max of the previous intervals,
//     so ids stay unique across the concatenation;
//  2. the frame whose time duplicates the previous interval's last
//     mask time (each worker re-processes its first frame against the
//     prior interval's boundary frame to seed matching) is dropped;
//  3. for every interval boundary, matchDicts[i] (built by MatchLabels
//     from the raw label grids) rewrites ids in interval i+1 so a
//     carried-over object keeps the universal id it was given in
//     interval i, and the parents column is rewritten the same way;
//  4. every surviving id is renumbered densely from 1, and parents
//     tokens are renumbered through the identical mapping.
//
// matchDicts has length len(frames)-1 and maps interval i's original id
// to interval i+1's original id; pass nil matchDicts (or a nil slice)
// for attribute types that carry no persistent id, such as a grouped
// object's member tables, which skip step 3 entirely.
//
// idDict returns, for convenience, the final id assigned to every
// (interval, originalID) pair, letting a caller hold a reference mask's
// original labels against this run-wide numbering (see StitchMasks).
func StitchAttribute(frames []Frame, idColumn string, matchDicts []map[int]int) (out Frame, idDict map[int]map[int]int, err error) {
	if len(frames) == 0 {
		return Frame{}, map[int]map[int]int{}, nil
	}

	header := frames[0].Header
	timeIdx := indexOfCol(header, "time")
	idIdx := indexOfCol(header, idColumn)
	parentsIdx := indexOfCol(header, "parents")
	if idIdx < 0 {
		return Frame{}, nil, fmt.Errorf("stitch.StitchAttribute: column %q not found", idColumn)
	}

	var rows []taggedRow
	offset := 0
	var overlapEnd []time.Time
	for i, f := range frames {
		maxID := 0
		for _, row := range f.Rows {
			v, _ := strconv.Atoi(row[idIdx])
			if v > maxID {
				maxID = v
			}
		}
		var last time.Time
		for _, row := range f.Rows {
			orig, _ := strconv.Atoi(row[idIdx])
			values := append([]string(nil), row...)
			values[idIdx] = strconv.Itoa(orig + offset)
			rows = append(rows, taggedRow{values: values, originalID: orig, interval: i})
			if timeIdx >= 0 {
				if t, perr := time.Parse(time.RFC3339, row[timeIdx]+"Z"); perr == nil && t.After(last) {
					last = t
				}
			}
		}
		offset += maxID
		overlapEnd = append(overlapEnd, last)
	}

	if timeIdx >= 0 {
		var trimmed []taggedRow
		for _, r := range rows {
			if r.interval > 0 {
				t, perr := time.Parse(time.RFC3339, r.values[timeIdx]+"Z")
				if perr == nil && !t.After(overlapEnd[r.interval-1]) {
					continue
				}
			}
			trimmed = append(trimmed, r)
		}
		rows = trimmed
	}

	for i, md := range matchDicts {
		if len(md) == 0 {
			continue
		}
		reversed := map[int]int{}
		for a, b := range md {
			reversed[b] = a
		}
		currentIDs := idsByOriginal(rows, i, idIdx)

		for j := range rows {
			if rows[j].interval != i+1 {
				continue
			}
			if curOrig, ok := reversed[rows[j].originalID]; ok {
				if universalID, ok2 := currentIDs[curOrig]; ok2 {
					rows[j].values[idIdx] = strconv.Itoa(universalID)
				}
			}
		}
		// nextIDs is read after the relabel above so the parents pass
		// below sees the final interval-i+1 id for every object.
		nextIDs := idsByOriginal(rows, i+1, idIdx)

		if parentsIdx >= 0 {
			for j := range rows {
				if rows[j].interval != i+1 {
					continue
				}
				raw := rows[j].values[parentsIdx]
				if raw == "" {
					continue
				}
				toks := strings.Fields(raw)
				for k, tok := range toks {
					p, _ := strconv.Atoi(tok)
					if curOrig, ok := reversed[p]; ok {
						if universalID, ok2 := currentIDs[curOrig]; ok2 {
							toks[k] = strconv.Itoa(universalID)
							continue
						}
					}
					if v, ok := nextIDs[p]; ok {
						toks[k] = strconv.Itoa(v)
					}
				}
				rows[j].values[parentsIdx] = strings.Join(toks, " ")
			}
		}
	}

	unique := map[int]bool{}
	for _, r := range rows {
		v, _ := strconv.Atoi(r.values[idIdx])
		unique[v] = true
	}
	sortedVals := make([]int, 0, len(unique))
	for v := range unique {
		sortedVals = append(sortedVals, v)
	}
	sort.Ints(sortedVals)
	finalMap := make(map[int]int, len(sortedVals))
	for i, v := range sortedVals {
		finalMap[v] = i + 1
	}

	for j := range rows {
		v, _ := strconv.Atoi(rows[j].values[idIdx])
		rows[j].values[idIdx] = strconv.Itoa(finalMap[v])
		if parentsIdx < 0 {
			continue
		}
		raw := rows[j].values[parentsIdx]
		if raw == "" {
			continue
		}
		toks := strings.Fields(raw)
		for k, tok := range toks {
			p, _ := strconv.Atoi(tok)
			if nv, ok := finalMap[p]; ok {
				toks[k] = strconv.Itoa(nv)
			}
		}
		rows[j].values[parentsIdx] = strings.Join(toks, " ")
	}

	idDict = map[int]map[int]int{}
	for _, r := range rows {
		m, ok := idDict[r.interval]
		if !ok {
			m = map[int]int{}
			idDict[r.interval] = m
		}
		v, _ := strconv.Atoi(r.values[idIdx])
		m[r.originalID] = v
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessRow(header, rows[i].values, rows[j].values, timeIdx, idIdx)
	})
	outRows := make([][]string, len(rows))
	for i, r := range rows {
		outRows[i] = r.values
	}
	return Frame{Header: header, Rows: outRows}, idDict, nil
}

func idsByOriginal(rows []taggedRow, interval, idIdx int) map[int]int {
	out := map[int]int{}
	for _, r := range rows {
		if r.interval == interval {
			v, _ := strconv.Atoi(r.values[idIdx])
			out[r.originalID] = v
		}
	}
	return out
}

func indexOfCol(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func lessRow(_ []string, a, b []string, timeIdx, idIdx int) bool {
	if timeIdx >= 0 && a[timeIdx] != b[timeIdx] {
		return a[timeIdx] < b[timeIdx]
	}
	av, aErr := strconv.Atoi(a[idIdx])
	bv, bErr := strconv.Atoi(b[idIdx])
	if aErr == nil && bErr == nil {
		return av < bv
	}
	return a[idIdx] < b[idIdx]
}
