// Package groupkey implements the canonical grouping and display-id schemes
// of spec section 6: design bars are partitioned by
// (specification, round(crossSection)), and within that partition are given
// stable, human-facing display ids.
package groupkey

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Make returns the canonical group key "<specification>_<round(crossSection)>".
func Make(specification string, crossSection float64) string {
	return fmt.Sprintf("%s_%d", specification, int(math.Round(crossSection)))
}

// Parse recovers (specification, crossSection) from a group key. If the
// specification itself contains "_", only the last "_"-delimited segment is
// parsed as the cross-section, per spec section 6.
func Parse(key string) (specification string, crossSection float64, err error) {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return "", 0, fmt.Errorf("groupkey: %q has no specification/cross-section separator", key)
	}
	spec := key[:idx]
	csStr := key[idx+1:]
	cs, err := strconv.ParseFloat(csStr, 64)
	if err != nil {
		return "", 0, fmt.Errorf("groupkey: %q: invalid cross-section suffix: %w", key, err)
	}
	return spec, cs, nil
}

// Bar is the minimal shape groupkey needs to assign display ids; callers
// adapt their own design-bar type into this before calling AssignDisplayIDs.
type Bar struct {
	GroupKey string
	Length   float64
	Index    int // caller's original index, used only to make sort stable
}

// AssignDisplayIDs implements the scheme of spec section 6: group bars by
// group key, sort groups lexicographically and letter them A, B, ..., Z, AA,
// AB, ...; within each group sort by length ascending and assign
// "<letter><1-based index>". The returned map is keyed by each input bar's
// original index, so it is stable for identical inputs regardless of the
// slice's incoming order.
func AssignDisplayIDs(bars []Bar) map[int]string {
	groups := make(map[string][]Bar)
	for _, b := range bars {
		groups[b.GroupKey] = append(groups[b.GroupKey], b)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make(map[int]string, len(bars))
	for gi, key := range keys {
		letter := spreadsheetLetter(gi)
		members := groups[key]
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].Length != members[j].Length {
				return members[i].Length < members[j].Length
			}
			return members[i].Index < members[j].Index
		})
		for i, m := range members {
			result[m.Index] = fmt.Sprintf("%s%d", letter, i+1)
		}
	}
	return result
}

// spreadsheetLetter renders 0, 1, ..., 25, 26, 27, ... as A, B, ..., Z, AA,
// AB, ... (the classic spreadsheet-column scheme).
func spreadsheetLetter(n int) string {
	var b strings.Builder
	n++ // 1-based for the repeated-division algorithm
	for n > 0 {
		n--
		b.WriteByte(byte('A' + n%26))
		n /= 26
	}
	s := b.String()
	// digits were generated least-significant first
	runes := []byte(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
