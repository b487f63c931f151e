package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/models"
)

// SortMode selects category ordering.
type SortMode string

const (
	SortRecent SortMode = "recent"
	SortName   SortMode = "name"
	SortCount  SortMode = "count"
	SortPinned SortMode = "pinned"
)

// SortModes lists every supported mode.
var SortModes = []SortMode{SortRecent, SortName, SortCount, SortPinned}

// ParseSortMode maps a query string to a mode. Empty means SortRecent.
func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortRecent, nil
	}
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(SortModes, m) {
		return m, nil
	}
	return "", fmt.Errorf("catalog: unknown sort mode %q: %w", s, apperr.ErrInvalidArgument)
}

// Sort returns a sorted copy of cats. All modes are stable, so ties keep their
// input order.
//
//   - recent: LastModified descending
//   - name:   DisplayName ascending (byte-wise)
//   - count:  ItemCount descending
//   - pinned: pinned categories by recency, then unpinned by recency
func Sort(cats []models.Category, mode SortMode) []models.Category {
	out := slices.Clone(cats)
	switch mode {
	case SortName:
		slices.SortStableFunc(out, func(a, b models.Category) int {
			return strings.Compare(a.DisplayName, b.DisplayName)
		})
	case SortCount:
		slices.SortStableFunc(out, func(a, b models.Category) int {
			return b.ItemCount - a.ItemCount
		})
	case SortPinned:
		slices.SortStableFunc(out, func(a, b models.Category) int {
			if a.Pinned != b.Pinned {
				if a.Pinned {
					return -1
				}
				return 1
			}
			return byRecency(a, b)
		})
	default:
		slices.SortStableFunc(out, byRecency)
	}
	return out
}

func byRecency(a, b models.Category) int {
	return b.LastModified.Compare(a.LastModified)
}
