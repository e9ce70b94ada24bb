package reconcile

import "sort"

// DayStatus classifies a fetched day against the stored one.
type DayStatus int

const (
	DayUnchanged DayStatus = iota
	DayNew
	DayDifferent
)

func (s DayStatus) String() string {
	switch s {
	case DayNew:
		return "new"
	case DayDifferent:
		return "different"
	default:
		return "unchanged"
	}
}

// Comparable reports content equality between two values of the same slot.
type Comparable[T any] interface {
	SameContent(other T) bool
}

// DiffDay compares the fetched slots of a day with the stored ones by
// content. A day with no stored slots is new when it existed nowhere
// before; dayExisted distinguishes an empty known day from an unknown one.
func DiffDay[T Comparable[T]](dayExisted bool, stored, fetched []T, key func(T) int) DayStatus {
	if !dayExisted {
		return DayNew
	}
	if len(stored) != len(fetched) {
		return DayDifferent
	}

	a := sortedCopy(stored, key)
	b := sortedCopy(fetched, key)
	for i := range a {
		if key(a[i]) != key(b[i]) || !a[i].SameContent(b[i]) {
			return DayDifferent
		}
	}
	return DayUnchanged
}

func sortedCopy[T any](in []T, key func(T) int) []T {
	out := make([]T, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}
