package core

import (
	"strings"
	"time"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in allowed.
func FilterOrderings(ordering []DBOrdering, allowed ...string) []DBOrdering {
	kept := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				kept = append(kept, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return kept
}

// MasteryStatus is the review state shared by submissions and competency progress.
type MasteryStatus string

const (
	StatusInProgress MasteryStatus = "IN_PROGRESS"
	StatusAchieved   MasteryStatus = "ACHIEVED"
	StatusMastered   MasteryStatus = "MASTERED"
)

// Rank orders statuses: IN_PROGRESS < ACHIEVED < MASTERED.
func (s MasteryStatus) Rank() int {
	switch s {
	case StatusMastered:
		return 2
	case StatusAchieved:
		return 1
	default:
		return 0
	}
}

// AchievedOrBetter is true for ACHIEVED and MASTERED.
func (s MasteryStatus) AchievedOrBetter() bool {
	return s.Rank() > 0
}

// NowFunc returns the current UTC time. mockable
var NowFunc = func() time.Time { return time.Now().UTC() }
