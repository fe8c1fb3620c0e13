package catalog

import "time"

type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
)

// SeasonFor maps t's calendar month: 1-3 winter, 4-6 spring, 7-9 summer, 10-12 fall.
func SeasonFor(t time.Time) Season {
	switch m := t.Month(); {
	case m <= time.March:
		return Winter
	case m <= time.June:
		return Spring
	case m <= time.September:
		return Summer
	default:
		return Fall
	}
}

func (s Season) String() string { return string(s) }
