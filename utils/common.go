package utils

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimeTrack logs the time spent in a phase. Use it deferred:
//
//	defer utils.TimeTrack(time.Now(), "Solving")
func TimeTrack(start time.Time, phase string) {
	log.WithField("elapsed", time.Since(start).Round(time.Microsecond)).Info(phase)
}

// SortedStrings renders every element with String and returns the results in
// lexicographic order, so printers produce deterministic output.
func SortedStrings[T fmt.Stringer](xs []T) []string {
	strs := make([]string, len(xs))
	for i, x := range xs {
		strs[i] = x.String()
	}
	sort.Strings(strs)
	return strs
}
