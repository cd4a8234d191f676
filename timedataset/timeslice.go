package timedataset

import (
	"math"
	"time"
)

// TimeSlice is an ascending sequence of acquisition times
type TimeSlice []time.Time

// RevisitDays returns the most common spacing between consecutive acquisitions rounded to whole
// days. Repeated acquisitions on the same day are ignored and ties go to the shorter spacing.
func (t TimeSlice) RevisitDays() (int, error) {
	counts := make(map[int]int)
	for i := 1; i < len(t); i++ {
		days := int(math.Round(t[i].Sub(t[i-1]).Hours() / 24.0))
		if days < 1 {
			continue
		}
		counts[days]++
	}
	if len(counts) == 0 {
		return 0, ErrCannotInferFreq
	}

	var best, bestCnt int
	for days, cnt := range counts {
		if cnt > bestCnt || (cnt == bestCnt && days < best) {
			best, bestCnt = days, cnt
		}
	}
	return best, nil
}
