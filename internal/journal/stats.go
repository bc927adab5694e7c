package journal

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"potager/internal/types"
)

// StatsInput bounds one statistics computation. A zero From or To
// leaves that side of the window open.
type StatsInput struct {
	Waterings []types.WateringEvent
	Mowings   []types.MowingEvent
	// Tracked lists the garden's plant names in normalized form.
	// Whole-garden waterings count toward each of them.
	Tracked []string
	From    time.Time
	To      time.Time
}

// Compute aggregates the journal over the given window: watering and
// mowing counts, interval statistics between distinct activity days,
// per-plant watering counts and the mean cut height. Empty journals
// yield zero statistics.
func Compute(in StatsInput) types.JournalStats {
	from := types.Day(in.From)
	to := types.Day(in.To)
	inWindow := func(d time.Time) bool {
		if !in.From.IsZero() && d.Before(from) {
			return false
		}
		if !in.To.IsZero() && d.After(to) {
			return false
		}
		return true
	}

	out := types.JournalStats{From: from, To: to}

	var wateringDays []time.Time
	for _, ev := range in.Waterings {
		d := types.Day(ev.Date)
		if !inWindow(d) {
			continue
		}
		out.Watering.Count++
		wateringDays = append(wateringDays, d)
		if out.Watering.PerPlant == nil {
			out.Watering.PerPlant = make(map[string]int)
		}
		if len(ev.Plants) == 0 {
			for _, p := range in.Tracked {
				out.Watering.PerPlant[p]++
			}
			continue
		}
		for _, p := range ev.Plants {
			out.Watering.PerPlant[p]++
		}
	}

	intervals := dayIntervals(wateringDays)
	if m, err := stats.Mean(intervals); err == nil {
		out.Watering.MeanIntervalDays = m
	}
	if m, err := stats.Median(intervals); err == nil {
		out.Watering.MedianIntervalDays = m
	}
	if m, err := stats.Max(intervals); err == nil {
		out.Watering.LongestGapDays = m
	}

	var mowingDays []time.Time
	var heights []float64
	for _, ev := range in.Mowings {
		d := types.Day(ev.Date)
		if !inWindow(d) {
			continue
		}
		out.Mowing.Count++
		mowingDays = append(mowingDays, d)
		if ev.CutHeightCM != nil {
			heights = append(heights, *ev.CutHeightCM)
		}
		if out.Mowing.LastMowedAt == nil || d.After(*out.Mowing.LastMowedAt) {
			last := d
			out.Mowing.LastMowedAt = &last
		}
	}

	if m, err := stats.Mean(dayIntervals(mowingDays)); err == nil {
		out.Mowing.MeanIntervalDays = m
	}
	if m, err := stats.Mean(heights); err == nil {
		out.Mowing.MeanCutHeightCM = m
	}

	return out
}

// dayIntervals returns the gaps in days between consecutive distinct
// activity days. Fewer than two distinct days means no intervals.
func dayIntervals(days []time.Time) []float64 {
	if len(days) == 0 {
		return nil
	}
	distinct := make([]time.Time, 0, len(days))
	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			distinct = append(distinct, d)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })

	var intervals []float64
	for i := 1; i < len(distinct); i++ {
		intervals = append(intervals, float64(types.DaysBetween(distinct[i-1], distinct[i])))
	}
	return intervals
}
