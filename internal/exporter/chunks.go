package exporter

import "fmt"

// YearRange is an inclusive span of years.
type YearRange struct {
	Start int
	End   int
}

func (r YearRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Chunks splits [startYear, endYear] into consecutive ranges of at most size
// years, in ascending order. It returns nil for an empty span or size <= 0.
func Chunks(startYear, endYear, size int) []YearRange {
	if size <= 0 || startYear > endYear {
		return nil
	}
	out := make([]YearRange, 0, (endYear-startYear+size)/size)
	for start := startYear; start <= endYear; start += size {
		end := start + size - 1
		if end > endYear {
			end = endYear
		}
		out = append(out, YearRange{Start: start, End: end})
	}
	return out
}
