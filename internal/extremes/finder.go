package extremes

import "github.com/shopspring/decimal"

// FindExtremes scans points once and returns every point attaining the
// minimum value and every point attaining the maximum value, in input order.
// Values are compared exactly; an empty input yields empty, non-nil tie-sets.
func FindExtremes(points []Point) SeriesExtremes {
	minima := make([]Point, 0, 1)
	maxima := make([]Point, 0, 1)

	var minValue, maxValue decimal.Decimal
	for i, p := range points {
		switch {
		case i == 0 || p.Value.LessThan(minValue):
			minValue = p.Value
			minima = append(minima[:0], p)
		case p.Value.Equal(minValue):
			minima = append(minima, p)
		}

		switch {
		case i == 0 || p.Value.GreaterThan(maxValue):
			maxValue = p.Value
			maxima = append(maxima[:0], p)
		case p.Value.Equal(maxValue):
			maxima = append(maxima, p)
		}
	}

	return SeriesExtremes{Minima: minima, Maxima: maxima}
}
