package extremes

import "time"

// MatchRelated picks the candidate points whose timestamps coincide with the
// reference minima and maxima. Instantaneous candidates must share the exact
// instant; daily candidates match when their date equals the reference
// instant's calendar date in the candidate offset, or the reference's own
// date when it is a daily point. Candidate order is kept and
// duplicate candidate timestamps are passed through unfiltered.
func MatchRelated(reference SeriesExtremes, candidates []Point, candidate Resolution) SeriesExtremes {
	return SeriesExtremes{
		Minima: matchPoints(reference.Minima, candidates, candidate),
		Maxima: matchPoints(reference.Maxima, candidates, candidate),
	}
}

type instantKey struct {
	sec  int64
	nsec int
}

func keyOf(t time.Time) instantKey {
	return instantKey{sec: t.Unix(), nsec: t.Nanosecond()}
}

func matchPoints(refs, candidates []Point, res Resolution) []Point {
	matched := make([]Point, 0, len(refs))
	if len(refs) == 0 || len(candidates) == 0 {
		return matched
	}

	if res.IsDaily() {
		dates := make(map[civilDate]struct{}, len(refs))
		for _, ref := range refs {
			dates[pointDate(ref, res)] = struct{}{}
		}
		for _, c := range candidates {
			if _, ok := dates[pointDate(c, res)]; ok {
				matched = append(matched, c)
			}
		}
		return matched
	}

	instants := make(map[instantKey]struct{}, len(refs))
	for _, ref := range refs {
		instants[keyOf(ref.Time)] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := instants[keyOf(c.Time)]; ok {
			matched = append(matched, c)
		}
	}
	return matched
}

// pointDate reads a daily point's date as written, on either side of the
// comparison; it is already local to its own series, so it is not shifted
// into the candidate offset. Instants are converted first.
func pointDate(p Point, res Resolution) civilDate {
	if p.Daily {
		y, m, d := p.Time.Date()
		return civilDate{year: y, month: m, day: d}
	}
	return res.dateOf(p.Time)
}
