package extremes

import "time"

// Qualifier is a time-bounded annotation published alongside a series.
type Qualifier struct {
	Identifier  string    `json:"identifier"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DateApplied time.Time `json:"dateApplied"`
	User        string    `json:"user,omitempty"`
}

// Inverted reports a qualifier whose start lies after its end.
func (q Qualifier) Inverted() bool {
	return q.StartTime.After(q.EndTime)
}

// Covers tests membership of t in [StartTime, EndTime], both bounds inclusive.
// Inverted intervals cover nothing.
func (q Qualifier) Covers(t time.Time) bool {
	return q.Overlaps(t, t)
}

// Overlaps tests whether [StartTime, EndTime] shares at least one instant with
// [from, to], all bounds inclusive. Inverted intervals overlap nothing.
func (q Qualifier) Overlaps(from, to time.Time) bool {
	if q.Inverted() {
		return false
	}
	return !q.StartTime.After(to) && !q.EndTime.Before(from)
}

type qualifierKey struct {
	identifier string
	start      instantKey
	end        instantKey
}

// FilterQualifiers keeps the qualifiers touching at least one extreme point,
// in their original order, each identifier+interval at most once. An
// instantaneous point is touched when its timestamp is covered; a daily point
// stands for its whole calendar day, so any overlap with that day counts.
func FilterQualifiers(points map[Comparator][]Point, qualifiers []Qualifier) []Qualifier {
	filtered := make([]Qualifier, 0)
	if len(points) == 0 || len(qualifiers) == 0 {
		return filtered
	}

	spans := make([]span, 0)
	for _, c := range Comparators {
		for _, p := range points[c] {
			spans = append(spans, spanOf(p))
		}
	}
	if len(spans) == 0 {
		return filtered
	}

	seen := make(map[qualifierKey]struct{}, len(qualifiers))
	for _, q := range qualifiers {
		if q.Inverted() {
			continue
		}
		key := qualifierKey{identifier: q.Identifier, start: keyOf(q.StartTime), end: keyOf(q.EndTime)}
		if _, dup := seen[key]; dup {
			continue
		}
		for _, sp := range spans {
			if q.Overlaps(sp.from, sp.to) {
				seen[key] = struct{}{}
				filtered = append(filtered, q)
				break
			}
		}
	}
	return filtered
}

type span struct {
	from, to time.Time
}

func spanOf(p Point) span {
	if !p.Daily {
		return span{from: p.Time, to: p.Time}
	}
	return span{from: p.Time, to: p.Time.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}
