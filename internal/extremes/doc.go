// Package extremes finds the minimum and maximum observations of a
// hydrological time series and relates them to other series and qualifiers.
//
// # Ties
//
// Values are shopspring decimals and are compared exactly, so "12.0" and
// "12.00" tie while 12.0 and 12.0000001 do not. Every point attaining an
// extreme is kept, in input order.
//
// # Resolutions
//
// A series is either instantaneous (timestamps with time of day) or daily
// (one value per calendar date). Matching an instantaneous extreme against a
// daily series compares calendar dates in the daily series' offset; all other
// matches compare exact instants. See [MatchRelated].
//
// # Qualifiers
//
// Qualifier intervals are closed on both ends. A qualifier whose start lies
// after its end is treated as covering nothing. See [FilterQualifiers].
package extremes
