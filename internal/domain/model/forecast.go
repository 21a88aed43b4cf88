package model

// SecondsPerHour is the width of a forecast bucket.
const SecondsPerHour = 3600

// Forecast is the predicted priority fee of one protocol for one hour bucket.
type Forecast struct {
	Chain    Chain   `db:"chain"`
	Network  Network `db:"network"`
	Protocol string  `db:"protocol"`
	Hour     int64   `db:"hour_bucket"` // unix seconds, floored to the hour
	Point    int64   `db:"priority_fee"`
	Lower    int64   `db:"priority_fee_lower"`
	Upper    int64   `db:"priority_fee_upper"`
}

// Uncertainty is the width of the prediction interval, used as the volatility
// unit of the protocol for this hour. Inverted intervals count as zero.
func (f Forecast) Uncertainty() int64 {
	if f.Upper < f.Lower {
		return 0
	}
	return f.Upper - f.Lower
}

// HourBucket floors a unix timestamp to the start of its hour.
func HourBucket(ts int64) int64 {
	return ts - ts%SecondsPerHour
}
