package clientdata

import "time"

// TTL constants per data type, added to time.Now() when storing.
const (
	// FX rates move all day; an hour keeps lookups cheap without
	// drifting far from the market.
	TTLExchangeRate = time.Hour

	// Daily closes only change after market close.
	TTLChart = 6 * time.Hour
)
