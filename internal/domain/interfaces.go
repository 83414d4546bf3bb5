package domain

// RateSource resolves a conversion multiplier for a currency pair on a
// calendar day. ok is false when no usable rate exists near that date;
// this is not an error condition.
type RateSource interface {
	Rate(date, base, target string) (rate float64, ok bool, err error)
}

// PriceSource resolves the most recent known security price at or before
// a calendar day, along with the currency the price is quoted in. A price
// recorded after the requested date must never be returned. ok is false
// when the date predates all records for the symbol.
type PriceSource interface {
	Price(date, symbol string) (price float64, currency string, ok bool, err error)
}

// EventPublisher pushes engine events (data ingested, cache invalidated)
// to interested subscribers such as the dashboard websocket.
type EventPublisher interface {
	Publish(event string, payload interface{})
}
