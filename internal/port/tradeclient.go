package port

import "tradelens/internal/domain"

// TradeClient retrieves per-country export and import values for one HS6
// code. A failure on either side fails the whole code; implementations
// never return partial records.
type TradeClient interface {
	CountryValues(hs6 string) (*domain.TradeRecord, error)
}
