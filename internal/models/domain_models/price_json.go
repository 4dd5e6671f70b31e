package domain_models

import (
	"encoding/json"
	"fmt"
)

// UnmarshalJSON accepts both the documented object form
// {"amount": 35, "currency": "EUR"} and the bare number the LLM sometimes
// emits instead.
func (p *Price) UnmarshalJSON(data []byte) error {
	var amount float64
	if err := json.Unmarshal(data, &amount); err == nil {
		p.Amount = amount
		p.Currency = ""
		return nil
	}

	type priceAlias Price
	var alias priceAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = Price(alias)
	return nil
}
