package entity

import "github.com/backyonatan-alt/fiftyone/internal/model"

const currencyCHF = "CHF"

// StockSensors returns the price, value and quantity descriptions for one
// symbol.
func StockSensors(symbol string) []SensorDescription {
	lookup := func(s *model.Snapshot) (model.Stock, bool) { return s.Stock(symbol) }

	return []SensorDescription{
		{
			Key:        "stock_" + symbol + "_price",
			Name:       symbol + " Price",
			Unit:       currencyCHF,
			StateClass: stateClassMeasurement,
			Icon:       "mdi:currency-usd",
			Value: func(s *model.Snapshot) any {
				st, _ := lookup(s)
				return floatValue(st.Price)
			},
		},
		{
			Key:        "stock_" + symbol + "_value",
			Name:       symbol + " Value",
			Unit:       currencyCHF,
			StateClass: stateClassMeasurement,
			Icon:       "mdi:cash-multiple",
			Value: func(s *model.Snapshot) any {
				st, _ := lookup(s)
				return floatValue(st.Value)
			},
			Attributes: func(s *model.Snapshot) map[string]any {
				st, ok := lookup(s)
				var sym any
				if ok {
					sym = st.Symbol
				}
				return map[string]any{
					"name":     stringValue(st.Name),
					"symbol":   sym,
					"quantity": floatValue(st.Quantity),
					"price":    floatValue(st.Price),
				}
			},
		},
		{
			Key:        "stock_" + symbol + "_quantity",
			Name:       symbol + " Quantity",
			StateClass: stateClassMeasurement,
			Icon:       "mdi:counter",
			Value: func(s *model.Snapshot) any {
				st, _ := lookup(s)
				return floatValue(st.Quantity)
			},
		},
	}
}
