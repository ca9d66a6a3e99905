package schema

import _ "embed"

//go:embed trade_request.json
var tradeRequestDocument string

// TradeRequest returns the schema for inbound execution requests.
// price and quantity may be omitted; the simulator supplies defaults.
func TradeRequest() *Schema {
	return MustNew("trade_request", tradeRequestDocument)
}
