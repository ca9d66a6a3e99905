package execution

import "go.uber.org/zap"

// RawMessage is an execution request as received from the caller
type RawMessage map[string]any

// ValidatedMessage is a request that passed schema validation.
// Only Validator.Validate produces one.
type ValidatedMessage map[string]any

// EnrichedMessage is the validated request merged with its ExecutionResult
type EnrichedMessage map[string]any

// Action is the requested trade direction
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Trades reports whether the action moves shares
func (a Action) Trades() bool {
	return a == ActionBuy || a == ActionSell
}

// Status of a simulated execution
type Status string

const (
	StatusExecuted Status = "executed"
	StatusNoop     Status = "noop"
)

// Field names of the request and of the derived result
const (
	FieldSymbol   = "symbol"
	FieldAction   = "action"
	FieldPrice    = "price"
	FieldQuantity = "quantity"

	FieldFillPrice     = "fill_price"
	FieldSlippagePct   = "slippage_pct"
	FieldExecutionFee  = "execution_fee"
	FieldExecutionCost = "execution_cost"
	FieldStatus        = "status"
)

// Defaults applied when a request field is absent
const (
	DefaultSymbol   = "UNKNOWN"
	DefaultAction   = ActionHold
	DefaultPrice    = 100.0
	DefaultQuantity = 0
)

// ExecutionResult holds the derived fields of one simulated execution
type ExecutionResult struct {
	FillPrice     float64 `json:"fill_price"`
	SlippagePct   float64 `json:"slippage_pct"`
	ExecutionFee  float64 `json:"execution_fee"`
	ExecutionCost float64 `json:"execution_cost"`
	Status        Status  `json:"status"`
}

// Fields returns the result as record fields
func (r ExecutionResult) Fields() map[string]any {
	return map[string]any{
		FieldFillPrice:     r.FillPrice,
		FieldSlippagePct:   r.SlippagePct,
		FieldExecutionFee:  r.ExecutionFee,
		FieldExecutionCost: r.ExecutionCost,
		FieldStatus:        string(r.Status),
	}
}

// Logger is the structured logging capability used by the core.
// *zap.Logger satisfies it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}
