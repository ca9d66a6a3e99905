package execution

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	// SlippagePct is the modeled slippage applied against the trader (0.1%)
	SlippagePct = 0.001
	// FeePerShare is the flat per-share execution fee
	FeePerShare = 0.005

	roundPlaces = 4

	// int64Bound is 2^63, the first float64 magnitude past the int64 range
	int64Bound = 1 << 63
)

var errQuantityRange = errors.New("value out of int64 range")

// Request is the typed view of a validated execution request
type Request struct {
	Symbol   string
	Action   Action
	Price    float64
	Quantity int64
}

// ParseRequest reads the request fields of msg, substituting defaults for
// absent keys. A present value that cannot be coerced yields an
// *InvalidFieldTypeError.
func ParseRequest(msg ValidatedMessage) (Request, error) {
	req := Request{
		Symbol:   DefaultSymbol,
		Action:   DefaultAction,
		Price:    DefaultPrice,
		Quantity: DefaultQuantity,
	}

	if v, ok := msg[FieldSymbol]; ok {
		s, err := coerceString(FieldSymbol, v)
		if err != nil {
			return Request{}, err
		}
		req.Symbol = s
	}

	if v, ok := msg[FieldAction]; ok {
		s, err := coerceString(FieldAction, v)
		if err != nil {
			return Request{}, err
		}
		req.Action = Action(s)
	}

	if v, ok := msg[FieldPrice]; ok {
		if v == nil {
			return Request{}, &InvalidFieldTypeError{Field: FieldPrice, Value: v}
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return Request{}, &InvalidFieldTypeError{Field: FieldPrice, Value: v, Cause: err}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Request{}, &InvalidFieldTypeError{Field: FieldPrice, Value: v}
		}
		req.Price = f
	}

	if v, ok := msg[FieldQuantity]; ok {
		n, err := coerceQuantity(v)
		if err != nil {
			return Request{}, err
		}
		req.Quantity = n
	}

	return req, nil
}

func coerceString(field string, v any) (string, error) {
	if v == nil {
		return "", &InvalidFieldTypeError{Field: field, Value: v}
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", &InvalidFieldTypeError{Field: field, Value: v, Cause: err}
	}
	return s, nil
}

// coerceQuantity reads a share count. Text must be a base-10 integer,
// fractional numbers truncate toward zero and anything outside int64 fails.
func coerceQuantity(v any) (int64, error) {
	invalid := func(cause error) error {
		return &InvalidFieldTypeError{Field: FieldQuantity, Value: v, Cause: cause}
	}

	switch n := v.(type) {
	case nil:
		return 0, invalid(nil)
	case string:
		q, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, invalid(err)
		}
		return q, nil
	case json.Number:
		if q, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return q, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, invalid(err)
		}
		return truncateQuantity(f, invalid)
	case float64:
		return truncateQuantity(n, invalid)
	case float32:
		return truncateQuantity(float64(n), invalid)
	case uint64:
		if n > math.MaxInt64 {
			return 0, invalid(errQuantityRange)
		}
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, invalid(errQuantityRange)
		}
	}

	q, err := cast.ToInt64E(v)
	if err != nil {
		return 0, invalid(err)
	}
	return q, nil
}

func truncateQuantity(f float64, invalid func(error) error) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(nil)
	}
	if f >= int64Bound || f < -int64Bound {
		return 0, invalid(errQuantityRange)
	}
	return int64(f), nil
}

// Compute prices a request. It has no side effects.
func Compute(req Request) ExecutionResult {
	qty := float64(req.Quantity)

	fillPrice := req.Price * (1 - SlippagePct)
	if req.Action == ActionBuy {
		fillPrice = req.Price * (1 + SlippagePct)
	}

	totalFee := qty * FeePerShare

	// Non-trade actions share the SELL-shaped cost. The float64 conversions
	// round each product on its own so it is never fused with the sum.
	executionCost := -1 * (float64(fillPrice*qty) - totalFee)
	if req.Action == ActionBuy {
		executionCost = float64(fillPrice*qty) + totalFee
	}

	status := StatusNoop
	if req.Action.Trades() {
		status = StatusExecuted
	}

	return ExecutionResult{
		FillPrice:     Round(fillPrice),
		SlippagePct:   SlippagePct,
		ExecutionFee:  Round(totalFee),
		ExecutionCost: Round(executionCost),
		Status:        status,
	}
}

// Round rounds v to four decimal places. Ties are judged on the exact binary
// value of v and go to the even digit, so 0.24975 (stored just below the
// half) rounds down to 0.2497.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', roundPlaces, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Simulator turns validated requests into enriched messages
type Simulator struct {
	logger Logger
}

// NewSimulator creates a simulator
func NewSimulator(logger Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{logger: logger}
}

// Simulate computes the execution outcome of msg and merges it into a copy of
// msg. Derived fields win over input fields of the same name; absent request
// fields are filled with the defaults used for pricing.
func (s *Simulator) Simulate(msg ValidatedMessage) (EnrichedMessage, error) {
	req, err := ParseRequest(msg)
	if err != nil {
		s.logger.Error("failed to read execution request", zap.Error(err))
		return nil, err
	}

	s.logger.Info("simulating execution",
		zap.String("action", string(req.Action)),
		zap.Int64("quantity", req.Quantity),
		zap.String("symbol", req.Symbol),
	)

	result := Compute(req)

	s.logger.Debug("execution result",
		zap.Float64("fill_price", result.FillPrice),
		zap.Float64("slippage_pct", result.SlippagePct),
		zap.Float64("execution_fee", result.ExecutionFee),
		zap.Float64("execution_cost", result.ExecutionCost),
		zap.String("status", string(result.Status)),
	)

	out := make(EnrichedMessage, len(msg)+9)
	for k, v := range msg {
		out[k] = v
	}
	setDefault(out, FieldSymbol, req.Symbol)
	setDefault(out, FieldAction, string(req.Action))
	setDefault(out, FieldPrice, req.Price)
	setDefault(out, FieldQuantity, req.Quantity)
	for k, v := range result.Fields() {
		out[k] = v
	}

	return out, nil
}

func setDefault(m EnrichedMessage, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
