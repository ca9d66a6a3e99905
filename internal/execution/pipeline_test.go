package execution_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ismaiel54/backtest-execution/internal/execution"
	"github.com/ismaiel54/backtest-execution/internal/schema"
)

func TestPipeline_Process(t *testing.T) {
	p := execution.NewPipeline(schema.TradeRequest(), zap.NewNop())

	out, err := p.Process(execution.RawMessage{"symbol": "AAPL", "action": "BUY", "price": 100.0, "quantity": 10})
	require.NoError(t, err)

	assert.Equal(t, 100.1, out["fill_price"])
	assert.Equal(t, 0.05, out["execution_fee"])
	assert.Equal(t, 1001.05, out["execution_cost"])
	assert.Equal(t, "executed", out["status"])
}

func TestPipeline_DefaultsForOptionalNumerics(t *testing.T) {
	p := execution.NewPipeline(schema.TradeRequest(), zap.NewNop())

	out, err := p.Process(execution.RawMessage{"symbol": "AAPL", "action": "SELL"})
	require.NoError(t, err)

	assert.Equal(t, 100.0, out["price"])
	assert.EqualValues(t, 0, out["quantity"])
	assert.Equal(t, 99.9, out["fill_price"])
	assert.Equal(t, 0.0, out["execution_fee"])
	assert.Equal(t, "executed", out["status"])
}

func TestPipeline_ValidationFailureSkipsSimulation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := execution.NewPipeline(schema.TradeRequest(), zap.New(core))

	raw := execution.RawMessage{"symbol": "AAPL", "action": "BUY", "price": "abc", "quantity": 10}
	out, err := p.Process(raw)
	require.Error(t, err)
	assert.Nil(t, out)

	assert.Equal(t, execution.StageValidation, execution.FailedStage(err))
	assert.True(t, errors.Is(err, execution.ErrInvalidInput))

	var vErr *schema.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Violations, 1)
	assert.Equal(t, "price", vErr.Violations[0].Field)

	// The simulator's info entry is never written
	assert.Zero(t, logs.FilterMessage("simulating execution").Len())
}

func TestPipeline_EmptyRecordRejected(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := execution.NewPipeline(schema.TradeRequest(), zap.New(core))

	// symbol and action are required, so their defaults never apply here;
	// Simulator.Simulate still fills them for direct callers
	for _, raw := range []execution.RawMessage{{}, {"price": 50.0, "quantity": 2}} {
		_, err := p.Process(raw)
		require.Error(t, err)
		assert.Equal(t, execution.StageValidation, execution.FailedStage(err))

		var vErr *schema.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, []schema.Violation{
			{Field: "action", Reason: "is required"},
			{Field: "symbol", Reason: "is required"},
		}, vErr.Violations)
	}
	assert.Zero(t, logs.FilterMessage("simulating execution").Len())

	out, err := execution.NewSimulator(nil).Simulate(execution.ValidatedMessage{})
	require.NoError(t, err)
	assert.Equal(t, execution.DefaultSymbol, out["symbol"])
	assert.Equal(t, "HOLD", out["action"])
}

func TestPipeline_QuantityOutsideInt64(t *testing.T) {
	p := execution.NewPipeline(schema.TradeRequest(), nil)

	out, err := p.Process(execution.RawMessage{"symbol": "AAPL", "action": "BUY", "price": 100.0, "quantity": 1e20})
	require.Error(t, err)
	assert.Nil(t, out)

	assert.Equal(t, execution.StageSimulation, execution.FailedStage(err))
	assert.True(t, errors.Is(err, execution.ErrInvalidFieldType))

	var typeErr *execution.InvalidFieldTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "quantity", typeErr.Field)
}

func TestPipeline_SimulationFailure(t *testing.T) {
	// A lenient checker lets a non-numeric price reach the simulator
	p := execution.NewPipeline(schema.MustNew("lenient", `{"type": "object"}`), nil)

	_, err := p.Process(execution.RawMessage{"symbol": "AAPL", "action": "BUY", "price": "abc"})
	require.Error(t, err)
	assert.Equal(t, execution.StageSimulation, execution.FailedStage(err))
	assert.True(t, errors.Is(err, execution.ErrInvalidFieldType))
	assert.False(t, errors.Is(err, execution.ErrInvalidInput))
}
