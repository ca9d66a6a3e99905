package stage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismaiel54/backtest-execution/internal/dedup"
	"github.com/ismaiel54/backtest-execution/internal/execution"
	"github.com/ismaiel54/backtest-execution/internal/msg"
	"github.com/ismaiel54/backtest-execution/internal/observability"
	"github.com/ismaiel54/backtest-execution/internal/schema"
)

type produced struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	records []produced
	failN   int
}

func (p *fakeProducer) ProduceJSON(ctx context.Context, topic string, key string, v any) error {
	if p.failN > 0 {
		p.failN--
		return errors.New("broker unavailable")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.records = append(p.records, produced{topic: topic, key: key, value: data})
	return nil
}

var testTopics = Topics{Results: "execution.results", Rejections: "execution.rejections"}

func newTestHandler(p *fakeProducer) *Handler {
	pipeline := execution.NewPipeline(schema.TradeRequest(), zap.NewNop())
	return NewHandler(pipeline, p, dedup.NewCache(time.Minute), observability.NewMetrics("test"), testTopics, zap.NewNop())
}

func TestHandle_ProducesEnrichedResult(t *testing.T) {
	p := &fakeProducer{}
	h := newTestHandler(p)

	rec := msg.Record{
		Topic:  "execution.requests",
		Offset: 1,
		Value:  []byte(`{"request_id":"req-1","symbol":"AAPL","action":"BUY","price":100.0,"quantity":10}`),
	}
	require.NoError(t, h.Handle(context.Background(), rec))

	require.Len(t, p.records, 1)
	out := p.records[0]
	assert.Equal(t, "execution.results", out.topic)
	assert.Equal(t, "req-1", out.key)

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.value, &result))
	assert.Equal(t, "req-1", result["request_id"])
	assert.Equal(t, 100.1, result["fill_price"])
	assert.Equal(t, 0.05, result["execution_fee"])
	assert.Equal(t, 1001.05, result["execution_cost"])
	assert.Equal(t, 0.001, result["slippage_pct"])
	assert.Equal(t, "executed", result["status"])
}

func TestHandle_RejectsInvalidRequest(t *testing.T) {
	p := &fakeProducer{}
	h := newTestHandler(p)

	rec := msg.Record{
		Topic:  "execution.requests",
		Key:    "k-1",
		Offset: 2,
		Value:  []byte(`{"symbol":"AAPL","action":"BUY","price":"abc","quantity":10}`),
	}
	require.NoError(t, h.Handle(context.Background(), rec))

	require.Len(t, p.records, 1)
	assert.Equal(t, "execution.rejections", p.records[0].topic)
	assert.Equal(t, "k-1", p.records[0].key)

	var rejection msg.RejectionMsg
	require.NoError(t, json.Unmarshal(p.records[0].value, &rejection))
	assert.Equal(t, execution.StageValidation, rejection.Stage)
	assert.Equal(t, "k-1", rejection.RequestKey)
	assert.NotEmpty(t, rejection.EventID)
	assert.Contains(t, rejection.Reason, "price")
	assert.JSONEq(t, string(rec.Value), string(rejection.Payload))
}

func TestHandle_RejectsUndecodableValue(t *testing.T) {
	p := &fakeProducer{}
	h := newTestHandler(p)

	rec := msg.Record{Topic: "execution.requests", Offset: 3, Value: []byte(`not json`)}
	require.NoError(t, h.Handle(context.Background(), rec))

	require.Len(t, p.records, 1)
	var rejection msg.RejectionMsg
	require.NoError(t, json.Unmarshal(p.records[0].value, &rejection))
	assert.Equal(t, StageDecode, rejection.Stage)
	assert.Equal(t, "not json", rejection.RawValue)
	assert.Empty(t, rejection.Payload)
}

func TestHandle_SkipsRedeliveredRecord(t *testing.T) {
	p := &fakeProducer{}
	h := newTestHandler(p)

	rec := msg.Record{
		Topic:  "execution.requests",
		Offset: 4,
		Value:  []byte(`{"symbol":"AAPL","action":"SELL","price":100.0,"quantity":10}`),
	}
	require.NoError(t, h.Handle(context.Background(), rec))
	require.NoError(t, h.Handle(context.Background(), rec))
	assert.Len(t, p.records, 1, "redelivered record should not be published twice")

	// Same payload at a new offset is a new request
	rec.Offset = 5
	require.NoError(t, h.Handle(context.Background(), rec))
	assert.Len(t, p.records, 2)
}

func TestHandle_PublishFailureIsRetryable(t *testing.T) {
	p := &fakeProducer{failN: 1}
	h := newTestHandler(p)

	rec := msg.Record{
		Topic:  "execution.requests",
		Offset: 6,
		Value:  []byte(`{"symbol":"AAPL","action":"HOLD"}`),
	}
	err := h.Handle(context.Background(), rec)
	require.Error(t, err)
	assert.False(t, msg.IsPermanent(err))
	assert.Empty(t, p.records)

	// The record is not marked as seen, so the retry publishes it
	require.NoError(t, h.Handle(context.Background(), rec))
	require.Len(t, p.records, 1)

	var result map[string]any
	require.NoError(t, json.Unmarshal(p.records[0].value, &result))
	assert.Equal(t, "noop", result["status"])
	assert.Equal(t, 100.0, result["price"])
	assert.Equal(t, 99.9, result["fill_price"])
}

func TestHandle_WithoutOptionalCollaborators(t *testing.T) {
	p := &fakeProducer{}
	pipeline := execution.NewPipeline(schema.TradeRequest(), nil)
	h := NewHandler(pipeline, p, nil, nil, testTopics, nil)

	rec := msg.Record{Topic: "execution.requests", Value: []byte(`{"symbol":"MSFT","action":"BUY","quantity":2}`)}
	require.NoError(t, h.Handle(context.Background(), rec))
	require.NoError(t, h.Handle(context.Background(), rec))
	assert.Len(t, p.records, 2, "without a dedup cache every delivery is processed")
}
