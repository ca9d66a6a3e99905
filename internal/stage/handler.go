package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ismaiel54/backtest-execution/internal/dedup"
	"github.com/ismaiel54/backtest-execution/internal/execution"
	"github.com/ismaiel54/backtest-execution/internal/msg"
	"github.com/ismaiel54/backtest-execution/internal/observability"
)

// StageDecode is reported for records whose value is not a JSON object
const StageDecode = "decode"

// Topics the handler publishes to
type Topics struct {
	Results    string
	Rejections string
}

// Handler runs the execution pipeline for consumed request records
type Handler struct {
	pipeline *execution.Pipeline
	producer msg.JSONProducer
	seen     *dedup.Cache
	metrics  *observability.Metrics
	topics   Topics
	logger   *zap.Logger
}

// NewHandler creates a handler. seen and metrics may be nil.
func NewHandler(pipeline *execution.Pipeline, producer msg.JSONProducer, seen *dedup.Cache, metrics *observability.Metrics, topics Topics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pipeline: pipeline,
		producer: producer,
		seen:     seen,
		metrics:  metrics,
		topics:   topics,
		logger:   logger,
	}
}

// Handle processes one request record. A returned error means nothing was
// published for the record and the consumer may retry it.
func (h *Handler) Handle(ctx context.Context, rec msg.Record) error {
	recordID := rec.ID()
	if h.seen != nil && h.seen.Seen(recordID) {
		h.logger.Info("duplicate request record, skipping",
			zap.String("record_id", recordID),
			zap.String("key", rec.Key),
		)
		if h.metrics != nil {
			h.metrics.IncDuplicate()
		}
		return nil
	}

	key := rec.RequestKey()

	obj, err := rec.DecodeObject()
	if err != nil {
		return h.reject(ctx, rec, key, StageDecode, err)
	}

	enriched, err := h.pipeline.Process(execution.RawMessage(obj))
	if err != nil {
		return h.reject(ctx, rec, key, execution.FailedStage(err), err)
	}

	if err := h.producer.ProduceJSON(ctx, h.topics.Results, key, map[string]any(enriched)); err != nil {
		if h.metrics != nil {
			h.metrics.IncPublishError(h.topics.Results)
		}
		return fmt.Errorf("failed to produce execution result: %w", err)
	}

	h.markSeen(recordID)

	status, _ := enriched[execution.FieldStatus].(string)
	cost, _ := enriched[execution.FieldExecutionCost].(float64)
	if h.metrics != nil {
		h.metrics.ObserveExecution(status, cost)
	}

	h.logger.Info("execution result produced",
		zap.String("request_key", key),
		zap.String("status", status),
		zap.Float64("execution_cost", cost),
		zap.String("kafka_topic", rec.Topic),
		zap.Int32("kafka_partition", rec.Partition),
		zap.Int64("kafka_offset", rec.Offset),
	)

	return nil
}

func (h *Handler) reject(ctx context.Context, rec msg.Record, key, stage string, cause error) error {
	rejection := msg.RejectionMsg{
		EventID:      uuid.New().String(),
		RequestKey:   key,
		Stage:        stage,
		Reason:       cause.Error(),
		TsUnixMillis: time.Now().UnixMilli(),
	}
	if json.Valid(rec.Value) {
		rejection.Payload = json.RawMessage(rec.Value)
	} else {
		rejection.RawValue = string(rec.Value)
	}

	if err := h.producer.ProduceJSON(ctx, h.topics.Rejections, key, rejection); err != nil {
		if h.metrics != nil {
			h.metrics.IncPublishError(h.topics.Rejections)
		}
		return fmt.Errorf("failed to produce rejection: %w", err)
	}

	h.markSeen(rec.ID())
	if h.metrics != nil {
		h.metrics.IncRejected(stage)
	}

	h.logger.Warn("execution request rejected",
		zap.String("request_key", key),
		zap.String("stage", stage),
		zap.String("event_id", rejection.EventID),
		zap.Error(cause),
	)

	return nil
}

func (h *Handler) markSeen(recordID string) {
	if h.seen != nil {
		h.seen.Mark(recordID)
	}
}
