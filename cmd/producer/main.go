package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ismaiel54/backtest-execution/internal/logging"
	"github.com/ismaiel54/backtest-execution/internal/msg"
)

var (
	symbols = []string{"AAPL", "MSFT", "NVDA", "AMZN", "TSLA"}
	actions = []string{"BUY", "SELL", "HOLD"}
)

func main() {
	var (
		count      = flag.Int("count", 50, "Number of execution requests to produce")
		invalidPct = flag.Int("invalid-pct", 10, "Percentage of schema-invalid requests (0-100)")
		seed       = flag.Int64("seed", 42, "Random seed for deterministic generation")
		brokers    = flag.String("brokers", "127.0.0.1:9092", "Kafka broker addresses")
		topic      = flag.String("topic", msg.TopicExecutionRequests, "Topic to produce to")
	)
	flag.Parse()

	logger, err := logging.NewLogger("producer", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	kafkaCfg := msg.NewConfig(*brokers, "backtest-execution-producer")
	logger.Info("starting producer",
		zap.Int("count", *count),
		zap.Int("invalid_pct", *invalidPct),
		zap.Int64("seed", *seed),
		zap.Strings("brokers", kafkaCfg.Brokers),
		zap.String("topic", *topic),
	)

	producer, err := msg.NewProducer(kafkaCfg, logger)
	if err != nil {
		logger.Fatal("failed to create producer", zap.Error(err))
	}
	defer producer.Close()

	// Create deterministic RNG
	rng := rand.New(rand.NewSource(*seed))

	ctx := context.Background()
	produced := 0
	failed := 0
	invalid := 0

	for i := 0; i < *count; i++ {
		requestID := uuid.New().String()
		request := newRequest(rng, requestID)

		if rng.Intn(100) < *invalidPct {
			corrupt(rng, request)
			invalid++
		}

		if err := producer.ProduceJSON(ctx, *topic, requestID, request); err != nil {
			logger.Error("failed to produce request",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			failed++
			continue
		}

		produced++
		logger.Debug("produced request",
			zap.String("request_id", requestID),
			zap.Any("request", request),
		)
	}

	logger.Info("producer completed",
		zap.Int("total", *count),
		zap.Int("produced", produced),
		zap.Int("failed", failed),
		zap.Int("invalid", invalid),
	)

	fmt.Printf("\n=== Producer Summary ===\n")
	fmt.Printf("Total requests: %d\n", *count)
	fmt.Printf("Produced: %d\n", produced)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Printf("Schema-invalid: %d\n", invalid)
	fmt.Printf("Topic: %s\n", *topic)
	fmt.Printf("\n")

	if failed > 0 {
		os.Exit(1)
	}
}

func newRequest(rng *rand.Rand, requestID string) map[string]any {
	price := math.Round((10+rng.Float64()*490)*100) / 100
	return map[string]any{
		"request_id":     requestID,
		"symbol":         symbols[rng.Intn(len(symbols))],
		"action":         actions[rng.Intn(len(actions))],
		"price":          price,
		"quantity":       rng.Intn(1000),
		"ts_unix_millis": time.Now().UnixMilli(),
	}
}

// corrupt breaks one schema rule of request
func corrupt(rng *rand.Rand, request map[string]any) {
	switch rng.Intn(4) {
	case 0:
		delete(request, "symbol")
	case 1:
		request["price"] = "not-a-price"
	case 2:
		request["quantity"] = -1 - rng.Intn(10)
	default:
		request["action"] = "SHORT"
	}
}
