package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ismaiel54/backtest-execution/internal/execution"
	"github.com/ismaiel54/backtest-execution/internal/logging"
	"github.com/ismaiel54/backtest-execution/internal/msg"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <duration_seconds> [brokers]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Checks each result against an exact decimal evaluation of the pricing rules\n")
		fmt.Fprintf(os.Stderr, "Example: %s 30 127.0.0.1:9092\n", os.Args[0])
		os.Exit(1)
	}

	var durationSeconds int
	if _, err := fmt.Sscanf(os.Args[1], "%d", &durationSeconds); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid duration: %v\n", err)
		os.Exit(1)
	}

	brokers := "127.0.0.1:9092"
	if len(os.Args) >= 3 {
		brokers = os.Args[2]
	}

	logger, err := logging.NewLogger("verifier", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	kafkaCfg := msg.NewConfig(brokers, "backtest-execution-verifier")
	logger.Info("starting verifier",
		zap.Int("duration_seconds", durationSeconds),
		zap.Strings("brokers", kafkaCfg.Brokers),
	)

	consumer, err := msg.NewConsumer(kafkaCfg, "verifier-v1", []string{msg.TopicExecutionResults}, 1, logger)
	if err != nil {
		logger.Fatal("failed to create consumer", zap.Error(err))
	}
	defer consumer.Close()

	keyCounts := make(map[string]int)
	statusCounts := make(map[string]int)
	var mismatches []string

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(durationSeconds)*time.Second)
	defer cancel()

	err = consumer.Run(ctx, func(ctx context.Context, rec msg.Record) error {
		var result map[string]any
		if err := json.Unmarshal(rec.Value, &result); err != nil {
			logger.Warn("failed to unmarshal result", zap.Error(err))
			return nil // Continue processing
		}

		keyCounts[rec.RequestKey()]++
		status, _ := result[execution.FieldStatus].(string)
		statusCounts[status]++

		if problem := check(result); problem != "" {
			mismatches = append(mismatches, fmt.Sprintf("%s: %s", rec.RequestKey(), problem))
		}

		logger.Debug("consumed result",
			zap.String("request_key", rec.RequestKey()),
			zap.String("status", status),
			zap.Int32("partition", rec.Partition),
			zap.Int64("offset", rec.Offset),
		)

		return nil
	})

	if err != nil && err != context.DeadlineExceeded {
		logger.Error("consumer error", zap.Error(err))
	}

	total := 0
	duplicates := make(map[string]int)
	for key, count := range keyCounts {
		total += count
		if count > 1 {
			duplicates[key] = count
		}
	}

	fmt.Println("\n=== Verification Results ===")
	fmt.Printf("Total results consumed: %d\n", total)
	fmt.Printf("Unique request keys: %d\n", len(keyCounts))
	for status, count := range statusCounts {
		fmt.Printf("Status %q: %d\n", status, count)
	}
	fmt.Printf("Duplicate request keys: %d\n", len(duplicates))
	fmt.Printf("Pricing mismatches: %d\n", len(mismatches))

	failed := false
	if len(duplicates) > 0 {
		fmt.Println("\nDuplicates found:")
		for key, count := range duplicates {
			fmt.Printf("  Request key: %s, Count: %d\n", key, count)
		}
		failed = true
	}
	if len(mismatches) > 0 {
		fmt.Println("\nMismatches found:")
		for _, m := range mismatches {
			fmt.Printf("  %s\n", m)
		}
		failed = true
	}

	if failed {
		fmt.Println("\n❌ VERIFICATION FAILED")
		os.Exit(1)
	}

	fmt.Println("\n✅ VERIFICATION PASSED")
	os.Exit(0)
}

var (
	slippage    = decimal.RequireFromString("0.001")
	feePerShare = decimal.RequireFromString("0.005")
	// One unit in the fourth place covers 4dp rounding plus float error
	tolerance = decimal.RequireFromString("0.0001")
)

// check evaluates the pricing rules in exact decimal arithmetic, apart from the
// service's float code path, and compares the published fields with them
func check(result map[string]any) string {
	price, ok := result[execution.FieldPrice].(float64)
	if !ok {
		return fmt.Sprintf("price = %v, want a number", result[execution.FieldPrice])
	}
	quantity, ok := result[execution.FieldQuantity].(float64)
	if !ok {
		return fmt.Sprintf("quantity = %v, want a number", result[execution.FieldQuantity])
	}
	action, _ := result[execution.FieldAction].(string)

	p := decimal.NewFromFloat(price)
	q := decimal.NewFromFloat(quantity).Truncate(0)
	one := decimal.NewFromInt(1)

	fill := p.Mul(one.Sub(slippage))
	if action == string(execution.ActionBuy) {
		fill = p.Mul(one.Add(slippage))
	}
	fee := q.Mul(feePerShare)
	cost := fill.Mul(q).Sub(fee).Neg()
	if action == string(execution.ActionBuy) {
		cost = fill.Mul(q).Add(fee)
	}

	wantStatus := string(execution.StatusNoop)
	if action == string(execution.ActionBuy) || action == string(execution.ActionSell) {
		wantStatus = string(execution.StatusExecuted)
	}
	if got := result[execution.FieldStatus]; got != wantStatus {
		return fmt.Sprintf("status = %v, want %s", got, wantStatus)
	}

	for _, f := range []struct {
		name string
		want decimal.Decimal
	}{
		{execution.FieldFillPrice, fill},
		{execution.FieldExecutionFee, fee},
		{execution.FieldExecutionCost, cost},
	} {
		got, ok := result[f.name].(float64)
		if !ok {
			return fmt.Sprintf("%s = %v, want a number", f.name, result[f.name])
		}
		if decimal.NewFromFloat(got).Sub(f.want).Abs().GreaterThan(tolerance) {
			return fmt.Sprintf("%s = %v, want %s", f.name, got, f.want.Round(4))
		}
	}
	return ""
}
