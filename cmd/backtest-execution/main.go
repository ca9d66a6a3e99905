package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/ismaiel54/backtest-execution/internal/config"
	"github.com/ismaiel54/backtest-execution/internal/dedup"
	"github.com/ismaiel54/backtest-execution/internal/execution"
	"github.com/ismaiel54/backtest-execution/internal/logging"
	"github.com/ismaiel54/backtest-execution/internal/msg"
	"github.com/ismaiel54/backtest-execution/internal/observability"
	"github.com/ismaiel54/backtest-execution/internal/schema"
	"github.com/ismaiel54/backtest-execution/internal/stage"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig("backtest-execution")

	// Initialize logger
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting backtest-execution service",
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.String("requests_topic", cfg.RequestsTopic),
		zap.String("results_topic", cfg.ResultsTopic),
		zap.String("rejections_topic", cfg.RejectionsTopic),
	)

	metrics := observability.NewMetrics("backtest_execution")
	healthChecker := observability.NewHealthChecker(metrics, logger)

	kafkaCfg := msg.NewConfig(cfg.KafkaBrokers, cfg.KafkaClientID)

	producer, err := msg.NewProducer(kafkaCfg, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	consumer, err := msg.NewConsumer(kafkaCfg, cfg.KafkaConsumerGroup, []string{cfg.RequestsTopic}, cfg.HandlerMaxRetries, logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	requestSchema := schema.TradeRequest()
	pipeline := execution.NewPipeline(requestSchema, logger.Named("execution"))
	handler := stage.NewHandler(
		pipeline,
		producer,
		dedup.NewCache(cfg.DedupTTL),
		metrics,
		stage.Topics{Results: cfg.ResultsTopic, Rejections: cfg.RejectionsTopic},
		logger,
	)

	logger.Info("execution pipeline ready",
		zap.String("schema", requestSchema.Name()),
		zap.Duration("dedup_ttl", cfg.DedupTTL),
		zap.Int("handler_max_retries", cfg.HandlerMaxRetries),
	)

	// Create gRPC server
	grpcServer := grpc.NewServer()
	healthChecker.RegisterGRPC(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			grpcErrCh <- err
		}
	}()

	// Start HTTP health server
	httpErrCh := make(chan error, 1)
	go func() {
		if err := healthChecker.StartHTTPServer(cfg.HTTPAddr()); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerErrCh := make(chan error, 1)
	go func() {
		if err := consumer.Run(consumerCtx, handler.Handle); err != nil && err != context.Canceled {
			consumerErrCh <- err
		}
	}()

	// Wait for consumer to start
	time.Sleep(1 * time.Second)
	if consumer.IsRunning() {
		healthChecker.SetKafkaReady(true)
	} else {
		healthChecker.SetKafkaReady(false)
		logger.Warn("consumer not running yet")
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-grpcErrCh:
		logger.Error("gRPC server error", zap.Error(err))
	case err := <-httpErrCh:
		logger.Error("HTTP server error", zap.Error(err))
	case err := <-consumerErrCh:
		logger.Error("consumer error", zap.Error(err))
	}

	logger.Info("shutting down gracefully...")

	cancel()
	consumer.Close()
	producer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthChecker.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down health checker", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logger.Info("backtest-execution service stopped")
}
