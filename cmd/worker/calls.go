package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/domofon-gateway/internal/access"
	"github.com/jmehdipour/domofon-gateway/internal/config"
	"github.com/jmehdipour/domofon-gateway/internal/dispatch"
	"github.com/jmehdipour/domofon-gateway/internal/gateway/telegram"
	"github.com/jmehdipour/domofon-gateway/internal/kafka"
	"github.com/jmehdipour/domofon-gateway/internal/logger"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Consume call events from Kafka and dispatch notifications",
	RunE:  runCalls,
}

// runCalls consumes call-event envelopes published by building hardware
// and feeds them through the same dispatcher the webhook uses. In this
// mode recipient routing relies on the access API's notify address: the
// worker process holds no chat sessions of its own.
func runCalls(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Encoding)
	zlog := logger.Log

	accessClient := access.NewClient(cfg.Access.BaseURL, cfg.Access.APIKey, cfg.Access.Timeout, zlog)

	tg, err := telego.NewBot(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	// Delivery-only adapter: no polling loop, no resolver, no sessions.
	gw := telegram.NewAdapter(tg, nil, nil, nil, cfg.Telegram.SendTimeout, zlog)

	dispatcher := dispatch.NewDispatcher(accessClient, gw, nil, zlog)

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: cfg.Kafka.CommitInterval,
	})
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("signal received: %s, shutting down...", sig)
		cancel()
	}()

	for {
		m, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zlog.Error("kafka fetch failed", zap.Error(err))
			continue
		}

		var event model.CallEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			zlog.Warn("skipping malformed call event",
				zap.Int64("offset", m.Offset), zap.Error(err))
			_ = consumer.Commit(ctx, m)
			continue
		}

		outcome, err := dispatcher.Dispatch(ctx, event)
		if err != nil {
			// Terminal by design: the core never retries, so the offset
			// is committed either way.
			zlog.Error("dispatch failed",
				zap.String("event_id", outcome.EventID),
				zap.String("stage", outcome.Stage),
				zap.Error(err))
		}

		if err := consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
			zlog.Error("kafka commit failed", zap.Error(err))
		}
	}
}
