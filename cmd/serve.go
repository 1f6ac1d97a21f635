package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/access"
	"github.com/jmehdipour/domofon-gateway/internal/action"
	"github.com/jmehdipour/domofon-gateway/internal/bot"
	"github.com/jmehdipour/domofon-gateway/internal/config"
	"github.com/jmehdipour/domofon-gateway/internal/dispatch"
	"github.com/jmehdipour/domofon-gateway/internal/gateway/telegram"
	httpSrv "github.com/jmehdipour/domofon-gateway/internal/http"
	"github.com/jmehdipour/domofon-gateway/internal/logger"
	"github.com/jmehdipour/domofon-gateway/internal/session"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run webhook server and Telegram gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		zlog := logger.Log

		accessClient := access.NewClient(cfg.Access.BaseURL, cfg.Access.APIKey, cfg.Access.Timeout, zlog)

		var claims action.Claims
		if cfg.Redis.Addr != "" {
			rdb, err := action.DialRedis(action.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = rdb.Close() }()
			claims = action.NewRedisClaims(rdb, cfg.Claims.TTL, cfg.Claims.KeyPrefix)
		} else {
			claims = action.NewMemoryClaims(cfg.Claims.TTL)
		}

		tg, err := telego.NewBot(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}

		sessions := session.NewStore()
		flow := bot.NewFlow(accessClient, sessions, zlog)
		resolver := action.NewResolver(accessClient, claims, cfg.Access.Timeout, zlog)
		adapter := telegram.NewAdapter(tg, flow, resolver, sessions, cfg.Telegram.SendTimeout, zlog)
		dispatcher := dispatch.NewDispatcher(accessClient, adapter, sessions, zlog)

		server := httpSrv.NewServer(dispatcher)

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errCh := make(chan error, 2)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()
		go func() {
			errCh <- adapter.Run(runCtx)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("component exited: %v", err)
			}
		}

		cancel()

		ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
