package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/avelardos/convoflow"
	"github.com/avelardos/convoflow/internal/adapters/file"
	"github.com/avelardos/convoflow/internal/adapters/httpapi"
	"github.com/avelardos/convoflow/internal/adapters/memory"
	rds "github.com/avelardos/convoflow/internal/adapters/redis"
	"github.com/avelardos/convoflow/internal/hooks"
	"github.com/avelardos/convoflow/internal/logging"
	"github.com/avelardos/convoflow/internal/metrics"
	"github.com/avelardos/convoflow/internal/sweeper"
	"github.com/avelardos/convoflow/pkg/middleware"
	"github.com/avelardos/convoflow/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the turn-processing HTTP server",
	Long:  `Starts the engine in server mode, exposing the turn API over HTTP. With --redis-addr sessions persist in Redis and turns are serialized across replicas; without it sessions live in process memory.`,
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")
		levelName, _ := cmd.Flags().GetString("log-level")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis-addr")
		webhookURL, _ := cmd.Flags().GetString("webhook-url")
		idleTTL, _ := cmd.Flags().GetDuration("idle-ttl")
		sweepEvery, _ := cmd.Flags().GetDuration("sweep-interval")

		logger := logging.New(logging.ParseLevel(levelName))

		m := metrics.New()
		registry := prometheus.NewRegistry()
		if err := m.Register(registry); err != nil {
			fmt.Printf("Error registering metrics: %v\n", err)
			os.Exit(1)
		}

		opts := []convoflow.Option{
			convoflow.WithLogger(logger),
			convoflow.WithMetrics(m),
		}
		var store ports.SessionStore
		if redisAddr != "" {
			client := backend.NewClient(&backend.Options{Addr: redisAddr})
			if err := client.Ping(cmd.Context()).Err(); err != nil {
				fmt.Printf("Error connecting to redis at %s: %v\n", redisAddr, err)
				os.Exit(1)
			}
			store = rds.NewStore(client)
			opts = append(opts, convoflow.WithLocker(rds.NewLocker(client, "convoflow:")))
			logger.Info("using redis session store", "addr", redisAddr)
		} else {
			store = memory.NewStore()
		}

		var mws []middleware.Middleware
		if maskVars, _ := cmd.Flags().GetStringSlice("mask-vars"); len(maskVars) > 0 {
			mws = append(mws, middleware.NewPIIMasking(maskVars))
		}
		if keyB64, _ := cmd.Flags().GetString("encryption-key"); keyB64 != "" {
			key, err := base64.StdEncoding.DecodeString(keyB64)
			if err != nil || len(key) != 32 {
				fmt.Println("Error: --encryption-key must be 32 bytes, base64 encoded")
				os.Exit(1)
			}
			mws = append(mws, middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: key}))
			logger.Info("sessions encrypted at rest")
		}
		opts = append(opts, convoflow.WithSessionStore(middleware.Chain(store, mws...)))
		if webhookURL != "" {
			opts = append(opts, convoflow.WithHookDispatcher(hooks.NewWebhook(webhookURL, nil)))
			logger.Info("funnel hooks post to webhook", "url", webhookURL)
		}

		engine, err := convoflow.New(file.NewSource(flowsDir), opts...)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		sw := sweeper.New(engine.Store(), sweepEvery, idleTTL, logger)
		sw.Start()
		defer sw.Stop()

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: httpapi.NewHandler(engine, logger, registry),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "flows", flowsDir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("closing server", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis-addr", "", "Redis address for session persistence (empty keeps sessions in memory)")
	serveCmd.Flags().String("webhook-url", "", "URL to POST funnel stage events to")
	serveCmd.Flags().Duration("idle-ttl", 24*time.Hour, "Evict sessions idle for longer than this")
	serveCmd.Flags().Duration("sweep-interval", 10*time.Minute, "How often to sweep idle sessions")
	serveCmd.Flags().StringSlice("mask-vars", nil, "Variable name patterns to mask before persisting (regexp)")
	serveCmd.Flags().String("encryption-key", "", "Base64-encoded 32-byte key to encrypt sessions at rest")
}
