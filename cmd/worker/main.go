package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/atendai/atendai/internal/profile"
	"github.com/atendai/atendai/plugin/ai"
	"github.com/atendai/atendai/plugin/ai/agent"
	"github.com/atendai/atendai/plugin/ai/cache"
	"github.com/atendai/atendai/plugin/ai/convctx"
	"github.com/atendai/atendai/server/channel"
	"github.com/atendai/atendai/server/middleware"
	"github.com/atendai/atendai/server/notify"
	"github.com/atendai/atendai/server/quota"
	"github.com/atendai/atendai/server/service/conversation"
	"github.com/atendai/atendai/server/worker"
	"github.com/atendai/atendai/store"
	"github.com/atendai/atendai/store/db"
)

const version = "0.3.1"

var rootCmd = &cobra.Command{
	Use:   "atendai-worker",
	Short: "Message worker for AI-driven customer conversations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := profile.FromViper(viper.GetViper())
		if err != nil {
			return err
		}
		p.Version = version
		return run(cmd.Context(), p)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the worker, can be "prod" or "dev"`)
	flags.String("addr", "", "binding address for the dashboard stream server")
	flags.Int("port", 8081, "binding port for the dashboard stream server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("ai-base-url", "https://api.openai.com/v1", "AI provider base URL")
	flags.String("ai-api-key", "", "AI provider API key")
	flags.String("ai-model", "gpt-4o-mini", "chat model")
	flags.String("channel-base-url", "", "channel gateway base URL")
	flags.String("channel-api-key", "", "channel gateway API key")
	flags.String("dashboard-jwt-secret", "", "secret for dashboard stream tokens")
	flags.Int("worker-concurrency", 8, "number of conversation lanes processed in parallel")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, p *profile.Profile) error {
	logLevel := slog.LevelInfo
	if p.IsDev() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return err
	}
	st := store.New(driver, p)
	defer st.Close()

	cacheSvc := cache.NewService(cache.DefaultServiceConfig())
	defer cacheSvc.Close()

	aiCfg := &ai.Config{
		BaseURL: p.AIBaseURL,
		APIKey:  p.AIAPIKey,
		Model:   p.AIModel,
	}
	llm := ai.NewLLMService(aiCfg)
	responder := ai.NewInvoker(llm, worker.NewBusinessExecutor(st))

	mediaDir := filepath.Join(p.Data, "media")
	if err := os.MkdirAll(mediaDir, 0o750); err != nil {
		return err
	}

	hub := notify.NewHub()
	queue := worker.NewInProcessQueue(p.WorkerConcurrency)

	pipeline := worker.NewPipeline(worker.Config{
		Store:         st,
		Conversations: conversation.NewService(st).WithNotifier(hub),
		Selector:      agent.NewSelector(st),
		Quota:         quota.NewTracker(st, cacheSvc),
		Assembler:     convctx.NewAssembler(st, convctx.NewLLMSummarizer(llm)),
		Responder:     responder,
		Channel:       channel.NewHTTPAdapter(p.ChannelBaseURL, p.ChannelAPIKey),
		Hub:           hub,
		Speech:        ai.NewSpeechService(aiCfg),
		Logger:        logger,
		MediaDir:      mediaDir,
		MediaBaseURL:  fmt.Sprintf("http://%s:%d/media", p.Addr, p.Port),
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	apiGroup := e.Group("/api/v1", middleware.NewRateLimiter(50, 100).Middleware())
	notify.NewSSEHandler(hub, p.DashboardJWTSecret).Register(apiGroup)
	worker.NewWebhookHandler(queue, p.ChannelAPIKey).Register(apiGroup)
	apiGroup.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"version": p.Version,
			"metrics": pipeline.Metrics().Snapshot(),
		})
	})
	e.Static("/media", mediaDir)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Start(gctx, pipeline.Process)
	})
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", p.Addr, p.Port)
		logger.Info("worker started",
			"version", p.Version,
			"addr", addr,
			"driver", p.Driver,
			"concurrency", p.WorkerConcurrency)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logger.Info("pipeline metrics", "metrics", pipeline.Metrics().Snapshot())
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("worker stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
