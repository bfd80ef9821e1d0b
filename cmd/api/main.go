package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/openalpha/cdp-chain/api"
	"github.com/openalpha/cdp-chain/api/middleware"
	"github.com/openalpha/cdp-chain/api/websocket"
	"github.com/openalpha/cdp-chain/metrics"
)

const snapshotInterval = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CDP_API")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "cdp-api",
		Short: "HTTP and WebSocket gateway over the trove and stability pool keepers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			if v.IsSet("host") {
				cfg.Host = v.GetString("host")
			}
			if v.IsSet("port") {
				cfg.Port = v.GetInt("port")
			}
			if v.IsSet("admin") {
				cfg.Admin = v.GetString("admin")
			}
			if v.IsSet("genesis") {
				cfg.GenesisFile = v.GetString("genesis")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to a TOML config file")
	cmd.PersistentFlags().String("auth-secret", "", "HMAC secret signing API bearer tokens")
	cmd.Flags().String("host", "", "Server host")
	cmd.Flags().Int("port", 0, "Server port")
	cmd.Flags().String("admin", "", "Admin authority (bech32)")
	cmd.Flags().String("genesis", "", "Genesis JSON seeding trove and pool state")

	cmd.AddCommand(newTokenCmd(v))
	return cmd
}

// loadConfig reads the config file and applies the flags shared by every command
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*api.Config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := api.LoadConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if v.IsSet("auth-secret") {
		cfg.Auth.HMACSecret = v.GetString("auth-secret")
	}
	return cfg, nil
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [address]",
		Short: "Issue a bearer token acting as address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}
			token, err := middleware.NewAuthenticator(cfg.Auth, nil).IssueToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func newLogger(cfg api.LogConfig) (log.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	return log.NewLogger(out, log.LevelOption(level)), nil
}

func run(ctx context.Context, cfg *api.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	var gen *api.Genesis
	if cfg.GenesisFile != "" {
		if gen, err = api.LoadGenesis(cfg.GenesisFile); err != nil {
			return err
		}
	}

	collector := metrics.GetCollector()
	hub := websocket.NewHub(&cfg.WebSocket, collector, logger)
	service, err := api.NewService(cfg.Admin, gen, hub, collector, logger)
	if err != nil {
		return err
	}
	server := api.NewServer(cfg, service, hub, collector, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return service.Run(ctx, snapshotInterval)
	})
	g.Go(server.Start)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = api.NewMetricsServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.Info("metrics server starting", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown", "err", err)
			}
		}
		return server.Stop(shutdownCtx)
	})

	return g.Wait()
}
