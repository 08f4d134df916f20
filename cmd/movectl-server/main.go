package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/movectl/commandserver"
	"github.com/cyberinferno/movectl/config"
	"github.com/cyberinferno/movectl/logger"
	"github.com/cyberinferno/movectl/reportstore"
)

var (
	configPath string
	addr       string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "movectl-server",
	Short: "Command server that walks each client through a fixed move sequence",
	Long: `movectl-server accepts clients on a TCP port. Each client introduces
itself, then receives the move sequence one command at a time. When a client
leaves, its last known position is printed and archived.

Settings come from the optional config file, then the environment
(SERVER_ADDRESS, LOG_LEVEL, ACK_TIMEOUT, REPORT_STORE, ...), then flags.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if addr != "" {
		cfg.Address = addr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	return cfg, cfg.Validate()
}

func openStore(ctx context.Context, cfg *config.Config) (reportstore.Store, error) {
	if cfg.Reports.Store == config.StoreRedis {
		return reportstore.DialRedisStore(ctx, cfg.Reports.RedisAddr, cfg.Reports.TTL)
	}

	return reportstore.NewMemoryStore(cfg.Reports.TTL, 10*time.Minute), nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Service: "movectl-server",
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open report store", logger.Field{Key: "error", Value: err})
		return err
	}

	opts := commandserver.Options{
		Address:      cfg.Address,
		AckTimeout:   cfg.Server.AckTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MaxFrameSize: cfg.Server.MaxFrameSize,
		Logger:       log,
		Reports:      store,
		Out:          os.Stdout,
	}
	if cfg.Reports.DiscordWebhook != "" {
		opts.Notify = commandserver.DiscordNotifier(cfg.Reports.DiscordWebhook)
	}

	server := commandserver.New(opts)
	defer server.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				log.Debug("server status",
					logger.Field{Key: "sessions", Value: server.SessionCount()},
					logger.Field{Key: "clients", Value: len(server.Clients())})
			}
		}
	})

	return g.Wait()
}
