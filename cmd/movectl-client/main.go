package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/movectl/commandclient"
	"github.com/cyberinferno/movectl/config"
	"github.com/cyberinferno/movectl/logger"
)

var (
	configPath string
	addr       string
	name       string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "movectl-client",
	Short: "Reactive client that follows the command server's moves",
	Long: `movectl-client connects to movectl-server, introduces itself by name and
acknowledges every move command until the server ends the session.

Settings come from the optional config file, then the environment
(SERVER_ADDRESS, CLIENT_NAME, LOG_LEVEL, ...), then flags.`,
	SilenceUsage: true,
	RunE:         runClient,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "server address (host:port)")
	rootCmd.Flags().StringVar(&name, "name", "", "client name sent to the server")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if addr != "" {
		cfg.Address = addr
	}
	if name != "" {
		cfg.Client.Name = name
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Service: "movectl-client",
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

	client := commandclient.New(commandclient.Options{
		Name:           cfg.Client.Name,
		Address:        cfg.Address,
		ConnectTimeout: cfg.Client.ConnectTimeout,
		WriteTimeout:   cfg.Client.WriteTimeout,
		Logger:         log,
	})

	if err := client.Run(ctx); err != nil {
		log.Error("client stopped", logger.Field{Key: "error", Value: err})
		return err
	}

	log.Info("done", logger.Field{Key: "position", Value: client.Agent().Position()})
	return nil
}
