package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/internal/config"
	"github.com/dshills/proposal-mcp/internal/logging"
	"github.com/dshills/proposal-mcp/internal/mcp"
	"github.com/dshills/proposal-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Proposal analysis engine and MCP server",
	Long: `proposal analyzes government opportunity folders.

An opportunity folder holds a solicitation/ directory (RFP text and capture
notes) and an optional past_performance/ directory. Analysis tags solicitation
fragments, merges past-performance project records, groups keyword themes and
reports the solicitation sections nothing addresses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.JSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Proposal MCP Server\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the JSON report files")
	analyzeCmd.Flags().IntVar(&fragmentLimit, "limit", 0, "Analyze only the first n solicitation fragments")

	chunkCmd.Flags().StringVar(&chunkMode, "mode", "paragraph", "Chunking mode: paragraph or window")
	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "Maximum chunk size in characters (mode default when 0)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "Window overlap in characters")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("proposal MCP server starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName))

	ctx, cancel := signalContext()
	defer cancel()

	server, err := mcp.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("server stopped")
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
