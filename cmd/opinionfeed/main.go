package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"opinionfeed/internal/config"
	"opinionfeed/internal/pipeline"
	"opinionfeed/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	maxItems   int
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "opinionfeed",
	Short:   "RSS feeds of recent judicial opinions",
	Long:    "opinionfeed monitors recently published opinions, extracts their content, summarizes them through a generative API, and publishes the results as RSS documents.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys may live in a local .env file.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			// All options have defaults; run without a file.
			cfg = config.Default()
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().IntVarP(&maxItems, "items", "n", 0, "How many upstream items to process (default from config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(opinionsCmd)
	rootCmd.AddCommand(fulltextCmd)
	rootCmd.AddCommand(summariesCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("opinionfeed", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/opinionfeed/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust sources, output paths, and the summarization model.")
		return nil
	},
}

var opinionsCmd = &cobra.Command{
	Use:   "opinions",
	Short: "Rebuild the opinions document (sanitized case body HTML)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		count, err := pipe.RunOpinions(context.Background(), maxItems)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d items to %s\n", count, cfg.Output.OpinionsPath())
		return nil
	},
}

var fulltextCmd = &cobra.Command{
	Use:   "fulltext",
	Short: "Rebuild the full-text document (extracted PDF text)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		count, err := pipe.RunFullText(context.Background(), maxItems)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d items to %s\n", count, cfg.Output.FullTextPath())
		return nil
	},
}

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Reconcile the append-only summary document",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		added, err := pipe.RunSummaries(context.Background(), maxItems)
		if err != nil {
			return err
		}
		fmt.Printf("Added %d items to %s\n", added, cfg.Output.SummaryPath())
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build all documents: opinions, full text, and summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		result := pipe.Run(context.Background(), maxItems)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			switch {
			case step.Err != nil && step.Warning:
				fmt.Printf("  Warning: %v\n", step.Err)
			case step.Err != nil:
				fmt.Printf("  Error: %v\n", step.Err)
			default:
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("run failed")
		}
		return nil
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated documents locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Serving %s at http://localhost:%d\n", cfg.Output.Dir, port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg.Output.Dir, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to serve on (default from config)")
}
