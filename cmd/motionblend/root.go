package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/internal/config"
	"github.com/teslashibe/go-motionblend/internal/log"
)

var version = "0.1.0"

// cfg is loaded before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "motionblend",
	Short: "Generate style-preserving transitions between motion clips",
	Long: `motionblend encodes motion clips into periodic phase and a latent style
manifold, then samples natural transitions between them.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := loaded.ApplyEnv(); err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("model") {
			loaded.ModelPath, _ = flags.GetString("model")
		}
		if flags.Changed("skeleton") {
			loaded.SkeletonPath, _ = flags.GetString("skeleton")
		}
		if flags.Changed("log-level") {
			loaded.LogLevel, _ = flags.GetString("log-level")
		}
		if flags.Changed("backend") {
			loaded.Backend, _ = flags.GetString("backend")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		cfg = loaded
		log.Init(cfg.LogLevel)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "motionblend.yaml", "Config file")
	pf.String("model", "", "Model weights file (overrides config)")
	pf.String("skeleton", "", "Skeleton descriptor or BVH file (overrides config)")
	pf.String("backend", "", "Execution backend: cpu or batched (overrides config)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}
