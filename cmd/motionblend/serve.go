package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/internal/log"
	"github.com/teslashibe/go-motionblend/internal/metrics"
	"github.com/teslashibe/go-motionblend/pkg/api"
	"github.com/teslashibe/go-motionblend/pkg/clips"
	"github.com/teslashibe/go-motionblend/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transition API",
	Long: `Starts the HTTP API (/api/encode_phase, /api/encode_style,
/api/generate_transition, ...), the /ws/frames stream and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		opts := []api.Option{
			api.WithLogger(log.L()),
			api.WithMetrics(metrics.New()),
			api.WithDefaults(api.Defaults{
				Length:        cfg.Transition.Length,
				PhaseSchedule: cfg.Transition.PhaseSchedule,
			}),
		}

		if cfg.DBPath != "" {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()
			opts = append(opts, api.WithStore(st))
			log.Info("persistence enabled", "db", cfg.DBPath)
		}

		if cfg.ClipDir != "" {
			reg := clips.NewRegistry(p.Model().Skeleton())
			if err := reg.LoadDir(cfg.ClipDir); err != nil {
				return err
			}
			opts = append(opts, api.WithClips(reg))
			log.Info("clip library loaded", "dir", cfg.ClipDir, "clips", reg.Count())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.New(p, opts...)
		m := p.Model()
		log.Info("starting motionblend",
			"version", version,
			"joints", m.Skeleton().NumJoints(),
			"params", m.NumParams(),
			"backend", cfg.Backend,
		)
		if err := srv.Start(ctx, cfg.Addr()); err != nil {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
}
