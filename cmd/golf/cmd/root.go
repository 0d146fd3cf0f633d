package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jason-s-yu/golf/internal/config"
	"github.com/jason-s-yu/golf/internal/game"
	"github.com/jason-s-yu/golf/internal/history"
	"github.com/jason-s-yu/golf/internal/peer"
	"github.com/jason-s-yu/golf/internal/transport"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfg     config.Config
	envFile string
	level   string
	log     *logrus.Logger
}

// NewRootCmd creates the golf command tree. It is called once in main.
func NewRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	rootCmd := &cobra.Command{
		Use:           "golf",
		Short:         "Two-player Six Card Golf over a direct peer connection",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if a.level != "" {
				if cfg.LogLevel, err = logrus.ParseLevel(a.level); err != nil {
					return fmt.Errorf("--log-level: %w", err)
				}
			}
			a.cfg = cfg

			a.log.SetOutput(cmd.ErrOrStderr())
			a.log.SetLevel(cfg.LogLevel)
			a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load settings from this file instead of .env")
	rootCmd.PersistentFlags().StringVar(&a.level, "log-level", "", "log level (overrides GOLF_LOG_LEVEL)")

	rootCmd.AddCommand(newHostCmd(a), newJoinCmd(a))
	return rootCmd
}

func (a *app) entry() *logrus.Entry { return logrus.NewEntry(a.log) }

// recorder opens whichever history backends are configured. The returned
// recorder is nil when none are.
func (a *app) recorder(ctx context.Context) (history.Recorder, error) {
	var rs history.Multi
	if a.cfg.RedisAddr != "" {
		r, err := history.NewRedisLog(ctx, a.cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	if a.cfg.DatabaseURL != "" {
		p, err := history.NewPostgresArchive(ctx, a.cfg.DatabaseURL)
		if err != nil {
			rs.Close()
			return nil, err
		}
		rs = append(rs, p)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return rs, nil
}

func (a *app) rng() *rand.Rand {
	seed := a.cfg.RNGSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// play runs one connected game until the player quits or the link drops.
func (a *app) play(cmd *cobra.Command, s *game.Session, tr transport.Transport) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer tr.Close()

	rec, err := a.recorder(ctx)
	if err != nil {
		return err
	}
	opts := []peer.Option{
		peer.WithLogger(a.entry()),
		peer.WithHeartbeat(a.cfg.HeartbeatInterval),
	}
	if rec != nil {
		defer rec.Close()
		opts = append(opts, peer.WithRecorder(rec))
	}

	pr := newPresenter(cmd.OutOrStdout())
	p := peer.New(s, tr, append(opts, peer.WithObserver(pr.observe))...)

	runErr := make(chan error, 1)
	go func() {
		runErr <- p.Run(ctx)
		cancel()
	}()

	pr.loop(ctx, cmd.InOrStdin(), p)
	cancel()
	if err := <-runErr; err != nil {
		a.log.WithError(err).Debug("Session finished")
	}
	return nil
}
