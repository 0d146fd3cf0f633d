package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jason-s-yu/golf/internal/game"
	"github.com/jason-s-yu/golf/internal/transport"
)

func newHostCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a game and wait for one opponent to join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.cfg.ListenAddr
			}
			secret := []byte(a.cfg.InviteSecret)
			if len(secret) == 0 {
				// A fresh random secret per game; only the printed invite can join.
				id := uuid.New()
				secret = id[:]
			}

			s := game.NewSession(game.SideHost, game.WithRand(a.rng()), game.WithLogger(a.entry()))
			srv, err := transport.Listen(listen, transport.ServerOptions{
				Secret:    secret,
				SessionID: s.ID,
				Logger:    a.entry(),
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			token, err := transport.IssueInvite(secret, s.ID, a.cfg.InviteTTL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hosting game %s on %s\n", s.ID, srv.URL())
			fmt.Fprintf(out, "Your opponent joins with:\n  golf join --url %s --token %s\n", srv.URL(), token)
			fmt.Fprintln(out, "Waiting for opponent...")

			ws, err := srv.Accept(cmd.Context())
			if err != nil {
				return fmt.Errorf("waiting for opponent: %w", err)
			}
			return a.play(cmd, s, ws)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default GOLF_LISTEN_ADDR)")
	return cmd
}
