package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jason-s-yu/golf/internal/game"
	"github.com/jason-s-yu/golf/internal/transport"
)

const dialTimeout = 15 * time.Second

func newJoinCmd(a *app) *cobra.Command {
	var url, token string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a hosted game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = a.cfg.PeerURL
			}
			if url == "" {
				return errors.New("no host address: pass --url or set GOLF_PEER_URL")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()
			ws, err := transport.Dial(ctx, url, token, a.entry())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s\n", url)

			s := game.NewSession(game.SideClient, game.WithRand(a.rng()), game.WithLogger(a.entry()))
			return a.play(cmd, s, ws)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "host address, e.g. ws://host:8080/golf (default GOLF_PEER_URL)")
	cmd.Flags().StringVar(&token, "token", "", "invite token printed by the host")
	return cmd
}
