package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/a314mux/a314mux/internal/mux"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a Core and an echo Peer until interrupted, logging ring stats periodically",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ca := mux.NewComArea()
	core := mux.NewCore(ca.Local(), 1, mux.WithLogger(log))
	peer := mux.NewPeer(ca.Remote(), map[string]mux.ServiceHandler{"echo": mux.EchoHandler})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go core.Run(ctx)
	go peer.Run(ctx)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	log.Info().Msg("serving; connect a client task against this Core's request channel")
	for {
		select {
		case <-ctx.Done():
			fmt.Println("shutting down")
			return nil
		case <-ticker.C:
			s := core.Stats()
			log.Info().Uint8("a2r_used", s.A2RUsed).Uint8("r2a_used", s.R2AUsed).Msg("stats")
		}
	}
}
