package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/a314mux/a314mux/internal/mux"
)

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "Inspect a ComArea's ring occupancy",
}

var ringStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Run a short canned exchange and print the resulting ring stats",
	RunE:  runRingStats,
}

func init() {
	ringCmd.AddCommand(ringStatsCmd)
	rootCmd.AddCommand(ringCmd)
}

func runRingStats(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ca := mux.NewComArea()
	core := mux.NewCore(ca.Local(), 1, mux.WithLogger(log))
	peer := mux.NewPeer(ca.Remote(), map[string]mux.ServiceHandler{"echo": mux.EchoHandler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)
	go peer.Run(ctx)

	connect := mux.NewRequest(mux.CmdConnect, 1, 1, []byte("echo"), 4)
	core.Submit(connect)
	if r := <-connect.Done(); r.Outcome != mux.ConnectOK {
		return fmt.Errorf("connect: %v", r.Outcome)
	}

	write := mux.NewRequest(mux.CmdWrite, 1, 1, []byte("ring stats probe"), len("ring stats probe"))
	core.Submit(write)
	if r := <-write.Done(); r.Outcome != mux.WriteOK {
		return fmt.Errorf("write: %v", r.Outcome)
	}

	// Give the wake-channel round trip a moment to land before snapshotting.
	time.Sleep(10 * time.Millisecond)

	stats := core.Stats()
	fmt.Printf("a2r used=%d r2a used=%d local_armed=%v peer_armed=%v\n",
		stats.A2RUsed, stats.R2AUsed, stats.LocalArmed, stats.PeerArmed)
	return nil
}
