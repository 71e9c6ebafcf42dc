package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a314mux/a314mux/internal/mux"
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Drive a local Core against a local Peer",
}

var loopbackDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Connect to the echo service, write one line, read it back, close",
	RunE:  runLoopbackDemo,
}

func init() {
	loopbackCmd.AddCommand(loopbackDemoCmd)
	rootCmd.AddCommand(loopbackCmd)
}

func runLoopbackDemo(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ca := mux.NewComArea()
	core := mux.NewCore(ca.Local(), 1, mux.WithLogger(log))
	peer := mux.NewPeer(ca.Remote(), map[string]mux.ServiceHandler{"echo": mux.EchoHandler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)
	go peer.Run(ctx)

	const owner, socket = mux.TaskID(1), mux.SocketID(1)

	connect := mux.NewRequest(mux.CmdConnect, owner, socket, []byte("echo"), 4)
	core.Submit(connect)
	if r := <-connect.Done(); r.Outcome != mux.ConnectOK {
		return fmt.Errorf("connect: %v", r.Outcome)
	}
	fmt.Println("connected to echo")

	payload := []byte("hello from muxctl")
	write := mux.NewRequest(mux.CmdWrite, owner, socket, payload, len(payload))
	core.Submit(write)
	if r := <-write.Done(); r.Outcome != mux.WriteOK {
		return fmt.Errorf("write: %v", r.Outcome)
	}

	read := mux.NewRequest(mux.CmdRead, owner, socket, make([]byte, mux.MaxPayload), mux.MaxPayload)
	core.Submit(read)
	r := <-read.Done()
	if r.Outcome != mux.ReadOK {
		return fmt.Errorf("read: %v", r.Outcome)
	}
	fmt.Printf("echoed back: %q\n", read.Buffer[:r.Length])

	eos := mux.NewRequest(mux.CmdEOS, owner, socket, nil, 0)
	core.Submit(eos)
	if r := <-eos.Done(); r.Outcome != mux.EOSOK {
		return fmt.Errorf("eos: %v", r.Outcome)
	}
	fmt.Println("stream closed")
	return nil
}
