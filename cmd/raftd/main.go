// Command raftd runs one node of a raft cluster: it loads a peer list
// and timing config, starts the gRPC transport, and drives the raft
// Machine's tick loop. Grounded on the teacher's cobra root-command
// pattern (seen throughout the retrieved pack's cmd/ directories).
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lattice-raft/raft/config"
	"github.com/lattice-raft/raft/internal/log"
	"github.com/lattice-raft/raft/raft"
	"github.com/lattice-raft/raft/raftpb"
	"github.com/lattice-raft/raft/transport"
	"github.com/spf13/cobra"
	"go.etcd.io/etcd/pkg/v3/idutil"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load() // optional; missing .env is not an error

	root := &cobra.Command{Use: "raftd"}
	root.AddCommand(startCmd())
	root.AddCommand(idCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// idCmd prints a fresh collision-resistant NodeID for an operator
// bootstrapping a new raftd.yaml, the same generator etcd uses to mint
// member ids.
func idCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "generate a new node id for a cluster config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := idutil.NewGenerator(uint16(os.Getpid()), time.Now())
			fmt.Println(gen.Next())
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start this node and join the cluster described by the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "raftd.yaml", "path to the cluster config file")
	return cmd
}

func run(configPath string) error {
	zlg, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer zlg.Sync()
	log.SetLogger(zlg.Sugar())

	f, err := config.Load(configPath)
	if err != nil {
		return err
	}

	self := raftpb.NodeID(f.Self)
	var nodes []raftpb.NodeID
	addrs := map[raftpb.NodeID]string{}
	for _, p := range f.Peers {
		id := raftpb.NodeID(p.ID)
		nodes = append(nodes, id)
		addrs[id] = p.Address
	}

	opts := []raft.Option{}
	if f.ElectionTimeout > 0 {
		opts = append(opts, raft.WithElectionTimeout(f.ElectionTimeout))
	}
	if f.HeartbeatInterval > 0 {
		opts = append(opts, raft.WithHeartbeatInterval(f.HeartbeatInterval))
	}
	if f.PreVoteGuard {
		opts = append(opts, raft.WithPreVoteGuard())
	}

	d := newDriver(self, nodes, opts...)
	defer d.Close()

	for _, id := range nodes {
		if id == self {
			continue
		}
		if err := d.addPeer(id, addrs[id]); err != nil {
			return fmt.Errorf("raftd: dialing %v: %w", id, err)
		}
	}

	lis, err := net.Listen("tcp", addrs[self])
	if err != nil {
		return err
	}
	srv := transport.NewServer(d.handleMessage)
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Errorf("raftd: server stopped: %v", err)
		}
	}()
	defer srv.Stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	go d.tickLoop(ticker.C)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
