// Command registryd starts a small, in-process simulated cluster of
// registry nodes for local experimentation, and prints each node's
// table contents. Grounded on sa6mwa-lockd's cmd/lockd daemon shape
// (cobra root command, signal-cancelled context) trimmed to this
// module's needs: no HTTP server, no persistence, no client subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	registry "github.com/dep2p/go-registry"
	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	var nodeCount int
	var runFor time.Duration

	cmd := &cobra.Command{
		Use:   "registryd",
		Short: "Run a simulated in-process process-registry cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd.Context(), nodeCount, runFor)
		},
	}

	cmd.Flags().IntVar(&nodeCount, "nodes", 3, "number of simulated cluster nodes")
	cmd.Flags().DurationVar(&runFor, "for", 2*time.Second, "how long to run before dumping state and exiting")

	return cmd
}

func runCluster(ctx context.Context, nodeCount int, runFor time.Duration) error {
	if nodeCount < 1 {
		return fmt.Errorf("registryd: --nodes must be at least 1")
	}

	network := transport.NewNetwork()
	nodes := make([]*registry.Manager, 0, nodeCount)

	for i := 0; i < nodeCount; i++ {
		mgr, err := registry.New(registry.WithNetwork(network))
		if err != nil {
			return fmt.Errorf("registryd: building node %d: %w", i, err)
		}
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("registryd: starting node %d: %w", i, err)
		}
		nodes = append(nodes, mgr)
	}
	defer func() {
		for _, mgr := range nodes {
			_ = mgr.Close()
		}
	}()

	// Spawn and register one demo worker per node so there is something
	// to see in the dump.
	for i, mgr := range nodes {
		pid := mgr.Spawn()
		name := fmt.Sprintf("worker-%d", i)
		if _, _, err := mgr.RegisterDefault(ctx, name, pid, nil); err != nil {
			return fmt.Errorf("registryd: registering %s: %w", name, err)
		}
		if _, err := mgr.JoinDefault(ctx, "workers", pid, nil); err != nil {
			return fmt.Errorf("registryd: joining %s to group: %w", name, err)
		}
	}

	select {
	case <-time.After(runFor):
	case <-ctx.Done():
	}

	for i, mgr := range nodes {
		fmt.Printf("node %d (%s):\n", i, mgr.LocalNode().ShortString())
		for _, entry := range mgr.Dump(types.DefaultScope) {
			fmt.Printf("  registry: %v -> %v\n", entry.Name, entry.Pid)
		}
		for _, entry := range mgr.DumpGroups(types.DefaultScope) {
			fmt.Printf("  group: %v has %v\n", entry.GroupName, entry.Pid)
		}
	}

	return nil
}
