package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/config"
	"github.com/ftengine/ftengine/internal/coordinator"
	"github.com/ftengine/ftengine/internal/output"
	"github.com/ftengine/ftengine/internal/storeopen"
	"github.com/ftengine/ftengine/internal/workqueue"
)

func newClusterCmd() *cobra.Command {
	var shardDirs []string
	var limit int
	var timeoutMS int

	cmd := &cobra.Command{
		Use:   "cluster <query>",
		Short: "Fan a query out across multiple shard directories",
		Long: `Cluster opens one engine per --shard-dir, fans the query out to all
of them through internal/coordinator.Coordinator, and prints the
k-way merged, top-scoring results across shards:

  ftctl cluster "hello world" --shard-dir ./shard0 --shard-dir ./shard1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, strings.Join(args, " "), shardDirs, limit, timeoutMS)
		},
	}

	cmd.Flags().StringArrayVar(&shardDirs, "shard-dir", nil, "Shard index directory (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of merged results")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", 2000, "Deadline for the whole fan-out, across every shard")
	_ = cmd.MarkFlagRequired("shard-dir")

	return cmd
}

func runCluster(cmd *cobra.Command, query string, shardDirs []string, limit, timeoutMS int) error {
	if len(shardDirs) == 0 {
		return fmt.Errorf("cluster: at least one --shard-dir is required")
	}

	ctx := cmd.Context()
	cfg := config.NewConfig()

	// One queue shared by every shard's LocalShardClient, so the 2:1
	// high:low pull policy (spec.md §4.8) arbitrates across shards
	// rather than each shard getting its own isolated worker pool.
	queue := workqueue.New(len(shardDirs))
	queue.Start(ctx)
	defer queue.Stop()

	clients := make([]coordinator.ShardClient, len(shardDirs))
	opened := make([]*storeopen.Opened, len(shardDirs))
	for i, dir := range shardDirs {
		o, err := storeopen.Open(ctx, dir)
		if err != nil {
			return fmt.Errorf("cluster: open shard %d (%s): %w", i, dir, err)
		}
		opened[i] = o
		clients[i] = coordinator.NewLocalShardClient(o.Engine, queue)
	}
	defer func() {
		for _, o := range opened {
			_ = o.Close(ctx)
		}
	}()

	coord := coordinator.New(clients, int64(cfg.Coordinator.MaxInFlightShardRPCs))
	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	result, err := coord.Query(ctx, coordinator.Command{Query: query}, limit, deadline)
	if err != nil {
		return fmt.Errorf("cluster query failed: %w", err)
	}

	return printClusterResult(cmd, query, shardDirs, result)
}

func printClusterResult(cmd *cobra.Command, query string, shardDirs []string, result *coordinator.QueryResult) error {
	out := output.New(cmd.OutOrStdout())
	if result.Partial {
		out.Status("", "warning: result set is partial (deadline fired or a shard failed)")
	}
	if len(result.Results) == 0 {
		out.Status("", fmt.Sprintf("no results for %q across %d shard(s)", query, len(shardDirs)))
		return nil
	}
	out.Statusf("", "%d merged result(s) for %q across %d shard(s):", len(result.Results), query, len(shardDirs))
	for i, r := range result.Results {
		out.Statusf("", "%d. %s (shard %d, score: %.4f)", i+1, r.Key, r.ShardIndex, -r.SortKey)
	}
	return nil
}
