package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcsagent/internal/agent"
	"mcsagent/internal/config"
	"mcsagent/internal/embedding"
	"mcsagent/internal/gateway"
	"mcsagent/internal/knowledge"
	"mcsagent/internal/logging"
	"mcsagent/internal/tools"
)

var version = "0.1.0"

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mcsagent",
	Short: "mcsagent - multi-agent conversation system with grounded retrieval",
	Long: `mcsagent routes conversations between specialized workers (Developer,
Support, Scientist) under a supervisor, with an incremental knowledge base
and retrieval-grounded answers.

Run without arguments to start the interactive chat loop.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if _, err := logging.Init(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Incrementally index files or directories into the knowledge base",
	Long: `Indexes the given files or directories. Unchanged files are skipped via
the manifest; changed files have their stale chunks replaced. One status
line is printed per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		statuses, err := rt.manager.Indexer().Index(cmd.Context(), args)
		for _, s := range statuses {
			fmt.Println(s.String())
		}
		return err
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question grounded in the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		answer, err := rt.manager.Pipeline().Answer(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base and print raw chunks with scores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		results, err := rt.manager.Pipeline().Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("[%d] score=%.2f source=%s\n%s\n\n", i+1, r.Score, r.Chunk.Source, truncate(r.Chunk.Text, 400))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mcsagent", version)
	},
}

// runtime bundles the wired components for one command invocation.
type runtime struct {
	gw      gateway.Client
	engine  embedding.Engine
	manager *knowledge.Manager
	runner  *agent.Runner
}

// newRuntime wires the gateway, embedding engine, knowledge manager, and
// orchestration graph. needsGateway=false skips gateway construction for
// commands that only touch the store.
func newRuntime(needsGateway bool) (*runtime, error) {
	log := logging.Named("main")

	var gw gateway.Client
	if needsGateway || cfg.LLM.APIKey != "" {
		var err error
		gw, err = gateway.New(cfg.LLM)
		if err != nil {
			if needsGateway {
				return nil, err
			}
			log.Warn("gateway unavailable", zap.Error(err))
		}
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		log.Warn("embedding engine unavailable, retrieval degrades to keyword matching", zap.Error(err))
		engine = nil
	}

	manager := knowledge.NewManager(cfg, gw, engine)
	registry := tools.NewDefaultRegistry(manager)

	rt := &runtime{gw: gw, engine: engine, manager: manager}
	if gw != nil {
		rt.runner = agent.NewRunner(agent.BuildGraph(cfg, gw, registry))
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if err := rt.manager.Close(); err != nil {
		logging.Named("main").Warn("store close failed", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mcsagent.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(indexCmd, askCmd, searchCmd, versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
