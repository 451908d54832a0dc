// File: cmd/run.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/adb"
	"github.com/idofrizler/phone-buddy/internal/agent"
	"github.com/idofrizler/phone-buddy/internal/brain"
	"github.com/idofrizler/phone-buddy/internal/catalog"
	"github.com/idofrizler/phone-buddy/internal/config"
	"github.com/idofrizler/phone-buddy/internal/executor"
	"github.com/idofrizler/phone-buddy/internal/observability"
	"github.com/idofrizler/phone-buddy/internal/perception"
)

var runFlags struct {
	port        int
	task        string
	steps       int
	model       string
	provider    string
	llmEndpoint string
}

var runCmd = &cobra.Command{
	Use:   "run <device-address>",
	Short: "Connect to a phone and run tasks against it",
	Long: `Connects to an Android device over wireless adb and either runs a single
task (--task) or drops into an interactive prompt where each line is a task.

The interactive prompt also understands:
  apps     list the apps discovered on the device
  screen   print the current screen summary
  exit     disconnect and quit`,
	Args: cobra.ExactArgs(1),
	RunE: runAgent,
}

func init() {
	runCmd.Flags().IntVar(&runFlags.port, "port", 5555, "wireless adb port")
	runCmd.Flags().StringVarP(&runFlags.task, "task", "t", "", "run a single task and exit")
	runCmd.Flags().IntVar(&runFlags.steps, "steps", 0, "override the step budget")
	runCmd.Flags().StringVar(&runFlags.model, "model", "", "override the LLM model")
	runCmd.Flags().StringVar(&runFlags.provider, "provider", "", "LLM provider (openai or gemini)")
	runCmd.Flags().StringVar(&runFlags.llmEndpoint, "llm-endpoint", "", "OpenAI-compatible endpoint for a local LLM server")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags folds command-line overrides into the loaded config.
func applyRunFlags(cfg *config.Config, deviceAddress string) error {
	cfg.Device.Address = deviceAddress
	if runFlags.port != 0 {
		cfg.Device.Port = runFlags.port
	}
	if runFlags.steps > 0 {
		cfg.Agent.StepBudget = runFlags.steps
	}
	if runFlags.model != "" {
		cfg.Agent.LLM.Model = runFlags.model
	}
	if runFlags.provider != "" {
		cfg.Agent.LLM.Provider = config.LLMProvider(runFlags.provider)
	}
	if runFlags.llmEndpoint != "" {
		cfg.Agent.LLM.Endpoint = runFlags.llmEndpoint
	}
	return cfg.Validate()
}

func runAgent(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg, args[0]); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// device transport
	driver := adb.NewExecDriver(cfg.Device, logger)
	manager := adb.NewManager(driver, cfg.Device, logger)
	fmt.Printf("Connecting to %s ...\n", manager.Address())
	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("could not reach device: %w", err)
	}
	defer func() {
		if err := manager.Close(context.Background()); err != nil {
			logger.Warn("Disconnect failed", zap.Error(err))
		}
	}()

	// app catalog, collected once per session
	if cfg.Catalog.LabelCacheFile == "" {
		if path, err := catalog.DefaultLabelCachePath(); err == nil {
			cfg.Catalog.LabelCacheFile = path
		}
	}
	var labeler catalog.Labeler
	if aapt, err := catalog.NewAaptLabeler(manager, logger); err != nil {
		logger.Warn("App label discovery disabled", zap.Error(err))
	} else {
		labeler = aapt
	}
	apps := catalog.New(manager, labeler, cfg.Catalog, logger)
	fmt.Println("Fetching installed apps ...")
	if err := apps.Fetch(ctx); err != nil {
		return fmt.Errorf("could not build app catalog: %w", err)
	}
	fmt.Printf("Found %d apps.\n", len(apps.Entries()))

	// reasoning backend
	client, err := brain.NewClient(cfg.Agent.LLM, logger)
	if err != nil {
		return err
	}

	capturer := perception.NewCapturer(manager, cfg.Perception, logger)
	engine := brain.NewEngine(client, cfg.Agent, logger)
	exec := executor.New(manager, apps, cfg.Agent, logger)
	loop := agent.NewLoop(capturer, engine, exec, apps, cfg.Agent, logger)

	if runFlags.task != "" {
		return runSingleTask(ctx, loop, runFlags.task)
	}
	return runInteractive(ctx, loop, capturer, apps)
}

func runSingleTask(ctx context.Context, loop *agent.Loop, goal string) error {
	task, err := loop.Run(ctx, goal)
	printTaskOutcome(task)
	if err != nil {
		return err
	}
	if task.Status != agent.StatusSucceeded {
		return fmt.Errorf("task %s: %s", task.Status, task.Reason)
	}
	return nil
}

func runInteractive(ctx context.Context, loop *agent.Loop, capturer *perception.Capturer, apps *catalog.Catalog) error {
	fmt.Println(`Ready. Type a task, or "apps", "screen", "exit".`)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "apps":
			fmt.Println(apps.Summary())
		case "screen":
			snap, err := capturer.Capture(ctx)
			if err != nil {
				fmt.Printf("could not read the screen: %v\n", err)
				continue
			}
			fmt.Println(snap.Summary(capturer.SummaryCap()))
		default:
			task, err := loop.Run(ctx, line)
			printTaskOutcome(task)
			if err != nil && ctx.Err() != nil {
				return err
			}
		}
	}
}

func printTaskOutcome(task *agent.Task) {
	if task == nil {
		return
	}
	fmt.Printf("\nTask %s after %d steps", task.Status, len(task.Steps))
	if task.Reason != "" {
		fmt.Printf(" (%s)", task.Reason)
	}
	fmt.Println()
	for _, step := range task.Steps {
		marker := "ok"
		if !step.Result.Success {
			marker = "FAILED"
		}
		fmt.Printf("  %2d. %-30s %s: %s\n", step.Index, step.Action.Describe(), marker, step.Result.Summary)
	}
}
