package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/database"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Show and manage the label policy",
	Long: `Show the persisted label policy. Photos must carry one of the required
labels (when any are set) and none of the excluded labels to be recommended.
Use subcommands to change the policy.`,
	RunE: runLabelsShow,
}

var labelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show required and excluded labels and the max photo count",
	Args:  cobra.NoArgs,
	RunE:  runLabelsShow,
}

var labelsRequiredCmd = &cobra.Command{
	Use:   "required [label...]",
	Short: "Replace the required labels",
	Long: `Replace the required label set. With no arguments the set is cleared
and every label that is not excluded passes.

Example:
  photo-curator labels required beach mountain sunset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, s *labels.Settings) error {
			return s.SetRequired(ctx, args)
		})
	},
}

var labelsExcludedCmd = &cobra.Command{
	Use:   "excluded [label...]",
	Short: "Replace the excluded labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, s *labels.Settings) error {
			return s.SetExcluded(ctx, args)
		})
	},
}

var labelsAddCmd = &cobra.Command{
	Use:   "add required|excluded label...",
	Short: "Add labels to a set",
	Long: `Add labels to the required or excluded set.

Example:
  photo-curator labels add excluded screenshot document`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLabelsModify(true),
}

var labelsRemoveCmd = &cobra.Command{
	Use:   "remove required|excluded label...",
	Short: "Remove labels from a set",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLabelsModify(false),
}

var labelsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default label sets",
	Args:  cobra.NoArgs,
	RunE:  runLabelsReset,
}

var labelsMaxCountCmd = &cobra.Command{
	Use:   "max-count [n]",
	Short: "Show or set how many photos an analysis reads (0 = all)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLabelsMaxCount,
}

var labelsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Classify recent photos and show the most frequent labels",
	Long: `Classify the most recent photos with the --provider model and print the
most frequent labels. Use it to pick required and excluded labels.`,
	Args: cobra.NoArgs,
	RunE: runLabelsStats,
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.AddCommand(labelsShowCmd, labelsRequiredCmd, labelsExcludedCmd, labelsAddCmd,
		labelsRemoveCmd, labelsResetCmd, labelsMaxCountCmd, labelsStatsCmd)

	labelsResetCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	addPipelineFlags(labelsStatsCmd)
	labelsStatsCmd.Flags().Int("limit", 200, "Number of recent photos to classify")
	labelsStatsCmd.Flags().Int("top", constants.DefaultSuggestLimit, "Number of labels to show")
	labelsStatsCmd.Flags().Int("concurrency", constants.DefaultAssetConcurrency, "Number of parallel classifications")
}

// withSettings opens storage, runs fn and prints the resulting policy
func withSettings(fn func(ctx context.Context, s *labels.Settings) error) error {
	ctx := context.Background()
	cfg := config.Load()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	settings := labels.NewSettings(store, cfg.Labels)
	if _, err := settings.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate label settings: %w", err)
	}
	if err := fn(ctx, settings); err != nil {
		return err
	}
	return printSettings(ctx, settings)
}

func printSettings(ctx context.Context, s *labels.Settings) error {
	required, err := s.Required(ctx)
	if err != nil {
		return err
	}
	excluded, err := s.Excluded(ctx)
	if err != nil {
		return err
	}
	maxCount, err := s.MaxPhotoCount(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Required:\t%s\n", joinOrNone(required))
	fmt.Fprintf(w, "Excluded:\t%s\n", joinOrNone(excluded))
	if maxCount == 0 {
		fmt.Fprintln(w, "Max photos:\tall")
	} else {
		fmt.Fprintf(w, "Max photos:\t%d\n", maxCount)
	}
	return w.Flush()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func runLabelsShow(cmd *cobra.Command, args []string) error {
	return withSettings(func(ctx context.Context, s *labels.Settings) error { return nil })
}

func runLabelsModify(add bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		set, names := args[0], args[1:]
		return withSettings(func(ctx context.Context, s *labels.Settings) error {
			switch set {
			case "required", database.SettingRequiredLabels:
				if add {
					return s.AddRequired(ctx, names...)
				}
				return s.RemoveRequired(ctx, names...)
			case "excluded", database.SettingExcludedLabels:
				if add {
					return s.AddExcluded(ctx, names...)
				}
				return s.RemoveExcluded(ctx, names...)
			default:
				return fmt.Errorf("unknown label set: %s (use required or excluded)", set)
			}
		})
	}
}

func runLabelsReset(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") {
		fmt.Print("Restore the default required and excluded labels? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	return withSettings(func(ctx context.Context, s *labels.Settings) error {
		return s.Reset(ctx)
	})
}

func runLabelsMaxCount(cmd *cobra.Command, args []string) error {
	return withSettings(func(ctx context.Context, s *labels.Settings) error {
		if len(args) == 0 {
			return nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
		return s.SetMaxPhotoCount(ctx, n)
	})
}

func runLabelsStats(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	top := mustGetInt(cmd, "top")
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	assets, err := p.lib.ListAssets(ctx, library.Filter{Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	if len(assets) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	bar := newProgressBar(len(assets), fmt.Sprintf("Classifying photos (%d workers)", concurrency), "photos")
	found := make([]string, len(assets))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	failed := 0
	var failedMu sync.Mutex

	for i, a := range assets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			label, err := p.labeler.Label(ctx, a)
			if err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
			}
			found[i] = label
			_ = bar.Add(1)
		}()
	}
	wg.Wait()
	_ = bar.Finish()
	fmt.Println()

	if err := ctx.Err(); err != nil {
		return err
	}

	suggestions := labels.Suggest(found, top)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tPHOTOS")
	fmt.Fprintln(w, "-----\t------")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t%d\n", s.Label, s.Count)
	}
	_ = w.Flush()

	fmt.Printf("\nClassified: %d photos", len(assets)-failed)
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	p.printUsage()
	return nil
}
