package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend photos per place",
	Long: `Group the library by place, drop the largest group (usually home), and
recommend the photos of every other group that are neither near-duplicates
nor rejected by the label policy.

Examples:
  photo-curator recommend
  photo-curator recommend --mode moment --provider gemini
  photo-curator recommend --threshold-km 20 --limit 2000 --json`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	addPipelineFlags(recommendCmd)

	recommendCmd.Flags().String("mode", string(grouping.ModeDistance), "Grouping mode: distance, moment")
	recommendCmd.Flags().Float64("threshold-km", 0, "Group radius in kilometers (default GROUP_THRESHOLD_KM)")
	recommendCmd.Flags().Int("limit", 0, "Maximum number of photos to analyze (default: persisted max count)")
	recommendCmd.Flags().Bool("json", false, "Output as JSON")
}

// groupOutput is one group in the JSON output
type groupOutput struct {
	Group          grouping.LocationGroup    `json:"group"`
	State          recommend.State           `json:"state"`
	Recommendation *recommend.Recommendation `json:"recommendation,omitempty"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	mode, ok := grouping.ParseMode(mustGetString(cmd, "mode"))
	if !ok {
		return fmt.Errorf("unknown mode: %s (supported: distance, moment)", mustGetString(cmd, "mode"))
	}
	jsonOutput := mustGetBool(cmd, "json")

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	curator, manager := p.curator(ctx, mustGetFloat64(cmd, "threshold-km"), mustGetInt(cmd, "limit"))
	defer manager.Close()

	events, unsubscribe := manager.Subscribe()
	groups, err := curator.Analyze(ctx, mode)
	if err != nil {
		unsubscribe()
		return fmt.Errorf("analysis failed: %w", err)
	}
	if len(groups) == 0 {
		unsubscribe()
		fmt.Println("No groups to recommend from.")
		return nil
	}

	bar := newProgressBar(len(groups), fmt.Sprintf("Recommending (%d groups)", len(groups)), "groups")
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for range events {
			_ = bar.Add(1)
		}
	}()
	manager.Wait()
	unsubscribe()
	<-progressDone
	_ = bar.Finish()
	fmt.Println()

	if err := ctx.Err(); err != nil {
		return err
	}

	outputs := make([]groupOutput, 0, len(groups))
	for _, g := range groups {
		out := groupOutput{Group: g}
		out.State, _ = manager.State(g.ID)
		if rec, ok := manager.Recommendation(g.ID); ok {
			out.Recommendation = &rec
		}
		outputs = append(outputs, out)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	for _, out := range outputs {
		printGroup(p, out)
	}
	p.printUsage()
	return nil
}

func printGroup(p *pipeline, out groupOutput) {
	title := out.Group.Title
	if title == "" {
		title = fmt.Sprintf("%.4f, %.4f", out.Group.Location.Lat, out.Group.Location.Lng)
	}
	fmt.Printf("%s (%d photos, %s)\n", title, out.Group.Size(), out.State)
	if out.Recommendation == nil {
		return
	}
	for _, a := range out.Recommendation.Assets {
		fmt.Printf("  %s\n", assetRef(p, a))
	}
	if removed := out.Recommendation.Report.Removed(); removed > 0 {
		fmt.Printf("  removed %d: %v\n", removed, out.Recommendation.Report)
	}
}

// assetRef renders an asset as a terminal hyperlink when PHOTOPRISM_DOMAIN is set
func assetRef(p *pipeline, a library.Asset) string {
	if url := p.cfg.PhotoPrism.PhotoURL(a.ID); url != "" {
		return url
	}
	return a.ID
}
