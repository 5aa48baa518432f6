package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/scoring"
	"github.com/kozaktomas/photo-curator/internal/search"
)

var bestCmd = &cobra.Command{
	Use:   "best",
	Short: "Rank the best photos of the library by quality",
	Long: `Group the library by place, drop near-duplicates within each group and
photos rejected by the label policy, then score what is left and print it
best first.

The regression strategy scores with two NIMA models on TensorFlow Serving.
The vision strategy asks the --provider model and drops utility images.

Examples:
  photo-curator best
  photo-curator best --strategy vision --provider ollama --top 20
  photo-curator best --index`,
	RunE: runBest,
}

func init() {
	rootCmd.AddCommand(bestCmd)
	addPipelineFlags(bestCmd)

	bestCmd.Flags().String("strategy", string(scoring.StrategyRegression), "Scoring strategy: regression, vision")
	bestCmd.Flags().String("mode", string(grouping.ModeDistance), "Grouping mode: distance, moment")
	bestCmd.Flags().Int("limit", 0, "Maximum number of photos to analyze (default: persisted max count)")
	bestCmd.Flags().Int("top", 0, "Only print the N best photos (0 = all)")
	bestCmd.Flags().Bool("index", false, "Index the ranked photos into Elasticsearch")
	bestCmd.Flags().Bool("json", false, "Output as JSON")
}

func runBest(cmd *cobra.Command, args []string) error {
	strategy, err := scoring.ParseStrategy(mustGetString(cmd, "strategy"))
	if err != nil {
		return err
	}
	mode, ok := grouping.ParseMode(mustGetString(cmd, "mode"))
	if !ok {
		return fmt.Errorf("unknown mode: %s (supported: distance, moment)", mustGetString(cmd, "mode"))
	}
	top := mustGetInt(cmd, "top")

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	var indexer *search.Indexer
	if mustGetBool(cmd, "index") {
		if indexer, err = p.indexer(ctx); err != nil {
			return err
		}
	}

	limit := mustGetInt(cmd, "limit")
	if limit <= 0 {
		if limit, err = p.settings.MaxPhotoCount(ctx); err != nil {
			return err
		}
	}
	groups, err := p.partition(ctx, mode, limit)
	if err != nil {
		return err
	}
	fmt.Printf("Scoring %d groups with the %s strategy...\n", len(groups), strategy)

	ranking, err := p.ranker(strategy).Best(ctx, groups)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	if indexer != nil {
		if err := indexer.IndexPhotos(ctx, ranking.Photos); err != nil {
			return fmt.Errorf("failed to index photos: %w", err)
		}
		fmt.Printf("Indexed %d photos into %s\n", len(ranking.Photos), indexer.PhotoIndex())
	}

	photos := ranking.Photos
	if top > 0 && len(photos) > top {
		photos = photos[:top]
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(photos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tPHOTO\tLABEL\tPLACE\tTAKEN")
	for i, ph := range photos {
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\t%s\t%s\n", i+1, ph.Score,
			assetRef(p, library.Asset{ID: ph.AssetID}), ph.Label, ph.LocationName, ph.TakenAt.Format("2006-01-02"))
	}
	_ = w.Flush()

	if removed := ranking.Report.Removed(); removed > 0 {
		fmt.Printf("\nRemoved %d photos: %v\n", removed, ranking.Report)
	}
	p.printUsage()
	return nil
}

// partition lists the library and groups it the way an analysis pass does.
// A library that denies access yields no groups.
func (p *pipeline) partition(ctx context.Context, mode grouping.Mode, limit int) ([]grouping.LocationGroup, error) {
	filter := library.Filter{Limit: limit}
	if mode == grouping.ModeMoment {
		moments, err := p.lib.ListMoments(ctx, filter)
		if errors.Is(err, library.ErrUnauthorized) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list moments: %w", err)
		}
		return grouping.PartitionByMoments(moments), nil
	}

	assets, err := p.lib.ListAssets(ctx, filter)
	if errors.Is(err, library.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return grouping.PartitionByDistance(assets, p.cfg.Pipeline.GroupThresholdKM), nil
}

// indexer connects to Elasticsearch and creates missing indices
func (p *pipeline) indexer(ctx context.Context) (*search.Indexer, error) {
	if p.cfg.Elasticsearch.URL == "" {
		return nil, errors.New("ELASTICSEARCH_URL environment variable is required")
	}
	client, err := search.NewClient(p.cfg.Elasticsearch.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	indexer := search.NewIndexer(client, p.cfg.Elasticsearch.Index, p.logger)
	if err := indexer.EnsureIndices(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indices: %w", err)
	}
	return indexer, nil
}
