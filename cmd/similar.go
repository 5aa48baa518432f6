package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/database"
)

var similarCmd = &cobra.Command{
	Use:   "similar <asset-id>",
	Short: "Find photos with a similar stored feature print",
	Long: `Search the stored feature prints for the nearest neighbors of a photo.
Prints are stored while recommending, so run recommend first.

Examples:
  photo-curator similar pt9jtdre2lvl0yh7
  photo-curator similar pt9jtdre2lvl0yh7 --extractor hash --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().String("extractor", "embedding", "Feature print model to search: embedding, hash")
	similarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Maximum number of results")
	similarCmd.Flags().Float64("max-distance", constants.DefaultSimilarMaxDistance, "Maximum cosine distance")
	similarCmd.Flags().String("index-file", "", "Load the index from this snapshot instead of storage")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	assetID := args[0]
	limit := min(mustGetInt(cmd, "limit"), constants.MaxSimilarLimit)
	maxDistance := mustGetFloat64(cmd, "max-distance")
	ctx := context.Background()

	cfg := config.Load()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(cfg, mustGetString(cmd, "extractor"))
	if err != nil {
		return err
	}

	index := database.NewFingerprintIndex()
	if path := mustGetString(cmd, "index-file"); path != "" {
		if err := index.Load(path); err != nil {
			return err
		}
	} else {
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := database.NewIndexedWriter(store.Fingerprints(), index, extractor.Name()).Load(ctx); err != nil {
			return fmt.Errorf("failed to load prints: %w", err)
		}
	}

	fp := index.Get(assetID)
	if fp == nil {
		return fmt.Errorf("no %s print stored for %s", extractor.Name(), assetID)
	}
	neighbors, err := index.Search(fp.Vector, limit, maxDistance, assetID)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(neighbors)
	}

	if len(neighbors) == 0 {
		fmt.Println("No similar photos found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHOTO\tDISTANCE")
	fmt.Fprintln(w, "-----\t--------")
	for _, n := range neighbors {
		ref := n.AssetID
		if url := cfg.PhotoPrism.PhotoURL(n.AssetID); url != "" {
			ref = url
		}
		fmt.Fprintf(w, "%s\t%.4f\n", ref, n.Distance)
	}
	_ = w.Flush()
	fmt.Printf("\nSearched %d prints\n", index.Count())
	return nil
}
