package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/web"
	"github.com/kozaktomas/photo-curator/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the Photo Curator HTTP API. Clients start analysis passes, poll or
stream group recommendations and manage the label policy.

With ELASTICSEARCH_URL set, every recommendation is also indexed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addPipelineFlags(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("index-file", "", "Save the similarity index to this snapshot on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	host, port := p.cfg.Web.Host, p.cfg.Web.Port
	if h := mustGetString(cmd, "host"); h != "" {
		host = h
	}
	if n := mustGetInt(cmd, "port"); n > 0 {
		port = n
	}

	// the manager outlives request contexts and stops with the process
	curator, manager := p.curator(ctx, 0, 0)
	defer manager.Close()

	if p.cfg.Elasticsearch.URL != "" {
		indexer, err := p.indexer(ctx)
		if err != nil {
			return err
		}
		go indexer.Follow(ctx, manager)
		p.logger.Info("indexing recommendations", "index", indexer.GroupIndex())
	}

	server := web.NewServer(web.Dependencies{
		Curator:  curator,
		Settings: p.settings,
		Index:    p.index,
		Caches:   []handlers.CacheClearer{p.labeler, p.printCache, p.places},
		Logger:   p.logger,
	}, host, port, p.cfg.Web.AllowedOrigins)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		if path := mustGetString(cmd, "index-file"); path != "" {
			if err := p.index.Save(path); err != nil {
				p.logger.Warn("failed to save similarity index", "error", err)
			} else {
				p.logger.Info("similarity index saved", "path", path, "prints", p.index.Count())
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			p.logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting Photo Curator API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
