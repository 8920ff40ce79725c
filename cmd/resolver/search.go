package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/gallery-resolver/internal/gallery"
)

func newSearchCmd() *cobra.Command {
	var (
		tags string
		page int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Resolves one listing page and prints it as JSON",
		Long: `Runs the resolution pipeline once for the given tags and page and writes the
result to stdout. Exits non-zero when the board rejects the request or the
page holds no posts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, gallery.ListingRequest{Tags: tags, Page: page})
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "search tags (required)")
	cmd.Flags().IntVar(&page, "page", 1, "1-based listing page")
	_ = cmd.MarkFlagRequired("tags")
	return cmd
}

func runSearch(cmd *cobra.Command, req gallery.ListingRequest) error {
	if req.Page < 1 {
		return errors.New("page must be an integer >= 1")
	}
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	result, err := a.pipeline.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search tags %q page %d: %w", req.Tags, req.Page, err)
	}
	if result.Results == nil {
		result.Results = []gallery.ResolvedPost{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
