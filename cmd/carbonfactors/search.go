package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
)

var (
	searchTopK     int
	searchCategory string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank emission factors by similarity to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "Number of results (default: search.default_top_k)")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Restrict results to an IPCC category prefix")
}

type searchHit struct {
	EFID        string  `json:"ef_id"`
	Category    string  `json:"category,omitempty"`
	Gas         string  `json:"gas,omitempty"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Source      string  `json:"source,omitempty"`
	Similarity  float64 `json:"similarity_score"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, &globalConfig, globalLogger)
	if err != nil {
		return err
	}
	defer a.close()

	topK := searchTopK
	if topK <= 0 {
		topK = globalConfig.Search.DefaultTopK
	}
	req, err := request.New(strings.Join(args, " "), topK, searchCategory)
	if err != nil {
		return err
	}

	e, err := a.engines.Current()
	if err != nil {
		return err
	}
	res, err := e.Search.Search(ctx, &req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	hits := make([]searchHit, 0, res.Len())
	for _, h := range res.Hits() {
		f := h.Factor()
		hits = append(hits, searchHit{
			EFID:        f.ID(),
			Category:    f.Category(),
			Gas:         f.Gas(),
			Description: f.Description(),
			Value:       f.Value(),
			Unit:        f.Unit(),
			Source:      f.Provenance().Label(),
			Similarity:  h.Score(),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}
