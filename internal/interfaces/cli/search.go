package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexforge/TermForge-Intelligence/pkg/client"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

var (
	searchLanguage      string
	searchMethod        string
	searchMinFrequency  int
	searchMinConfidence float64
	searchPage          int
	searchPageSize      int
	searchSuggest       bool
)

// SearchOutput is the printable result of a glossary search.
type SearchOutput struct {
	Query    string           `json:"query"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Terms    []gtypes.TermDTO `json:"terms"`
}

// TableHeaders implements table output for the search command.
func (o *SearchOutput) TableHeaders() []string {
	return []string{"TERM", "LANG", "FREQ", "CONF", "METHOD", "DEFINITION"}
}

// TableRows implements table output for the search command.
func (o *SearchOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Terms))
	for _, term := range o.Terms {
		definition := ""
		if len(term.Definitions) > 0 {
			definition = term.Definitions[0].Text
			if len(definition) > 60 {
				definition = definition[:57] + "..."
			}
		}
		rows = append(rows, []string{
			term.Term,
			term.Language,
			strconv.Itoa(term.Frequency),
			fmt.Sprintf("%.2f", term.Confidence),
			string(term.Method),
			definition,
		})
	}
	return rows
}

// NewSearchCmd creates the search command, a full-text glossary search
// against the API server.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the glossary by term text and definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&searchLanguage, "language", "", "restrict results to a language")
	cmd.Flags().StringVar(&searchMethod, "method", "", "restrict results to an extraction method (linguistic, pattern)")
	cmd.Flags().IntVar(&searchMinFrequency, "min-frequency", 0, "minimum corpus frequency")
	cmd.Flags().Float64Var(&searchMinConfidence, "min-confidence", 0, "minimum confidence")
	cmd.Flags().IntVar(&searchPage, "page", 1, "result page")
	cmd.Flags().IntVar(&searchPageSize, "page-size", 20, "results per page")
	cmd.Flags().BoolVar(&searchSuggest, "suggest", false, "treat the query as a prefix and return completions")

	return cmd
}

func runSearch(cmd *cobra.Command, queryText string) error {
	cliCtx, apiClient, err := requireClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	if searchSuggest {
		return runSuggest(ctx, cmd, apiClient, queryText)
	}

	result, err := apiClient.Glossary().Search(ctx, &client.SearchRequest{
		Query: queryText,
		TermFilter: client.TermFilter{
			Language:      searchLanguage,
			Method:        searchMethod,
			MinFrequency:  searchMinFrequency,
			MinConfidence: searchMinConfidence,
			Page:          searchPage,
			PageSize:      searchPageSize,
		},
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	output := &SearchOutput{
		Query:    queryText,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
		Terms:    result.TermHits(),
	}
	return PrintResult(cmd, output)
}

func runSuggest(ctx context.Context, cmd *cobra.Command, apiClient *client.Client, prefix string) error {
	suggestions, err := apiClient.Glossary().Suggest(ctx, prefix, searchLanguage, searchPageSize)
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}

	if len(suggestions) == 0 {
		return PrintResult(cmd, "no suggestions")
	}
	return PrintResult(cmd, strings.Join(suggestions, "\n"))
}
