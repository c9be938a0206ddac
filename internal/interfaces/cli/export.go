package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexforge/TermForge-Intelligence/pkg/client"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

var (
	exportLanguage     string
	exportMinFrequency int
	exportFormat       string
	exportOut          string
	exportPageSize     int
)

// NewExportCmd creates the export command, which downloads the full glossary
// page by page and writes it to a file or stdout.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the glossary to JSON or CSV",
		RunE:  runExport,
	}

	cmd.Flags().StringVar(&exportLanguage, "language", "", "restrict export to a language")
	cmd.Flags().IntVar(&exportMinFrequency, "min-frequency", 0, "minimum corpus frequency")
	cmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json, csv)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&exportPageSize, "page-size", 100, "terms fetched per request")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q: expected json or csv", exportFormat)
	}

	cliCtx, apiClient, err := requireClient(cmd)
	if err != nil {
		return err
	}

	// One timeout for the whole paged download.
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	terms, err := fetchAllTerms(ctx, apiClient)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		file, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer file.Close()
		out = file
	}

	switch format {
	case "csv":
		err = writeTermsCSV(out, terms)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(terms)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if exportOut != "" {
		PrintSuccess(cmd, fmt.Sprintf("exported %d terms to %s", len(terms), exportOut))
	}
	return nil
}

// fetchAllTerms pages through the term listing until the server reports no
// further pages.
func fetchAllTerms(ctx context.Context, apiClient *client.Client) ([]gtypes.TermDTO, error) {
	var terms []gtypes.TermDTO

	for page := 1; ; page++ {
		resp, err := apiClient.Glossary().ListTerms(ctx, &client.TermFilter{
			Language:     exportLanguage,
			MinFrequency: exportMinFrequency,
			Page:         page,
			PageSize:     exportPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		terms = append(terms, resp.Items...)
		if len(resp.Items) == 0 || page >= resp.TotalPages {
			break
		}
	}

	return terms, nil
}

func writeTermsCSV(out io.Writer, terms []gtypes.TermDTO) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"term", "normalized", "language", "frequency", "confidence", "method", "definition"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, term := range terms {
		definition := ""
		if len(term.Definitions) > 0 {
			definition = term.Definitions[0].Text
		}
		record := []string{
			term.Term,
			term.Normalized,
			term.Language,
			strconv.Itoa(term.Frequency),
			fmt.Sprintf("%.3f", term.Confidence),
			string(term.Method),
			definition,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
