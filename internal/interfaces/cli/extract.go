package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/parsing"
)

var (
	extractLanguage      string
	extractMinFrequency  int
	extractMinConfidence float64
	extractRelationships bool
)

// ExtractedTerm is one row of local extraction output.
type ExtractedTerm struct {
	Term       string   `json:"term"`
	Frequency  int      `json:"frequency"`
	Confidence float64  `json:"confidence"`
	Pages      []int    `json:"pages"`
	Definition string   `json:"definition,omitempty"`
	Contexts   []string `json:"-"`
}

// ExtractedRelation is one extracted term relationship.
type ExtractedRelation struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ExtractResult is the output of a local extraction run.
type ExtractResult struct {
	File          string              `json:"file"`
	Language      string              `json:"language"`
	Pages         int                 `json:"pages"`
	Terms         []ExtractedTerm     `json:"terms"`
	Relationships []ExtractedRelation `json:"relationships,omitempty"`
}

// TableHeaders implements table output for the extract command.
func (r *ExtractResult) TableHeaders() []string {
	return []string{"TERM", "FREQ", "CONF", "PAGES", "DEFINITION"}
}

// TableRows implements table output for the extract command.
func (r *ExtractResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Terms))
	for _, term := range r.Terms {
		pages := make([]string, len(term.Pages))
		for i, p := range term.Pages {
			pages[i] = strconv.Itoa(p)
		}
		definition := term.Definition
		if len(definition) > 60 {
			definition = definition[:57] + "..."
		}
		rows = append(rows, []string{
			term.Term,
			strconv.Itoa(term.Frequency),
			fmt.Sprintf("%.2f", term.Confidence),
			strings.Join(pages, ","),
			definition,
		})
	}
	return rows
}

// NewExtractCmd creates the extract command, which runs the term extraction
// pipeline locally on a file without contacting the server.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract candidate terms from a local PDF or text file",
		Long:  "Runs the full extraction pipeline locally: page text extraction and repair,\ncandidate term mining, validation, definition synthesis, and optionally\nrelationship extraction. Nothing is persisted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&extractLanguage, "language", "en", "document language (BCP 47 tag)")
	cmd.Flags().IntVar(&extractMinFrequency, "min-frequency", 2, "minimum corpus frequency for accepted terms")
	cmd.Flags().Float64Var(&extractMinConfidence, "min-confidence", 0, "minimum relationship confidence")
	cmd.Flags().BoolVar(&extractRelationships, "relationships", true, "extract term relationships")

	return cmd
}

func runExtract(cmd *cobra.Command, path string) error {
	if extractMinFrequency < 1 {
		return fmt.Errorf("min-frequency must be at least 1, got %d", extractMinFrequency)
	}

	contentType, err := contentTypeForFile(path)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	extractor, err := parsing.ForContentType(contentType)
	if err != nil {
		return err
	}
	pages, err := extractor.ExtractPages(content)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	pipeline, err := newLocalPipeline()
	if err != nil {
		return err
	}

	run, err := pipeline.Run(cmd.Context(), pages)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	result := buildExtractResult(path, len(pages), run)
	return PrintResult(cmd, result)
}

// newLocalPipeline builds a pattern-mode pipeline from the extract flags; no
// annotation model is loaded for local runs.
func newLocalPipeline() (*appglossary.Pipeline, error) {
	extractionCfg := config.ExtractionConfig{
		Language:                  extractLanguage,
		MinFrequency:              extractMinFrequency,
		MinRelationshipConfidence: extractMinConfidence,
	}

	return appglossary.NewPipeline(extractionCfg, nil, nil, nil)
}

func buildExtractResult(path string, pageCount int, run *appglossary.PipelineResult) *ExtractResult {
	result := &ExtractResult{
		File:     filepath.Base(path),
		Language: extractLanguage,
		Pages:    pageCount,
		Terms:    make([]ExtractedTerm, 0, len(run.Terms)),
	}

	for i, term := range run.Terms {
		row := ExtractedTerm{
			Term:       term.Text,
			Frequency:  term.Frequency,
			Confidence: term.Confidence,
			Pages:      term.Pages,
		}
		if i < len(run.Definitions) && len(run.Definitions[i]) > 0 {
			row.Definition = run.Definitions[i][0].Text
		}
		result.Terms = append(result.Terms, row)
	}
	sort.Slice(result.Terms, func(i, j int) bool {
		if result.Terms[i].Frequency != result.Terms[j].Frequency {
			return result.Terms[i].Frequency > result.Terms[j].Frequency
		}
		return result.Terms[i].Term < result.Terms[j].Term
	})

	if extractRelationships {
		for _, rel := range run.Relationships {
			result.Relationships = append(result.Relationships, ExtractedRelation{
				Source:     rel.SourceTerm,
				Target:     rel.TargetTerm,
				Type:       string(rel.Type),
				Confidence: rel.Confidence,
			})
		}
	}

	return result
}

// contentTypeForFile maps a file extension to a supported document content
// type.
func contentTypeForFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".txt", ".text", ".md":
		return "text/plain", nil
	default:
		return "", fmt.Errorf("unsupported file type %q: expected .pdf or .txt", filepath.Ext(path))
	}
}
