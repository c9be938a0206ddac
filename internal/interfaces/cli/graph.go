package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexforge/TermForge-Intelligence/pkg/client"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

var (
	graphLanguage      string
	graphDepth         int
	graphTypes         string
	graphMinConfidence float64
)

// GraphOutput is the printable result of a graph query.
type GraphOutput struct {
	Term  string             `json:"term"`
	Nodes []gtypes.GraphNode `json:"nodes"`
	Edges []gtypes.GraphEdge `json:"edges"`
}

// TableHeaders implements table output for the graph command.
func (o *GraphOutput) TableHeaders() []string {
	return []string{"SOURCE", "RELATION", "TARGET", "CONF"}
}

// TableRows implements table output for the graph command.
func (o *GraphOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Edges))
	for _, edge := range o.Edges {
		rows = append(rows, []string{
			edge.SourceTerm,
			string(edge.Type),
			edge.TargetTerm,
			fmt.Sprintf("%.2f", edge.Confidence),
		})
	}
	return rows
}

// NewGraphCmd creates the graph command, which queries the relationship
// neighborhood of a term.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <term>",
		Short: "Show the relationship graph around a glossary term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&graphLanguage, "language", "en", "glossary language partition")
	cmd.Flags().IntVar(&graphDepth, "depth", 1, "relationship hops to traverse (1-3)")
	cmd.Flags().StringVar(&graphTypes, "types", "", "comma-separated relation types to follow (e.g. USES,PART_OF)")
	cmd.Flags().Float64Var(&graphMinConfidence, "min-confidence", 0, "minimum relationship confidence")

	return cmd
}

func runGraph(cmd *cobra.Command, term string) error {
	cliCtx, apiClient, err := requireClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	req := &client.GraphRequest{
		Term:          term,
		Language:      graphLanguage,
		Depth:         graphDepth,
		MinConfidence: graphMinConfidence,
	}
	if graphTypes != "" {
		for _, name := range strings.Split(graphTypes, ",") {
			req.Types = append(req.Types, strings.ToUpper(strings.TrimSpace(name)))
		}
	}

	resp, err := apiClient.Glossary().Graph(ctx, req)
	if err != nil {
		return fmt.Errorf("graph query failed: %w", err)
	}

	output := &GraphOutput{
		Term:  term,
		Nodes: resp.Nodes,
		Edges: resp.Edges,
	}
	return PrintResult(cmd, output)
}
