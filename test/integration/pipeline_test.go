// End-to-end extraction tests: raw document bytes through page parsing and
// the full pipeline, in both extraction modes.  These run in-process and need
// no external services.
package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/parsing"
	icommon "github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/text_annotator"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

const reactorManual = "The Rushton Turbine drives the Reactor Vessel. " +
	"The Rushton Turbine uses a Pressure Sensor for control. " +
	"A Pressure Sensor reports the head-space pressure. " +
	"The Reactor Vessel is a stainless steel tank with four baffles."

func extractionConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		Language:     "en",
		MinFrequency: 2,
	}
}

func buildRegistry(t *testing.T) icommon.AnnotatorRegistry {
	t.Helper()

	registry := icommon.NewAnnotatorRegistry(nil, nil)
	info := icommon.AnnotatorInfo{
		Name:     text_annotator.AnnotatorName,
		Version:  text_annotator.AnnotatorVersion,
		Language: "en",
	}
	err := registry.LoadAndRegister(context.Background(), info, func(context.Context) (icommon.Annotator, error) {
		return text_annotator.NewShallowAnnotator(text_annotator.DefaultConfig(), nil, nil)
	})
	require.NoError(t, err)
	return registry
}

func termByText(terms []term_extractor.Term, text string) *term_extractor.Term {
	for i := range terms {
		if terms[i].Text == text {
			return &terms[i]
		}
	}
	return nil
}

func TestExtraction_PatternMode_FromRawDocument(t *testing.T) {
	extractor, err := parsing.ForContentType("text/plain")
	require.NoError(t, err)
	pages, err := extractor.ExtractPages([]byte(reactorManual))
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	pipeline, err := appglossary.NewPipeline(extractionConfig(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "pattern", pipeline.Method())

	result, err := pipeline.Run(context.Background(), pages)
	require.NoError(t, err)

	turbine := termByText(result.Terms, "Rushton Turbine")
	require.NotNil(t, turbine, "capitalized compound must be extracted")
	assert.Equal(t, 2, turbine.Frequency)
	assert.Equal(t, gtypes.MethodPattern, turbine.Method)

	require.NotNil(t, termByText(result.Terms, "Pressure Sensor"))
	require.NotNil(t, termByText(result.Terms, "Reactor Vessel"))

	// Definitions stay index-aligned with terms.
	require.Len(t, result.Definitions, len(result.Terms))

	var usesFound bool
	for _, rel := range result.Relationships {
		assert.True(t, rel.Type.IsValid(), "relation type %q", rel.Type)
		if rel.Type == gtypes.RelationUses &&
			rel.SourceTerm == "Rushton Turbine" && rel.TargetTerm == "Pressure Sensor" {
			usesFound = true
			assert.Contains(t, rel.Sentence, "uses")
		}
	}
	assert.True(t, usesFound, "the uses-cue sentence must yield a USES relation")

	assert.Equal(t, len(pages), result.Stats.PagesProcessed)
	assert.Greater(t, result.Stats.CandidatesExtracted, 0)
}

func TestExtraction_LinguisticMode_FromRawDocument(t *testing.T) {
	text := "The mixing time is determined by adding a tracer solution. " +
		"The mixing time is measured in seconds. " +
		"A tracer solution is a dyed liquid added to the vessel."

	extractor, err := parsing.ForContentType("text/plain")
	require.NoError(t, err)
	pages, err := extractor.ExtractPages([]byte(text))
	require.NoError(t, err)

	annotator, err := text_annotator.NewShallowAnnotator(text_annotator.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	pipeline, err := appglossary.NewPipeline(extractionConfig(), annotator, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "linguistic", pipeline.Method())

	result, err := pipeline.Run(context.Background(), pages)
	require.NoError(t, err)

	mixing := termByText(result.Terms, "mixing time")
	require.NotNil(t, mixing, "noun chunk must survive validation")
	assert.Equal(t, 2, mixing.Frequency)
	assert.Equal(t, gtypes.MethodLinguistic, mixing.Method)

	// The copular sentence defines the tracer solution.
	tracerIdx := -1
	for i := range result.Terms {
		if result.Terms[i].Text == "tracer solution" {
			tracerIdx = i
		}
	}
	require.GreaterOrEqual(t, tracerIdx, 0)
	require.NotEmpty(t, result.Definitions[tracerIdx])
	assert.Contains(t, strings.ToLower(result.Definitions[tracerIdx][0].Text), "dyed liquid")
}

func TestExtraction_RegistryDegradesToPatternMode(t *testing.T) {
	cfg := extractionConfig()
	cfg.Model = "no-such-model"

	registry := buildRegistry(t)
	pipeline, err := appglossary.NewPipelineFromConfig(context.Background(), cfg, registry, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "pattern", pipeline.Method())
}

func TestExtraction_RegistryResolvesShallowAnnotator(t *testing.T) {
	cfg := extractionConfig()
	cfg.Model = text_annotator.AnnotatorName

	registry := buildRegistry(t)
	pipeline, err := appglossary.NewPipelineFromConfig(context.Background(), cfg, registry, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "linguistic", pipeline.Method())
}
