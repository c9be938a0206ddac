package rel_extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/text_annotator"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

func newTestExtractor(t *testing.T) *RelationshipExtractor {
	t.Helper()
	e, err := NewRelationshipExtractor(DefaultConfig(), nil, nil)
	require.NoError(t, err)
	return e
}

func termAt(text string, page, offset int, contextText string) term_extractor.Term {
	return term_extractor.Term{
		Text:      text,
		Frequency: 1,
		Pages:     []int{page},
		Occurrences: []term_extractor.Occurrence{
			{PageNumber: page, Offset: offset, Context: contextText},
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"negative confidence", func(c *Config) { c.MinConfidence = -0.1 }, true},
		{"confidence above one", func(c *Config) { c.MinConfidence = 1.5 }, true},
		{"zero proximity", func(c *Config) { c.ProximityTokens = 0 }, true},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtractRelationships_UsesPattern(t *testing.T) {
	e := newTestExtractor(t)
	sentence := "The bioreactor uses a pressure sensor for monitoring."
	terms := []term_extractor.Term{
		termAt("bioreactor", 1, 4, sentence),
		termAt("pressure sensor", 1, 22, sentence),
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, "bioreactor", rel.SourceTerm)
	assert.Equal(t, "pressure sensor", rel.TargetTerm)
	assert.Equal(t, glossary.RelationUses, rel.Type)
	assert.GreaterOrEqual(t, rel.Confidence, 0.7)
	assert.LessOrEqual(t, rel.Confidence, 1.0)
	assert.Equal(t, sentence, rel.Sentence)
}

func TestExtractRelationships_PartOfPattern(t *testing.T) {
	e := newTestExtractor(t)
	sentence := "The impeller within the bioreactor rotates quickly."
	terms := []term_extractor.Term{
		termAt("impeller", 1, 4, sentence),
		termAt("bioreactor", 1, 24, sentence),
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, glossary.RelationPartOf, result.Relationships[0].Type)
}

func TestExtractRelationships_NoCueNoRelation(t *testing.T) {
	e := newTestExtractor(t)
	sentence := "The bioreactor and the condenser stood side by side."
	terms := []term_extractor.Term{
		termAt("bioreactor", 1, 4, sentence),
		termAt("condenser", 1, 23, sentence),
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Relationships)
	assert.Equal(t, 2, result.Stats.PairsEvaluated)
}

func TestExtractRelationships_SelfRelationRejected(t *testing.T) {
	e := newTestExtractor(t)
	sentence := "The Sensor uses the sensor calibration routine."
	terms := []term_extractor.Term{
		termAt("Sensor", 1, 4, sentence),
		termAt("sensor", 1, 20, sentence),
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Relationships)
}

func TestExtractRelationships_MinConfidenceGate(t *testing.T) {
	config := DefaultConfig()
	config.MinConfidence = 0.75
	e, err := NewRelationshipExtractor(config, nil, nil)
	require.NoError(t, err)

	// Pattern match plus proximity bonus scores 0.7 without a corroborating
	// parse, below the configured floor.
	sentence := "The bioreactor uses a pressure sensor for monitoring."
	terms := []term_extractor.Term{
		termAt("bioreactor", 1, 4, sentence),
		termAt("pressure sensor", 1, 22, sentence),
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Relationships)
	assert.Equal(t, 1, result.Stats.DroppedLowScore)
}

func TestExtractRelationships_DedupKeepsStrongestEvidence(t *testing.T) {
	e := newTestExtractor(t)
	first := "The bioreactor uses a pressure sensor for monitoring."
	second := "Every bioreactor uses a pressure sensor during sterile runs."
	terms := []term_extractor.Term{
		{
			Text:      "bioreactor",
			Frequency: 2,
			Pages:     []int{1, 2},
			Occurrences: []term_extractor.Occurrence{
				{PageNumber: 1, Offset: 4, Context: first},
				{PageNumber: 2, Offset: 6, Context: second},
			},
		},
		{
			Text:      "pressure sensor",
			Frequency: 2,
			Pages:     []int{1, 2},
			Occurrences: []term_extractor.Occurrence{
				{PageNumber: 1, Offset: 22, Context: first},
				{PageNumber: 2, Offset: 24, Context: second},
			},
		},
	}

	result, err := e.ExtractRelationships(context.Background(), terms, nil)

	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	// Equal confidence from both sentences: the lower page wins the tie.
	assert.Equal(t, 1, result.Relationships[0].PageNumber)
	assert.Equal(t, first, result.Relationships[0].Sentence)
}

func TestExtractRelationships_DeterministicOrdering(t *testing.T) {
	e := newTestExtractor(t)
	s1 := "The controller regulates the feed pump continuously."
	s2 := "The agitator uses the drive shaft directly."
	terms := []term_extractor.Term{
		termAt("controller", 1, 4, s1),
		termAt("feed pump", 1, 29, s1),
		termAt("agitator", 2, 4, s2),
		termAt("drive shaft", 2, 22, s2),
	}

	for i := 0; i < 5; i++ {
		result, err := e.ExtractRelationships(context.Background(), terms, nil)
		require.NoError(t, err)
		require.Len(t, result.Relationships, 2)
		assert.Equal(t, "agitator", result.Relationships[0].SourceTerm)
		assert.Equal(t, "controller", result.Relationships[1].SourceTerm)
		assert.Equal(t, glossary.RelationUses, result.Relationships[0].Type)
		assert.Equal(t, glossary.RelationControls, result.Relationships[1].Type)
	}
}

func TestExtractRelationships_FewerThanTwoTerms(t *testing.T) {
	e := newTestExtractor(t)

	result, err := e.ExtractRelationships(context.Background(),
		[]term_extractor.Term{termAt("bioreactor", 1, 0, "bioreactor text")}, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Relationships)
	assert.Equal(t, 0, result.Stats.PairsEvaluated)
}

// parsedFixture hand-builds the annotation for "The bioreactor uses a
// pressure sensor for monitoring." with a full parse, so dependency
// corroboration is exercised without depending on the shallow parser.
func parsedFixture() *common.Annotation {
	text := "The bioreactor uses a pressure sensor for monitoring."
	tokens := []common.Token{
		{Text: "The", Start: 0, End: 3, POS: common.POSDeterminer},
		{Text: "bioreactor", Start: 4, End: 14, POS: common.POSNoun},
		{Text: "uses", Start: 15, End: 19, POS: common.POSVerb},
		{Text: "a", Start: 20, End: 21, POS: common.POSDeterminer},
		{Text: "pressure", Start: 22, End: 30, POS: common.POSNoun},
		{Text: "sensor", Start: 31, End: 37, POS: common.POSNoun},
		{Text: "for", Start: 38, End: 41, POS: common.POSAdposition},
		{Text: "monitoring", Start: 42, End: 52, POS: common.POSVerb},
		{Text: ".", Start: 52, End: 53, POS: common.POSPunct},
	}
	deps := []common.Dependency{
		{Dependent: 0, Head: 1, Relation: common.DepDet},
		{Dependent: 1, Head: 2, Relation: common.DepSubject},
		{Dependent: 2, Head: -1, Relation: common.DepRoot},
		{Dependent: 3, Head: 5, Relation: common.DepDet},
		{Dependent: 4, Head: 5, Relation: common.DepCompound},
		{Dependent: 5, Head: 2, Relation: common.DepObject},
		{Dependent: 6, Head: 2, Relation: common.DepPrep},
		{Dependent: 7, Head: 6, Relation: common.DepPrepObj},
	}
	return &common.Annotation{
		Text: text,
		Sentences: []common.Sentence{
			{Text: text, Start: 0, End: len(text), Tokens: tokens, Dependencies: deps},
		},
		HasDependencies: true,
	}
}

func TestExtractRelationships_DependencyCorroboration(t *testing.T) {
	e := newTestExtractor(t)
	ann := parsedFixture()
	terms := []term_extractor.Term{
		termAt("bioreactor", 1, 4, ""),
		termAt("pressure sensor", 1, 22, ""),
	}
	annotations := []term_extractor.PageAnnotation{{PageNumber: 1, Annotation: ann}}

	result, err := e.ExtractRelationships(context.Background(), terms, annotations)

	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, glossary.RelationUses, rel.Type)
	// Base 0.5, +0.3 dependency corroboration, +0.2 proximity, capped at 1.
	assert.InDelta(t, 1.0, rel.Confidence, 1e-9)
}

func TestExtractRelationships_WithShallowAnnotator(t *testing.T) {
	annotator, err := text_annotator.NewShallowAnnotator(text_annotator.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	text := "The bioreactor uses a pressure sensor for monitoring."
	ann, err := annotator.Annotate(context.Background(), text)
	require.NoError(t, err)

	e := newTestExtractor(t)
	terms := []term_extractor.Term{
		termAt("bioreactor", 1, 4, text),
		termAt("pressure sensor", 1, 22, text),
	}
	annotations := []term_extractor.PageAnnotation{{PageNumber: 1, Annotation: ann}}

	result, err := e.ExtractRelationships(context.Background(), terms, annotations)

	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, "bioreactor", rel.SourceTerm)
	assert.Equal(t, "pressure sensor", rel.TargetTerm)
	assert.Equal(t, glossary.RelationUses, rel.Type)
	assert.GreaterOrEqual(t, rel.Confidence, 0.7)
}
