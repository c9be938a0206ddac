package term_extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/document"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

func acceptedFor(text string, page, offset int) AcceptedCandidate {
	return AcceptedCandidate{
		Candidate: RawCandidate{Text: text, PageNumber: page, Offset: offset, Source: SourceNounChunk},
		Verdict:   Verdict{Accepted: true, CleanedText: text},
	}
}

func TestFindOccurrences_WordBoundaries(t *testing.T) {
	text := "The stirrer stirs. A Stirrer-driven vessel needs no restirrer."

	spans := findOccurrences(text, "stirrer")
	require.Len(t, spans, 2)
	assert.Equal(t, "stirrer", text[spans[0][0]:spans[0][1]])
	assert.Equal(t, "Stirrer", text[spans[1][0]:spans[1][1]])
}

func TestFindOccurrences_MultiWordNeedle(t *testing.T) {
	text := "Mixing time rose. The mixing time fell."

	spans := findOccurrences(text, "mixing time")
	assert.Len(t, spans, 2)
}

func TestContextWindow_RuneSafe(t *testing.T) {
	text := "abcdefghij KEY klmnopqrst"
	got := contextWindow(text, 11, 14, 6)
	assert.Equal(t, "ij KEY kl", got)

	// Multi-byte neighbours must not be split.
	text = "αβγδ KEY εζηθ"
	got = contextWindow(text, 9, 12, 4)
	assert.Equal(t, "δ KEY ε", got)
}

func TestAggregate_CountsAcrossPages(t *testing.T) {
	a := NewFrequencyAggregator(testConfig(), glossary.MethodLinguistic)

	pages := []document.PageText{
		{PageNumber: 1, Text: "The tracer solution enters. Tracer solution exits."},
		{PageNumber: 3, Text: "No tracer solution remains."},
	}
	terms := a.Aggregate(pages, []AcceptedCandidate{acceptedFor("tracer solution", 1, 4)})

	require.Len(t, terms, 1)
	assert.Equal(t, 3, terms[0].Frequency)
	assert.Equal(t, []int{1, 3}, terms[0].Pages)
	assert.Len(t, terms[0].Occurrences, 3)
}

func TestAggregate_MinFrequencyGate(t *testing.T) {
	cfg := testConfig()
	cfg.MinFrequency = 2
	a := NewFrequencyAggregator(cfg, glossary.MethodLinguistic)

	pages := []document.PageText{
		{PageNumber: 1, Text: "The impeller turns. The impeller stops. A baffle stands."},
	}
	terms := a.Aggregate(pages, []AcceptedCandidate{
		acceptedFor("impeller", 1, 4),
		acceptedFor("baffle", 1, 40),
	})

	require.Len(t, terms, 1)
	assert.Equal(t, "impeller", terms[0].Text)
	assert.Equal(t, 2, terms[0].Frequency)
}

func TestAggregate_FallsBackToCandidateOccurrence(t *testing.T) {
	a := NewFrequencyAggregator(testConfig(), glossary.MethodLinguistic)

	// The cleaned form no longer appears verbatim in the page text.
	accepted := []AcceptedCandidate{{
		Candidate: RawCandidate{Text: "The Gamma Probe", PageNumber: 2, Offset: 17, Source: SourcePattern},
		Verdict: Verdict{
			Accepted:       true,
			CleanedText:    "Gamma-Probe",
			RepairsApplied: []RepairCode{RepairArticleStripped},
		},
	}}
	pages := []document.PageText{{PageNumber: 2, Text: "nothing matching here"}}

	terms := a.Aggregate(pages, accepted)
	require.Len(t, terms, 1)
	assert.Equal(t, 1, terms[0].Frequency)
	assert.Equal(t, []int{2}, terms[0].Pages)
	assert.Equal(t, 2, terms[0].Occurrences[0].PageNumber)
	assert.Equal(t, 17, terms[0].Occurrences[0].Offset)
}

func TestAggregate_MergesSurfaceFormsByCanonicalText(t *testing.T) {
	a := NewFrequencyAggregator(testConfig(), glossary.MethodLinguistic)

	pages := []document.PageText{
		{PageNumber: 1, Text: "Gas holdup rises. The gas holdup falls."},
	}
	terms := a.Aggregate(pages, []AcceptedCandidate{
		{
			Candidate: RawCandidate{Text: "Gas holdup", PageNumber: 1, Source: SourceNounChunk},
			Verdict:   Verdict{Accepted: true, CleanedText: "Gas holdup", RepairsApplied: []RepairCode{RepairArticleStripped}},
		},
		{
			Candidate: RawCandidate{Text: "gas holdup", PageNumber: 1, Source: SourceNounChunk},
			Verdict:   Verdict{Accepted: true, CleanedText: "gas holdup"},
		},
	})

	require.Len(t, terms, 1)
	assert.Equal(t, "Gas holdup", terms[0].Text, "first surface form wins")
	assert.Equal(t, 2, terms[0].Frequency)
	// The unrepaired duplicate supplies the repair count.
	assert.InDelta(t, 0.9, terms[0].Confidence, 1e-9)
}

func TestAggregate_OrdersByCanonicalText(t *testing.T) {
	a := NewFrequencyAggregator(testConfig(), glossary.MethodLinguistic)

	pages := []document.PageText{
		{PageNumber: 1, Text: "zeta probe and alpha probe and Beta probe"},
	}
	terms := a.Aggregate(pages, []AcceptedCandidate{
		acceptedFor("zeta probe", 1, 0),
		acceptedFor("Beta probe", 1, 31),
		acceptedFor("alpha probe", 1, 15),
	})

	require.Len(t, terms, 3)
	assert.Equal(t, "alpha probe", terms[0].Text)
	assert.Equal(t, "Beta probe", terms[1].Text)
	assert.Equal(t, "zeta probe", terms[2].Text)
}

func TestConfidence_Blend(t *testing.T) {
	linguistic := NewFrequencyAggregator(testConfig(), glossary.MethodLinguistic)
	pattern := NewFrequencyAggregator(testConfig(), glossary.MethodPattern)

	assert.InDelta(t, 0.72, linguistic.confidence(1, 0), 1e-9)
	assert.InDelta(t, 0.90, linguistic.confidence(2, 0), 1e-9)
	assert.InDelta(t, 0.90, linguistic.confidence(5, 0), 1e-9, "frequency factor is capped")
	assert.InDelta(t, 0.63, pattern.confidence(2, 1), 1e-9)

	for freq := 1; freq <= 10; freq++ {
		for repairs := 0; repairs <= 12; repairs++ {
			c := linguistic.confidence(freq, repairs)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		}
	}
}
