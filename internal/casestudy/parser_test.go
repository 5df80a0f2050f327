package casestudy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCaseStudyPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fileName string
		want     bool
	}{
		{"singular folder", "knowledge_base/case_study/deck.pptx", "deck.pptx", true},
		{"plural folder", "knowledge_base/case_studies/deck.pptx", "deck.pptx", true},
		{"file keyword", "knowledge_base/misc/acme_case_study.pptx", "acme_case_study.pptx", true},
		{"cs prefix", "knowledge_base/decks/cs_retail.pptx", "cs_retail.pptx", true},
		{"client story", "knowledge_base/decks/client_story_2024.pptx", "client_story_2024.pptx", true},
		{"plain document", "knowledge_base/docs/pricing.pdf", "pricing.pdf", false},
		{"case inside word", "knowledge_base/docs/suitcase.pdf", "suitcase.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCaseStudyPath(tt.path, tt.fileName))
		})
	}
}

const acmeSlide = `Acme Corp Case Study
Client: Acme Corp
Overview
Acme needed to modernize their retail analytics stack across 200 stores.
Solution
We deployed a unified data platform with real-time dashboards.
Impact
Checkout conversion grew 14% in the first quarter after launch.`

func TestParseSlidesSingleRecord(t *testing.T) {
	records := ParseSlides([]string{acmeSlide})
	require.Len(t, records, 1)

	cs := records[0]
	assert.Equal(t, "Acme Corp", cs.ClientName)
	assert.Contains(t, cs.Overview, "retail analytics")
	assert.Contains(t, cs.Solution, "data platform")
	assert.Contains(t, cs.Impact, "14%")
	assert.Equal(t, "1-1", cs.SlideRange)
}

func TestParseSlidesMultipleRecords(t *testing.T) {
	contoso := `Contoso Case Study
Client: Contoso
Solution
A scoped rollout of demand forecasting across two pilot markets.
Impact
Forecast error dropped by a third within two quarters of launch.`

	records := ParseSlides([]string{acmeSlide, contoso})
	require.Len(t, records, 2)
	assert.Equal(t, "Acme Corp", records[0].ClientName)
	assert.Equal(t, "Contoso", records[1].ClientName)
	assert.Contains(t, records[1].Solution, "demand forecasting")
	assert.Equal(t, "2-2", records[1].SlideRange)
}

func TestParseSlidesAccumulatesContinuationSlides(t *testing.T) {
	// A continuation slide with a lowercase first line is not a title slide;
	// its longer overview text wins over the one from the title slide.
	continuation := `more background on the engagement
Acme's legacy reporting pipeline ran overnight batches that routinely failed,
leaving store managers without numbers for the morning shift across regions.`

	records := ParseSlides([]string{acmeSlide, continuation})
	require.Len(t, records, 1)
	assert.Equal(t, "Acme Corp", records[0].ClientName)
	assert.Contains(t, records[0].Overview, "overnight batches")
	assert.Equal(t, "1-2", records[0].SlideRange)
}

func TestParseSlidesFieldsNeverShrink(t *testing.T) {
	short := `background notes
a brief line on nightly batch failures.`

	records := ParseSlides([]string{acmeSlide + "\nmore detail follows here", short})
	require.Len(t, records, 1)
	// The shorter later candidate must not replace the longer overview.
	assert.Contains(t, records[0].Overview, "retail analytics")
}

func TestParseSlidesDropsRecordsWithoutSubstance(t *testing.T) {
	slides := []string{"Client: Thin Deck\nCase Study"}
	assert.Empty(t, ParseSlides(slides))
}

func TestParseSlidesNoRecords(t *testing.T) {
	assert.Empty(t, ParseSlides(nil))
	assert.Empty(t, ParseSlides([]string{"quarterly figures", "appendix"}))
}

func TestSplitLongClientNameDash(t *testing.T) {
	name := "Meridian Holdings – " + strings.Repeat("a global logistics operator with a presence in forty countries ", 2)
	slide := "Client: " + name + `
Solution
We rebuilt their fleet routing engine around live traffic and weather data.`

	records := ParseSlides([]string{slide})
	require.Len(t, records, 1)
	assert.Equal(t, "Meridian Holdings", records[0].ClientName)
	assert.Contains(t, records[0].Overview, "logistics operator")
}

func TestSplitLongClientNameKeepsShortNames(t *testing.T) {
	slide := `Client: SK-II
Solution
A full relaunch of the digital retail presence across APAC storefronts.`

	records := ParseSlides([]string{slide})
	require.Len(t, records, 1)
	assert.Equal(t, "SK-II", records[0].ClientName)
}
