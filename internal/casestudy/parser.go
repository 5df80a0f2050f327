// Package casestudy extracts structured case-study records from slide decks.
// One deck may contain zero or more case studies, each with a client name and
// overview/solution/impact sections detected by keyword heuristics.
package casestudy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/scopeworks/kbingest/internal/models"
)

// IsCaseStudyPath reports whether path/filename heuristics flag a blob as a
// case-study document.
func IsCaseStudyPath(blobPath, fileName string) bool {
	pathLower := strings.ToLower(blobPath)
	nameLower := strings.ToLower(fileName)

	// "case_stud" covers both case_study and case_studies folder names.
	for _, keyword := range []string{"case_stud", "case study", "casestudy"} {
		if strings.Contains(pathLower, keyword) {
			return true
		}
	}
	for _, keyword := range []string{"case_stud", "case study", "casestudy", "client_story"} {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return strings.HasPrefix(nameLower, "cs_") || strings.HasPrefix(nameLower, "case_")
}

const (
	// minFieldChars is the substance bar a record must clear in at least one
	// section field to be kept.
	minFieldChars = 20
	// longNameChars is where a client name is considered implausibly long and
	// eligible for the name/overview split.
	longNameChars = 100
	// minTailChars is how much trailing description a long name must carry
	// before it is split off into the overview.
	minTailChars = 50
)

var (
	clientLabelRe   = regexp.MustCompile(`(?i)(?:client|customer|company):\s*(.+)`)
	clientPatternRe = regexp.MustCompile(`(?i)(client|customer):\s*\w+`)
	caseStudyLineRe = regexp.MustCompile(`(?i)(.+?)\s+case\s+study`)
	// En or em dash separates a company name from its description. A plain
	// hyphen is excluded; names like "SK-II" use it.
	dashSplitRe   = regexp.MustCompile(`^(.+?)\s*[\x{2013}\x{2014}]\s*(.+)$`)
	parenSplitRe  = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*[\x{2013}\x{2014}]?\s*(.+)$`)
	dashPrefixRe  = regexp.MustCompile(`^([^\x{2013}\x{2014}]+?)\s*[\x{2013}\x{2014}]\s*`)
)

var (
	overviewKeywords = []string{"overview", "background", "challenge", "problem", "about"}
	solutionKeywords = []string{"solution", "approach", "implementation", "methodology", "how we"}
	impactKeywords   = []string{"impact", "result", "outcome", "benefit", "achievement", "success"}
	headerStopWords  = []string{"client", "company", "overview", "solution", "impact", "result", "challenge"}
)

// ParseSlides walks a deck in slide order and returns the structured case
// studies it contains. A new record opens at each detected title slide; the
// previous one is flushed if it has a client name and at least one
// substantive field.
func ParseSlides(slides []string) []models.CaseStudy {
	var records []models.CaseStudy
	var current *models.CaseStudy

	flush := func() {
		if current != nil && isValid(current) {
			records = append(records, *current)
		}
		current = nil
	}

	for i, slide := range slides {
		if isTitleSlide(slide) {
			flush()
			current = &models.CaseStudy{
				ClientName: extractClientName(slide),
				SlideRange: fmt.Sprintf("%d", i+1),
			}
		}

		if current != nil {
			accumulateFields(slide, current)
			start, _, _ := strings.Cut(current.SlideRange, "-")
			current.SlideRange = fmt.Sprintf("%s-%d", start, i+1)
		}
	}
	flush()

	for i := range records {
		splitLongClientName(&records[i])
	}

	return records
}

// isTitleSlide detects the start of a new case study: an explicit phrase, a
// client/customer label, or (fallback) a short capitalized first line.
func isTitleSlide(text string) bool {
	textLower := strings.ToLower(text)
	for _, keyword := range []string{"case study", "client story", "customer success"} {
		if strings.Contains(textLower, keyword) {
			return true
		}
	}

	if clientPatternRe.MatchString(text) {
		return true
	}

	lines := nonEmptyLines(text)
	if len(lines) > 0 && len([]rune(lines[0])) < 100 {
		first := []rune(lines[0])[0]
		return unicode.IsUpper(first)
	}
	return false
}

func extractClientName(text string) string {
	lines := nonEmptyLines(text)

	for _, line := range lines {
		if m := clientLabelRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	for _, line := range lines {
		if m := caseStudyLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	if len(lines) == 0 {
		return ""
	}

	first := lines[0]
	if len([]rune(first)) > 150 {
		if m := dashPrefixRe.FindStringSubmatch(first); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return first
}

// accumulateFields scans one slide for section keywords and keeps the longest
// candidate seen per field. Fields never shrink once populated.
func accumulateFields(text string, cs *models.CaseStudy) {
	textLower := strings.ToLower(text)

	if containsAny(textLower, overviewKeywords) {
		if content := sectionContent(text, overviewKeywords); len(content) > len(cs.Overview) {
			cs.Overview = content
		}
	}
	if containsAny(textLower, solutionKeywords) {
		if content := sectionContent(text, solutionKeywords); len(content) > len(cs.Solution) {
			cs.Solution = content
		}
	}
	if containsAny(textLower, impactKeywords) {
		if content := sectionContent(text, impactKeywords); len(content) > len(cs.Impact) {
			cs.Impact = content
		}
	}
}

// sectionContent captures the lines after a header matching one of the
// keywords, stopping at the next short capitalized header line.
func sectionContent(text string, keywords []string) string {
	var content []string
	capturing := false

	for _, line := range strings.Split(text, "\n") {
		lineLower := strings.ToLower(strings.TrimSpace(line))

		if containsAny(lineLower, keywords) && !capturing {
			capturing = true
			continue
		}

		if capturing && lineLower != "" && looksLikeHeader(line) && containsAny(lineLower, headerStopWords) {
			break
		}

		if capturing && strings.TrimSpace(line) != "" {
			content = append(content, strings.TrimSpace(line))
		}
	}

	return strings.TrimSpace(strings.Join(content, " "))
}

func looksLikeHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len([]rune(trimmed)) >= 50 {
		return false
	}
	runes := []rune(line)
	return len(runes) > 0 && unicode.IsUpper(runes[0])
}

func isValid(cs *models.CaseStudy) bool {
	if cs.ClientName == "" {
		return false
	}
	return len(cs.Overview) > minFieldChars ||
		len(cs.Solution) > minFieldChars ||
		len(cs.Impact) > minFieldChars
}

// splitLongClientName recovers the description swallowed into an overlong
// client name: "SK-II (P&G) – Global prestige skincare brand..." becomes a
// short name plus an overview, if the overview is still empty.
func splitLongClientName(cs *models.CaseStudy) {
	if cs.Overview != "" || len([]rune(cs.ClientName)) < longNameChars {
		return
	}

	if m := dashSplitRe.FindStringSubmatch(cs.ClientName); m != nil {
		name, tail := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if len(tail) > minTailChars {
			cs.ClientName = name
			cs.Overview = tail
			return
		}
	}

	if m := parenSplitRe.FindStringSubmatch(cs.ClientName); m != nil {
		name := strings.TrimSpace(m[1]) + " (" + strings.TrimSpace(m[2]) + ")"
		tail := strings.TrimSpace(m[3])
		if len(tail) > minTailChars {
			cs.ClientName = name
			cs.Overview = tail
		}
	}
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
