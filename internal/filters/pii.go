// Package filters masks personally identifiable information in prompts
// before they leave the trust boundary, and restores it in responses.
package filters

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	companyPattern = regexp.MustCompile(`(?:株式会社|有限会社|合同会社|一般社団法人|一般財団法人)[\p{Hiragana}\p{Katakana}\p{Han}ー・a-zA-Z0-9]+|[\p{Hiragana}\p{Katakana}\p{Han}ー・a-zA-Z0-9]+(?:株式会社|有限会社|合同会社|Corp\.|Inc\.|Ltd\.|LLC|Co\.)`)
	personPattern  = regexp.MustCompile(`[\p{Han}]{1,4}[\s　][\p{Han}]{1,4}`)
	addressPattern = regexp.MustCompile(`(?:東京都|北海道|(?:京都|大阪)府|[\p{Han}]{2,3}県)[\p{Han}\p{Hiragana}\p{Katakana}0-9ー・\s　-]+(?:市|区|町|村)[\p{Han}\p{Hiragana}\p{Katakana}0-9ー・\s　-]*`)
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern   = regexp.MustCompile(`0\d{1,4}-\d{1,4}-\d{4}|\d{3}-\d{4}-\d{4}`)
)

// PIIDetector replaces detected entities with numbered placeholders like
// [COMPANY_1] and remembers the mapping so responses can be unmasked.
// Counters survive across requests so placeholders stay unique per process.
type PIIDetector struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewPIIDetector() *PIIDetector {
	return &PIIDetector{counters: make(map[string]int)}
}

// DetectAndMask masks all detected entities in text, returning the masked
// text and the placeholder -> original mapping.
func (d *PIIDetector) DetectAndMask(text string) (string, map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	masked := text
	mappings := make(map[string]string)

	kinds := []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"COMPANY", companyPattern},
		{"EMAIL", emailPattern},
		{"PHONE", phonePattern},
		{"PERSON", personPattern},
		{"ADDRESS", addressPattern},
	}
	for _, kind := range kinds {
		for _, match := range kind.pattern.FindAllString(text, -1) {
			// Earlier passes may have already consumed this span.
			if !strings.Contains(masked, match) {
				continue
			}
			d.counters[kind.label]++
			placeholder := fmt.Sprintf("[%s_%d]", kind.label, d.counters[kind.label])
			masked = strings.ReplaceAll(masked, match, placeholder)
			mappings[placeholder] = match
		}
	}
	return masked, mappings
}

// Unmask substitutes the original values back into text.
func (d *PIIDetector) Unmask(text string, mappings map[string]string) string {
	for placeholder, original := range mappings {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}
