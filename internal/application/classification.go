package application

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bnema/mailbot/internal/domain"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

type classificationJSON struct {
	Items []struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Urgency  string `json:"urgency"`
		Summary  string `json:"summary"`
	} `json:"items"`
}

// ParseClassifications decodes the model's answer, optionally wrapped in a
// code fence. Every entry must name one of the listed items and use a known
// category and urgency.
func ParseClassifications(output string, items []domain.MailItem) ([]domain.Classification, error) {
	body := extractJSONObject(output)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object found", domain.ErrInvalidClassification)
	}

	var decoded classificationJSON
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidClassification, err)
	}

	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	seen := make(map[string]bool, len(decoded.Items))
	classifications := make([]domain.Classification, 0, len(decoded.Items))
	for i, entry := range decoded.Items {
		id := strings.TrimSpace(entry.ID)
		category := domain.Category(strings.ToLower(strings.TrimSpace(entry.Category)))
		urgency := domain.Urgency(strings.ToLower(strings.TrimSpace(entry.Urgency)))

		switch {
		case id == "":
			return nil, fmt.Errorf("%w: entry %d has no id", domain.ErrInvalidClassification, i)
		case !known[id]:
			return nil, fmt.Errorf("%w: entry %d names unknown message %q", domain.ErrInvalidClassification, i, id)
		case seen[id]:
			return nil, fmt.Errorf("%w: message %q classified twice", domain.ErrInvalidClassification, id)
		case !category.Valid():
			return nil, fmt.Errorf("%w: entry %d has unknown category %q", domain.ErrInvalidClassification, i, entry.Category)
		case !urgency.Valid():
			return nil, fmt.Errorf("%w: entry %d has unknown urgency %q", domain.ErrInvalidClassification, i, entry.Urgency)
		}
		seen[id] = true

		classifications = append(classifications, domain.Classification{
			ItemID:   id,
			Category: category,
			Urgency:  urgency,
			Summary:  strings.TrimSpace(entry.Summary),
		})
	}

	return classifications, nil
}

func extractJSONObject(output string) string {
	text := strings.TrimSpace(output)
	if match := fencedBlock.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
