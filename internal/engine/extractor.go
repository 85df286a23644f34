package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionBatch is the JSON structure returned by the extraction LLM.
type ExtractionBatch struct {
	People   []ExtractedPerson  `json:"people"`
	Events   []ExtractedEvent   `json:"events"`
	Feelings []ExtractedFeeling `json:"feelings"`
}

// ExtractedPerson is one person mention from a journal entry.
type ExtractedPerson struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Sentiment    string `json:"sentiment"`
	Context      string `json:"context"`
}

// ExtractedEvent is one event mention from a journal entry.
type ExtractedEvent struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Context  string `json:"context"`
}

// ExtractedFeeling is one feeling mention from a journal entry.
type ExtractedFeeling struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
	RootCause string  `json:"root_cause"`
}

// parseExtractionResponse extracts a JSON object from the LLM response.
// The response might contain markdown code fences or other wrapper text.
// Missing keys decode as empty slices, which downstream code treats as
// "nothing of that type found".
func parseExtractionResponse(content string) (*ExtractionBatch, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	content = strings.TrimSpace(content)

	// Find the JSON object
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	jsonStr := content[start : end+1]

	var batch ExtractionBatch
	if err := json.Unmarshal([]byte(jsonStr), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal extraction: %w", err)
	}

	return &batch, nil
}
