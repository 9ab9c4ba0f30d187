package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"cicerone/pkg/types"
)

// ErrUnparseable is returned when a model reply cannot be interpreted in
// either the line-oriented format or the JSON fallback.
var ErrUnparseable = errors.New("llm: unparseable model response")

// extractionJSON is the JSON fallback shape for extraction replies.
type extractionJSON struct {
	Intent    string            `json:"intent"`
	Emotion   string            `json:"emotion"`
	Selection bool              `json:"selection"`
	Recall    string            `json:"recall"`
	Slots     map[string]string `json:"slots"`
}

// recallJSON is the expected shape of recall replies.
type recallJSON struct {
	Found       bool   `json:"found"`
	Confidence  string `json:"confidence"`
	Information string `json:"information"`
}

// ParseExtraction interprets the extractor's reply. It first tries the
// line-oriented Intent:/Slots: format the prompt asks for, then falls back to
// a JSON object, since models add prose or code fences despite instructions.
// Empty slot values are dropped so the returned Extraction carries only real
// evidence; the intent defaults to "unknown" and the emotion to "neutral".
func ParseExtraction(raw string) (*types.Extraction, error) {
	ext := &types.Extraction{
		Intent:  types.IntentUnknown,
		Emotion: types.EmotionNeutral,
		Slots:   types.NewSlotSet(),
	}

	sawIntent := false
	inSlots := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case len(line) == 0 || strings.HasPrefix(line, "```"):
			continue
		case hasPrefixFold(line, "intent:"):
			if v := valueAfterColon(line); v != "" {
				ext.Intent = strings.ToLower(v)
			}
			sawIntent = true
			inSlots = false
		case hasPrefixFold(line, "emotion:"):
			if v := valueAfterColon(line); v != "" {
				ext.Emotion = strings.ToLower(v)
			}
			inSlots = false
		case hasPrefixFold(line, "selection:"):
			v := strings.ToLower(valueAfterColon(line))
			ext.Selection = v == "yes" || v == "true"
			inSlots = false
		case hasPrefixFold(line, "recall:"):
			ext.RecallQuery = valueAfterColon(line)
			inSlots = false
		case hasPrefixFold(line, "slots:"):
			inSlots = true
		case inSlots && strings.HasPrefix(line, "-"):
			name, value, ok := strings.Cut(strings.TrimLeft(line, "- "), ":")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			value = cleanSlotValue(value)
			if name != "" && value != "" {
				ext.Slots.Set(name, value)
			}
		}
	}
	if sawIntent {
		return ext, nil
	}

	// JSON fallback.
	var j extractionJSON
	if err := json.Unmarshal([]byte(extractJSON(raw)), &j); err != nil || j.Intent == "" {
		return nil, ErrUnparseable
	}
	ext.Intent = strings.ToLower(j.Intent)
	if j.Emotion != "" {
		ext.Emotion = strings.ToLower(j.Emotion)
	}
	ext.Selection = j.Selection
	ext.RecallQuery = j.Recall
	for name, value := range j.Slots {
		if name != "" {
			ext.Slots.Set(name, cleanSlotValue(value))
		}
	}
	return ext, nil
}

// ParseRecall interprets the recall collaborator's JSON reply. Unparseable
// replies degrade to a not-found result with low confidence rather than an
// error, because recall is advisory.
func ParseRecall(raw string) types.RecallResult {
	var j recallJSON
	if err := json.Unmarshal([]byte(extractJSON(raw)), &j); err != nil {
		return types.RecallResult{Found: false, Confidence: types.ConfidenceLow}
	}

	conf := types.Confidence(strings.ToLower(j.Confidence))
	switch conf {
	case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
	default:
		conf = types.ConfidenceLow
	}

	return types.RecallResult{
		Found:       j.Found && j.Information != "",
		Confidence:  conf,
		Information: j.Information,
	}
}

// extractJSON extracts the first JSON object from a string that may contain
// extra text or markdown code fences around it.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// hasPrefixFold is a case-insensitive strings.HasPrefix.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func valueAfterColon(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

// cleanSlotValue trims whitespace and surrounding quotes, and normalizes the
// placeholder strings models emit for "no value" to the empty string.
func cleanSlotValue(v string) string {
	v = strings.Trim(strings.TrimSpace(v), `"'`)
	switch strings.ToLower(v) {
	case "", "empty", "none", "null", "n/a", "unknown", "<value or empty>":
		return ""
	}
	return v
}
