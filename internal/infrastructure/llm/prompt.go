package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"CanonCurator/internal/domain"
)

const defaultSystemPrompt = `You date citations. For every source you receive, infer when it was first published.
Answer with JSON only, shaped as {"results":[{"originalTitle":"...","enrichedDate":"YYYY-MM-DD|YYYY-MM|YYYY|null","confidence":"high|medium|low","reasoning":"...","source":"..."}]}.
Copy originalTitle exactly from the input. Use null and low confidence when you do not know.`

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

func buildUserPrompt(sources []domain.SourceRef, authorName string) (string, error) {
	payload, err := json.Marshal(struct {
		Author  string             `json:"author"`
		Sources []domain.SourceRef `json:"sources"`
	}{Author: authorName, Sources: sources})
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(payload), nil
}

type wireResult struct {
	OriginalTitle string          `json:"originalTitle"`
	EnrichedDate  json.RawMessage `json:"enrichedDate"`
	Confidence    string          `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	Source        string          `json:"source"`
}

// decodeResults accepts {"results":[...]} or a bare array, optionally inside a code fence.
func decodeResults(content string) ([]domain.EnrichedSourceDate, error) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrUnparseableResponse)
	}

	var wire []wireResult
	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &wire); err != nil {
			return nil, fmt.Errorf("%w: %v (payload: %s)", ErrUnparseableResponse, err, snippet(payload))
		}
	} else {
		var envelope struct {
			Results *[]wireResult `json:"results"`
		}
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v (payload: %s)", ErrUnparseableResponse, err, snippet(payload))
		}
		if envelope.Results == nil {
			return nil, fmt.Errorf("%w: missing results (payload: %s)", ErrUnparseableResponse, snippet(payload))
		}
		wire = *envelope.Results
	}

	out := make([]domain.EnrichedSourceDate, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.EnrichedSourceDate{
			OriginalTitle: w.OriginalTitle,
			EnrichedDate:  rawDate(w.EnrichedDate),
			Confidence:    normalizeConfidence(w.Confidence),
			Reasoning:     strings.TrimSpace(w.Reasoning),
			Source:        strings.TrimSpace(w.Source),
		})
	}
	return out, nil
}

// rawDate reads a date given as string, bare year number or null.
func rawDate(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		return &s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			s = strconv.FormatInt(v, 10)
			return &s
		}
	}
	return nil
}

// normalizeConfidence maps anything unrecognised to low so it never passes the gate.
func normalizeConfidence(value string) domain.Confidence {
	c := domain.Confidence(strings.ToLower(strings.TrimSpace(value)))
	if !c.Valid() {
		return domain.ConfidenceLow
	}
	return c
}

func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, " \t\r\n")
		if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
			trimmed = trimmed[4:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 160
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
