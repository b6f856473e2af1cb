package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Confidence is the trust band attached to an externally inferred date.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known bands.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// Source is one citation owned by an author.
type Source struct {
	Title         string
	URL           string
	Type          string
	PublishedDate string
	Year          string
	Summary       string

	DateEnriched         bool
	EnrichmentSource     string
	EnrichmentConfidence Confidence

	// Extra keeps keys this package does not model so they survive a write-back untouched.
	Extra map[string]json.RawMessage

	origin *decodedSource
}

// decodedSource is the stored form of a source as it was read. Immutable once set.
type decodedSource struct {
	raw    json.RawMessage
	fields Source
}

const (
	keyTitle                = "title"
	keyURL                  = "url"
	keyType                 = "type"
	keyPublishedDate        = "published_date"
	keyYear                 = "year"
	keySummary              = "summary"
	keyDateEnriched         = "date_enriched"
	keyEnrichmentSource     = "enrichment_source"
	keyEnrichmentConfidence = "enrichment_confidence"
)

// dateAliases are the historical spellings of the publication date, in resolution order.
var dateAliases = []string{keyPublishedDate, "publishedDate", "date"}

// ResolvedDate returns the best known date for the source. A bare year stands in as January 1st
// with PrecisionYear so callers can tell it apart from a specific date.
func (s Source) ResolvedDate() (time.Time, DatePrecision, bool) {
	if t, ok := ParseCalendarDate(s.PublishedDate); ok {
		return t, PrecisionDay, true
	}
	if t, ok := ParseYear(s.Year); ok {
		return t, PrecisionYear, true
	}
	return time.Time{}, "", false
}

// Ref builds the reduced shape handed to the date-inference collaborator.
func (s Source) Ref() SourceRef {
	return SourceRef{
		Title: s.Title,
		URL:   s.URL,
		Year:  s.Year,
		Date:  s.PublishedDate,
	}
}

// Equal compares every field, including preserved unknown keys.
func (s Source) Equal(other Source) bool {
	if s.Title != other.Title ||
		s.URL != other.URL ||
		s.Type != other.Type ||
		s.PublishedDate != other.PublishedDate ||
		s.Year != other.Year ||
		s.Summary != other.Summary ||
		s.DateEnriched != other.DateEnriched ||
		s.EnrichmentSource != other.EnrichmentSource ||
		s.EnrichmentConfidence != other.EnrichmentConfidence {
		return false
	}
	if len(s.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range s.Extra {
		ov, ok := other.Extra[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so merges never alias the caller's record.
func (s Source) Clone() Source {
	out := s
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = slices.Clone(v)
		}
	}
	return out
}

// UnmarshalJSON is the single normalization point for loosely typed source records.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode source: %w", err)
	}

	out := Source{}
	take := func(key string) (json.RawMessage, bool) {
		v, ok := raw[key]
		if ok {
			delete(raw, key)
		}
		return v, ok
	}

	var err error
	if v, ok := take(keyTitle); ok {
		if out.Title, err = decodeString(v); err != nil {
			return fmt.Errorf("decode source title: %w", err)
		}
	}
	if v, ok := take(keyURL); ok {
		if out.URL, err = decodeString(v); err != nil {
			return fmt.Errorf("decode source url: %w", err)
		}
	}
	if v, ok := take(keyType); ok {
		if out.Type, err = decodeString(v); err != nil {
			return fmt.Errorf("decode source type: %w", err)
		}
	}
	if v, ok := take(keySummary); ok {
		if out.Summary, err = decodeString(v); err != nil {
			return fmt.Errorf("decode source summary: %w", err)
		}
	}
	if v, ok := take(keyEnrichmentSource); ok {
		if out.EnrichmentSource, err = decodeString(v); err != nil {
			return fmt.Errorf("decode enrichment source: %w", err)
		}
	}
	if v, ok := take(keyEnrichmentConfidence); ok {
		conf, cErr := decodeString(v)
		if cErr != nil {
			return fmt.Errorf("decode enrichment confidence: %w", cErr)
		}
		out.EnrichmentConfidence = Confidence(conf)
	}
	if v, ok := take(keyDateEnriched); ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.DateEnriched); err != nil {
			return fmt.Errorf("decode date_enriched: %w", err)
		}
	}
	if v, ok := raw[keyYear]; ok {
		if year, yOK := decodeYear(v); yOK {
			out.Year = year
			delete(raw, keyYear)
		}
	}

	for _, alias := range dateAliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		if isNull(v) {
			delete(raw, alias)
			continue
		}
		if out.PublishedDate != "" {
			continue
		}
		str, sErr := decodeString(v)
		if sErr != nil {
			continue
		}
		if date, dOK := lenientDate(str); dOK {
			out.PublishedDate = date
			delete(raw, alias)
		}
	}

	if len(raw) > 0 {
		out.Extra = raw
	}
	out.origin = &decodedSource{raw: slices.Clone(data), fields: out.Clone()}
	*s = out
	return nil
}

// MarshalJSON writes a decoded source back exactly as it was read unless a field has changed since.
// Otherwise it writes canonical keys first, then preserved extras in key order.
func (s Source) MarshalJSON() ([]byte, error) {
	if s.origin != nil && s.Equal(s.origin.fields) {
		return s.origin.raw, nil
	}

	type field struct {
		key   string
		value any
	}

	fields := []field{
		{keyTitle, s.Title},
		{keyURL, s.URL},
	}
	if s.Type != "" {
		fields = append(fields, field{keyType, s.Type})
	}
	if s.PublishedDate != "" {
		fields = append(fields, field{keyPublishedDate, s.PublishedDate})
	}
	if s.Year != "" {
		fields = append(fields, field{keyYear, s.Year})
	}
	if s.Summary != "" {
		fields = append(fields, field{keySummary, s.Summary})
	}
	if s.DateEnriched {
		fields = append(fields, field{keyDateEnriched, true})
	}
	if s.EnrichmentSource != "" {
		fields = append(fields, field{keyEnrichmentSource, s.EnrichmentSource})
	}
	if s.EnrichmentConfidence != "" {
		fields = append(fields, field{keyEnrichmentConfidence, string(s.EnrichmentConfidence)})
	}

	written := make(map[string]struct{}, len(fields))
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, f.key, f.value); err != nil {
			return nil, err
		}
		written[f.key] = struct{}{}
	}

	for _, key := range slices.Sorted(maps.Keys(s.Extra)) {
		if _, dup := written[key]; dup {
			continue
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, key, s.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("encode key %s: %w", key, err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

func decodeString(v json.RawMessage) (string, error) {
	if isNull(v) {
		return "", nil
	}
	var out string
	if err := json.Unmarshal(v, &out); err != nil {
		return "", err
	}
	return out, nil
}

// decodeYear accepts 2023 and "2023"; anything else stays in Extra as found.
func decodeYear(v json.RawMessage) (string, bool) {
	if isNull(v) {
		return "", false
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return strings.TrimSpace(str), true
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return "", false
	}
	if n, err := num.Int64(); err == nil {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

// DecodeSources parses a stored JSON source list.
func DecodeSources(data []byte) ([]Source, error) {
	if len(bytes.TrimSpace(data)) == 0 || isNull(data) {
		return nil, nil
	}
	var sources []Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return sources, nil
}

// EncodeSources renders a source list for storage. A nil list is stored as [].
func EncodeSources(sources []Source) ([]byte, error) {
	if sources == nil {
		sources = []Source{}
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	return data, nil
}
