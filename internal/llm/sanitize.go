package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/kk-extractor/constants"
)

// StripCodeFence removes a surrounding ```json ... ``` fence and whitespace.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeRecordsJSON is the lenient pass applied when a response fails strict
// validation:
//   - a single object is wrapped into an array
//   - numbers are coerced to strings (NIK and No. KK often come back numeric)
//   - null and blank optionals are dropped
//   - unknown keys are removed
//
// Missing required fields are never invented, so such responses still fail.
func NormalizeRecordsJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var items []map[string]any
	if err := decodeNumbers(raw, &items); err != nil {
		var single map[string]any
		if err2 := decodeNumbers(raw, &single); err2 != nil {
			return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
		}
		items = []map[string]any{single}
	}

	allowed := make(map[string]struct{}, len(constants.RecordColumns))
	for _, c := range constants.RecordColumns {
		allowed[c] = struct{}{}
	}

	var dropped []string
	for i, m := range items {
		if m == nil {
			return nil, dropped, fmt.Errorf("sanitize: item %d is null", i)
		}
		for k, v := range m {
			if _, ok := allowed[k]; !ok {
				delete(m, k)
				dropped = append(dropped, k+"(unknown)")
				continue
			}
			switch t := v.(type) {
			case nil:
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			case json.Number:
				m[k] = t.String()
			case bool:
				m[k] = strconv.FormatBool(t)
			case string:
				m[k] = strings.TrimSpace(t)
			}
		}
	}

	out, err := json.Marshal(items)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// decodeNumbers keeps numbers as json.Number so 16-digit IDs survive intact.
func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
