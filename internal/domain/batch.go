package domain

import "strings"

// ParseBatch splits raw batch text into address tokens.
// Tokens are separated by commas or newlines, trimmed, and empty tokens dropped.
// Order and duplicates are preserved, so ParseBatch(strings.Join(ParseBatch(s), "\n"))
// always equals ParseBatch(s).
func ParseBatch(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ValidateBatch parses text and validates every token.
// A single invalid token rejects the whole batch; the error carries its 1-based position.
func ValidateBatch(text string) ([]Address, error) {
	tokens := ParseBatch(text)
	if len(tokens) == 0 {
		return nil, &ValidationError{Err: ErrEmptyBatch}
	}

	addrs := make([]Address, 0, len(tokens))
	for i, tok := range tokens {
		addr, err := ValidateAddress(tok)
		if err != nil {
			verr := err.(*ValidationError)
			verr.Position = i + 1
			return nil, verr
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// BatchProblem describes one token that would reject a batch.
type BatchProblem struct {
	Position int    `json:"position"`
	Input    string `json:"input"`
	Reason   string `json:"reason"`
}

// BatchPreview summarizes raw batch text without submitting anything.
type BatchPreview struct {
	Count     int            `json:"count"`
	Addresses []string       `json:"addresses"`
	Problems  []BatchProblem `json:"problems"`
}

// Valid reports whether the previewed batch would pass validation.
func (p BatchPreview) Valid() bool {
	return p.Count > 0 && len(p.Problems) == 0
}

// PreviewBatch parses text and lists every token that fails validation.
func PreviewBatch(text string) BatchPreview {
	tokens := ParseBatch(text)
	preview := BatchPreview{
		Count:     len(tokens),
		Addresses: tokens,
		Problems:  []BatchProblem{},
	}

	for i, tok := range tokens {
		if _, err := ValidateAddress(tok); err != nil {
			preview.Problems = append(preview.Problems, BatchProblem{
				Position: i + 1,
				Input:    tok,
				Reason:   err.Error(),
			})
		}
	}
	return preview
}
