// Package segment splits raw document text into overlapping token windows.
package segment

import (
	"fmt"
	"strings"
)

const (
	// DefaultWindowSize is the default number of tokens per window.
	DefaultWindowSize = 500

	// DefaultOverlap is the default number of tokens shared between
	// consecutive windows.
	DefaultOverlap = 50
)

// Split breaks text into overlapping windows of up to windowSize
// whitespace-delimited tokens, advancing by windowSize-overlap tokens
// per step. Tokens inside a window are joined by single spaces.
//
// Empty or whitespace-only text yields an empty result; callers decide
// whether that is an error. overlap must satisfy 0 <= overlap < windowSize,
// otherwise the loop could stall or move backwards.
func Split(text string, windowSize, overlap int) ([]string, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", windowSize, overlap)
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := windowSize - overlap
	windows := make([]string, 0, (len(tokens)+step-1)/step)

	for start := 0; start < len(tokens); start += step {
		end := start + windowSize
		if end > len(tokens) {
			end = len(tokens)
		}

		window := strings.Join(tokens[start:end], " ")
		if strings.TrimSpace(window) == "" {
			continue
		}
		windows = append(windows, window)
	}

	return windows, nil
}
