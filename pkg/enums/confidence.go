package enums

import (
	"fmt"
	"strings"
)

// Confidence is the provider's self-reported certainty about an analysis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var validConfidences = []Confidence{
	ConfidenceHigh,
	ConfidenceMedium,
	ConfidenceLow,
}

// IsValid checks whether the value is one of the three known levels.
func (c Confidence) IsValid() bool {
	for _, candidate := range validConfidences {
		if candidate == c {
			return true
		}
	}
	return false
}

func (c Confidence) String() string {
	return string(c)
}

// ParseConfidence accepts only the exact lowercase levels.
func ParseConfidence(value string) (Confidence, error) {
	if c := Confidence(value); c.IsValid() {
		return c, nil
	}
	return "", fmt.Errorf("invalid confidence %q (want one of %s)", value, confidenceList())
}

func confidenceList() string {
	values := make([]string, 0, len(validConfidences))
	for _, c := range validConfidences {
		values = append(values, string(c))
	}
	return strings.Join(values, ", ")
}
