package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and keeps alphanumerics",
			input:    "Computer Science",
			expected: "computer-science",
		},
		{
			name:     "collapses whitespace runs",
			input:    "  Medical   Lab \t Techniques ",
			expected: "medical-lab-techniques",
		},
		{
			name:     "keeps arabic letters",
			input:    "تقنيات المختبرات الطبية",
			expected: "تقنيات-المختبرات-الطبية",
		},
		{
			name:     "drops punctuation",
			input:    "Nursing (Evening)",
			expected: "nursing-evening",
		},
		{
			name:     "no leading or trailing hyphens",
			input:    "- Accounting -",
			expected: "accounting",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only punctuation",
			input:    "***",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeIdentifier(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips separators",
			input:    "0770 123-4567",
			expected: "07701234567",
		},
		{
			name:     "keeps leading plus",
			input:    "+964 770 123 4567",
			expected: "+9647701234567",
		},
		{
			name:     "drops inner plus",
			input:    "0770+123",
			expected: "0770123",
		},
		{
			name:     "parentheses removed",
			input:    "(0770) 1234567",
			expected: "07701234567",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}
