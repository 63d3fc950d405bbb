package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Fajita  ", "fajita"},
		{"latin diacritics folded", "Crème Brûlée", "creme brulee"},
		{"arabic letters preserved", "فاهيتا", "فاهيتا"},
		{"arabic harakat stripped", "بَطَاطَا", "بطاطا"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "olive oil", NormalizeKey("  Olive   OIL "))
	assert.Equal(t, "g", NormalizeKey("G"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"fajita", "without", "fries"}, Tokenize("fajita without fries"))
	assert.Equal(t, []string{"g", "rice"}, Tokenize("150g rice"))
	assert.Equal(t, []string{"بدون", "بطاطا"}, Tokenize("بدون بطاطا"))
}

func TestFuzzyRatio(t *testing.T) {
	assert.InDelta(t, 100, FuzzyRatio("fajita", "Fajita"), 0.001)
	assert.Greater(t, FuzzyRatio("fahita", "fajita"), 70.0)
	assert.Less(t, FuzzyRatio("fajita", "tabbouleh"), 50.0)
}

func TestBestMatch(t *testing.T) {
	best, score := BestMatch("fahita", []string{"tabbouleh", "fajita", "fries"})
	assert.Equal(t, "fajita", best)
	assert.Greater(t, score, 70.0)

	best, score = BestMatch("anything", nil)
	assert.Empty(t, best)
	assert.Zero(t, score)
}

func TestContainsEither(t *testing.T) {
	assert.True(t, ContainsEither("tomato", "sun-dried tomato paste"))
	assert.True(t, ContainsEither("sun-dried tomato paste", "tomato"))
	assert.False(t, ContainsEither("chicken", "tortilla"))
	assert.False(t, ContainsEither("", "tortilla"))
}
