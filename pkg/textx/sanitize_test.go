// Package textx contains tests for the text utilities.
package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "olá", Truncate("olá mundo", 3))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "", Truncate("anything", 0))
}

func TestContainsWord(t *testing.T) {
	cases := []struct {
		s, word string
		want    bool
	}{
		{"i need a cv", "cv", true},
		{"cv please", "cv", true},
		{"acvx", "cv", false},
		{"leadership skills", "lead", false},
		{"team lead here", "lead", true},
		{"a cover letter, please", "cover letter", true},
		{"experiência profissional", "experiência", true},
		{"inexperiência", "experiência", false},
		{"lead lead", "lead", true},
		{"leader, lead", "lead", true},
		{"", "cv", false},
		{"cv", "", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ContainsWord(c.s, c.word), "%q in %q", c.word, c.s)
	}
	assert.True(t, ContainsAnyWord("my salary", []string{"pay", "salary"}))
	assert.False(t, ContainsAnyWord("repay", []string{"pay"}))
}
