package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

const sarah = "My name is Sarah Connor, email sarah@example.com, I have 5 years experience as a project manager with skills: leadership, budgeting, scheduling"

func TestAnalyze_SarahIsReadyForCV(t *testing.T) {
	t.Parallel()
	a := New()

	got := a.Analyze(sarah)

	assert.InDelta(t, 0.75, got.Confidence, 0.001)
	assert.True(t, got.Readiness.CV)
	assert.True(t, got.Readiness.Letter)
	assert.Equal(t, domain.IntentSkills, got.Intent)
	assert.Equal(t, domain.ComplexityMid, got.Complexity)
}

func TestConfidence_EmptyIsFloor(t *testing.T) {
	t.Parallel()
	a := New()
	assert.Equal(t, a.Floor(), a.Confidence(""))
	assert.InDelta(t, 0.20, a.Confidence(""), 0.0001)
	assert.False(t, a.Readiness("", a.Confidence("")).Any())
}

func TestReadiness_NoRoleOrEducationNeverReady(t *testing.T) {
	t.Parallel()
	a := New()
	inputs := []string{
		"hello there",
		"I worked for many years, reach me at me@example.com or 07700 900123, my skills are teamwork and excel",
		strings.Repeat("experience skills job years ", 200),
	}
	for _, in := range inputs {
		conf := a.Confidence(in)
		assert.Less(t, conf, 0.60, in)
		r := a.Readiness(in, conf)
		assert.False(t, r.CV)
		assert.False(t, r.Letter)
	}
}

func TestConfidence_CappedAtOne(t *testing.T) {
	t.Parallel()
	a, err := NewFromYAML([]byte(`
intents:
  - intent: cv
    keywords: [cv]
confidence:
  base: 0.9
  role: 0.5
readiness:
  cv_threshold: 0.7
  letter_threshold: 0.6
keywords:
  role: [engineer]
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.Confidence("senior engineer"))
}

func TestClassify_OrderedCategories(t *testing.T) {
	t.Parallel()
	a := New()
	cases := map[string]domain.Intent{
		"Can you help with my CV?":                       domain.IntentCV,
		"I need a cover letter and interview tips":       domain.IntentLetter,
		"How do I prepare for an interview?":             domain.IntentInterview,
		"Should I make a career change?":                 domain.IntentCareerAdvice,
		"Which skills should I learn?":                   domain.IntentSkills,
		"How do I negotiate salary?":                     domain.IntentSalary,
		"Preciso de ajuda com meu currículo":             domain.IntentCV,
		"Tengo una entrevista mañana":                    domain.IntentInterview,
		"good morning":                                   domain.IntentGeneral,
		"my resume mentions my salary and career goals": domain.IntentCV,
	}
	for in, want := range cases {
		assert.Equal(t, want, a.Classify(in), in)
	}
}

func TestComplexity(t *testing.T) {
	t.Parallel()
	a := New()
	assert.Equal(t, domain.ComplexitySenior, a.Complexity("I am a senior engineer"))
	assert.Equal(t, domain.ComplexitySenior, a.Complexity("junior team, but I am the Head of Product"))
	assert.Equal(t, domain.ComplexityEntry, a.Complexity("recent graduate looking for a first job"))
	assert.Equal(t, domain.ComplexityMid, a.Complexity("I have leadership skills"))
}

func TestNewFromYAML_Invalid(t *testing.T) {
	t.Parallel()
	_, err := NewFromYAML([]byte("intents: []"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = NewFromYAML([]byte(`
intents:
  - intent: cv
    keywords: [cv]
readiness:
  cv_threshold: 0.7
  letter_threshold: 0.6
patterns:
  email: '(['
`))
	require.Error(t, err)
}

func TestClassify_MatchesWholeWordsOnly(t *testing.T) {
	t.Parallel()
	a := New()
	assert.Equal(t, domain.IntentGeneral, a.Classify("I finally repaid my loan"))
	assert.Equal(t, domain.IntentGeneral, a.Classify("Our letterhead needs a refresh"))
	assert.Equal(t, domain.IntentSalary, a.Classify("I was paid late"))
	assert.Equal(t, domain.IntentLetter, a.Classify("I need a cover letter"))
}
