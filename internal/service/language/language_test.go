package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

func TestDetect_Portuguese(t *testing.T) {
	t.Parallel()
	got := New().Detect("Olá, meu nome é João e trabalho como desenvolvedor")

	assert.Equal(t, "pt", got.Language)
	assert.Greater(t, got.Scores["pt"], got.Scores["en"])
	assert.Equal(t, got.Scores["pt"], got.Confidence)
}

func TestDetect_Others(t *testing.T) {
	t.Parallel()
	d := New()
	cases := map[string]string{
		"Hello, I need help with my CV please":                  "en",
		"Hola, me llamo Ana y necesito ayuda con mi trabajo":     "es",
		"Hallo, ich bin Anna und ich suche eine Arbeit":          "de",
		"Bonjour, je suis développeur et je cherche un emploi":   "fr",
		"Ciao, io sono Marco e cerco lavoro come sviluppatore":   "it",
	}
	for in, want := range cases {
		assert.Equal(t, want, d.Detect(in).Language, in)
	}
}

func TestDetect_BelowFloorFallsBackToEnglish(t *testing.T) {
	t.Parallel()
	d := New()

	got := d.Detect("")
	assert.Equal(t, "en", got.Language)
	assert.Zero(t, got.Confidence)

	got = d.Detect("xyzzy plugh qwerty zork")
	assert.Equal(t, "en", got.Language)
}

func TestDetect_TieGoesToEarlierLanguage(t *testing.T) {
	t.Parallel()
	d, err := NewFromYAML([]byte(`
floor: 0.1
languages:
  - code: aa
    keywords: [foo]
  - code: bb
    keywords: [foo]
`))
	require.NoError(t, err)
	assert.Equal(t, "aa", d.Detect("foo").Language)
	assert.Equal(t, []string{"aa", "bb"}, d.Languages())
}

func TestNewFromYAML_Empty(t *testing.T) {
	t.Parallel()
	_, err := NewFromYAML([]byte("floor: 0.1"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
