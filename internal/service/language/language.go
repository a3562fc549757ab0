// Package language guesses which language a message is written in from
// keyword and suffix frequency. It is independent of intent analysis.
package language

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

//go:embed language.yaml
var defaultMarkers []byte

var wordRE = regexp.MustCompile(`[\p{L}']+`)

type markerFile struct {
	Floor        float64 `yaml:"floor"`
	Fallback     string  `yaml:"fallback"`
	SuffixWeight float64 `yaml:"suffix_weight"`
	Languages    []struct {
		Code     string   `yaml:"code"`
		Keywords []string `yaml:"keywords"`
		Suffixes []string `yaml:"suffixes"`
	} `yaml:"languages"`
}

type markers struct {
	code     string
	keywords map[string]struct{}
	suffixes []string
}

// Detection is the detector's verdict for one text.
type Detection struct {
	Language   string             `json:"language"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// Detector is immutable after construction and safe for concurrent use.
type Detector struct {
	langs        []markers
	floor        float64
	fallback     string
	suffixWeight float64
}

// New builds a Detector from the embedded marker table.
func New() *Detector {
	d, err := NewFromYAML(defaultMarkers)
	if err != nil {
		panic(fmt.Sprintf("language: embedded markers invalid: %v", err))
	}
	return d
}

// NewFromYAML builds a Detector from a marker table.
func NewFromYAML(b []byte) (*Detector, error) {
	var mf markerFile
	if err := yaml.Unmarshal(b, &mf); err != nil {
		return nil, fmt.Errorf("op=language.parse: %w", err)
	}
	if len(mf.Languages) == 0 {
		return nil, fmt.Errorf("op=language.parse: %w: no languages", domain.ErrInvalidArgument)
	}
	d := &Detector{floor: mf.Floor, fallback: mf.Fallback, suffixWeight: mf.SuffixWeight}
	if d.fallback == "" {
		d.fallback = "en"
	}
	if d.suffixWeight == 0 {
		d.suffixWeight = 0.5
	}
	for _, l := range mf.Languages {
		m := markers{code: l.Code, keywords: make(map[string]struct{}, len(l.Keywords))}
		for _, k := range l.Keywords {
			m.keywords[strings.ToLower(k)] = struct{}{}
		}
		for _, s := range l.Suffixes {
			m.suffixes = append(m.suffixes, strings.ToLower(s))
		}
		d.langs = append(d.langs, m)
	}
	return d, nil
}

// Languages lists the codes the detector can return, in tie-break order.
func (d *Detector) Languages() []string {
	out := make([]string, 0, len(d.langs))
	for _, l := range d.langs {
		out = append(out, l.code)
	}
	return out
}

// Detect scores text against every language. The highest score wins, ties go
// to the earlier language, and a best score under the floor yields the
// fallback language.
func (d *Detector) Detect(text string) Detection {
	words := wordRE.FindAllString(strings.ToLower(text), -1)
	scores := make(map[string]float64, len(d.langs))
	best, bestScore := d.fallback, -1.0
	for _, l := range d.langs {
		s := d.score(l, words)
		scores[l.code] = s
		if s > bestScore {
			best, bestScore = l.code, s
		}
	}
	if bestScore < d.floor {
		return Detection{Language: d.fallback, Confidence: scores[d.fallback], Scores: scores}
	}
	return Detection{Language: best, Confidence: bestScore, Scores: scores}
}

func (d *Detector) score(l markers, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	hits := 0.0
	for _, w := range words {
		if _, ok := l.keywords[w]; ok {
			hits++
			continue
		}
		n := utf8.RuneCountInString(w)
		for _, suf := range l.suffixes {
			if n > utf8.RuneCountInString(suf)+2 && strings.HasSuffix(w, suf) {
				hits += d.suffixWeight
				break
			}
		}
	}
	return math.Round(hits/float64(len(words))*100) / 100
}
