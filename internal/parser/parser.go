// Deterministic rule-path parser. The external NLP collaborator may produce
// the same structured shape with a confidence score; this package is the
// fallback that always works.
package parser

import (
	"regexp"
	"strings"
	"sync"

	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// A trailing \b misfires after "#" (non-word char), so the patterns
	// spell out the terminator instead.
	keyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bkey of ([a-g][#b]?)(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)\bin (?:the key of )?([a-g][#b]?)(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)\b([a-g][#b]?) key\b`),
	}
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s#'-]`)
)

// Fixed tempo vocabulary. Absolute words map straight to a band; relative
// words shift the prior band by the configured step.
var tempoBands = map[string]models.TempoBand{
	"slow":          {Min: 40, Max: 80},
	"contemplative": {Min: 40, Max: 80},
	"ministry":      {Min: 40, Max: 80},
	"medium":        {Min: 80, Max: 120},
	"moderate":      {Min: 80, Max: 120},
	"fast":          {Min: 120, Max: 200},
	"upbeat":        {Min: 120, Max: 200},
	"energetic":     {Min: 120, Max: 200},
}

var fastWords = map[string]bool{
	"fast": true, "upbeat": true, "energetic": true, "praise": true,
	"celebration": true, "celebrate": true,
}

var maleWords = map[string]bool{"male": true, "man": true, "men": true, "boy": true, "guy": true}
var femaleWords = map[string]bool{"female": true, "woman": true, "women": true, "girl": true, "lady": true}

var moreWords = map[string]bool{"more": true, "another": true, "others": true}

// Theme synonyms collapse common phrasings onto canonical catalog tags.
var themeSynonyms = map[string]string{
	"mercy":       "grace",
	"forgiveness": "grace",
	"yielding":    "surrender",
	"submission":  "surrender",
	"adoration":   "worship",
	"praise":      "praise",
	"calm":        "peace",
	"rest":        "peace",
	"still":       "peace",
	"tranquil":    "peace",
	"expectation": "hope",
	"future":      "hope",
	"trust":       "faith",
	"belief":      "faith",
	"happiness":   "joy",
	"celebration": "joy",
	"salvation":   "redemption",
	"saved":       "redemption",
	"redeemed":    "redemption",
	"beloved":     "love",
	"loving":      "love",
	"cross":       "blood",
	"sacrifice":   "blood",
	"calvary":     "blood",
	"wash":        "cleansing",
	"pure":        "cleansing",
	"purify":      "cleansing",
}

// Words that never carry theme signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"on": true, "in": true, "for": true, "to": true, "with": true, "about": true,
	"find": true, "me": true, "my": true, "our": true, "we": true, "i": true,
	"you": true, "please": true, "show": true, "give": true, "need": true,
	"want": true, "some": true, "something": true, "songs": true, "song": true,
	"music": true, "lead": true, "vocals": true, "vocal": true, "voice": true,
	"key": true, "bpm": true, "tempo": true, "that": true, "this": true,
	"is": true, "are": true, "it": true, "like": true, "them": true,
	"haven't": true, "used": true, "lately": true, "sunday": true,
}

// Parser turns free text plus the session's prior constraints into a
// structured query. It never fails; unintelligible text yields an
// unconstrained query.
type Parser struct {
	cfg    config.EngineConfig
	logger *logrus.Logger

	mu    sync.RWMutex
	vocab map[string]bool // known theme tags, refreshed from the catalog
}

func New(cfg config.EngineConfig, logger *logrus.Logger) *Parser {
	return &Parser{
		cfg:    cfg,
		logger: logger,
		vocab:  make(map[string]bool),
	}
}

// SetVocabulary replaces the known tag vocabulary, normally with the distinct
// tags of the loaded catalog.
func (p *Parser) SetVocabulary(tags []string) {
	vocab := make(map[string]bool, len(tags))
	for _, t := range tags {
		vocab[strings.ToLower(t)] = true
	}
	p.mu.Lock()
	p.vocab = vocab
	p.mu.Unlock()
}

func (p *Parser) knownTheme(word string) (string, bool) {
	if canonical, ok := themeSynonyms[word]; ok {
		return canonical, true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.vocab[word] {
		return word, true
	}
	return "", false
}

// Parse converts text into constraints. prior is the session's last-used
// constraint set, used to anchor relative modifiers ("slower", "more"); nil
// means no conversational context.
func (p *Parser) Parse(text string, prior *models.QueryConstraints) models.QueryConstraints {
	var c models.QueryConstraints

	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return c
	}

	// Key extraction runs on the raw text before tokenization strips the
	// single-letter key names.
	key, keySpan := extractKey(lower)
	c.Key = key

	tokens := tokenize(lower, keySpan)

	slowerSeen, fasterSeen := false, false
	var themes []string
	seenThemes := map[string]bool{}

	for _, tok := range tokens {
		switch {
		case tok == "slower":
			slowerSeen = true
		case tok == "faster":
			fasterSeen = true
		case maleWords[tok]:
			c.Lead = models.LeadMale
		case femaleWords[tok]:
			c.Lead = models.LeadFemale
		case moreWords[tok]:
			c.More = true
		case tok == "repeat" || tok == "recent":
			c.Repeat = true
		default:
			if band, ok := tempoBands[tok]; ok && c.Tempo == nil {
				b := band
				c.Tempo = &b
			}
			if fastWords[tok] {
				c.FastSignal = true
			}
			if stopWords[tok] {
				continue
			}
			if theme, ok := p.knownTheme(tok); ok && !seenThemes[theme] {
				seenThemes[theme] = true
				themes = append(themes, theme)
			}
		}
	}
	c.Themes = themes

	// Relative modifiers anchor on the prior band and shift it by the
	// configured step. Without context they degrade to the absolute band.
	if slowerSeen || fasterSeen {
		step := p.cfg.TempoStep
		if slowerSeen {
			step = -step
		}
		if prior != nil && prior.Tempo != nil {
			band := prior.Tempo.Shift(step)
			c.Tempo = &band
		} else if c.Tempo == nil {
			band := tempoBands["slow"]
			if fasterSeen {
				band = tempoBands["fast"]
			}
			c.Tempo = &band
		}
		if fasterSeen {
			c.FastSignal = true
		}
	}

	// A bare follow-up ("more", "slower") inherits everything the new text
	// did not override from the prior constraints.
	if prior != nil && (c.More || ((slowerSeen || fasterSeen) && len(c.Themes) == 0)) {
		if len(c.Themes) == 0 {
			c.Themes = append([]string(nil), prior.Themes...)
		}
		if c.Lead == models.LeadUnspecified {
			c.Lead = prior.Lead
		}
		if c.Key == "" {
			c.Key = prior.Key
		}
		if c.Tempo == nil && prior.Tempo != nil {
			band := *prior.Tempo
			c.Tempo = &band
		}
		if prior.FastSignal && !slowerSeen {
			c.FastSignal = true
		}
	}

	if c.Tempo != nil {
		band := c.Tempo.Clamp()
		c.Tempo = &band
	}

	p.logger.WithFields(logrus.Fields{
		"text":   text,
		"themes": c.Themes,
		"lead":   c.Lead,
		"key":    c.Key,
		"more":   c.More,
	}).Debug("Parsed query")

	return c
}

// extractKey returns the requested key, normalized (upper-case note letter,
// lower-case flat), and the matched span so tokenization can skip it.
func extractKey(lower string) (string, []int) {
	for _, pattern := range keyPatterns {
		m := pattern.FindStringSubmatchIndex(lower)
		if m == nil {
			continue
		}
		raw := lower[m[2]:m[3]]
		return normalizeKey(raw), []int{m[0], m[1]}
	}
	return "", nil
}

func normalizeKey(raw string) string {
	if raw == "" {
		return ""
	}
	key := strings.ToUpper(raw[:1])
	if len(raw) > 1 {
		suffix := raw[1:]
		if suffix == "b" || suffix == "B" {
			key += "b"
		} else {
			key += suffix
		}
	}
	return key
}

// KeysMatch compares two key names, treating flat notation case-insensitively.
func KeysMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return normalizeKey(strings.ToLower(a)) == normalizeKey(strings.ToLower(b))
}

func tokenize(lower string, skip []int) []string {
	if skip != nil {
		lower = lower[:skip[0]] + " " + lower[skip[1]:]
	}
	cleaned := punctuationPattern.ReplaceAllString(lower, " ")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
