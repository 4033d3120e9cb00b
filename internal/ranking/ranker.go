package ranking

import (
	"sort"

	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/internal/parser"
	"github.com/sirupsen/logrus"
)

// Ranker orders catalog songs against a constraint set. It never mutates
// songs and never returns zero results while the catalog has any.
type Ranker struct {
	cfg    config.EngineConfig
	logger *logrus.Logger
}

func New(cfg config.EngineConfig, logger *logrus.Logger) *Ranker {
	return &Ranker{cfg: cfg, logger: logger}
}

// A relaxation transform weakens the constraint set in place and reports
// whether it changed anything. Transforms are pure with respect to songs.
type transform struct {
	name  string
	apply func(*models.QueryConstraints) bool
}

func dropTempo(c *models.QueryConstraints) bool {
	if c.Tempo == nil {
		return false
	}
	c.Tempo = nil
	return true
}

func dropKey(c *models.QueryConstraints) bool {
	if c.Key == "" {
		return false
	}
	c.Key = ""
	return true
}

func dropTheme(c *models.QueryConstraints) bool {
	if len(c.Themes) == 0 {
		return false
	}
	c.Themes = nil
	return true
}

var transformsByName = map[string]func(*models.QueryConstraints) bool{
	"tempo": dropTempo,
	"key":   dropKey,
	"theme": dropTheme,
}

func (r *Ranker) transforms() []transform {
	order := r.cfg.RelaxationOrder
	if len(order) == 0 {
		order = []string{"tempo", "key", "theme"}
	}
	out := make([]transform, 0, len(order))
	for _, name := range order {
		if apply, ok := transformsByName[name]; ok {
			out = append(out, transform{name: name, apply: apply})
		}
	}
	return out
}

// Rank scores songs against constraints and returns the top results, at most
// the configured limit, plus the names of any relaxation steps applied.
// excludeIDs removes recently shown songs unless the constraints request
// repetition. songs is a read-only catalog snapshot.
func (r *Ranker) Rank(constraints models.QueryConstraints, songs []models.Song, excludeIDs map[string]bool) ([]models.Song, []string) {
	if len(songs) == 0 {
		return nil, nil
	}

	candidates := songs
	if !constraints.Repeat && len(excludeIDs) > 0 {
		candidates = make([]models.Song, 0, len(songs))
		for i := range songs {
			if !excludeIDs[songs[i].ID] {
				candidates = append(candidates, songs[i])
			}
		}
	}

	active := constraints.Clone()
	var relaxed []string

	qualifying := filter(candidates, active)
	for _, t := range r.transforms() {
		if len(qualifying) >= r.cfg.MinCandidates {
			break
		}
		if !t.apply(&active) {
			continue
		}
		active.Relaxation++
		relaxed = append(relaxed, t.name)
		qualifying = filter(candidates, active)
	}

	// All constraints exhausted and still short: the familiarity-sorted
	// catalog is the answer. If the exclusion window itself starved the
	// result, the window is dropped too rather than returning nothing.
	if len(qualifying) == 0 {
		qualifying = append([]models.Song(nil), candidates...)
		if len(qualifying) == 0 {
			qualifying = append([]models.Song(nil), songs...)
			relaxed = append(relaxed, "history")
		}
	}

	// Scoring always uses the original constraints: relaxation widens the
	// candidate pool, but the stated preferences still order it.
	r.score(qualifying, constraints)

	if len(relaxed) > 0 {
		r.logger.WithFields(logrus.Fields{
			"relaxed":    relaxed,
			"qualifying": len(qualifying),
		}).Debug("Constraints relaxed")
	}

	if len(qualifying) > r.cfg.ResultLimit {
		qualifying = qualifying[:r.cfg.ResultLimit]
	}
	return qualifying, relaxed
}

// QualifyingCount reports how many candidates satisfy the constraint set as
// given, without relaxation. Exposed for relaxation monotonicity checks.
func QualifyingCount(constraints models.QueryConstraints, songs []models.Song) int {
	return len(filter(songs, constraints))
}

// filter keeps the songs satisfying the hard constraints: at least one
// requested theme, and BPM inside the band if one is set. Key preference is
// advisory and never excludes.
func filter(songs []models.Song, c models.QueryConstraints) []models.Song {
	out := make([]models.Song, 0, len(songs))
	for i := range songs {
		s := &songs[i]
		if c.Tempo != nil && !c.Tempo.Contains(s.BPM) {
			continue
		}
		if len(c.Themes) > 0 && themeMatches(s, c.Themes) == 0 {
			continue
		}
		out = append(out, songs[i])
	}
	return out
}

func themeMatches(s *models.Song, themes []string) int {
	n := 0
	for _, theme := range themes {
		if s.HasTag(theme) {
			n++
		}
	}
	return n
}

// keyFit scores the advisory key tier: 2 for a match on the lead-preferred
// key, 1 for a match only via the original-key fallback, 0 otherwise. With a
// lead but no requested key, having a lead-specific key at all counts.
func keyFit(s *models.Song, c models.QueryConstraints) int {
	if c.Key != "" {
		leadKey := ""
		switch c.Lead {
		case models.LeadMale:
			leadKey = s.BoyKey
		case models.LeadFemale:
			leadKey = s.GirlKey
		}
		if parser.KeysMatch(leadKey, c.Key) {
			return 2
		}
		if parser.KeysMatch(s.PreferredKey(c.Lead), c.Key) {
			return 1
		}
		return 0
	}
	switch c.Lead {
	case models.LeadMale:
		if s.BoyKey != "" {
			return 1
		}
	case models.LeadFemale:
		if s.GirlKey != "" {
			return 1
		}
	}
	return 0
}

// score orders songs in place by the tiered sort keys: theme matches, tempo
// fit, advisory key fit, then familiarity. Song ID breaks remaining ties so
// identical inputs always rank identically.
func (r *Ranker) score(songs []models.Song, c models.QueryConstraints) {
	sort.SliceStable(songs, func(i, j int) bool {
		a, b := &songs[i], &songs[j]

		if len(c.Themes) > 0 {
			am, bm := themeMatches(a, c.Themes), themeMatches(b, c.Themes)
			if am != bm {
				return am > bm
			}
		}

		if c.Tempo != nil {
			ain, bin := c.Tempo.Contains(a.BPM), c.Tempo.Contains(b.BPM)
			if ain != bin {
				return ain
			}
		} else if !c.FastSignal {
			// Altar-call bias: with no tempo signal at all, slower songs
			// surface first.
			if a.BPM != b.BPM {
				return a.BPM < b.BPM
			}
		}

		ak, bk := keyFit(a, c), keyFit(b, c)
		if ak != bk {
			return ak > bk
		}

		if a.Familiarity != b.Familiarity {
			return a.Familiarity > b.Familiarity
		}

		return a.ID < b.ID
	})
}
