// Package extract builds person and organization signals from pre-normalized
// tokens plus the original text. It attaches identifiers and birthdates to
// the nearest entity mention and computes an evidence-based confidence.
//
// Extraction never fails a request: malformed dates and identifiers are
// skipped, and an entity with zero supporting evidence is still emitted at
// base confidence. Relevance is the decision layer's call, not ours.
package extract

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"watchgate/internal/screening/identifier"
	"watchgate/internal/screening/models"
)

// Weights holds the per-evidence confidence increments. A single immutable
// value is passed in at construction; there is no package-level state.
type Weights struct {
	Base          float64 `yaml:"base"`
	NamePattern   float64 `yaml:"name_pattern"`
	LegalForm     float64 `yaml:"legal_form"`
	QuotedCore    float64 `yaml:"quoted_core"`
	ValidID       float64 `yaml:"valid_id"`
	InvalidID     float64 `yaml:"invalid_id"`
	Birthdate     float64 `yaml:"birthdate"`
	MultiEvidence float64 `yaml:"multi_evidence"` // bonus at >= 3 distinct tags
}

// DefaultWeights returns the standard evidence increments.
func DefaultWeights() Weights {
	return Weights{
		Base:          0.5,
		NamePattern:   0.1,
		LegalForm:     0.3,
		QuotedCore:    0.2,
		ValidID:       0.2,
		InvalidID:     0.1,
		Birthdate:     0.15,
		MultiEvidence: 0.05,
	}
}

// Extractor builds signal bundles. Safe for concurrent use.
type Extractor struct {
	ids     *identifier.Validator
	weights Weights
	logger  *slog.Logger
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for defect reporting (clamped confidences).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithWeights overrides the default evidence increments.
func WithWeights(w Weights) Option {
	return func(e *Extractor) { e.weights = w }
}

// New creates an extractor with its own identifier validator.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		ids:     identifier.NewValidator(),
		weights: DefaultWeights(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds the signal bundle for one request. personsCore holds ordered
// token groups, organizationsCore holds core strings; both come from the
// upstream normalization collaborator.
func (e *Extractor) Extract(originalText string, tokens []models.Token, personsCore [][]string, organizationsCore []string) models.SignalBundle {
	var bundle models.SignalBundle

	// mentions indexes every emitted entity by its character position so
	// identifiers and birthdates can be attached by nearest-position lookup.
	var mentions mentionIndex

	for _, core := range personsCore {
		if len(core) == 0 {
			continue
		}
		p := models.PersonSignal{
			Core:     append([]string(nil), core...),
			FullName: titleCase(strings.Join(core, " ")),
			Evidence: models.NewEvidenceSet(models.NamePattern()),
		}
		pos := locate(originalText, tokens, core)
		if quoted(originalText, pos, len(strings.Join(core, " "))) {
			p.Evidence.Add(models.QuotedCore())
		}
		bundle.Persons = append(bundle.Persons, p)
		mentions.add(pos, mentionPerson, len(bundle.Persons)-1)
	}

	for _, core := range organizationsCore {
		core = strings.TrimSpace(core)
		if core == "" {
			continue
		}
		o := models.OrganizationSignal{
			Core:     core,
			FullName: titleCase(core),
			Evidence: models.NewEvidenceSet(),
		}
		pos := locate(originalText, tokens, strings.Fields(strings.ToLower(core)))
		if form, ok := legalFormNear(originalText, pos, len(core)); ok {
			o.LegalForm = form
			o.FullName = form + " " + o.FullName
			o.Evidence.Add(models.LegalFormHit())
		}
		if quoted(originalText, pos, len(core)) {
			o.Evidence.Add(models.QuotedCore())
		}
		bundle.Organizations = append(bundle.Organizations, o)
		mentions.add(pos, mentionOrganization, len(bundle.Organizations)-1)
	}

	mentions.sort()

	e.attachIdentifiers(originalText, &bundle, mentions)
	e.attachBirthdates(originalText, &bundle, mentions)

	for i := range bundle.Persons {
		bundle.Persons[i].Confidence = e.confidence(bundle.Persons[i].Evidence)
	}
	for i := range bundle.Organizations {
		bundle.Organizations[i].Confidence = e.confidence(bundle.Organizations[i].Evidence)
	}

	return bundle
}

func (e *Extractor) attachIdentifiers(text string, bundle *models.SignalBundle, mentions mentionIndex) {
	for _, id := range e.ids.Validate(text) {
		m, ok := mentions.nearest(id.Start)
		if !ok {
			continue
		}
		ev := models.ValidID(id.Kind)
		if !id.Valid {
			ev = models.InvalidID(id.Kind)
		}
		switch m.kind {
		case mentionPerson:
			p := &bundle.Persons[m.idx]
			p.IDs = append(p.IDs, id)
			p.Evidence.Add(ev)
		case mentionOrganization:
			o := &bundle.Organizations[m.idx]
			o.IDs = append(o.IDs, id)
			o.Evidence.Add(ev)
		}
	}
}

func (e *Extractor) attachBirthdates(text string, bundle *models.SignalBundle, mentions mentionIndex) {
	if len(bundle.Persons) == 0 {
		return
	}
	for _, bd := range findBirthdates(text) {
		m, ok := mentions.nearestOfKind(bd.start, mentionPerson)
		if !ok {
			continue
		}
		p := &bundle.Persons[m.idx]
		if p.DOB != nil {
			continue // first attached date wins
		}
		dob := bd.date
		p.DOB = &dob
		p.DOBRaw = bd.raw
		p.Evidence.Add(models.BirthdateFound())
	}
}

// confidence folds the evidence set into [0,1]. The switch is exhaustive over
// EvidenceKind; an unknown kind is a defect and contributes nothing.
func (e *Extractor) confidence(ev models.EvidenceSet) float64 {
	c := e.weights.Base
	for _, item := range ev.Items() {
		switch item.Kind {
		case models.EvidenceNamePattern:
			c += e.weights.NamePattern
		case models.EvidenceLegalForm:
			c += e.weights.LegalForm
		case models.EvidenceQuotedCore:
			c += e.weights.QuotedCore
		case models.EvidenceValidID:
			c += e.weights.ValidID
		case models.EvidenceInvalidID:
			c += e.weights.InvalidID
		case models.EvidenceBirthdate:
			c += e.weights.Birthdate
		default:
			e.logger.Warn("unknown evidence kind ignored in confidence scoring", "kind", item.Kind)
		}
	}
	if ev.Len() >= 3 {
		c += e.weights.MultiEvidence
	}
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// -----------------------------------------------------------------------------
// Mention index: entity positions sorted for binary-search proximity lookups.
// -----------------------------------------------------------------------------

type mentionKind int

const (
	mentionPerson mentionKind = iota
	mentionOrganization
)

type mention struct {
	pos  int
	kind mentionKind
	idx  int
}

type mentionIndex struct {
	all []mention
}

func (ix *mentionIndex) add(pos int, kind mentionKind, idx int) {
	ix.all = append(ix.all, mention{pos: pos, kind: kind, idx: idx})
}

func (ix *mentionIndex) sort() {
	sort.Slice(ix.all, func(i, j int) bool { return ix.all[i].pos < ix.all[j].pos })
}

// nearest returns the mention closest to pos. Equal distance prefers the
// preceding mention.
func (ix mentionIndex) nearest(pos int) (mention, bool) {
	return nearestIn(ix.all, pos)
}

// nearestOfKind restricts the lookup to one mention kind.
func (ix mentionIndex) nearestOfKind(pos int, kind mentionKind) (mention, bool) {
	filtered := make([]mention, 0, len(ix.all))
	for _, m := range ix.all {
		if m.kind == kind {
			filtered = append(filtered, m)
		}
	}
	return nearestIn(filtered, pos)
}

func nearestIn(ms []mention, pos int) (mention, bool) {
	if len(ms) == 0 {
		return mention{}, false
	}
	i := sort.Search(len(ms), func(i int) bool { return ms[i].pos >= pos })
	switch {
	case i == 0:
		return ms[0], true
	case i == len(ms):
		return ms[len(ms)-1], true
	}
	prev, next := ms[i-1], ms[i]
	if pos-prev.pos <= next.pos-pos {
		return prev, true // preceding wins ties
	}
	return next, true
}

// -----------------------------------------------------------------------------
// Text helpers
// -----------------------------------------------------------------------------

// locate finds the character position of a token group in the original text.
// It first walks the normalized token trace, then falls back to a
// case-insensitive substring search. Unknown positions land at 0 so the
// signal still participates in proximity attachment.
func locate(text string, tokens []models.Token, core []string) int {
	if len(core) == 0 {
		return 0
	}
	for i := 0; i+len(core) <= len(tokens); i++ {
		matched := true
		for j, c := range core {
			if !strings.EqualFold(tokens[i+j].Text, c) {
				matched = false
				break
			}
		}
		if matched {
			return tokens[i].Start
		}
	}
	if idx := strings.Index(strings.ToLower(text), strings.ToLower(strings.Join(core, " "))); idx >= 0 {
		return idx
	}
	return 0
}

// quoted reports whether the span starting at pos sits inside straight or
// guillemet quotes.
func quoted(text string, pos, length int) bool {
	if pos <= 0 || pos+length >= len(text) {
		return false
	}
	before := rune(text[pos-1])
	afterIdx := pos + length
	if afterIdx >= len(text) {
		return false
	}
	runes := []rune(text[afterIdx:])
	if len(runes) == 0 {
		return false
	}
	after := runes[0]
	hasOpen := before == '"' || before == '\'' || string(text[max(0, pos-2):pos]) == "«"
	hasClose := after == '"' || after == '\'' || strings.HasPrefix(text[afterIdx:], "»")
	return hasOpen && hasClose
}

// legalFormMarkers are the recognized company legal-form markers, in both
// Latin and Cyrillic business usage.
var legalFormMarkers = []string{
	"ООО", "ТОВ", "ПАО", "ЗАО", "АО", "ИП",
	"LLC", "LLP", "LTD", "INC", "GMBH", "PLC", "CORP", "S.A.",
}

// legalFormNear scans a window around the organization core for a legal-form
// marker.
func legalFormNear(text string, pos, length int) (string, bool) {
	const window = 40
	start := max(0, pos-window)
	end := min(len(text), pos+length+window)
	region := strings.ToUpper(text[start:end])
	for _, marker := range legalFormMarkers {
		if containsWord(region, strings.ToUpper(marker)) {
			return marker, true
		}
	}
	return "", false
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		beforeOK := i == 0 || !isWordRune(rune(s[i-1]))
		afterIdx := i + len(word)
		afterOK := afterIdx >= len(s) || !isWordRune(rune(s[afterIdx]))
		if beforeOK && afterOK {
			return true
		}
		idx = i + len(word)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// -----------------------------------------------------------------------------
// Birthdate scanning
// -----------------------------------------------------------------------------

type birthdate struct {
	date   time.Time
	raw    string
	start  int
	marker bool
}

// findBirthdates returns every parseable day/month/year substring.
// Marker-anchored dates come first so they win attachment; bare dates follow
// in position order. Implausible dates are dropped silently.
func findBirthdates(text string) []birthdate {
	var out []birthdate
	claimed := make(map[int]bool)
	for _, pat := range markerBirthdatePatterns {
		for _, loc := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			raw := text[loc[2]:loc[3]]
			d, ok := parseBirthdate(pat, raw)
			if !ok {
				continue
			}
			claimed[loc[2]] = true
			out = append(out, birthdate{date: d, raw: raw, start: loc[2], marker: true})
		}
	}
	for _, pat := range birthdatePatterns {
		for _, loc := range pat.re.FindAllStringIndex(text, -1) {
			if claimed[loc[0]] {
				continue
			}
			raw := text[loc[0]:loc[1]]
			d, ok := parseBirthdate(pat, raw)
			if !ok {
				continue
			}
			out = append(out, birthdate{date: d, raw: raw, start: loc[0]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].marker != out[j].marker {
			return out[i].marker
		}
		return out[i].start < out[j].start
	})
	return out
}

func parseBirthdate(pat birthdatePattern, raw string) (time.Time, bool) {
	d, err := time.Parse(pat.layout, pat.canonical(raw))
	if err != nil {
		return time.Time{}, false
	}
	if d.Year() < 1900 || d.After(time.Now()) {
		return time.Time{}, false
	}
	return d, true
}
