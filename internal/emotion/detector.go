package emotion

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/metrics"
)

const (
	// MinTextLength is the shortest input, in runes after trimming, worth analyzing
	MinTextLength = 20
	// MaxScheduleItems caps how many emotions one sample can schedule
	MaxScheduleItems = 4
	// DefaultThrottle is the probability that an analyzed sample may schedule
	DefaultThrottle = 0.70
)

// Schedule timing bounds
const (
	baseDuration = 2000 * time.Millisecond
	durationSpan = 3000 * time.Millisecond
	jitter       = 500 * time.Millisecond
	minDuration  = 2000 * time.Millisecond
	maxDuration  = 5000 * time.Millisecond
	minGap       = 300 * time.Millisecond
	maxGap       = 3000 * time.Millisecond
)

// MaxScheduleSpan is the longest a full schedule can run
const MaxScheduleSpan = MaxScheduleItems*maxDuration + (MaxScheduleItems-1)*maxGap

// Score is the hit count for one emotion
type Score struct {
	Emotion expression.ID `json:"emotion"`
	Hits    int           `json:"hits"`
}

// Item is one timed expression in a schedule
type Item struct {
	Emotion  expression.ID
	Delay    time.Duration
	Duration time.Duration
}

// MarshalJSON writes delay and duration in milliseconds
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Emotion  expression.ID `json:"emotion"`
		Delay    int64         `json:"delayMs"`
		Duration int64         `json:"durationMs"`
	}{i.Emotion, i.Delay.Milliseconds(), i.Duration.Milliseconds()})
}

// Result is a detector verdict: the dominant emotion and the schedule to play
type Result struct {
	Dominant expression.ID `json:"dominant"`
	Scores   []Score       `json:"scores"`
	Schedule []Item        `json:"schedule"`
}

// Outcome explains why Analyze did or did not produce a result
type Outcome string

const (
	OutcomeShort     Outcome = "short"
	OutcomeThrottled Outcome = "throttled"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeScheduled Outcome = "scheduled"
)

// Options configure a Detector
type Options struct {
	// Throttle is the probability in [0,1] that a sample may schedule
	Throttle float64
	Rand     *rand.Rand
}

// Detector scores text against a keyword dictionary. It is safe for
// concurrent use; the dictionary can be swapped while running.
type Detector struct {
	log zerolog.Logger

	mu       sync.RWMutex
	dict     compiled
	throttle float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDetector compiles dict into a detector
func NewDetector(dict Dictionary, opts Options, logger zerolog.Logger) (*Detector, error) {
	c, err := compile(dict)
	if err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Detector{
		log:      logger.With().Str("component", "emotion").Logger(),
		dict:     c,
		throttle: clamp01(opts.Throttle),
		rng:      opts.Rand,
	}, nil
}

// SetDictionary replaces the keyword sets
func (d *Detector) SetDictionary(dict Dictionary) error {
	c, err := compile(dict)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.dict = c
	d.mu.Unlock()
	d.log.Info().Int("emotions", len(c)).Msg("Keyword dictionary loaded")
	return nil
}

// SetThrottle changes the schedule probability
func (d *Detector) SetThrottle(p float64) {
	d.mu.Lock()
	d.throttle = clamp01(p)
	d.mu.Unlock()
}

// Score counts keyword hits per emotion. Emotions without hits are dropped;
// the rest are sorted by hits descending with ties in dictionary order.
func (d *Detector) Score(text string) []Score {
	lower := strings.ToLower(text)

	d.mu.RLock()
	dict := d.dict
	d.mu.RUnlock()

	var scores []Score
	for _, e := range dict {
		if hits := e.count(lower); hits > 0 {
			scores = append(scores, Score{Emotion: e.emotion, Hits: hits})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Hits > scores[j].Hits })
	return scores
}

// Analyze scores text and builds a schedule. It returns nil for short text, a
// throttled sample, or text without keyword hits.
func (d *Detector) Analyze(text string) *Result {
	res, outcome := d.AnalyzeWithOutcome(text)
	metrics.EmotionSchedules.WithLabelValues(string(outcome)).Inc()
	return res
}

// AnalyzeWithOutcome is Analyze that also reports why no result was produced
func (d *Detector) AnalyzeWithOutcome(text string) (*Result, Outcome) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinTextLength {
		return nil, OutcomeShort
	}

	d.mu.RLock()
	throttle := d.throttle
	d.mu.RUnlock()

	d.rngMu.Lock()
	roll := d.rng.Float64()
	d.rngMu.Unlock()
	if roll >= throttle {
		d.log.Debug().Float64("roll", roll).Msg("Emotion sample throttled")
		return nil, OutcomeThrottled
	}

	scores := d.Score(trimmed)
	if len(scores) == 0 {
		return nil, OutcomeNoMatch
	}

	d.rngMu.Lock()
	schedule := BuildSchedule(scores, d.rng)
	d.rngMu.Unlock()

	d.log.Debug().
		Str("dominant", string(scores[0].Emotion)).
		Int("hits", scores[0].Hits).
		Int("items", len(schedule)).
		Msg("Emotion schedule built")

	return &Result{Dominant: scores[0].Emotion, Scores: scores, Schedule: schedule}, OutcomeScheduled
}

// BuildSchedule lays out the top emotions back to back. Durations scale with
// each emotion's hits relative to the top score; gaps are random. scores must
// already be sorted.
func BuildSchedule(scores []Score, rng *rand.Rand) []Item {
	if len(scores) == 0 {
		return nil
	}
	if len(scores) > MaxScheduleItems {
		scores = scores[:MaxScheduleItems]
	}
	top := scores[0].Hits
	if top <= 0 {
		return nil
	}

	items := make([]Item, 0, len(scores))
	var delay time.Duration
	for i, s := range scores {
		if i > 0 {
			prev := items[i-1]
			gap := minGap + time.Duration(rng.Int63n(int64(maxGap-minGap)+1))
			delay = prev.Delay + prev.Duration + gap
		}
		ratio := float64(s.Hits) / float64(top)
		d := baseDuration + time.Duration(math.Floor(ratio*float64(durationSpan.Milliseconds())))*time.Millisecond
		d += time.Duration(rng.Int63n(int64(2*jitter)+1)) - jitter
		if d < minDuration {
			d = minDuration
		}
		if d > maxDuration {
			d = maxDuration
		}
		items = append(items, Item{Emotion: s.Emotion, Delay: delay, Duration: d})
	}
	return items
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
