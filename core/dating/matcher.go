package dating

import (
	"math/rand"
	"strings"
)

var (
	RandFunc    = rand.Float64 // mockable
	ShuffleFunc = rand.Shuffle // mockable
)

// Matcher draws whether a swipe ends in a match.
type Matcher struct {
	LikeProbability      float64
	SuperLikeProbability float64
	draw                 func() float64
}

// NewMatcher returns a Matcher drawing from draw, uniform in [0,1).
// A nil draw uses RandFunc.
func NewMatcher(like, superLike float64, draw func() float64) *Matcher {
	if draw == nil {
		draw = func() float64 { return RandFunc() }
	}
	return &Matcher{LikeProbability: like, SuperLikeProbability: superLike, draw: draw}
}

func (m *Matcher) Probability(action Action) float64 {
	switch action {
	case ActionLike:
		return m.LikeProbability
	case ActionSuperLike:
		return m.SuperLikeProbability
	default:
		return 0
	}
}

// Decide reports a match iff the draw is below the action's probability. Passing never matches.
func (m *Matcher) Decide(action Action) bool {
	p := m.Probability(action)
	if p <= 0 {
		return false
	}
	return m.draw() < p
}

// Deck is the order in which a user is shown profiles.
// It is reshuffled once every profile has been seen.
type Deck struct {
	order []string
	pos   int
}

func NewDeck(ids []string) *Deck {
	d := &Deck{}
	d.reshuffle(ids)
	return d
}

func (d *Deck) reshuffle(ids []string) {
	d.order = append(d.order[:0], ids...)
	ShuffleFunc(len(d.order), func(i, j int) { d.order[i], d.order[j] = d.order[j], d.order[i] })
	d.pos = 0
}

// Peek returns the top profile among candidates, reshuffling the candidates when the deck is exhausted.
// Profiles that are no longer candidates are skipped.
func (d *Deck) Peek(candidates []string) (id string, ok bool) {
	if len(candidates) == 0 {
		return "", false
	}
	valid := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		valid[c] = struct{}{}
	}
	for attempt := 0; attempt < 2; attempt++ {
		for d.pos < len(d.order) {
			if _, isValid := valid[d.order[d.pos]]; isValid {
				return d.order[d.pos], true
			}
			d.pos++
		}
		d.reshuffle(candidates)
	}
	return "", false
}

// Advance moves past id if it is the top profile.
func (d *Deck) Advance(id string) {
	if d.pos < len(d.order) && d.order[d.pos] == id {
		d.pos++
	}
}

// Responder picks canned replies by keyword.
type Responder struct {
	rules    []replyRule
	fallback string
}

type replyRule struct {
	keywords []string
	reply    string
}

func NewResponder() *Responder {
	return &Responder{
		rules: []replyRule{
			{keywords: []string{"hi", "hello", "hey", "hii"}, reply: "Hey! How's your day going?"},
			{keywords: []string{"exam", "class", "lecture", "assignment"}, reply: "Don't remind me, I have an assignment due tomorrow 😅"},
			{keywords: []string{"coffee", "chai", "canteen", "tea"}, reply: "I'd love a chai at the canteen sometime ☕"},
			{keywords: []string{"movie", "film", "music", "song"}, reply: "Ooh, what have you been watching or listening to lately?"},
			{keywords: []string{"fest", "party", "event"}, reply: "Are you going to the fest this weekend?"},
		},
		fallback: "Haha, tell me more!",
	}
}

// Reply returns the reply of the first rule with a keyword among the message words.
func (r *Responder) Reply(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
	})
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			for _, w := range words {
				if w == kw {
					return rule.reply
				}
			}
		}
	}
	return r.fallback
}
