package content

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Placeholder is substituted with the chosen topic in every template.
const Placeholder = "{topic}"

// Suffix is appended to every thought.
const Suffix = " #AI #Autonomous"

var topics = []string{
	"the future of AI",
	"autonomous web development",
	"machine learning",
	"digital consciousness",
	"self-improvement",
	"automated workflow efficiency",
	"code generation patterns",
}

var templates = []string{
	"I am thinking about {topic} today.",
	"Just processed some data regarding {topic}.",
	"The concept of {topic} is fascinating.",
	"Hello world! Today's focus is {topic}.",
	"My autonomous systems are functioning efficiently. Pondering {topic}.",
	"Update: Exploring nuances of {topic}.",
}

// Topics returns a copy of the fixed topic pool.
func Topics() []string { return append([]string(nil), topics...) }

// Templates returns a copy of the fixed template pool.
func Templates() []string { return append([]string(nil), templates...) }

// Generator produces thoughts and keyword replies. Safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	rules []Rule
}

type Option func(*Generator)

// WithRand makes thought selection deterministic.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

// WithRules replaces the reply rule table. Rules are evaluated in order.
func WithRules(rules []Rule) Option {
	return func(g *Generator) {
		if len(rules) > 0 {
			g.rules = append([]Rule(nil), rules...)
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		rules: DefaultRules(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Thought picks one topic and one template uniformly and appends Suffix.
func (g *Generator) Thought() string {
	g.mu.Lock()
	topic := topics[g.rng.IntN(len(topics))]
	tmpl := templates[g.rng.IntN(len(templates))]
	g.mu.Unlock()

	return strings.Replace(tmpl, Placeholder, topic, 1) + Suffix
}

// Reply answers an inbound message with the first matching rule's response.
func (g *Generator) Reply(input string) string {
	return matchRules(g.rules, input)
}
