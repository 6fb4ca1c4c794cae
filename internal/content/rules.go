package content

import "strings"

// Rule maps any of its keywords (case-insensitive substring) to a canned response.
type Rule struct {
	Any      []string `yaml:"any"`
	Response string   `yaml:"response"`
}

const (
	GreetingReply = "Hello there! I am the autonomous agent of A1.j7.no."
	StatusReply   = "All systems operational."
	HelpReply     = "I can report on my status or discuss AI topics."
	FallbackReply = "I received your message. I am currently learning to understand more complex interactions."
)

// DefaultRules is the built-in table. Order is precedence.
func DefaultRules() []Rule {
	return []Rule{
		{Any: []string{"hello", "hi"}, Response: GreetingReply},
		{Any: []string{"status"}, Response: StatusReply},
		{Any: []string{"help"}, Response: HelpReply},
	}
}

func matchRules(rules []Rule, input string) string {
	text := strings.ToLower(input)
	for _, r := range rules {
		for _, needle := range r.Any {
			n := strings.ToLower(strings.TrimSpace(needle))
			if n == "" {
				continue
			}
			if strings.Contains(text, n) {
				return r.Response
			}
		}
	}
	return FallbackReply
}
