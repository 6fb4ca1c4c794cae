package content

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestThoughtIsWellFormed(t *testing.T) {
	g := New(WithRand(rand.New(rand.NewPCG(1, 2))))

	for i := 0; i < 500; i++ {
		th := g.Thought()
		if !strings.HasSuffix(th, Suffix) {
			t.Fatalf("thought %q missing suffix", th)
		}
		if strings.Contains(th, Placeholder) {
			t.Fatalf("thought %q still has placeholder", th)
		}

		body := strings.TrimSuffix(th, Suffix)
		matched := 0
		for _, topic := range topics {
			for _, tmpl := range templates {
				if strings.Replace(tmpl, Placeholder, topic, 1) == body {
					matched++
				}
			}
		}
		if matched != 1 {
			t.Fatalf("thought %q matched %d template/topic pairs", th, matched)
		}
	}
}

func TestThoughtCoversPools(t *testing.T) {
	g := New(WithRand(rand.New(rand.NewPCG(7, 7))))
	seen := map[string]bool{}
	for i := 0; i < 2000; i++ {
		th := g.Thought()
		for _, topic := range topics {
			if strings.Contains(th, topic) {
				seen[topic] = true
			}
		}
	}
	if len(seen) != len(topics) {
		t.Fatalf("expected every topic to be drawn, saw %d of %d", len(seen), len(topics))
	}
}

func TestReplyPrecedence(t *testing.T) {
	g := New()
	cases := []struct {
		in   string
		want string
	}{
		{"Hello agent", GreetingReply},
		{"HI THERE", GreetingReply},
		{"this is a test", GreetingReply}, // "this" contains "hi"
		{"hi, what's your status?", GreetingReply},
		{"Status report please", StatusReply},
		{"status and help", StatusReply},
		{"need HELP", HelpReply},
		{"random words", FallbackReply},
		{"", FallbackReply},
	}
	for _, tc := range cases {
		if got := g.Reply(tc.in); got != tc.want {
			t.Fatalf("Reply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWithRulesOverridesTable(t *testing.T) {
	g := New(WithRules([]Rule{
		{Any: []string{"ping"}, Response: "pong"},
		{Any: []string{"", "  "}, Response: "never"},
	}))
	if got := g.Reply("PING?"); got != "pong" {
		t.Fatalf("expected pong, got %q", got)
	}
	if got := g.Reply("hello"); got != FallbackReply {
		t.Fatalf("expected fallback with replaced table, got %q", got)
	}
}

func TestPoolsAreCopies(t *testing.T) {
	tp := Topics()
	tp[0] = "mutated"
	if topics[0] == "mutated" {
		t.Fatal("Topics must return a copy")
	}
	if len(Templates()) != len(templates) {
		t.Fatal("unexpected template count")
	}
}
