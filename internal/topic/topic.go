// Package topic decides whether inbound text is casual chit-chat or a
// substantive learning request, and derives a short canonical topic string
// from substantive text. Everything here is deterministic and free of I/O
// so it can be unit-tested without a network or cache dependency.
package topic

import (
	"regexp"
	"strings"
)

// Closed set of greeting/closing/acknowledgement tokens. Matching is by
// substring on the lowercased text so multi-word tokens like "thank you"
// are caught.
var casualTokens = []string{
	"hi", "hello", "hey", "thanks", "thank you", "bye", "goodbye", "ok", "okay",
}

var (
	leadingPrefix = regexp.MustCompile(`^(explain|tell|teach|show|what|how|where|when|why|can you)\s+(me\s+)?(about\s+)?`)
	leadingAux    = regexp.MustCompile(`^(is|are|does|do)\s+`)
	trailingQuery = regexp.MustCompile(`\?+$`)
)

// HasCasualToken reports whether the text contains any casual token,
// regardless of length. Used to suppress assessment offers for inputs that
// mix a greeting into a longer request.
func HasCasualToken(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, tok := range casualTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// IsCasual reports whether the text is casual: it contains a casual token
// and is at most three whitespace-delimited words long.
func IsCasual(text string) bool {
	return HasCasualToken(text) && len(strings.Fields(text)) <= 3
}

// Extract derives a canonical topic from raw user text: lowercase, strip a
// leading interrogative/imperative prefix, strip a leading auxiliary verb,
// strip trailing question marks, and cap at six words. If that leaves
// nothing usable the original input is used instead, capped at four words.
func Extract(text string) string {
	topic := strings.ToLower(text)
	topic = leadingPrefix.ReplaceAllString(topic, "")
	topic = leadingAux.ReplaceAllString(topic, "")
	topic = trailingQuery.ReplaceAllString(topic, "")
	topic = strings.TrimSpace(topic)

	if words := strings.Fields(topic); len(words) > 6 {
		topic = strings.Join(words[:6], " ")
	}

	if topic == "" || len(topic) < 3 {
		topic = strings.TrimSpace(text)
		if words := strings.Fields(topic); len(words) > 4 {
			topic = strings.Join(words[:4], " ")
		}
	}

	return topic
}

// Normalize converts a topic into its store key form: lowercased with
// spaces replaced by underscores.
func Normalize(topic string) string {
	return strings.ToLower(strings.ReplaceAll(topic, " ", "_"))
}
