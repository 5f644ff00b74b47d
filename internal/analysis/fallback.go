package analysis

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

const maxDerivedTopics = 5

// deriveTopics builds a topic set from the question itself when the analyzer
// omits one. Named entities first, then plain nouns.
func deriveTopics(question string) []string {
	doc, err := prose.NewDocument(question)
	if err != nil {
		return []string{}
	}

	seen := map[string]bool{}
	topics := []string{}

	add := func(text string) {
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" || seen[text] || len(topics) >= maxDerivedTopics {
			return
		}
		seen[text] = true
		topics = append(topics, text)
	}

	for _, ent := range doc.Entities() {
		add(ent.Text)
	}
	for _, tok := range doc.Tokens() {
		if strings.HasPrefix(tok.Tag, "NN") {
			add(tok.Text)
		}
	}

	return topics
}
