package summarize

import "strings"

// DefaultChunkSize is the maximum chunk length in runes passed to the model.
const DefaultChunkSize = 2500

// ChunkText splits text into ordered chunks of at most maxRunes runes each.
// Chunks break at sentence boundaries where one exists; a single sentence
// longer than maxRunes is hard-split.
func ChunkText(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultChunkSize
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	var current []rune

	for _, sentence := range splitSentences(text) {
		runes := []rune(sentence)

		// Hard-split sentences that exceed the chunk size on their own.
		for len(runes) > maxRunes {
			if len(current) > 0 {
				chunks = append(chunks, strings.TrimSpace(string(current)))
				current = current[:0]
			}
			chunks = append(chunks, strings.TrimSpace(string(runes[:maxRunes])))
			runes = runes[maxRunes:]
		}

		if len(current)+len(runes) > maxRunes && len(current) > 0 {
			chunks = append(chunks, strings.TrimSpace(string(current)))
			current = current[:0]
		}
		current = append(current, runes...)
	}

	if trimmed := strings.TrimSpace(string(current)); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}

// splitSentences cuts text after sentence-terminating punctuation or a
// newline, keeping the terminator with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current []rune

	for _, r := range text {
		current = append(current, r)
		switch r {
		case '.', '!', '?', '\n':
			sentences = append(sentences, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, string(current))
	}

	return sentences
}
