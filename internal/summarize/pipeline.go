package summarize

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTitleWords caps the shortened title length.
	DefaultTitleWords = 5

	truncationFallbackRunes = 200
	titleFallbackRunes      = 20
)

// Content summarizes a full article body. The body is chunked at sentence
// boundaries, each chunk is summarized in order and the summaries are joined
// with newlines. A chunk whose summarization fails degrades to a local
// truncation of the chunk.
func Content(ctx context.Context, s Summarizer, fullText string) string {
	chunks := ChunkText(fullText, DefaultChunkSize)

	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summary, err := s.Summarize(ctx, chunk)
		if err != nil {
			log.Warn().Err(err).Int("chunk_runes", len([]rune(chunk))).Msg("Summarization failed, falling back to truncation")
			summary = truncate(chunk, truncationFallbackRunes)
		}
		summaries = append(summaries, summary)
	}

	return strings.Join(summaries, "\n")
}

// ShortKoreanTitle produces a short Korean title. Latin-dominant titles are
// translated to Korean first; either way the result is shortened to at most
// maxWords words. Failures degrade locally: a failed translation keeps the
// original, a failed shortening keeps the first words (Latin) or a short
// prefix (Hangul).
func ShortKoreanTitle(ctx context.Context, s Summarizer, title string, maxWords int) string {
	if title == "" {
		return title
	}
	if maxWords <= 0 {
		maxWords = DefaultTitleWords
	}

	if IsLatinDominant(title) {
		translated, err := s.Translate(ctx, title)
		if err != nil {
			log.Warn().Err(err).Str("title", title).Msg("Title translation failed, keeping original")
		} else {
			log.Debug().Str("from", title).Str("to", translated).Msg("Translated title")
			title = translated
		}
	}

	short, err := s.ShortenTitle(ctx, title, maxWords)
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Title shortening failed, using local fallback")
		return shortenFallback(title, maxWords)
	}
	return short
}

func shortenFallback(title string, maxWords int) string {
	if IsLatinDominant(title) {
		words := strings.Fields(title)
		if len(words) > maxWords {
			words = words[:maxWords]
		}
		return strings.Join(words, " ")
	}
	return truncate(title, titleFallbackRunes)
}

func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
