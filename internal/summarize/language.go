package summarize

// IsLatinDominant reports whether the text contains strictly more ASCII
// letters than Hangul runes. Ties favor no translation.
func IsLatinDominant(text string) bool {
	var latin, hangul int
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		case (r >= 0x3131 && r <= 0x318E) || (r >= 0xAC00 && r <= 0xD7A3):
			// Hangul compatibility jamo and precomposed syllables
			hangul++
		}
	}
	return latin > hangul
}
