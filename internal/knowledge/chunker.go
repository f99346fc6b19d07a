package knowledge

// DefaultChunkLength is the default maximum chunk size in runes.
// Matches the upstream embedding model's comfortable input size; the
// configured value is validated in config, this is only the fallback.
const DefaultChunkLength = 500

// Split cuts content into consecutive, non-overlapping pieces of at most
// maxLength runes each. The final piece may be shorter. Empty content
// yields nil. Concatenating the result in order reproduces content
// exactly.
//
// Splitting operates on runes, not bytes, so multi-byte UTF-8 sequences
// are never cut in half. maxLength is validated by config; a
// non-positive value here degrades to a single piece rather than
// looping forever.
func Split(content string, maxLength int) []string {
	if content == "" {
		return nil
	}
	if maxLength <= 0 {
		return []string{content}
	}

	runes := []rune(content)
	pieces := make([]string, 0, (len(runes)+maxLength-1)/maxLength)
	for start := 0; start < len(runes); start += maxLength {
		end := min(start+maxLength, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
