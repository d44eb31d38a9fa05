// Package chunk splits long outbound text into platform-sized messages.
package chunk

import "strings"

// Split breaks msg into pieces no longer than maxLen, preferring to cut at a
// newline when one falls in the second half of the window. Concatenating the
// returned chunks reproduces msg exactly.
func Split(msg string, maxLen int) []string {
	if maxLen <= 0 || len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
