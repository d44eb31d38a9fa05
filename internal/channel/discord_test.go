package channel

import (
	"strings"
	"testing"
)

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("short message", 100)
	if len(chunks) != 1 || chunks[0] != "short message" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("line of text\n", 400) // ~5200 chars
	chunks := splitMessage(long, discordMaxMsgLen)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > discordMaxMsgLen {
			t.Fatalf("chunk %d exceeds discord limit: %d", i, len(c))
		}
	}
	if strings.Join(chunks, "") != long {
		t.Fatal("concatenated chunks do not reproduce the input")
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	chunks := splitMessage("", 100)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Fatalf("expected single empty chunk, got %v", chunks)
	}
}
