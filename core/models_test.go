package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "handbook.md",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "a much longer filename that should still hash consistently.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("policy.pdf")
	id2 := IDFromContent("policy.md")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunk_Embedded(t *testing.T) {
	chunk := &Chunk{Content: "some text"}
	if chunk.Embedded() {
		t.Error("chunk without vector reported as embedded")
	}

	chunk.Vector = []float32{0.1, 0.2, 0.3}
	if !chunk.Embedded() {
		t.Error("chunk with vector reported as not embedded")
	}
}
