package knowledge

import "testing"

func TestAssembleContext(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		question string
		want     string
	}{
		{
			name:     "two chunks",
			contents: []string{"A", "B"},
			question: "Why?",
			want:     "A\nB\n\nQuestion: Why?",
		},
		{
			name:     "single chunk",
			contents: []string{"context text"},
			question: "What is it?",
			want:     "context text\n\nQuestion: What is it?",
		},
		{
			name:     "no chunks still carries the question",
			contents: nil,
			question: "Anything?",
			want:     "\n\nQuestion: Anything?",
		},
		{
			name:     "chunk order preserved",
			contents: []string{"third", "first", "second"},
			question: "q",
			want:     "third\nfirst\nsecond\n\nQuestion: q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([]Chunk, len(tt.contents))
			for i, c := range tt.contents {
				chunks[i] = Chunk{Content: c, Order: i}
			}

			if got := AssembleContext(chunks, tt.question); got != tt.want {
				t.Errorf("AssembleContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssembleContext_Deterministic(t *testing.T) {
	chunks := []Chunk{{Content: "a"}, {Content: "b"}}

	first := AssembleContext(chunks, "q")
	for range 10 {
		if got := AssembleContext(chunks, "q"); got != first {
			t.Fatal("AssembleContext is not deterministic")
		}
	}
}
