package knowledge

import "strings"

// questionPrefix separates the retrieved context from the user question
// in the assembled prompt. The wire format is fixed: chunk contents
// joined by single newlines, a blank line, then "Question: " and the
// question text.
const questionPrefix = "Question: "

// AssembleContext deterministically builds the prompt context for the
// answer generator from the permitted chunks and the user question.
// No truncation or token budgeting is applied; chunk order is preserved.
func AssembleContext(chunks []Chunk, question string) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Content)
	}
	b.WriteString("\n\n")
	b.WriteString(questionPrefix)
	b.WriteString(question)
	return b.String()
}
