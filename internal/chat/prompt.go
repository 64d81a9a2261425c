package chat

import "strings"

const contextSeparator = "\n\n---\n\n"

// ComposePrompt places retrieved chunks ahead of the question. Without
// chunks the prompt is the question alone.
func ComposePrompt(query string, chunks []string) string {
	if len(chunks) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString("Use the following pieces of context to answer the question at the end. ")
	b.WriteString("If you don't know the answer, say that you don't know.\n\n")
	b.WriteString(strings.Join(chunks, contextSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
