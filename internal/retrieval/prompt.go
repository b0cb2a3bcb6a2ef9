package retrieval

import (
	"fmt"
	"strings"
)

// BuildPrompt composes the grounding instruction, the retrieved passages with
// their source metadata, and the literal user question. Pure function: same
// records and question always produce the same prompt, so it is testable
// without a live provider.
func BuildPrompt(question string, docs []SearchResult) string {
	var sb strings.Builder

	sb.WriteString("You are answering questions about an uploaded document. ")
	sb.WriteString("Answer using only the context passages below, in plain prose without markdown or other markup. ")
	sb.WriteString("If the context does not contain the answer, say that the answer is not found in the document. ")
	sb.WriteString("Do not use outside knowledge.\n\n")

	if len(docs) == 0 {
		sb.WriteString("Context: no matching passages were found in the document. ")
		sb.WriteString("Tell the user the answer is not found in the document.\n")
	} else {
		sb.WriteString("Context:\n")
		for i, d := range docs {
			fmt.Fprintf(&sb, "[%d] (page %d of %d)\n%s\n\n", i+1, d.PageNumber, d.TotalPages, d.Text)
		}
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
