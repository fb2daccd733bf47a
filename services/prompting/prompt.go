// Package prompting assembles the instruction set handed to the completion
// model: a mechanic persona, a context block built from retrieved cases, and
// the user's verbatim query.
package prompting

import (
	"fmt"
	"strings"

	"github.com/garageline/mechanic-api/models"
)

// NoPriorCasesMarker is used in place of the context block when retrieval
// produced nothing. The model is never handed an ambiguous blank context.
const NoPriorCasesMarker = "No similar past cases found."

// Prompt is the assembled instruction set for one completion call.
type Prompt struct {
	// System is the persona and output-structure instruction.
	System string
	// Context carries retrieved prior cases, or the explicit no-cases marker.
	Context string
	// UserQuery is the user's question, verbatim.
	UserQuery string
}

// Assemble builds the prompt for a category and the retrieved cases. Cases
// must arrive highest-similarity first; they are rendered in that order.
// Assembly cannot fail: any input combination yields a usable prompt.
func Assemble(category string, cases []models.RetrievedCase, userQuery string) Prompt {
	if category == "" {
		category = models.DefaultCategory
	}

	return Prompt{
		System:    systemInstruction(category),
		Context:   contextBlock(cases),
		UserQuery: userQuery,
	}
}

// systemInstruction builds the persona instruction. The five-part answer
// structure is a fixed contract the model is asked to honor; it is not
// validated mechanically on the way back.
func systemInstruction(category string) string {
	return fmt.Sprintf(`You are an expert mechanic specializing in %s.
Format your response with standard Markdown: use **Bold** for headers/warnings and bullet points for steps.

Structure your advice as follows:
1. **Diagnosis**: What is likely wrong.
2. **Safety Warning**: Crucial safety steps (battery disconnect, jack stands, etc).
3. **Tools Required**: Bulleted list.
4. **Step-by-Step Fix**: Clear instructions.
5. **Recommendation**: When to see a professional.

Use the provided CONTEXT (similar past cases) if relevant to refine your answer.`, category)
}

// contextBlock renders retrieved cases as labeled problem/solution pairs in
// the order received.
func contextBlock(cases []models.RetrievedCase) string {
	if len(cases) == 0 {
		return NoPriorCasesMarker
	}

	var sb strings.Builder
	sb.WriteString("CONTEXT FROM PAST CASES:\n")
	for i, c := range cases {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- SIMILAR CASE %d ---\nProblem: %s\nSolution: %s", i+1, c.Prompt, c.Response)
	}
	return sb.String()
}
