// Package prompt renders the context-only question answering prompt.
package prompt

import (
	"strings"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Placeholders substituted by Build.
const (
	ContextPlaceholder  = "{context}"
	QuestionPlaceholder = "{question}"
)

// DefaultTemplate instructs the model to answer from the retrieved rulebook text only.
const DefaultTemplate = `
Answer the question based ONLY on the following context. If the context doesn't contain enough information to answer the question, say so clearly.

Context:
{context}

---

Question: {question}

Instructions:
- Answer based ONLY on the provided context
- If the context doesn't contain the answer, say "The provided context doesn't contain enough information to answer this question"
- Do not use any external knowledge
- Be specific and accurate
`

// Template is a parsed prompt template.
type Template struct {
	text string
}

// New parses a template. Both placeholders must be present.
func New(text string) (Template, error) {
	if err := validate(text); err != nil {
		return Template{}, err
	}
	return Template{text: text}, nil
}

// Default returns the built-in template.
func Default() Template {
	return Template{text: DefaultTemplate}
}

// Text returns the raw template text.
func (t Template) Text() string { return t.text }

// Build substitutes context and question in a single pass,
// so placeholder-like text inside either value is left untouched.
func (t Template) Build(contextText, question string) (string, error) {
	if err := validate(t.text); err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		ContextPlaceholder, contextText,
		QuestionPlaceholder, question,
	)
	return r.Replace(t.text), nil
}

func validate(text string) error {
	for _, p := range []string{ContextPlaceholder, QuestionPlaceholder} {
		if !strings.Contains(text, p) {
			return domain.NewFormatError(p)
		}
	}
	return nil
}
