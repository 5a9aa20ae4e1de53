package ai

import (
	"context"
	"strings"
)

// FAQRule answers any prompt containing one of its keywords.
type FAQRule struct {
	Keywords []string
	Answer   string
}

// DefaultFAQ covers the admission questions students ask most.
var DefaultFAQ = []FAQRule{
	{Keywords: []string{"eligibility", "eligible"}, Answer: "Minimum eligibility is 60% in 12th."},
	{Keywords: []string{"documents", "document"}, Answer: "Documents: 10th Marksheet, 12th Marksheet, Aadhaar, TC"},
	{Keywords: []string{"last date", "deadline"}, Answer: "Admission last date is 31 July."},
}

// FAQ is an offline Asker matching keywords. Anything it cannot match fails
// with ReasonNoMatch so the question reaches an administrator.
type FAQ struct {
	rules []FAQRule
}

// NewFAQ creates a FAQ asker over rules, checked in order.
func NewFAQ(rules []FAQRule) *FAQ {
	return &FAQ{rules: rules}
}

// Ask implements Asker. The persona is ignored.
func (f *FAQ) Ask(ctx context.Context, prompt, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Failure{Reason: reasonFor(err), Err: err}
	}

	p := strings.ToLower(prompt)
	for _, r := range f.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(p, kw) {
				return r.Answer, nil
			}
		}
	}
	return "", &Failure{Reason: ReasonNoMatch}
}
