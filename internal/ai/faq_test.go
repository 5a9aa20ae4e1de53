package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAQ_MatchesKeywords(t *testing.T) {
	f := NewFAQ(DefaultFAQ)

	cases := map[string]string{
		"What is the ELIGIBILITY criteria?":  "Minimum eligibility is 60% in 12th.",
		"which documents do I need":          "Documents: 10th Marksheet, 12th Marksheet, Aadhaar, TC",
		"what is the last date to apply?":    "Admission last date is 31 July.",
		"Is there a deadline for admission?": "Admission last date is 31 July.",
	}
	for prompt, want := range cases {
		got, err := f.Ask(context.Background(), prompt, "")
		require.NoError(t, err, prompt)
		assert.Equal(t, want, got, prompt)
	}
}

func TestFAQ_NoMatch(t *testing.T) {
	_, err := NewFAQ(DefaultFAQ).Ask(context.Background(), "Is there a swimming pool?", "")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonNoMatch, f.Reason)
}

func TestFAQ_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFAQ(DefaultFAQ).Ask(ctx, "eligibility", "")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonCanceled, f.Reason)
}
