package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devraulu/tabseek/pkg/candidate"
)

func TestDescribeHighlightsMatch(t *testing.T) {
	r := Result{Candidate: candidate.Candidate{ID: "1", Title: "GitHub", URL: "https://github.com"}}

	assert.Equal(t,
		"<match>Git</match>Hub <dim>-</dim> <url>https://github.com</url>",
		Describe(r, "git"))
}

func TestDescribeEscapes(t *testing.T) {
	r := Result{Candidate: candidate.Candidate{
		ID:    "1",
		Title: "Q&A <beta>",
		URL:   "https://example.com/?a=1&b=2",
	}}

	assert.Equal(t,
		"Q&amp;A &lt;beta&gt; <dim>-</dim> <url>https://example.com/?a=1&amp;b=2</url>",
		Describe(r, ""))
}

func TestDescribeHistoryWithoutTitle(t *testing.T) {
	r := Result{Candidate: candidate.Candidate{
		ID:        "history-https://go.dev/",
		URL:       "https://go.dev/",
		IsHistory: true,
	}}

	assert.Equal(t, "https://go.dev/ <dim>(history)</dim>", Describe(r, "zzz"))
}
