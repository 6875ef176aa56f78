package gather

import (
	"time"

	"github.com/devraulu/tabseek/pkg/candidate"
	"github.com/devraulu/tabseek/pkg/host"
)

type Status int

const (
	// Scraped tabs carry extracted text.
	Scraped Status = iota
	// Skipped tabs are restricted pages; no extraction was attempted.
	Skipped
	// Degraded tabs timed out or failed extraction and carry empty text.
	Degraded
	// Failed tabs produced no candidate.
	Failed
)

func (s Status) String() string {
	switch s {
	case Scraped:
		return "scraped"
	case Skipped:
		return "skipped"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type TabResult struct {
	Tab       host.Tab
	Candidate candidate.Candidate
	Status    Status
	Err       error
}

type Stats struct {
	StartTime time.Time
	Elapsed   time.Duration
	Scraped   int
	Skipped   int
	Degraded  int
	Failed    int
}

func (s *Stats) count(st Status) {
	switch st {
	case Scraped:
		s.Scraped++
	case Skipped:
		s.Skipped++
	case Degraded:
		s.Degraded++
	case Failed:
		s.Failed++
	}
}

type TabBatch struct {
	Results []TabResult
	Stats   Stats
}

// Candidates returns every tab that produced a candidate, in tab order.
func (b TabBatch) Candidates() []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Status == Failed {
			continue
		}
		out = append(out, r.Candidate)
	}
	return out
}
