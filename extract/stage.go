package extract

import (
	"context"
	"log/slog"

	"github.com/use-agent/shelfscout/storage"
)

// Stage is the whole extraction step over one persisted artifact.
type Stage struct {
	Store    *storage.Store
	Pipeline *Pipeline
}

// Output describes what a Stage run wrote.
type Output struct {
	Path   string
	Cards  int
	Report *Report
}

// Run reads the named artifact, selects its cards by class, extracts them
// and writes the records file. Nothing is written when no card matches.
func (s *Stage) Run(ctx context.Context, artifact, class string) (*Output, error) {
	html, err := s.Store.ReadCards(artifact)
	if err != nil {
		return nil, err
	}

	cards, err := SelectCards(html, class)
	if err != nil {
		return nil, err
	}
	slog.Info("cards selected", "artifact", artifact, "class", class, "count", len(cards))

	report, err := s.Pipeline.Run(ctx, cards)
	if err != nil {
		return &Output{Cards: len(cards), Report: report}, err
	}

	path, err := s.Store.WriteRecords(artifact, report.Records)
	if err != nil {
		return &Output{Cards: len(cards), Report: report}, err
	}
	return &Output{Path: path, Cards: len(cards), Report: report}, nil
}
