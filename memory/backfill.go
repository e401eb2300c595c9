package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/calyptra/memtide/ai"
	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/store"
)

// previewLimit is how many candidates a dry run prints before summarizing.
const previewLimit = 5

// BackfillOptions are the operator-supplied parameters for one backfill run.
type BackfillOptions struct {
	From          string // date (2006-01-02) or RFC 3339 date-time
	To            string
	PersonalityID string // optional scope filter, empty means all
	DryRun        bool
	Force         bool // skip the production confirmation prompt
}

// BackfillReport is the final summary of one backfill run.
type BackfillReport struct {
	Candidates int // unique candidates after dedupe
	Inserted   int
	Skipped    int // already present
	Failed     int
	DryRun     bool
}

// BackfillPipeline orchestrates history read → sort → pair → dedupe →
// embed+insert for a time range.
type BackfillPipeline struct {
	profile  *profile.Profile
	store    *store.Store
	embedder ai.EmbeddingService

	// Confirm and Out default to the terminal; tests inject their own.
	Confirm ConfirmFunc
	Out     io.Writer
}

// NewBackfillPipeline creates a pipeline. The embedder may be nil for
// dry runs, which never touch the embedding service.
func NewBackfillPipeline(p *profile.Profile, s *store.Store, embedder ai.EmbeddingService) *BackfillPipeline {
	return &BackfillPipeline{
		profile:  p,
		store:    s,
		embedder: embedder,
		Confirm:  TerminalConfirm,
		Out:      os.Stdout,
	}
}

// Run executes one backfill. The time range is validated before any store
// access; a dry run prints a bounded preview and performs no mutation at all.
func (p *BackfillPipeline) Run(ctx context.Context, opts BackfillOptions) (*BackfillReport, error) {
	fromTs, toTs, err := parseRange(opts.From, opts.To)
	if err != nil {
		return nil, err
	}

	var personalityID *string
	if opts.PersonalityID != "" {
		personalityID = &opts.PersonalityID
	}

	reader := NewHistoryReader(p.store, p.profile.PageSize)
	records, err := reader.ReadRange(ctx, personalityID, fromTs, toTs)
	if err != nil {
		return nil, err
	}
	slog.Info("history read complete", "rows", len(records))

	SortForPairing(records)
	exchanges := PairExchanges(records)
	set := DedupeExchanges(exchanges)
	slog.Info("candidates prepared", "exchanges", len(exchanges), "unique", set.Len())

	if opts.DryRun {
		p.printPreview(set)
		return &BackfillReport{Candidates: set.Len(), DryRun: true}, nil
	}

	// Nothing to insert: skip the confirmation prompt and the embedding
	// service entirely.
	if set.Len() == 0 {
		return &BackfillReport{}, nil
	}

	if p.profile.IsProd() && !opts.Force {
		prompt := fmt.Sprintf("insert up to %d memories into production", set.Len())
		if !p.Confirm(prompt) {
			return nil, ErrAborted
		}
	}

	if p.embedder == nil {
		return nil, errors.New("embedding service not configured")
	}
	if err := p.embedder.Init(ctx); err != nil {
		return nil, err
	}

	stats := NewEmbeddingInserter(p.store, p.embedder).InsertAll(ctx, set)

	slog.Info("backfill audit",
		"run_id", shortuuid.New(),
		"environment", p.profile.Mode,
		"timestamp_utc", time.Now().UTC().Format(time.RFC3339),
		"candidates", stats.Total,
		"inserted", stats.Inserted,
		"already_present", stats.Skipped,
		"failed", stats.Failed,
	)

	return &BackfillReport{
		Candidates: stats.Total,
		Inserted:   stats.Inserted,
		Skipped:    stats.Skipped,
		Failed:     stats.Failed,
	}, nil
}

// printPreview writes the first previewLimit candidates and a summary line
// for the rest, so operators can sanity-check before committing.
func (p *BackfillPipeline) printPreview(set *CandidateSet) {
	candidates := set.Candidates()
	fmt.Fprintf(p.Out, "dry run: %d unique memory candidates\n", len(candidates))
	for i, candidate := range candidates {
		if i == previewLimit {
			fmt.Fprintf(p.Out, "...and %d more\n", len(candidates)-previewLimit)
			break
		}
		fmt.Fprintf(p.Out, "  %s  %s\n", candidate.ID, truncate(candidate.Exchange.UserContent, 60))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// rangeLayouts are the accepted time formats, tried in order.
var rangeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseRangeBound(value string) (time.Time, error) {
	for _, layout := range rangeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unparsable time %q, want YYYY-MM-DD or RFC 3339", value)
}

// parseRange validates the [from, to) range and converts it to unix seconds.
// Rejecting a bad range here, before any store access, is the first of the
// pre-flight gates.
func parseRange(from, to string) (int64, int64, error) {
	fromTime, err := parseRangeBound(from)
	if err != nil {
		return 0, 0, errors.Wrap(err, "invalid from")
	}
	toTime, err := parseRangeBound(to)
	if err != nil {
		return 0, 0, errors.Wrap(err, "invalid to")
	}
	if !fromTime.Before(toTime) {
		return 0, 0, errors.Errorf("from %q must be before to %q", from, to)
	}
	return fromTime.Unix(), toTime.Unix(), nil
}
