package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/store"
)

// DuplicateReport summarizes one detection pass over the existing store.
type DuplicateReport struct {
	Groups      []*store.DuplicateMemoryGroup
	TotalGroups int
	// TotalToRemove counts redundant records across all groups (every member
	// except each group's canonical newest record).
	TotalToRemove int
	EarliestTs    int64
	LatestTs      int64
	// Truncated is set when the group cap was hit; re-run after cleanup.
	Truncated bool
}

// DuplicateDetector finds groups of memory records that share scope and
// user-content prefix within the retry window. Legitimate identical resends
// outside the window are left alone.
type DuplicateDetector struct {
	store     *store.Store
	window    time.Duration
	maxGroups int
}

// NewDuplicateDetector creates a detector. window bounds the created_ts
// spread of a group; maxGroups caps one run's result to bound query cost.
func NewDuplicateDetector(s *store.Store, window time.Duration, maxGroups int) *DuplicateDetector {
	return &DuplicateDetector{store: s, window: window, maxGroups: maxGroups}
}

// Find runs the grouping query and derives the report. The newest record of
// each group is canonical: it is the one that survived the retry loop and is
// what users actually observed.
func (d *DuplicateDetector) Find(ctx context.Context) (*DuplicateReport, error) {
	// Fetch one extra group to detect truncation.
	groups, err := d.store.FindDuplicateMemoryGroups(ctx, &store.FindDuplicateMemoryGroups{
		PrefixDelimiter: AssistantPrefixDelimiter,
		Window:          d.window,
		Limit:           d.maxGroups + 1,
	})
	if err != nil {
		return nil, err
	}

	report := &DuplicateReport{}
	if len(groups) > d.maxGroups {
		groups = groups[:d.maxGroups]
		report.Truncated = true
	}
	report.Groups = groups
	report.TotalGroups = len(groups)

	for _, group := range groups {
		report.TotalToRemove += len(group.IDsToDelete())
		if report.EarliestTs == 0 || group.FirstCreatedTs < report.EarliestTs {
			report.EarliestTs = group.FirstCreatedTs
		}
		if group.LastCreatedTs > report.LatestTs {
			report.LatestTs = group.LastCreatedTs
		}
	}
	return report, nil
}

// DuplicateCollapser deletes redundant records in fixed-size batches.
type DuplicateCollapser struct {
	store     *store.Store
	batchSize int
}

// NewDuplicateCollapser creates a collapser issuing one delete statement per
// batchSize ids.
func NewDuplicateCollapser(s *store.Store, batchSize int) *DuplicateCollapser {
	return &DuplicateCollapser{store: s, batchSize: batchSize}
}

// Delete removes the given ids batch by batch and returns the summed deleted
// count. Empty input is a no-op with zero store calls. A batch reporting
// fewer deletions than requested just means some ids were already gone.
func (c *DuplicateCollapser) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		n, err := c.store.DeleteMemories(ctx, ids[start:end])
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// CleanupOptions are the operator-supplied parameters for one cleanup run.
type CleanupOptions struct {
	DryRun  bool
	Force   bool // skip the confirmation prompt
	Verbose bool // print one line per group
}

// CleanupReport is the final summary of one cleanup run.
type CleanupReport struct {
	GroupsAffected int
	ToRemove       int
	Deleted        int64
	Truncated      bool
	DryRun         bool
}

// CleanupPipeline orchestrates duplicate detection → preview/confirmation →
// batched deletion with an audit record.
type CleanupPipeline struct {
	profile *profile.Profile
	store   *store.Store

	Confirm ConfirmFunc
	Out     io.Writer
}

// NewCleanupPipeline creates a pipeline with terminal defaults.
func NewCleanupPipeline(p *profile.Profile, s *store.Store) *CleanupPipeline {
	return &CleanupPipeline{
		profile: p,
		store:   s,
		Confirm: TerminalConfirm,
		Out:     os.Stdout,
	}
}

// Run executes one cleanup. Deletion requires a yes/no confirmation in every
// environment unless forced; a dry run stops after reporting.
func (p *CleanupPipeline) Run(ctx context.Context, opts CleanupOptions) (*CleanupReport, error) {
	detector := NewDuplicateDetector(p.store, p.profile.RetryWindow, p.profile.MaxDuplicateGroups)
	found, err := detector.Find(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(p.Out, "%d duplicate groups, %d redundant records\n", found.TotalGroups, found.TotalToRemove)
	if found.Truncated {
		fmt.Fprintf(p.Out, "group cap reached; re-run cleanup after this pass\n")
	}
	if opts.Verbose {
		for _, group := range found.Groups {
			fmt.Fprintf(p.Out, "  persona=%s personality=%s count=%d spread=%ds %q\n",
				group.PersonaID, group.PersonalityID, group.Count,
				group.LastCreatedTs-group.FirstCreatedTs, truncate(group.ContentPrefix, 50))
		}
	}

	report := &CleanupReport{
		GroupsAffected: found.TotalGroups,
		ToRemove:       found.TotalToRemove,
		Truncated:      found.Truncated,
		DryRun:         opts.DryRun,
	}
	if opts.DryRun || found.TotalToRemove == 0 {
		return report, nil
	}

	if !opts.Force {
		prompt := fmt.Sprintf("delete %d redundant records from %s", found.TotalToRemove, p.profile.Mode)
		if !p.Confirm(prompt) {
			return nil, ErrAborted
		}
	}

	ids := make([]string, 0, found.TotalToRemove)
	for _, group := range found.Groups {
		ids = append(ids, group.IDsToDelete()...)
	}

	deleted, err := NewDuplicateCollapser(p.store, p.profile.DeleteBatchSize).Delete(ctx, ids)
	report.Deleted = deleted

	slog.Info("cleanup audit",
		"run_id", shortuuid.New(),
		"environment", p.profile.Mode,
		"timestamp_utc", time.Now().UTC().Format(time.RFC3339),
		"groups_affected", report.GroupsAffected,
		"records_deleted", deleted,
	)
	if err != nil {
		return report, err
	}
	return report, nil
}
