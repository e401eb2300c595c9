package memory

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/memtide/ai"
	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/store"
)

func newTestBackfill(mode string, driver *fakeDriver, embedder *fakeEmbedder) (*BackfillPipeline, *bytes.Buffer) {
	p := &profile.Profile{Mode: mode, Driver: "postgres", DSN: "test"}
	_ = p.Validate()

	var svc ai.EmbeddingService
	if embedder != nil {
		svc = embedder
	}
	pipeline := NewBackfillPipeline(p, testStore(driver), svc)
	out := &bytes.Buffer{}
	pipeline.Out = out
	pipeline.Confirm = func(string) bool { return true }
	return pipeline, out
}

// conversation builds n user/assistant pairs with distinct contents.
func conversation(n int) []*store.ChatLog {
	logs := make([]*store.ChatLog, 0, 2*n)
	for i := 0; i < n; i++ {
		ts := int64(1000 + 2*i)
		logs = append(logs,
			logRecord(fmt.Sprintf("u%02d", i), store.RoleUser, fmt.Sprintf("question %d", i), ts),
			logRecord(fmt.Sprintf("a%02d", i), store.RoleAssistant, fmt.Sprintf("answer %d", i), ts+1),
		)
	}
	return logs
}

func TestBackfillRejectsInvertedRangeBeforeStoreAccess(t *testing.T) {
	driver := newFakeDriver()
	pipeline, _ := newTestBackfill("dev", driver, &fakeEmbedder{})

	testCases := []struct {
		name     string
		from, to string
	}{
		{"equal dates", "2026-02-09", "2026-02-09"},
		{"inverted dates", "2026-02-10", "2026-02-09"},
		{"unparsable from", "yesterday", "2026-02-09"},
		{"unparsable to", "2026-02-09", "someday"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipeline.Run(context.Background(), BackfillOptions{From: tc.from, To: tc.to})
			require.Error(t, err)
			assert.Zero(t, driver.listCalls)
		})
	}
}

func TestBackfillAcceptsDateTimeBounds(t *testing.T) {
	pipeline, _ := newTestBackfill("dev", newFakeDriver(), &fakeEmbedder{})

	report, err := pipeline.Run(context.Background(), BackfillOptions{
		From: "2026-02-09T10:00:00Z",
		To:   "2026-02-09T11:30:00Z",
	})
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
}

func TestBackfillEmptyRangeSkipsGatesAndEmbedder(t *testing.T) {
	// No candidates: the run must finish without prompting and without ever
	// touching the embedding service, even in prod.
	embedder := &fakeEmbedder{initErr: errors.New("must not be initialized")}
	pipeline, _ := newTestBackfill("prod", newFakeDriver(), embedder)
	pipeline.Confirm = func(string) bool {
		t.Fatal("confirmation prompt must not fire with nothing to insert")
		return false
	}

	report, err := pipeline.Run(context.Background(), BackfillOptions{From: "1970-01-01", To: "2030-01-01"})
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, embedder.embedCalls)
}

func TestBackfillSingleExchange(t *testing.T) {
	driver := newFakeDriver(
		logRecord("r1", store.RoleUser, "Hello", 1700000000),
		logRecord("r2", store.RoleAssistant, "Hi!", 1700000001),
	)
	pipeline, _ := newTestBackfill("dev", driver, &fakeEmbedder{})

	report, err := pipeline.Run(context.Background(), BackfillOptions{From: "2023-01-01", To: "2026-01-01"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, driver.memories, 1)
	for _, record := range driver.memories {
		assert.Equal(t, "User: Hello\nAssistant: Hi!", record.Content)
	}
}

func TestBackfillDryRunPreviewIsBounded(t *testing.T) {
	driver := newFakeDriver(conversation(8)...)
	// nil embedder: a dry run must never need the embedding service.
	pipeline, out := newTestBackfill("prod", driver, nil)

	report, err := pipeline.Run(context.Background(), BackfillOptions{
		From:   "1970-01-01",
		To:     "2030-01-01",
		DryRun: true,
	})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 8, report.Candidates)
	assert.Empty(t, driver.memories)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 7) // header + 5 entries + summary
	entryCount := 0
	for _, line := range lines[1 : len(lines)-1] {
		if strings.HasPrefix(line, "  ") {
			entryCount++
		}
	}
	assert.Equal(t, 5, entryCount)
	assert.Equal(t, "...and 3 more", lines[len(lines)-1])
}

func TestBackfillRetryStormCollapsesToOneCandidate(t *testing.T) {
	logs := conversation(1)
	// Replay the same exchange, as a retry loop would.
	replay := conversation(1)
	for i, r := range replay {
		clone := *r
		clone.ID = fmt.Sprintf("replay-%d", i)
		clone.CreatedTs += int64(10 * (i + 1))
		logs = append(logs, &clone)
	}

	driver := newFakeDriver(logs...)
	pipeline, _ := newTestBackfill("dev", driver, &fakeEmbedder{})

	report, err := pipeline.Run(context.Background(), BackfillOptions{From: "1970-01-01", To: "2030-01-01"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Inserted)
	assert.Len(t, driver.memories, 1)
}

func TestBackfillProductionRequiresConfirmation(t *testing.T) {
	driver := newFakeDriver(conversation(1)...)
	pipeline, _ := newTestBackfill("prod", driver, &fakeEmbedder{})

	asked := false
	pipeline.Confirm = func(string) bool {
		asked = true
		return false
	}

	_, err := pipeline.Run(context.Background(), BackfillOptions{From: "1970-01-01", To: "2030-01-01"})
	require.ErrorIs(t, err, ErrAborted)
	assert.True(t, asked)
	assert.Empty(t, driver.memories)
}

func TestBackfillForceSkipsConfirmation(t *testing.T) {
	driver := newFakeDriver(conversation(1)...)
	pipeline, _ := newTestBackfill("prod", driver, &fakeEmbedder{})
	pipeline.Confirm = func(string) bool {
		t.Fatal("confirmation prompt must not fire with --force")
		return false
	}

	report, err := pipeline.Run(context.Background(), BackfillOptions{
		From:  "1970-01-01",
		To:    "2030-01-01",
		Force: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
}

func TestBackfillNonProdDoesNotPrompt(t *testing.T) {
	driver := newFakeDriver(conversation(1)...)
	pipeline, _ := newTestBackfill("dev", driver, &fakeEmbedder{})
	pipeline.Confirm = func(string) bool {
		t.Fatal("confirmation prompt must not fire outside prod")
		return false
	}

	_, err := pipeline.Run(context.Background(), BackfillOptions{From: "1970-01-01", To: "2030-01-01"})
	require.NoError(t, err)
}

func TestBackfillEmbedderInitFailureIsFatal(t *testing.T) {
	driver := newFakeDriver(conversation(2)...)
	embedder := &fakeEmbedder{initErr: errors.New("credentials rejected")}
	pipeline, _ := newTestBackfill("dev", driver, embedder)

	_, err := pipeline.Run(context.Background(), BackfillOptions{From: "1970-01-01", To: "2030-01-01"})
	require.Error(t, err)
	assert.Empty(t, driver.memories)
	assert.Zero(t, embedder.embedCalls)
}
