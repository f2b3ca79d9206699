package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"chatlens/internal/models"
)

func newTestStore(t *testing.T) MessageStore {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite() = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testMessage(jobID string, idx int, sender, text, label string, score float64, ts time.Time) models.Message {
	return models.Message{
		ID:        fmt.Sprintf("%s_%06d", jobID, idx),
		JobID:     jobID,
		Timestamp: ts,
		Sender:    sender,
		Text:      text,
		Language:  "en",
		Sentiment: models.Sentiment{
			OracleScores: []models.OracleScore{
				{Oracle: "vader", Score: score, Confidence: 0.8, Label: label},
				{Oracle: "pattern", Score: score, Confidence: 0.6, Label: label},
			},
			EnsembleScore: score,
			EnsembleLabel: label,
			Confidence:    0.7,
		},
		Emotions:  models.EmotionWeights{Joy: 1},
		Keywords:  []string{"keyword"},
		Emojis:    []string{"😊"},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func seedMessages(t *testing.T, store MessageStore) []models.Message {
	t.Helper()

	base := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		testMessage("job-1", 0, "Alice", "I love this project", models.LabelPositive, 0.8, base),
		testMessage("job-1", 1, "Bob", "this is terrible", models.LabelNegative, -0.6, base.Add(time.Minute)),
		testMessage("job-1", 2, "Alice", "meeting at noon", models.LabelNeutral, 0, base.Add(2*time.Minute)),
		testMessage("job-2", 0, "Alice", "another project update", models.LabelPositive, 0.4, base.Add(24*time.Hour)),
	}
	if err := store.SaveMessages(context.Background(), msgs); err != nil {
		t.Fatalf("SaveMessages() = %v", err)
	}
	return msgs
}

func TestSaveAndGetMessage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	msgs := seedMessages(t, store)

	got, err := store.GetMessage(context.Background(), msgs[0].ID)
	if err != nil {
		t.Fatalf("GetMessage() = %v", err)
	}
	if got.Sender != "Alice" || got.Text != "I love this project" {
		t.Errorf("got %+v", got)
	}
	if len(got.Sentiment.OracleScores) != 2 {
		t.Errorf("OracleScores = %v, want 2 entries", got.Sentiment.OracleScores)
	}
	if got.Emotions.Joy != 1 {
		t.Errorf("Emotions.Joy = %v, want 1", got.Emotions.Joy)
	}
	if !got.Timestamp.Equal(msgs[0].Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, msgs[0].Timestamp)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.GetMessage(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetMessage(missing) = %v, want ErrNotFound", err)
	}
}

func TestListMessagesFilterComposition(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedMessages(t, store)
	ctx := context.Background()

	bySender, _, err := store.ListMessages(ctx, models.Filter{Sender: "Alice"})
	if err != nil {
		t.Fatalf("ListMessages(sender) = %v", err)
	}
	byLabel, _, err := store.ListMessages(ctx, models.Filter{SentimentLabel: models.LabelPositive})
	if err != nil {
		t.Fatalf("ListMessages(label) = %v", err)
	}
	both, _, err := store.ListMessages(ctx, models.Filter{Sender: "Alice", SentimentLabel: models.LabelPositive})
	if err != nil {
		t.Fatalf("ListMessages(both) = %v", err)
	}

	// AND composition: the combined result is exactly the intersection.
	inSender := make(map[string]bool)
	for _, m := range bySender {
		inSender[m.ID] = true
	}
	intersection := 0
	for _, m := range byLabel {
		if inSender[m.ID] {
			intersection++
		}
	}
	if len(both) != intersection {
		t.Errorf("combined filter returned %d messages, intersection has %d", len(both), intersection)
	}
	for _, m := range both {
		if m.Sender != "Alice" || m.Sentiment.EnsembleLabel != models.LabelPositive {
			t.Errorf("combined filter leaked %+v", m)
		}
	}
}

func TestListMessagesKeywordAndDates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedMessages(t, store)
	ctx := context.Background()

	// Case-insensitive substring match.
	msgs, total, err := store.ListMessages(ctx, models.Filter{Keyword: "PROJECT"})
	if err != nil {
		t.Fatalf("ListMessages(keyword) = %v", err)
	}
	if total != 2 || len(msgs) != 2 {
		t.Errorf("keyword filter: total=%d len=%d, want 2/2", total, len(msgs))
	}

	// Inclusive bounds on both ends.
	from := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	to := time.Date(2024, 8, 15, 10, 1, 0, 0, time.UTC)
	msgs, _, err = store.ListMessages(ctx, models.Filter{DateFrom: &from, DateTo: &to})
	if err != nil {
		t.Fatalf("ListMessages(dates) = %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("date filter returned %d messages, want 2 (bounds inclusive)", len(msgs))
	}
}

func TestListMessagesPagination(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seeded := seedMessages(t, store)
	ctx := context.Background()

	var collected []string
	for page := 1; page <= 2; page++ {
		msgs, total, err := store.ListMessages(ctx, models.Filter{Page: page, PageSize: 2})
		if err != nil {
			t.Fatalf("ListMessages(page %d) = %v", page, err)
		}
		if total != len(seeded) {
			t.Errorf("total = %d, want %d", total, len(seeded))
		}
		for _, m := range msgs {
			collected = append(collected, m.ID)
		}
	}

	if len(collected) != len(seeded) {
		t.Fatalf("concatenated pages hold %d messages, want %d", len(collected), len(seeded))
	}
	seen := make(map[string]bool)
	for _, id := range collected {
		if seen[id] {
			t.Errorf("duplicate message %s across pages", id)
		}
		seen[id] = true
	}

	// Stable timestamp-ascending order across pages.
	wantOrder := []string{"job-1_000000", "job-1_000001", "job-1_000002", "job-2_000000"}
	for i, id := range collected {
		if id != wantOrder[i] {
			t.Errorf("page concatenation[%d] = %s, want %s", i, id, wantOrder[i])
		}
	}

	// Beyond the last page: empty list, not an error.
	msgs, total, err := store.ListMessages(ctx, models.Filter{Page: 99, PageSize: 2})
	if err != nil {
		t.Fatalf("ListMessages(page 99) = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("beyond-last page returned %d messages, want 0", len(msgs))
	}
	if total != len(seeded) {
		t.Errorf("beyond-last page total = %d, want %d", total, len(seeded))
	}
}

func TestListMessagesValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	from := time.Date(2024, 8, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	_, _, err := store.ListMessages(ctx, models.Filter{DateFrom: &from, DateTo: &to})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("date_from > date_to = %v, want ErrValidation", err)
	}

	_, _, err = store.ListMessages(ctx, models.Filter{SentimentLabel: "happy"})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("bad sentiment label = %v, want ErrValidation", err)
	}
}

func TestStatsReflectFilterView(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedMessages(t, store)
	ctx := context.Background()

	all, err := store.Stats(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("Stats() = %v", err)
	}
	if all.TotalMessages != 4 {
		t.Errorf("TotalMessages = %d, want 4", all.TotalMessages)
	}
	if all.SentimentDistribution[models.LabelPositive].Count != 2 {
		t.Errorf("positive bucket = %+v, want count 2", all.SentimentDistribution[models.LabelPositive])
	}
	if len(all.TopSenders) == 0 || all.TopSenders[0].Key != "Alice" || all.TopSenders[0].Count != 3 {
		t.Errorf("TopSenders = %v, want Alice first with 3", all.TopSenders)
	}

	// Stats over a filtered view, not the whole store.
	filtered, err := store.Stats(ctx, models.Filter{Sender: "Bob"})
	if err != nil {
		t.Fatalf("Stats(sender) = %v", err)
	}
	if filtered.TotalMessages != 1 {
		t.Errorf("filtered TotalMessages = %d, want 1", filtered.TotalMessages)
	}
	if filtered.AverageScore != -0.6 {
		t.Errorf("filtered AverageScore = %v, want -0.6", filtered.AverageScore)
	}
}

func TestListByJob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedMessages(t, store)

	msgs, err := store.ListByJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("ListByJob() = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("ListByJob returned %d messages, want 3", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Errorf("messages out of timestamp order: %v before %v", msgs[i].Timestamp, msgs[i-1].Timestamp)
		}
	}
}
