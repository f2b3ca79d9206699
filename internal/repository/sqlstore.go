package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"chatlens/internal/models"
)

// sqlStore is the shared sqlx implementation behind both the SQLite and
// Postgres stores. Queries use "?" placeholders and are rebound to the
// driver's bindvar style.
type sqlStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// messageRow is the flat table shape of a Message. Structured fields are
// stored as JSON columns.
type messageRow struct {
	ID                 string    `db:"id"`
	JobID              string    `db:"job_id"`
	Timestamp          time.Time `db:"ts"`
	Sender             string    `db:"sender"`
	Text               string    `db:"text"`
	Language           string    `db:"language"`
	LanguageConfidence float64   `db:"language_confidence"`
	EnsembleScore      float64   `db:"ensemble_score"`
	EnsembleLabel      string    `db:"ensemble_label"`
	Confidence         float64   `db:"confidence"`
	OracleScores       []byte    `db:"oracle_scores"`
	Emotions           []byte    `db:"emotions"`
	Keywords           []byte    `db:"keywords"`
	Emojis             []byte    `db:"emojis"`
	MediaURLs          []byte    `db:"media_urls"`
	CreatedAt          time.Time `db:"created_at"`
}

const messageColumns = `id, job_id, ts, sender, text, language, language_confidence,
	ensemble_score, ensemble_label, confidence, oracle_scores, emotions, keywords, emojis, media_urls, created_at`

func toRow(msg models.Message) (messageRow, error) {
	oracleScores, err := json.Marshal(msg.Sentiment.OracleScores)
	if err != nil {
		return messageRow{}, fmt.Errorf("marshal oracle scores: %w", err)
	}
	emotions, err := json.Marshal(msg.Emotions)
	if err != nil {
		return messageRow{}, fmt.Errorf("marshal emotions: %w", err)
	}
	keywords, err := json.Marshal(msg.Keywords)
	if err != nil {
		return messageRow{}, fmt.Errorf("marshal keywords: %w", err)
	}
	emojis, err := json.Marshal(msg.Emojis)
	if err != nil {
		return messageRow{}, fmt.Errorf("marshal emojis: %w", err)
	}
	mediaURLs, err := json.Marshal(msg.MediaURLs)
	if err != nil {
		return messageRow{}, fmt.Errorf("marshal media urls: %w", err)
	}

	return messageRow{
		ID:                 msg.ID,
		JobID:              msg.JobID,
		Timestamp:          msg.Timestamp.UTC(),
		Sender:             msg.Sender,
		Text:               msg.Text,
		Language:           msg.Language,
		LanguageConfidence: msg.LanguageConfidence,
		EnsembleScore:      msg.Sentiment.EnsembleScore,
		EnsembleLabel:      msg.Sentiment.EnsembleLabel,
		Confidence:         msg.Sentiment.Confidence,
		OracleScores:       oracleScores,
		Emotions:           emotions,
		Keywords:           keywords,
		Emojis:             emojis,
		MediaURLs:          mediaURLs,
		CreatedAt:          msg.CreatedAt.UTC(),
	}, nil
}

func fromRow(row messageRow) (models.Message, error) {
	msg := models.Message{
		ID:                 row.ID,
		JobID:              row.JobID,
		Timestamp:          row.Timestamp.UTC(),
		Sender:             row.Sender,
		Text:               row.Text,
		Language:           row.Language,
		LanguageConfidence: row.LanguageConfidence,
		Sentiment: models.Sentiment{
			EnsembleScore: row.EnsembleScore,
			EnsembleLabel: row.EnsembleLabel,
			Confidence:    row.Confidence,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}

	if err := json.Unmarshal(row.OracleScores, &msg.Sentiment.OracleScores); err != nil {
		return msg, fmt.Errorf("unmarshal oracle scores of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Emotions, &msg.Emotions); err != nil {
		return msg, fmt.Errorf("unmarshal emotions of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Keywords, &msg.Keywords); err != nil {
		return msg, fmt.Errorf("unmarshal keywords of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Emojis, &msg.Emojis); err != nil {
		return msg, fmt.Errorf("unmarshal emojis of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.MediaURLs, &msg.MediaURLs); err != nil {
		return msg, fmt.Errorf("unmarshal media urls of %s: %w", row.ID, err)
	}
	return msg, nil
}

// SaveMessages writes every message in one transaction so a concurrent
// reader sees either none or all of a job's messages.
func (s *sqlStore) SaveMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(`INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, msg := range msgs {
		row, err := toRow(msg)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			row.ID, row.JobID, row.Timestamp, row.Sender, row.Text,
			row.Language, row.LanguageConfidence,
			row.EnsembleScore, row.EnsembleLabel, row.Confidence,
			row.OracleScores, row.Emotions, row.Keywords, row.Emojis, row.MediaURLs,
			row.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}

	s.logger.Info("Messages persisted",
		zap.String("job_id", msgs[0].JobID),
		zap.Int("count", len(msgs)))
	return nil
}

// buildWhere translates a normalized filter into a WHERE clause. All
// supplied filters AND-combine; date bounds are inclusive.
func buildWhere(f models.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.JobID != "" {
		conds = append(conds, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Sender != "" {
		conds = append(conds, "sender = ?")
		args = append(args, f.Sender)
	}
	if f.SentimentLabel != "" {
		conds = append(conds, "ensemble_label = ?")
		args = append(args, f.SentimentLabel)
	}
	if f.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, f.Language)
	}
	if f.Keyword != "" {
		conds = append(conds, "LOWER(text) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Keyword)+"%")
	}
	if f.DateFrom != nil {
		conds = append(conds, "ts >= ?")
		args = append(args, f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		conds = append(conds, "ts <= ?")
		args = append(args, f.DateTo.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListMessages returns one page of the filtered view plus the total
// match count. A page beyond the data yields an empty list, not an
// error.
func (s *sqlStore) ListMessages(ctx context.Context, f models.Filter) ([]models.Message, int, error) {
	if err := f.Normalize(); err != nil {
		return nil, 0, err
	}

	where, args := buildWhere(f)

	var total int
	countQuery := s.db.Rebind("SELECT COUNT(*) FROM messages" + where)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := s.db.Rebind("SELECT " + messageColumns + " FROM messages" + where +
		" ORDER BY ts ASC, id ASC LIMIT ? OFFSET ?")
	pageArgs := append(append([]interface{}{}, args...), f.PageSize, f.Offset())

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := fromRow(row)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, total, nil
}

// GetMessage fetches one message by id.
func (s *sqlStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := s.db.Rebind("SELECT " + messageColumns + " FROM messages WHERE id = ?")

	var row messageRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	msg, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByJob returns every stored message of a job in timestamp order.
func (s *sqlStore) ListByJob(ctx context.Context, jobID string) ([]models.Message, error) {
	query := s.db.Rebind("SELECT " + messageColumns + " FROM messages WHERE job_id = ? ORDER BY ts ASC, id ASC")

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, fmt.Errorf("list messages of job %s: %w", jobID, err)
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Stats computes aggregate statistics over the currently filtered view,
// using the same WHERE clause as ListMessages so the numbers always
// reflect the active filter.
func (s *sqlStore) Stats(ctx context.Context, f models.Filter) (*models.FilterStats, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}

	where, args := buildWhere(f)
	stats := &models.FilterStats{
		SentimentDistribution: make(map[string]models.SentimentBucket),
		LanguageDistribution:  make(map[string]int),
	}

	var totals struct {
		Total    int             `db:"total"`
		AvgScore sql.NullFloat64 `db:"avg_score"`
	}
	totalQuery := s.db.Rebind("SELECT COUNT(*) AS total, AVG(ensemble_score) AS avg_score FROM messages" + where)
	if err := s.db.GetContext(ctx, &totals, totalQuery, args...); err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	stats.TotalMessages = totals.Total
	stats.AverageScore = totals.AvgScore.Float64

	var sentimentRows []struct {
		Label    string  `db:"ensemble_label"`
		Count    int     `db:"count"`
		AvgScore float64 `db:"avg_score"`
	}
	sentimentQuery := s.db.Rebind("SELECT ensemble_label, COUNT(*) AS count, AVG(ensemble_score) AS avg_score FROM messages" +
		where + " GROUP BY ensemble_label")
	if err := s.db.SelectContext(ctx, &sentimentRows, sentimentQuery, args...); err != nil {
		return nil, fmt.Errorf("aggregate sentiment distribution: %w", err)
	}
	for _, r := range sentimentRows {
		stats.SentimentDistribution[r.Label] = models.SentimentBucket{Count: r.Count, AvgScore: r.AvgScore}
	}

	var languageRows []struct {
		Language string `db:"language"`
		Count    int    `db:"count"`
	}
	languageQuery := s.db.Rebind("SELECT language, COUNT(*) AS count FROM messages" + where + " GROUP BY language")
	if err := s.db.SelectContext(ctx, &languageRows, languageQuery, args...); err != nil {
		return nil, fmt.Errorf("aggregate language distribution: %w", err)
	}
	for _, r := range languageRows {
		stats.LanguageDistribution[r.Language] = r.Count
	}

	var senderRows []struct {
		Sender string `db:"sender"`
		Count  int    `db:"count"`
	}
	senderQuery := s.db.Rebind("SELECT sender, COUNT(*) AS count FROM messages" + where +
		" GROUP BY sender ORDER BY count DESC, sender ASC LIMIT 10")
	if err := s.db.SelectContext(ctx, &senderRows, senderQuery, args...); err != nil {
		return nil, fmt.Errorf("aggregate top senders: %w", err)
	}
	for _, r := range senderRows {
		stats.TopSenders = append(stats.TopSenders, models.RankedPair{Key: r.Sender, Count: r.Count})
	}

	return stats, nil
}

// Ping reports store reachability for health checks.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
