// Package service orchestrates the asynchronous analysis pipeline:
// submission enqueues a job, workers drain the queue, and each worker
// runs one job's pipeline to a terminal state.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatlens/internal/config"
	"chatlens/internal/emotion"
	"chatlens/internal/enrich"
	"chatlens/internal/metrics"
	"chatlens/internal/models"
	"chatlens/internal/parser"
	"chatlens/internal/repository"
	"chatlens/internal/sentiment"
)

// ErrQueueFull rejects a submission synchronously when no worker can
// pick the job up. Callers translate it to a 503.
var ErrQueueFull = errors.New("analysis queue is full")

const mediaOmittedText = "<Media omitted>"

type task struct {
	jobID     string
	text      string
	dateOrder string
}

// Analyzer owns the job lifecycle and the per-message pipeline. One
// worker drives a given job from parse to terminal state; partial
// results are never visible.
type Analyzer struct {
	cfg      *config.Config
	logger   *zap.Logger
	parser   *parser.Parser
	oracles  []sentiment.Oracle
	fusion   sentiment.FusionConfig
	emotions emotion.Classifier
	language *enrich.LanguageDetector
	keywords *enrich.KeywordExtractor
	store    repository.MessageStore
	jobs     JobStore

	queue chan task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAnalyzer wires the pipeline from configuration. The contextual
// oracle is attached only when enabled and keyed; its heavy
// initialization still happens lazily on first use.
func NewAnalyzer(cfg *config.Config, store repository.MessageStore, jobs JobStore, logger *zap.Logger) *Analyzer {
	oracles := []sentiment.Oracle{
		sentiment.NewVaderOracle(),
		sentiment.NewPatternOracle(),
	}

	weights := make(map[string]float64, len(cfg.Oracles.Weights))
	for name, w := range cfg.Oracles.Weights {
		weights[name] = w
	}

	if cfg.Oracles.Contextual.Enabled {
		key := cfg.ContextualAPIKey()
		if key == "" {
			logger.Warn("Contextual oracle enabled but no API key set; running without it",
				zap.String("env", cfg.Oracles.Contextual.APIKeyEnv))
		} else {
			oracles = append(oracles, sentiment.NewContextualOracle(key, cfg.Oracles.Contextual.Model, logger))
			weights[sentiment.OracleContextual] = cfg.Oracles.Contextual.Weight
		}
	}

	return &Analyzer{
		cfg:    cfg,
		logger: logger,
		parser: parser.New(parser.Config{
			DateOrder:        cfg.Parser.DateOrder,
			SystemSenders:    cfg.Parser.SystemSenders,
			SystemMarkers:    cfg.Parser.SystemMarkers,
			FailedLineSample: cfg.Analysis.FailedLineSample,
		}),
		oracles:  oracles,
		fusion:   sentiment.FusionConfig{Weights: weights, DisagreementPenalty: cfg.Oracles.DisagreementPenalty},
		emotions: emotion.NewKeywordClassifier(),
		language: enrich.NewLanguageDetector(cfg.Language.Default, cfg.Language.MinConfidence),
		keywords: enrich.NewKeywordExtractor(cfg.Analysis.KeywordsPerMessage),
		store:    store,
		jobs:     jobs,
		queue:    make(chan task, cfg.Analysis.QueueSize),
	}
}

// Start launches the worker pool.
func (a *Analyzer) Start() {
	for i := 0; i < a.cfg.Analysis.Workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	a.logger.Info("Analysis workers started", zap.Int("workers", a.cfg.Analysis.Workers))
}

// Shutdown stops intake and waits for queued and in-flight jobs to
// reach a terminal state.
func (a *Analyzer) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("Analysis workers drained")
}

// Submit validates the transcript, creates a queued job and returns its
// id immediately. The pipeline runs asynchronously; a full queue fails
// the submission synchronously instead of blocking.
func (a *Analyzer) Submit(text, dateOrder string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: transcript text is empty", models.ErrValidation)
	}
	switch dateOrder {
	case "", "mdy", "dmy":
	default:
		return "", fmt.Errorf("%w: date_order must be mdy or dmy, got %q", models.ErrValidation, dateOrder)
	}

	job := &models.Job{
		ID:          uuid.New().String(),
		Status:      models.StatusQueued,
		SubmittedAt: time.Now().UTC(),
	}
	a.jobs.Create(job)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.jobs.Delete(job.ID)
		return "", ErrQueueFull
	}

	select {
	case a.queue <- task{jobID: job.ID, text: text, dateOrder: dateOrder}:
		metrics.JobsSubmitted.Inc()
		a.logger.Info("Job submitted", zap.String("job_id", job.ID))
		return job.ID, nil
	default:
		a.jobs.Delete(job.ID)
		metrics.QueueRejections.Inc()
		return "", ErrQueueFull
	}
}

// GetJob returns the current job state without blocking on workers.
func (a *Analyzer) GetJob(id string) (models.Job, error) {
	return a.jobs.Get(id)
}

func (a *Analyzer) worker() {
	defer a.wg.Done()
	for t := range a.queue {
		a.runJob(t)
	}
}

// runJob drives one job's pipeline to a terminal state. Panics are
// captured as a job failure; the orchestrator and sibling jobs keep
// running.
func (a *Analyzer) runJob(t task) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Job panicked", zap.String("job_id", t.jobID), zap.Any("panic", r))
			a.failJob(t.jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := a.jobs.MarkProcessing(t.jobID); err != nil {
		a.logger.Error("Failed to mark job processing", zap.String("job_id", t.jobID), zap.Error(err))
		return
	}

	result, err := a.analyze(t)
	if err != nil {
		a.logger.Error("Job failed", zap.String("job_id", t.jobID), zap.Error(err))
		a.failJob(t.jobID, err.Error())
		return
	}

	if err := a.jobs.Complete(t.jobID, result); err != nil {
		a.logger.Error("Failed to complete job", zap.String("job_id", t.jobID), zap.Error(err))
		return
	}

	metrics.JobsFinished.WithLabelValues(string(models.StatusComplete)).Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("Job complete",
		zap.String("job_id", t.jobID),
		zap.Int("messages", result.TotalMessages),
		zap.Duration("took", time.Since(start)))
}

func (a *Analyzer) failJob(jobID, errMsg string) {
	if err := a.jobs.Fail(jobID, errMsg); err != nil {
		a.logger.Error("Failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	metrics.JobsFinished.WithLabelValues(string(models.StatusFailed)).Inc()
}

// analyze runs the stages strictly in sequence: parse, score, fuse,
// enrich, persist, aggregate.
func (a *Analyzer) analyze(t task) (*models.AnalysisResult, error) {
	p := a.parser
	if t.dateOrder != "" && t.dateOrder != a.cfg.Parser.DateOrder {
		p = parser.New(parser.Config{
			DateOrder:        t.dateOrder,
			SystemSenders:    a.cfg.Parser.SystemSenders,
			SystemMarkers:    a.cfg.Parser.SystemMarkers,
			FailedLineSample: a.cfg.Analysis.FailedLineSample,
		})
	}

	parsed := p.Parse(t.text)

	stubs := make([]parser.Stub, 0, len(parsed.Messages))
	for _, stub := range parsed.Messages {
		if stub.System || stub.Text == "" || stub.Text == mediaOmittedText {
			continue
		}
		stubs = append(stubs, stub)
	}
	if len(stubs) == 0 {
		return nil, errors.New("no valid messages found in transcript")
	}

	now := time.Now().UTC().Truncate(time.Second)
	msgs := make([]models.Message, 0, len(stubs))
	weights := make([]models.EmotionWeights, 0, len(stubs))
	langs := make([]string, 0, len(stubs))
	senderCounts := make(map[string]int)
	emojiCounts := make(map[string]int)
	var scoreSum float64

	for i, stub := range stubs {
		scores := sentiment.ScoreAll(a.oracles, stub.Text)
		for _, s := range scores {
			if s.Failed {
				metrics.OracleFailures.WithLabelValues(s.Oracle).Inc()
			}
		}
		fused := sentiment.Fuse(scores, a.fusion)

		emotions := a.emotions.Detect(stub.Text)
		lang, langConf := a.language.Detect(stub.Text)
		emojis := enrich.ExtractEmojis(stub.Text)

		msg := models.Message{
			ID:                 fmt.Sprintf("%s_%06d", t.jobID, i),
			JobID:              t.jobID,
			Timestamp:          stub.Timestamp,
			Sender:             stub.Sender,
			Text:               stub.Text,
			Language:           lang,
			LanguageConfidence: langConf,
			Sentiment:          fused,
			Emotions:           emotions,
			Keywords:           a.keywords.Extract(stub.Text),
			Emojis:             emojis,
			MediaURLs:          enrich.ExtractMedia(stub.Text),
			CreatedAt:          now,
		}
		msgs = append(msgs, msg)

		weights = append(weights, emotions)
		langs = append(langs, lang)
		senderCounts[stub.Sender]++
		for _, e := range emojis {
			emojiCounts[e]++
		}
		scoreSum += fused.EnsembleScore
	}

	ctx := context.Background()
	if err := a.store.SaveMessages(ctx, msgs); err != nil {
		return nil, fmt.Errorf("persist messages: %w", err)
	}
	metrics.MessagesAnalyzed.Add(float64(len(msgs)))

	meanScore := scoreSum / float64(len(msgs))
	langDist, primary := enrich.LanguageDistribution(langs)

	return &models.AnalysisResult{
		TotalMessages: len(msgs),
		OverallSentiment: models.OverallSentiment{
			EnsembleScore: meanScore,
			EnsembleLabel: sentiment.LabelFor(meanScore),
		},
		LanguageDistribution: langDist,
		PrimaryLanguage:      primary,
		EmotionDistribution:  emotion.Distribution(weights),
		MostActiveUsers:      rankCounts(senderCounts, 5),
		TopEmojis:            rankCounts(emojiCounts, 10),
		Messages:             msgs,
		FailedLineSample:     parsed.FailedLines,
		FailedLineCount:      parsed.FailedLineCount,
	}, nil
}

// rankCounts orders count maps by count descending, ties broken by key
// so rankings are deterministic.
func rankCounts(counts map[string]int, topK int) []models.RankedPair {
	pairs := make([]models.RankedPair, 0, len(counts))
	for k, n := range counts {
		pairs = append(pairs, models.RankedPair{Key: k, Count: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Key < pairs[j].Key
	})
	if len(pairs) > topK {
		pairs = pairs[:topK]
	}
	return pairs
}
