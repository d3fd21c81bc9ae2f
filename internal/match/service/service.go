// Package service runs the match pipeline for one request: validate,
// normalize, look up candidates, compare, score, rank and classify.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"penmatch/internal/match/classify"
	"penmatch/internal/match/compare"
	"penmatch/internal/match/metrics"
	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	"penmatch/internal/match/ports"
	"penmatch/internal/match/score"
	dErrors "penmatch/pkg/domain-errors"
	"penmatch/pkg/platform/audit"
	"penmatch/pkg/requestcontext"
)

var tracer = otel.Tracer("penmatch/internal/match/service")

const (
	DefaultMaxCandidates = 50
	DefaultLookupTimeout = 2 * time.Second
)

// Service is immutable after New and safe for concurrent use.
type Service struct {
	normalizer     *normalize.Normalizer
	provider       ports.CandidateProvider
	comparator     *compare.Comparator
	combiner       *score.Combiner
	classifier     *classify.Classifier
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	maxCandidates  int
	lookupTimeout  time.Duration
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxCandidates bounds how many candidates the provider may return.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		s.maxCandidates = n
	}
}

// WithLookupTimeout bounds a single provider call.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.lookupTimeout = d
	}
}

// WithClock overrides the clock used for ProcessedAt. Without it the
// request-scoped time is used when present, else the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(
	normalizer *normalize.Normalizer,
	provider ports.CandidateProvider,
	comparator *compare.Comparator,
	combiner *score.Combiner,
	classifier *classify.Classifier,
	opts ...Option,
) (*Service, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("candidate provider is required")
	}
	if comparator == nil {
		return nil, fmt.Errorf("comparator is required")
	}
	if combiner == nil {
		return nil, fmt.Errorf("combiner is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}

	svc := &Service{
		normalizer:    normalizer,
		provider:      provider,
		comparator:    comparator,
		combiner:      combiner,
		classifier:    classifier,
		logger:        slog.Default(),
		maxCandidates: DefaultMaxCandidates,
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.maxCandidates <= 0 {
		return nil, dErrors.Configuration("max candidates must be positive, got %d", svc.maxCandidates)
	}
	if svc.lookupTimeout <= 0 {
		return nil, dErrors.Configuration("lookup timeout must be positive, got %s", svc.lookupTimeout)
	}
	return svc, nil
}

// Match runs the pipeline for one request. It returns a ValidationFailure
// when surname or birth date is absent and a LookupFailure when the registry
// could not be consulted; every other outcome, including "no match", is a
// MatchResult.
func (s *Service) Match(ctx context.Context, req models.MatchRequest) (*models.MatchResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "match.Match")
	defer span.End()
	span.SetAttributes(attribute.String("penmatch.correlation_id", req.CorrelationID))

	result, err := s.match(ctx, req)
	s.metrics.ObserveMatchLatency(time.Since(start))
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.metrics.IncrementFailure(string(code))
		s.logger.ErrorContext(ctx, "pen match failed",
			"correlation_id", req.CorrelationID,
			"request_id", requestcontext.RequestID(ctx),
			"code", code,
			"error", err,
		)
		if code == dErrors.CodeLookupFailure {
			s.emitAudit(ctx, audit.Event{
				Action:        string(audit.EventPENMatchFailed),
				CorrelationID: req.CorrelationID,
				Reason:        string(code),
				SubjectIDHash: subjectHash(req.Record),
			})
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("penmatch.status", result.Status.String()),
		attribute.String("penmatch.algorithm", result.Algorithm.String()),
		attribute.Int("penmatch.candidates", len(result.Outcomes)),
	)
	s.metrics.IncrementOutcome(result.Status.String(), result.Algorithm.String())
	s.logger.InfoContext(ctx, "pen match decided",
		"correlation_id", req.CorrelationID,
		"request_id", requestcontext.RequestID(ctx),
		"status", result.Status.String(),
		"algorithm", result.Algorithm.String(),
		"candidates", len(result.Outcomes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.emitAudit(ctx, decisionEvent(req, result))
	return result, nil
}

func (s *Service) match(ctx context.Context, req models.MatchRequest) (*models.MatchResult, error) {
	if err := validateRecord(req.Record); err != nil {
		return nil, err
	}

	search := s.normalizer.Normalize(req.Record)
	if search.Surname.IsEmpty() {
		return nil, dErrors.Validation("surname must contain letters")
	}
	if !search.BirthDate.Known() {
		return nil, dErrors.Validation("date of birth is not a valid date")
	}

	candidates, err := s.lookup(ctx, search)
	if err != nil {
		return nil, err
	}

	outcomes := make([]models.CandidateOutcome, 0, len(candidates))
	for _, cand := range candidates {
		normalized := s.normalizer.Normalize(cand.Demographics())
		vector := s.comparator.CompareAll(search, normalized)
		outcomes = append(outcomes, s.combiner.Combine(cand, vector))
	}
	ranked := score.Rank(outcomes)
	decision := s.classifier.Classify(ranked, search.PEN)

	return &models.MatchResult{
		CorrelationID: req.CorrelationID,
		Algorithm:     decision.Algorithm,
		Status:        decision.Status,
		MatchedPEN:    decision.MatchedPEN,
		MergedFrom:    decision.MergedFrom,
		Outcomes:      ranked,
		ProcessedAt:   s.processedAt(ctx),
	}, nil
}

func (s *Service) processedAt(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) lookup(ctx context.Context, search models.NormalizedRecord) ([]models.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "match.lookup")
	defer span.End()

	start := time.Now()
	candidates, err := s.provider.Lookup(ctx, search, s.maxCandidates)
	if err == nil && ctx.Err() != nil {
		// A provider that ignored the deadline still timed out.
		err = ctx.Err()
	}
	s.metrics.ObserveLookup(time.Since(start), len(candidates))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Lookup(err, "candidate lookup timed out")
		}
		return nil, dErrors.Lookup(err, "candidate lookup failed")
	}
	if len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}
	return candidates, nil
}

func validateRecord(r models.DemographicRecord) error {
	if strings.TrimSpace(r.Surname) == "" {
		return dErrors.Validation("surname is required")
	}
	if strings.TrimSpace(r.DateOfBirth) == "" {
		return dErrors.Validation("date of birth is required")
	}
	return nil
}

// emitAudit never fails the match; a lost audit event is logged.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ClientID(ctx)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"correlation_id", event.CorrelationID,
			"error", err,
		)
	}
}

func decisionEvent(req models.MatchRequest, result *models.MatchResult) audit.Event {
	pens := make([]string, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		pens = append(pens, o.PEN)
	}
	var top float64
	if len(result.Outcomes) > 0 {
		top = result.Outcomes[0].Score
	}
	return audit.Event{
		Timestamp:     result.ProcessedAt,
		Action:        string(audit.EventPENMatchDecided),
		CorrelationID: req.CorrelationID,
		Decision:      result.Status.String(),
		Algorithm:     result.Algorithm.String(),
		MatchedPEN:    result.MatchedPEN,
		CandidatePENs: pens,
		TopScore:      top,
		SubjectIDHash: subjectHash(req.Record),
	}
}

func subjectHash(r models.DemographicRecord) string {
	return audit.HashSubject(
		r.Surname, r.GivenName, r.MiddleName, r.DateOfBirth, r.Gender,
		r.Mincode, r.LocalID, r.PostalCode, r.SubmittedPEN,
	)
}
