// Package watcher sequences one polling run per portal domain: verify
// the session, fetch and extract, diff against the stored snapshot,
// push a notification when something changed, and persist the new
// snapshot. Extraction failures leave the previous snapshot untouched
// so a broken page can never masquerade as "no changes".
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jwassist-backend/lib/pushplus"
	"jwassist-backend/lib/scrapers/jsxsd"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/watcher")

const (
	domainGrades      = "grades"
	domainSchedule    = "schedule"
	domainExams       = "exams"
	domainEvaluations = "evaluations"
)

// exams this many days out (inclusive) are called out in a highlighted
// reminder section of the notification
const examReminderDays = 7

type Service struct {
	portal *jsxsd.Client
	push   *pushplus.Client
	store  Store

	// term identifier like "2024-2025-2"; empty means discover the
	// current term from the portal's own term selector
	term string
	// monday of teaching week 1; zero value pins the schedule to week 1
	firstMonday time.Time
	// submit first-option evaluations for unsubmitted courses. mutates
	// portal state on the student's behalf, so it is off unless
	// explicitly enabled
	autoEvaluate bool
}

type Options struct {
	Portal       *jsxsd.Client
	Push         *pushplus.Client
	Store        Store
	Term         string
	FirstMonday  time.Time
	AutoEvaluate bool
}

func NewService(opts Options) *Service {
	return &Service{
		portal:       opts.Portal,
		push:         opts.Push,
		store:        opts.Store,
		term:         opts.Term,
		firstMonday:  opts.FirstMonday,
		autoEvaluate: opts.AutoEvaluate,
	}
}

// RunResult is the outcome of one domain's polling run. PushErr is
// carried separately from the run error: delivery failure is reported
// but never rolls back the snapshot, otherwise a transient gateway
// outage would re-notify the same change on every subsequent run.
type RunResult struct {
	Changed bool
	Pushed  bool
	PushErr error
}

// Login authenticates the underlying portal session. Single-domain
// callers use this before their run; RunAll handles it itself.
func (s *Service) Login(ctx context.Context, username, password string) error {
	return s.portal.Login(ctx, username, password)
}

// RunAll logs in once and runs every domain sequentially on the shared
// session. The portal's session cookie is not known to be safe for
// concurrent authenticated requests, so domains take turns. A login
// failure aborts everything; a single domain's failure is collected and
// the remaining domains still run.
func (s *Service) RunAll(ctx context.Context, username, password string) (map[string]RunResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:RunAll")
	defer span.End()

	if err := s.Login(ctx, username, password); err != nil {
		span.SetStatus(codes.Error, "login failed")
		return nil, fmt.Errorf("login: %w", err)
	}

	domains := []struct {
		name string
		run  func(context.Context) (RunResult, error)
	}{
		{domainGrades, s.RunGrades},
		{domainSchedule, s.RunSchedule},
		{domainExams, s.RunExams},
		{domainEvaluations, s.RunEvaluations},
	}

	results := map[string]RunResult{}
	var errs []error
	for _, domain := range domains {
		result, err := domain.run(ctx)
		if err != nil {
			if errors.Is(err, jsxsd.ErrNotAuthenticated) {
				// the session died under us; no later domain can succeed
				span.SetStatus(codes.Error, "session expired mid-run")
				errs = append(errs, fmt.Errorf("%s: %w", domain.name, err))
				return results, errors.Join(errs...)
			}
			slog.WarnContext(ctx, "domain run failed",
				"domain", domain.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", domain.name, err))
			continue
		}
		results[domain.name] = result
		slog.InfoContext(ctx, "domain run finished",
			"domain", domain.name,
			"changed", result.Changed,
			"pushed", result.Pushed)
	}
	return results, errors.Join(errs...)
}

// resolveTerm returns the configured term, falling back to the term the
// portal itself pre-selects on the exam query page.
func (s *Service) resolveTerm(ctx context.Context) (string, error) {
	if s.term != "" {
		return s.term, nil
	}

	page, err := s.portal.GetExamPage(ctx)
	if err != nil {
		return "", fmt.Errorf("discover term: %w", err)
	}
	options, err := jsxsd.ParseTermOptions(page)
	if err != nil {
		return "", fmt.Errorf("discover term: %w", err)
	}
	selected, ok := jsxsd.SelectedTerm(options)
	if !ok {
		return "", fmt.Errorf("discover term: %w: no pre-selected option", jsxsd.ErrSchemaMismatch)
	}
	return selected.Value, nil
}

// dispatch sends one notification and reports delivery trouble without
// failing the run
func (s *Service) dispatch(ctx context.Context, title, content string) (bool, error) {
	err := s.push.Send(ctx, title, content)
	if err != nil {
		slog.WarnContext(ctx, "push delivery failed", "title", title, "err", err)
		return false, err
	}
	return true, nil
}
