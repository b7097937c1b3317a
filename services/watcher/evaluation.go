package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"jwassist-backend/lib/pushplus"
	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/snapshotdiff"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func evaluationLabel(c jsxsd.EvaluationCourse) string {
	return fmt.Sprintf("%s %s 已提交:%s", c.CourseName, c.Teacher, c.IsSubmitted)
}

// RunEvaluations polls for open course-evaluation batches. Outside
// evaluation season the landing page simply has no entry links, which
// is an ordinary no-change run, not an error. When auto-evaluation is
// enabled, unsubmitted courses are filled and submitted before the
// batch is re-fetched so the snapshot records the post-submit state.
func (s *Service) RunEvaluations(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:RunEvaluations")
	defer span.End()

	entries, err := s.portal.GetEvaluationEntries(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "evaluation entries fetch failed")
		return RunResult{}, err
	}
	if len(entries) == 0 {
		span.SetAttributes(attribute.Bool("open_batch", false))
		return RunResult{}, nil
	}

	entry := entries[0]
	scope := fmt.Sprintf("%s-%s", entry.Semester, entry.Batch)
	span.SetAttributes(attribute.String("scope", scope))

	courses, err := s.portal.GetEvaluationCourses(ctx, entry.Url)
	if err != nil {
		span.SetStatus(codes.Error, "evaluation courses fetch failed")
		return RunResult{}, err
	}

	if s.autoEvaluate {
		courses, err = s.autoEvaluatePending(ctx, entry, courses)
		if err != nil {
			span.SetStatus(codes.Error, "auto evaluation failed")
			return RunResult{}, err
		}
	}

	previous, err := LoadSnapshot[jsxsd.EvaluationCourse](ctx, s.store, domainEvaluations, scope)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot load failed")
		return RunResult{}, fmt.Errorf("load evaluation snapshot: %w", err)
	}

	if !snapshotdiff.Changed(courses, previous, snapshotdiff.EvaluationKey) {
		span.SetAttributes(attribute.Bool("changed", false))
		return RunResult{}, nil
	}
	span.SetAttributes(attribute.Bool("changed", true))

	changes := snapshotdiff.Describe(courses, previous, snapshotdiff.EvaluationKey, evaluationLabel)
	title := fmt.Sprintf("🗳️ 教学评价 %s", entry.Batch)
	content := pushplus.RenderChanges(changes) + pushplus.RenderEvaluations(courses)
	pushed, pushErr := s.dispatch(ctx, title, content)

	if err := SaveSnapshot(ctx, s.store, domainEvaluations, scope, courses); err != nil {
		span.SetStatus(codes.Error, "snapshot save failed")
		return RunResult{}, fmt.Errorf("save evaluation snapshot: %w", err)
	}
	return RunResult{Changed: true, Pushed: pushed, PushErr: pushErr}, nil
}

// fills and submits every unsubmitted course, then re-fetches the batch
// so the returned list reflects what the portal now believes. A single
// course failing to submit is logged and skipped, the rest still go
// through.
func (s *Service) autoEvaluatePending(
	ctx context.Context,
	entry jsxsd.EvaluationEntry,
	courses []jsxsd.EvaluationCourse,
) ([]jsxsd.EvaluationCourse, error) {
	pending := jsxsd.UnsubmittedCourses(courses)
	if len(pending) == 0 {
		return courses, nil
	}

	for _, course := range pending {
		if err := s.portal.AutoEvaluate(ctx, course); err != nil {
			slog.WarnContext(ctx, "auto evaluation failed for course",
				"course", course.CourseName, "err", err)
			continue
		}
		slog.InfoContext(ctx, "auto evaluated course", "course", course.CourseName)
	}

	refreshed, err := s.portal.GetEvaluationCourses(ctx, entry.Url)
	if err != nil {
		return nil, fmt.Errorf("refresh evaluation courses: %w", err)
	}
	return refreshed, nil
}
