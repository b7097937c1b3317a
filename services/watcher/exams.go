package watcher

import (
	"context"
	"fmt"

	"jwassist-backend/lib/pushplus"
	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/snapshotdiff"
	"jwassist-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func examLabel(e jsxsd.ExamRecord) string {
	return fmt.Sprintf("%s %s %s", e.CourseName, e.ExamTime, e.ExamRoom)
}

// RunExams polls the exam roster for the current term. Notifications
// lead with a reminder section for exams inside the upcoming window.
func (s *Service) RunExams(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:RunExams")
	defer span.End()

	term, err := s.resolveTerm(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "term resolution failed")
		return RunResult{}, err
	}
	span.SetAttributes(attribute.String("scope", term))

	exams, err := s.portal.GetExams(ctx, term)
	if err != nil {
		span.SetStatus(codes.Error, "exam fetch failed")
		return RunResult{}, err
	}

	previous, err := LoadSnapshot[jsxsd.ExamRecord](ctx, s.store, domainExams, term)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot load failed")
		return RunResult{}, fmt.Errorf("load exam snapshot: %w", err)
	}

	if !snapshotdiff.Changed(exams, previous, snapshotdiff.ExamKey) {
		span.SetAttributes(attribute.Bool("changed", false))
		return RunResult{}, nil
	}
	span.SetAttributes(attribute.Bool("changed", true))

	upcoming := jsxsd.UpcomingExams(exams, timezone.Now(), examReminderDays)
	changes := snapshotdiff.Describe(exams, previous, snapshotdiff.ExamKey, examLabel)
	title := fmt.Sprintf("📝 考试安排 %s", term)
	content := pushplus.RenderChanges(changes) + pushplus.RenderExams(exams, upcoming)
	pushed, pushErr := s.dispatch(ctx, title, content)

	if err := SaveSnapshot(ctx, s.store, domainExams, term, exams); err != nil {
		span.SetStatus(codes.Error, "snapshot save failed")
		return RunResult{}, fmt.Errorf("save exam snapshot: %w", err)
	}
	return RunResult{Changed: true, Pushed: pushed, PushErr: pushErr}, nil
}
