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

func gradeLabel(g jsxsd.GradeRecord) string {
	return fmt.Sprintf("%s %s", g.CourseName, g.Score)
}

// RunGrades polls the regular-grades table, scoped to the current
// academic year so last year's rows never trigger a notification.
func (s *Service) RunGrades(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:RunGrades")
	defer span.End()

	year := timezone.GetAcademicYear(timezone.Now()).String()
	span.SetAttributes(attribute.String("scope", year))

	grades, err := s.portal.GetGrades(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "grades fetch failed")
		return RunResult{}, err
	}
	grades = jsxsd.FilterGradesBySemesterPrefix(grades, year)

	previous, err := LoadSnapshot[jsxsd.GradeRecord](ctx, s.store, domainGrades, year)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot load failed")
		return RunResult{}, fmt.Errorf("load grades snapshot: %w", err)
	}

	if !snapshotdiff.Changed(grades, previous, snapshotdiff.GradeKey) {
		span.SetAttributes(attribute.Bool("changed", false))
		return RunResult{}, nil
	}
	span.SetAttributes(attribute.Bool("changed", true))

	changes := snapshotdiff.Describe(grades, previous, snapshotdiff.GradeKey, gradeLabel)
	title := fmt.Sprintf("📊 成绩更新 %s", year)
	content := pushplus.RenderChanges(changes) + pushplus.RenderGrades(grades)
	pushed, pushErr := s.dispatch(ctx, title, content)

	if err := SaveSnapshot(ctx, s.store, domainGrades, year, grades); err != nil {
		span.SetStatus(codes.Error, "snapshot save failed")
		return RunResult{}, fmt.Errorf("save grades snapshot: %w", err)
	}
	return RunResult{Changed: true, Pushed: pushed, PushErr: pushErr}, nil
}
