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

func scheduleLabel(e jsxsd.ScheduleEntry) string {
	return fmt.Sprintf("%s 周%d %s %s",
		e.Course.Name, e.Weekday, jsxsd.ConvertTimeSlot(e.TimeSlot), e.Course.Classroom)
}

// RunSchedule polls the current teaching week's timetable. Rooms and
// slots get shuffled mid-term often enough that this is worth watching.
func (s *Service) RunSchedule(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:RunSchedule")
	defer span.End()

	term, err := s.resolveTerm(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "term resolution failed")
		return RunResult{}, err
	}

	week := 1
	if !s.firstMonday.IsZero() {
		week = timezone.CurrentTeachingWeek(timezone.Now(), s.firstMonday)
	}
	scope := fmt.Sprintf("%s-week%d", term, week)
	span.SetAttributes(attribute.String("scope", scope))

	entries, err := s.portal.GetSchedule(ctx, week, term)
	if err != nil {
		span.SetStatus(codes.Error, "schedule fetch failed")
		return RunResult{}, err
	}

	previous, err := LoadSnapshot[jsxsd.ScheduleEntry](ctx, s.store, domainSchedule, scope)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot load failed")
		return RunResult{}, fmt.Errorf("load schedule snapshot: %w", err)
	}

	if !snapshotdiff.Changed(entries, previous, snapshotdiff.ScheduleKey) {
		span.SetAttributes(attribute.Bool("changed", false))
		return RunResult{}, nil
	}
	span.SetAttributes(attribute.Bool("changed", true))

	changes := snapshotdiff.Describe(entries, previous, snapshotdiff.ScheduleKey, scheduleLabel)
	title := fmt.Sprintf("📅 课表变动 第%d周", week)
	content := pushplus.RenderChanges(changes) + pushplus.RenderSchedule(entries)
	pushed, pushErr := s.dispatch(ctx, title, content)

	if err := SaveSnapshot(ctx, s.store, domainSchedule, scope, entries); err != nil {
		span.SetStatus(codes.Error, "snapshot save failed")
		return RunResult{}, fmt.Errorf("save schedule snapshot: %w", err)
	}
	return RunResult{Changed: true, Pushed: pushed, PushErr: pushErr}, nil
}
