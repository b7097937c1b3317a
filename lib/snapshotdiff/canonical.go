package snapshotdiff

import (
	"fmt"
	"strings"

	"jwassist-backend/lib/scrapers/jsxsd"
)

// Canonical keys for each portal domain. Every function here joins the
// domain's stable fields with an unprintable separator; what a function
// leaves out is the point. Display indices renumber when the portal
// re-sorts, grade total hours are a display column the differ has
// always ignored, evaluation links carry per-session tokens, and the
// schedule remainder is a parser diagnostic, none of which mean the
// underlying fact changed.

const fieldSep = "\x1f"

func GradeKey(g jsxsd.GradeRecord) string {
	return strings.Join([]string{
		g.Semester,
		g.CourseCode,
		g.CourseName,
		g.Score,
		g.Credit,
		g.Gpa,
		g.AssessmentMethod,
		g.CourseAttribute,
		g.CourseNature,
		g.ExamNature,
		g.RetakeSemester,
		g.ScoreFlag,
	}, fieldSep)
}

func ScheduleKey(e jsxsd.ScheduleEntry) string {
	return strings.Join([]string{
		e.TimeSlot,
		fmt.Sprint(e.Weekday),
		e.Course.Name,
		e.Course.Weeks,
		e.Course.Classroom,
		e.Course.CourseCode,
	}, fieldSep)
}

func ExamKey(e jsxsd.ExamRecord) string {
	return strings.Join([]string{
		e.ExamId,
		e.CourseCode,
		e.CourseName,
		e.ExamTime,
		e.ExamRoom,
		e.SeatNumber,
		e.ExamMethod,
		e.Remarks,
	}, fieldSep)
}

func EvaluationKey(c jsxsd.EvaluationCourse) string {
	return strings.Join([]string{
		c.CourseCode,
		c.CourseName,
		c.Teacher,
		c.EvaluationType,
		c.TotalScore,
		c.IsEvaluated,
		c.IsSubmitted,
	}, fieldSep)
}
