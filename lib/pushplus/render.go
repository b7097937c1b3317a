package pushplus

import (
	"fmt"
	"strings"

	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/snapshotdiff"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Message body builders for each portal domain. The gateway renders
// "html" template messages in a WeChat webview, so bodies are plain
// HTML tables with a short heading per section.

var weekdayNames = [...]string{"", "周一", "周二", "周三", "周四", "周五", "周六", "周日"}

func RenderGrades(grades []jsxsd.GradeRecord) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"学期", "课程", "成绩", "学分", "绩点"})
	for _, g := range grades {
		t.AppendRow(table.Row{g.Semester, g.CourseName, g.Score, g.Credit, g.Gpa})
	}
	return t.RenderHTML()
}

func RenderSchedule(entries []jsxsd.ScheduleEntry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"星期", "时间", "课程", "教室", "周次"})
	for _, e := range entries {
		weekday := fmt.Sprint(e.Weekday)
		if e.Weekday >= 1 && e.Weekday <= 7 {
			weekday = weekdayNames[e.Weekday]
		}
		t.AppendRow(table.Row{
			weekday,
			jsxsd.ConvertTimeSlot(e.TimeSlot),
			e.Course.Name,
			e.Course.Classroom,
			e.Course.Weeks,
		})
	}
	return t.RenderHTML()
}

// RenderExams renders the full roster plus, when any exist, a
// highlighted section for exams coming up within the reminder window.
func RenderExams(exams []jsxsd.ExamRecord, upcoming []jsxsd.UpcomingExam) string {
	var b strings.Builder

	if len(upcoming) > 0 {
		b.WriteString("<h3>⏰ 近期考试</h3>")
		t := table.NewWriter()
		t.AppendHeader(table.Row{"课程", "时间", "考场", "座位", "剩余天数"})
		for _, e := range upcoming {
			t.AppendRow(table.Row{
				e.CourseName, e.ExamTime, e.ExamRoom, e.SeatNumber,
				fmt.Sprintf("%d天", e.DaysUntil),
			})
		}
		b.WriteString(t.RenderHTML())
	}

	b.WriteString("<h3>考试安排</h3>")
	t := table.NewWriter()
	t.AppendHeader(table.Row{"课程", "时间", "考场", "座位", "方式"})
	for _, e := range jsxsd.SortExamsByDate(exams) {
		t.AppendRow(table.Row{e.CourseName, e.ExamTime, e.ExamRoom, e.SeatNumber, e.ExamMethod})
	}
	b.WriteString(t.RenderHTML())
	return b.String()
}

func RenderEvaluations(courses []jsxsd.EvaluationCourse) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"课程", "教师", "已评价", "已提交"})
	for _, c := range courses {
		t.AppendRow(table.Row{c.CourseName, c.Teacher, c.IsEvaluated, c.IsSubmitted})
	}
	return t.RenderHTML()
}

// RenderChanges summarizes a snapshot diff as a change list ahead of
// the full table, so the reader sees what moved without scanning.
func RenderChanges(changes []snapshotdiff.Change) string {
	if len(changes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, change := range changes {
		switch change.Kind {
		case snapshotdiff.Added:
			fmt.Fprintf(&b, "<li>🆕 %s</li>", change.Label)
		case snapshotdiff.Removed:
			fmt.Fprintf(&b, "<li>➖ %s</li>", change.Label)
		case snapshotdiff.Updated:
			fmt.Fprintf(&b, "<li>✏️ %s → %s</li>", change.PreviousLabel, change.Label)
		}
	}
	b.WriteString("</ul>")
	return b.String()
}
