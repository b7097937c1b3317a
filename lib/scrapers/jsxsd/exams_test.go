package jsxsd

import (
	"testing"
	"time"

	"jwassist-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

const examsFixture = `
<html><body>
<table id="dataList">
	<tr>
		<th>序号</th><th>考试场次</th><th>课程编号</th><th>课程名称</th>
		<th>考试时间</th><th>考场</th><th>座位号</th><th>考试方式</th><th>备注</th>
	</tr>
	<tr>
		<td>1</td><td>KS202506-0012</td><td>080402D002</td><td>高等数学</td>
		<td>2025-06-01 09:00~11:00</td><td>C4楼505</td><td>12</td><td>闭卷</td><td>&nbsp;</td>
	</tr>
	<tr>
		<td>2</td><td>KS202505-0007</td><td>080402D001</td><td>计算机基础</td>
		<td>2025-05-20 14:00~16:00</td><td>C4楼机房</td><td>3</td><td>机考</td><td>&nbsp;</td>
	</tr>
</table>
</body></html>`

func TestParseExams(t *testing.T) {
	exams, err := ParseExams(examsFixture)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	require.Equal(t, "高等数学", exams[0].CourseName)
	require.Equal(t, "2025-06-01 09:00~11:00", exams[0].ExamTime)
	require.Equal(t, "C4楼机房", exams[1].ExamRoom)
}

// exam_id is the roster's natural key: a page that repeats a row must
// yield it once
func TestParseExamsDuplicateRows(t *testing.T) {
	duplicated := `<table id="dataList">
	<tr><th>h</th></tr>
	<tr>
		<td>1</td><td>KS202506-0012</td><td>080402D002</td><td>高等数学</td>
		<td>2025-06-01 09:00~11:00</td><td>C4楼505</td><td>12</td><td>闭卷</td><td>&nbsp;</td>
	</tr>
	<tr>
		<td>2</td><td>KS202506-0012</td><td>080402D002</td><td>高等数学</td>
		<td>2025-06-01 09:00~11:00</td><td>C4楼505</td><td>12</td><td>闭卷</td><td>&nbsp;</td>
	</tr>
</table>`
	exams, err := ParseExams(duplicated)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	require.Equal(t, "KS202506-0012", exams[0].ExamId)
}

func TestParseExamsMissingTable(t *testing.T) {
	_, err := ParseExams("<html><body></body></html>")
	require.ErrorIs(t, err, ErrMissingTable)
}

const examQueryFixture = `
<select id="xnxqid" name="xnxqid">
	<option value="2025-2026-1">2025-2026-1</option>
	<option value="2024-2025-2" selected="selected">2024-2025-2</option>
	<option value="2024-2025-1">2024-2025-1</option>
</select>`

func TestParseTermOptions(t *testing.T) {
	options, err := ParseTermOptions(examQueryFixture)
	require.NoError(t, err)
	require.Len(t, options, 3)
	require.Equal(t, "2025-2026-1", options[0].Value)
	require.False(t, options[0].Selected)

	current, ok := SelectedTerm(options)
	require.True(t, ok)
	require.Equal(t, "2024-2025-2", current.Value)
}

func TestFormatExamTime(t *testing.T) {
	formatted := FormatExamTime("2025-06-01 09:00~11:00")
	require.Equal(t, ExamTime{
		Date:  "2025-06-01",
		Start: "09:00",
		End:   "11:00",
		Full:  "2025-06-01 09:00~11:00",
	}, formatted)

	malformed := FormatExamTime("待定")
	require.Equal(t, ExamTime{Full: "待定"}, malformed)
	require.Empty(t, malformed.Date)
}

func TestSortExamsByDate(t *testing.T) {
	exams := []ExamRecord{
		{CourseName: "later", ExamTime: "2025-06-01 09:00~11:00"},
		{CourseName: "unknown", ExamTime: "待定"},
		{CourseName: "earlier", ExamTime: "2025-05-20 14:00~16:00"},
	}
	sorted := SortExamsByDate(exams)
	require.Equal(t, "earlier", sorted[0].CourseName)
	require.Equal(t, "later", sorted[1].CourseName)
	require.Equal(t, "unknown", sorted[2].CourseName)
}

func TestUpcomingExams(t *testing.T) {
	now := time.Date(2025, 5, 25, 18, 30, 0, 0, timezone.Location)
	exams := []ExamRecord{
		{CourseName: "高等数学", ExamTime: "2025-06-01 09:00~11:00"},
		{CourseName: "计算机基础", ExamTime: "2025-05-20 14:00~16:00"},
		{CourseName: "待定课程", ExamTime: "待定"},
	}

	upcoming := UpcomingExams(exams, now, 7)
	require.Len(t, upcoming, 1)
	require.Equal(t, "高等数学", upcoming[0].CourseName)
	require.Equal(t, 7, upcoming[0].DaysUntil)

	// one day short of the boundary excludes it
	require.Empty(t, UpcomingExams(exams, now, 6))

	// an exam later today counts as zero days away regardless of the
	// time already elapsed
	today := []ExamRecord{{CourseName: "tonight", ExamTime: "2025-05-25 20:00~22:00"}}
	sameDay := UpcomingExams(today, now, 7)
	require.Len(t, sameDay, 1)
	require.Equal(t, 0, sameDay[0].DaysUntil)
}
