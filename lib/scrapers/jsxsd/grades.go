package jsxsd

import (
	"context"
	"fmt"
	"strings"

	"jwassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const gradesPath = "/kscj/cjcx_list"

// exact column count of the regular-grades table; rows with any other
// count are header/footer noise
const gradeColumns = 14

// GetGrades fetches and extracts the regular-grades table. The grade
// endpoint wants its menu token as a query parameter or it serves an
// empty frame.
func (c *Client) GetGrades(ctx context.Context) ([]GradeRecord, error) {
	ctx, span := tracer.Start(ctx, "client:GetGrades")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("Ves632DSdyV", "NEW_XSD_XJCJ").
		Get(gradesPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grades fetch failed")
		return nil, fmt.Errorf("fetch grades: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return nil, err
	}

	grades, err := ParseGrades(res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grades parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(grades)))
	return grades, nil
}

// ParseGrades extracts GradeRecords from the grades page HTML. Rows
// whose cell count differs from the expected 14 are skipped silently;
// a page with the table but zero usable rows is ErrEmptyResult, not an
// empty success.
func ParseGrades(html string) ([]GradeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table#dataList").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrMissingTable)
	}

	var grades []GradeRecord
	// no two rows may share a (semester, course_code) pair; the portal
	// occasionally repeats rows across page boundaries and a duplicate
	// must not flow into the snapshot
	seen := map[string]struct{}{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header
			return
		}
		cells := row.Find("td")
		if cells.Length() != gradeColumns {
			return
		}

		cell := func(idx int) string {
			return textutil.CleanCell(cells.Eq(idx).Text())
		}
		key := cell(1) + "\x1f" + cell(2)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		grades = append(grades, GradeRecord{
			Index:            cell(0),
			Semester:         cell(1),
			CourseCode:       cell(2),
			CourseName:       cell(3),
			Score:            cell(4),
			Credit:           cell(5),
			TotalHours:       cell(6),
			Gpa:              cell(7),
			AssessmentMethod: cell(8),
			CourseAttribute:  cell(9),
			CourseNature:     cell(10),
			ExamNature:       cell(11),
			RetakeSemester:   cell(12),
			ScoreFlag:        cell(13),
		})
	})

	if len(grades) == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrEmptyResult)
	}
	return grades, nil
}

// FilterGradesBySemesterPrefix keeps only the rows whose semester
// column starts with the given academic-year string, e.g. "2024-2025"
// matches both "2024-2025-1" and "2024-2025-2".
func FilterGradesBySemesterPrefix(grades []GradeRecord, prefix string) []GradeRecord {
	var out []GradeRecord
	for _, g := range grades {
		if strings.HasPrefix(g.Semester, prefix) {
			out = append(out, g)
		}
	}
	return out
}
