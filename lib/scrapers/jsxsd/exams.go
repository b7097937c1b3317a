package jsxsd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"jwassist-backend/lib/textutil"
	"jwassist-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	examQueryPath = "/xsks/xsksap_query"
	examListPath  = "/xsks/xsksap_list"
)

// the exam table occasionally grows trailing columns, so this is a
// minimum rather than an exact count
const examColumns = 9

// GetExamPage fetches the exam query page, which carries the term
// selector the portal wants echoed back when listing exams.
func (c *Client) GetExamPage(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetExamPage")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return "", err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(examQueryPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam page fetch failed")
		return "", fmt.Errorf("fetch exam page: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return "", err
	}
	return res.String(), nil
}

// GetExams fetches the exam roster for a term ("2024-2025-2" style).
func (c *Client) GetExams(ctx context.Context, term string) ([]ExamRecord, error) {
	ctx, span := tracer.Start(ctx, "client:GetExams")
	defer span.End()
	span.SetAttributes(attribute.String("term", term))

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"xnxqid": term}).
		Post(examListPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam list fetch failed")
		return nil, fmt.Errorf("fetch exam list: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return nil, err
	}

	exams, err := ParseExams(res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(exams)))
	return exams, nil
}

// ParseExams extracts ExamRecords from the exam list page.
func ParseExams(html string) ([]ExamRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table#dataList").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrMissingTable)
	}

	var exams []ExamRecord
	// exam_id is the roster's natural key; duplicate rows are dropped
	// so they cannot reach the snapshot. rows without an id are kept
	// as-is, there is nothing to key them on.
	seen := map[string]struct{}{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < examColumns {
			return
		}

		cell := func(idx int) string {
			return textutil.CleanCell(cells.Eq(idx).Text())
		}
		if id := cell(1); id != "" {
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
		}
		exams = append(exams, ExamRecord{
			Index:      cell(0),
			ExamId:     cell(1),
			CourseCode: cell(2),
			CourseName: cell(3),
			ExamTime:   cell(4),
			ExamRoom:   cell(5),
			SeatNumber: cell(6),
			ExamMethod: cell(7),
			Remarks:    cell(8),
		})
	})

	if len(exams) == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrEmptyResult)
	}
	return exams, nil
}

// ParseTermOptions extracts the term selector from the exam query
// page. The returned order matches the page.
func ParseTermOptions(html string) ([]TermOption, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	sel := doc.Find("select#xnxqid").First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: select#xnxqid", ErrMissingTable)
	}

	var options []TermOption
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		_, selected := opt.Attr("selected")
		options = append(options, TermOption{
			Value:    opt.AttrOr("value", ""),
			Text:     textutil.CleanCell(opt.Text()),
			Selected: selected,
		})
	})
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: select#xnxqid", ErrEmptyResult)
	}
	return options, nil
}

// SelectedTerm returns the option the portal pre-selected, which is
// the current term.
func SelectedTerm(options []TermOption) (TermOption, bool) {
	for _, opt := range options {
		if opt.Selected {
			return opt, true
		}
	}
	return TermOption{}, false
}

// FormatExamTime decomposes the raw exam-time column, which looks like
// "2025-06-01 09:00~11:00". Anything that does not fit the shape
// yields empty Date/Start/End so it sorts as unknown, never an error.
func FormatExamTime(raw string) ExamTime {
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) == 2 {
		times := strings.Split(parts[1], "~")
		if len(times) == 2 {
			return ExamTime{
				Date:  parts[0],
				Start: times[0],
				End:   times[1],
				Full:  raw,
			}
		}
	}
	return ExamTime{Full: raw}
}

func parseExamDate(e ExamRecord) (time.Time, bool) {
	formatted := FormatExamTime(e.ExamTime)
	if formatted.Date == "" {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", formatted.Date, timezone.Location)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// SortExamsByDate orders exams ascending by date; exams whose time
// cannot be parsed sort last. The sort is stable so roster order
// breaks ties.
func SortExamsByDate(exams []ExamRecord) []ExamRecord {
	sorted := slices.Clone(exams)
	slices.SortStableFunc(sorted, func(a, b ExamRecord) int {
		dateA, okA := parseExamDate(a)
		dateB, okB := parseExamDate(b)
		if !okA && !okB {
			return 0
		}
		if !okA {
			return 1
		}
		if !okB {
			return -1
		}
		return dateA.Compare(dateB)
	})
	return sorted
}

type UpcomingExam struct {
	ExamRecord
	DaysUntil int
}

// UpcomingExams returns the exams whose date falls within
// [today, today+days] inclusive, ascending by date. Exams with
// unparsable times are excluded, a reminder for an unknown date helps
// nobody.
func UpcomingExams(exams []ExamRecord, now time.Time, days int) []UpcomingExam {
	startOfToday := time.Date(
		now.Year(), now.Month(), now.Day(),
		0, 0, 0, 0, timezone.Location,
	)

	var upcoming []UpcomingExam
	for _, exam := range SortExamsByDate(exams) {
		date, ok := parseExamDate(exam)
		if !ok {
			continue
		}
		daysUntil := int(date.Sub(startOfToday).Hours() / 24)
		if daysUntil >= 0 && daysUntil <= days {
			upcoming = append(upcoming, UpcomingExam{
				ExamRecord: exam,
				DaysUntil:  daysUntil,
			})
		}
	}
	return upcoming
}
