package jsxsd

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"jwassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	evaluationFindPath = "/xspj/xspj_find.do"
	evaluationSavePath = "/xspj/xspj_save.do"

	// exact anchor text of the per-batch entry links
	evaluationEntryText = "进入评价"
)

var (
	evaluationEditRegex = regexp.MustCompile(`xspj_edit\.do`)
	// radio groups of the evaluation form: scored indicators and the
	// survey questions appended below them
	indicatorNameRegex = regexp.MustCompile(`^pj0601id_\d+$`)
	surveyNameRegex    = regexp.MustCompile(`^tmid_[A-F0-9]+$`)
)

// GetEvaluationEntries fetches the evaluation landing page and
// extracts the open evaluation batches. No open batch is an ordinary
// empty result here, outside evaluation season the page simply has no
// entry links.
func (c *Client) GetEvaluationEntries(ctx context.Context) ([]EvaluationEntry, error) {
	ctx, span := tracer.Start(ctx, "client:GetEvaluationEntries")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(evaluationFindPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation page fetch failed")
		return nil, fmt.Errorf("fetch evaluation page: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return nil, err
	}

	entries := c.ParseEvaluationEntries(res.String())
	span.SetAttributes(attribute.Int("count", len(entries)))
	return entries, nil
}

// ParseEvaluationEntries extracts the evaluation batches from the
// landing page: anchors whose text is exactly the entry-link label,
// plus the metadata cells of the row each anchor sits in.
func (c *Client) ParseEvaluationEntries(html string) []EvaluationEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var entries []EvaluationEntry
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		if textutil.CleanCell(link.Text()) != evaluationEntryText {
			return
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		entry := EvaluationEntry{Url: c.resolveLink(href)}
		row := link.ParentsFiltered("tr").First()
		if row.Length() > 0 {
			cells := row.Find("td")
			if cells.Length() >= 6 {
				cell := func(idx int) string {
					return textutil.CleanCell(cells.Eq(idx).Text())
				}
				entry.Index = cell(0)
				entry.Semester = cell(1)
				entry.Category = cell(2)
				entry.Batch = cell(3)
				entry.StartTime = cell(4)
				entry.EndTime = cell(5)
			}
		}
		entries = append(entries, entry)
	})
	return entries
}

// GetEvaluationCourses fetches one batch's course list.
func (c *Client) GetEvaluationCourses(ctx context.Context, listUrl string) ([]EvaluationCourse, error) {
	ctx, span := tracer.Start(ctx, "client:GetEvaluationCourses")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(listUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course list fetch failed")
		return nil, fmt.Errorf("fetch evaluation course list: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return nil, err
	}

	courses, err := c.ParseEvaluationCourses(res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course list parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(courses)))
	return courses, nil
}

// ParseEvaluationCourses extracts a batch's course rows. The edit link
// hides inside a javascript:openWindow('...') href in the operation
// column.
func (c *Client) ParseEvaluationCourses(html string) ([]EvaluationCourse, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table#dataList").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrMissingTable)
	}

	var courses []EvaluationCourse
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 9 {
			return
		}

		cell := func(idx int) string {
			return textutil.CleanCell(cells.Eq(idx).Text())
		}
		course := EvaluationCourse{
			Index:          cell(0),
			CourseCode:     cell(1),
			CourseName:     cell(2),
			Teacher:        cell(3),
			EvaluationType: cell(4),
			TotalScore:     cell(5),
			IsEvaluated:    cell(6),
			IsSubmitted:    cell(7),
		}

		cells.Eq(8).Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, ok := link.Attr("href")
			if !ok || !evaluationEditRegex.MatchString(href) {
				return true
			}
			if edit := extractOpenWindowUrl(href); edit != "" {
				course.EvaluationLink = c.resolveLink(edit)
				return false
			}
			return true
		})

		courses = append(courses, course)
	})

	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: table#dataList", ErrEmptyResult)
	}
	return courses, nil
}

// the operation column wraps its target in javascript:openWindow('/jsxsd/...')
func extractOpenWindowUrl(href string) string {
	if !strings.HasPrefix(href, "javascript:openWindow(") {
		return ""
	}
	start := strings.Index(href, "'")
	if start < 0 {
		return ""
	}
	end := strings.Index(href[start+1:], "'")
	if end < 0 {
		return ""
	}
	return href[start+1 : start+1+end]
}

// relative portal links come back rooted at the host, not the jsxsd
// prefix
func (c *Client) resolveLink(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return fmt.Sprintf("%s://%s%s", c.BaseUrl.Scheme, c.BaseUrl.Host, href)
	}
	return href
}

// UnsubmittedCourses filters a batch down to the rows still awaiting
// submission, the "否" flag in the is_submitted column.
func UnsubmittedCourses(courses []EvaluationCourse) []EvaluationCourse {
	var out []EvaluationCourse
	for _, course := range courses {
		if course.IsSubmitted == "否" {
			out = append(out, course)
		}
	}
	return out
}

// AutoEvaluate fills in and submits one course's evaluation form,
// picking the first (highest) option of every radio group and leaving
// the free-text suggestion empty. This is the explicitly opt-in part
// of the evaluation domain: it mutates backend state on the student's
// behalf and is never run unless enabled in config.
func (c *Client) AutoEvaluate(ctx context.Context, course EvaluationCourse) error {
	ctx, span := tracer.Start(ctx, "client:AutoEvaluate")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.CourseName))

	if course.EvaluationLink == "" {
		return fmt.Errorf("%w: course %q has no evaluation link", ErrSchemaMismatch, course.CourseName)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(course.EvaluationLink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation form fetch failed")
		return fmt.Errorf("fetch evaluation form: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return err
	}

	formData, err := FillEvaluationForm(res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation form parse failed")
		return err
	}

	submit, err := c.Http.R().
		SetContext(ctx).
		SetFormData(formData).
		Post(evaluationSavePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation submit failed")
		return fmt.Errorf("submit evaluation: %w", err)
	}
	if submit.StatusCode() != 200 {
		span.SetStatus(codes.Error, "evaluation submit rejected")
		return fmt.Errorf("submit evaluation: unexpected status %s", submit.Status())
	}
	return nil
}

// FillEvaluationForm parses the evaluation form page and builds the
// submission payload: every hidden field as-is, the first option of
// every indicator and survey radio group, submit flag set, suggestion
// box empty.
func FillEvaluationForm(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	form := doc.Find("form#Form1").First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: form#Form1", ErrMissingTable)
	}

	formData := map[string]string{}

	form.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		formData[name] = input.AttrOr("value", "")
	})

	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		value := input.AttrOr("value", "")
		if name == "" || value == "" {
			return
		}
		if !indicatorNameRegex.MatchString(name) && !surveyNameRegex.MatchString(name) {
			return
		}
		// first option wins, later options of the same group are ignored
		if _, taken := formData[name]; !taken {
			formData[name] = value
		}
	})

	formData["issubmit"] = "1"
	formData["jynr"] = ""
	return formData, nil
}
