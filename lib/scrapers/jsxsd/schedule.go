package jsxsd

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"jwassist-backend/lib/htmlutil"
	"jwassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const schedulePath = "/xskb/xskb_list.do"

var (
	// "080402D001-01": 6 digits, 1 letter, 3 digits, hyphen, 2 digits
	courseCodeRegex = regexp.MustCompile(`\d{6}[A-Z]\d{3}-\d{2}`)
	// "1-16(周)"
	weeksRegex = regexp.MustCompile(`\d+-\d+\(周\)`)
	// building marker, e.g. "C4楼", optionally followed by a room number
	buildingRegex = regexp.MustCompile(`[A-Z]\d+楼\d*`)
)

// room-type words that belong to the classroom, not the course name
var classroomKeywords = []string{"机房", "实验室", "教室"}

// GetSchedule fetches the timetable for a single teaching week of the
// given term ("2024-2025-2" style) and extracts its entries.
func (c *Client) GetSchedule(ctx context.Context, week int, term string) ([]ScheduleEntry, error) {
	ctx, span := tracer.Start(ctx, "client:GetSchedule")
	defer span.End()
	span.SetAttributes(
		attribute.Int("week", week),
		attribute.String("term", term),
	)

	if err := c.ensureAuthenticated(ctx); err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"Ves632DSdyV": "NEW_XSD_PYGL",
			"zc1":         fmt.Sprint(week),
			"zc2":         fmt.Sprint(week),
			"xnxq01id":    term,
		}).
		Get(schedulePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule fetch failed")
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	if err := c.checkSessionBody(res.String()); err != nil {
		span.SetStatus(codes.Error, "session expired mid-fetch")
		return nil, err
	}

	entries, err := ParseSchedule(res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(entries)))
	return entries, nil
}

// ParseSchedule extracts ScheduleEntries from the timetable page. The
// table has one row per time slot; its first cell is the slot label
// and cells 2-8 hold the courses for weekdays 1-7. A slot/day cell may
// be empty, which is not an entry. A page with the table but no course
// in any cell is ErrEmptyResult so a broken page cannot pass for a
// week without classes.
func ParseSchedule(html string) ([]ScheduleEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table#kbtable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: table#kbtable", ErrMissingTable)
	}

	var entries []ScheduleEntry
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// weekday header
			return
		}
		cells := row.Find("th, td")
		if cells.Length() < 8 {
			return
		}

		timeSlot := textutil.CleanCell(cells.Eq(0).Text())
		for day := 1; day <= 7; day++ {
			if day >= cells.Length() {
				break
			}
			course := parseCourseCell(cells.Eq(day))
			if course == nil {
				continue
			}
			entries = append(entries, ScheduleEntry{
				TimeSlot: timeSlot,
				Weekday:  day,
				Course:   *course,
			})
		}
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table#kbtable", ErrEmptyResult)
	}
	return entries, nil
}

// the course, if any, inside a single day cell. the portal nests the
// course text in a div with a fixed class; a cell without that div, or
// with only a non-breaking space in it, holds no class.
func parseCourseCell(cell *goquery.Selection) *ScheduleCourse {
	div := cell.Find("div.kbcontent1").First()
	if div.Length() == 0 {
		return nil
	}

	var text string
	for _, node := range div.Nodes {
		text = htmlutil.GetTextWithBreaks(node)
		break
	}
	text = strings.Trim(text, " \t\n")
	if text == "" || text == "\u00a0" {
		return nil
	}

	lines := strings.Split(text, "\n")
	course := DecomposeCourseText(strings.TrimSpace(lines[0]))
	if len(lines) > 1 {
		remainder := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if remainder != "" {
			course.UnparsedRemainder = remainder
		}
	}
	return &course
}

// DecomposeCourseText splits one timetable cell line into its course
// fields. The blob packs code, week range, classroom and name with no
// delimiter, so extraction is an ordered sequence of pattern steps over
// the remaining unconsumed text, and the order is load-bearing:
//
//  1. pull out the course-code token
//  2. pull out the week-range token
//  3. find a building marker; the text before it is the name, the
//     marker plus an immediately following room-type keyword is the
//     classroom, and anything after that flows back into the name
//     (the portal emits both name-first and classroom-first cells).
//     a room-type keyword dangling at the end of the name belongs to
//     the classroom instead. with no building marker, a trailing
//     room-type keyword alone is the classroom.
//  4. whatever is left is the course name
func DecomposeCourseText(line string) ScheduleCourse {
	var course ScheduleCourse
	full := line

	if code := courseCodeRegex.FindString(full); code != "" {
		course.CourseCode = code
		full = strings.TrimSpace(strings.Replace(full, code, "", 1))
	}

	if weeks := weeksRegex.FindString(full); weeks != "" {
		course.Weeks = weeks
		full = strings.TrimSpace(strings.Replace(full, weeks, "", 1))
	}

	if loc := buildingRegex.FindStringIndex(full); loc != nil {
		name := strings.TrimSpace(full[:loc[0]])
		classroom := full[loc[0]:loc[1]]
		rest := strings.TrimSpace(full[loc[1]:])

		for _, keyword := range classroomKeywords {
			if strings.HasSuffix(name, keyword) {
				name = strings.TrimSpace(strings.TrimSuffix(name, keyword))
				classroom = keyword + " " + classroom
				break
			}
		}
		for _, keyword := range classroomKeywords {
			if strings.HasPrefix(rest, keyword) {
				classroom = classroom + keyword
				rest = strings.TrimSpace(strings.TrimPrefix(rest, keyword))
				break
			}
		}

		course.Name = strings.TrimSpace(name + rest)
		course.Classroom = classroom
	} else {
		name := full
		for _, keyword := range classroomKeywords {
			if strings.HasSuffix(name, keyword) {
				course.Classroom = keyword
				name = strings.TrimSpace(strings.TrimSuffix(name, keyword))
				break
			}
		}
		course.Name = name
	}

	if course.Name == "" && course.Classroom == "" && full != "" {
		course.Name = full
	}
	return course
}

// slot codes as printed in the timetable's first column mapped to
// wall-clock ranges; unknown codes pass through untranslated
var timeSlotNames = map[string]string{
	"0102": "9:30-11:05",
	"0304": "11:20-12:55",
	"0405": "12:10-13:45",
	"0607": "16:00-17:35",
	"0809": "17:50-19:25",
}

func ConvertTimeSlot(code string) string {
	if name, ok := timeSlotNames[code]; ok {
		return name
	}
	return code
}
