package timezone

import (
	"fmt"
	"time"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		panic(err)
	}
}

// force timezone to be where the school is, the machines running this
// end up in arbitrary regions and date math based on
// <time.Time>.Year()/Month()/Day() breaks across midnight otherwise
func Now() time.Time {
	return time.Now().In(Location)
}

type AcademicYear struct {
	StartYear int
	EndYear   int
	StartTime time.Time
}

// gets the current academic year, or if on summer break,
// the previous academic year. the year rolls over in August.
func GetAcademicYear(now time.Time) AcademicYear {
	year := now.Year()
	month := now.Month()

	if month >= 8 {
		return AcademicYear{
			StartYear: year,
			EndYear:   year + 1,
			StartTime: time.Date(year, 8, 1, 0, 0, 0, 0, Location),
		}
	}

	return AcademicYear{
		StartYear: year - 1,
		EndYear:   year,
		StartTime: time.Date(year-1, 8, 1, 0, 0, 0, 0, Location),
	}
}

// the "2024-2025" form used by the portal's semester column
func (y AcademicYear) String() string {
	return fmt.Sprintf("%04d-%04d", y.StartYear, y.EndYear)
}

// the teaching week containing `now`, counted from the configured
// monday of week one. always at least 1, even before the term starts.
func CurrentTeachingWeek(now, firstMonday time.Time) int {
	days := int(now.Sub(firstMonday).Hours() / 24)
	week := days/7 + 1
	if week < 1 {
		return 1
	}
	return week
}
