package jsxsd

// Record types for each portal domain. Field order mirrors the column
// order of the tables they are scraped from; json tags match the
// snapshot files the legacy tooling wrote so existing snapshots stay
// readable.

type GradeRecord struct {
	Index            string `json:"index"`
	Semester         string `json:"semester"`
	CourseCode       string `json:"course_code"`
	CourseName       string `json:"course_name"`
	Score            string `json:"score"`
	Credit           string `json:"credit"`
	TotalHours       string `json:"total_hours"`
	Gpa              string `json:"gpa"`
	AssessmentMethod string `json:"assessment_method"`
	CourseAttribute  string `json:"course_attribute"`
	CourseNature     string `json:"course_nature"`
	ExamNature       string `json:"exam_nature"`
	RetakeSemester   string `json:"retake_semester"`
	ScoreFlag        string `json:"score_flag"`
}

type ScheduleCourse struct {
	Name       string `json:"name"`
	Weeks      string `json:"weeks"`
	Classroom  string `json:"classroom"`
	CourseCode string `json:"course_code"`
	// cell text the decomposition steps could not claim; kept as a
	// diagnostic instead of being silently dropped
	UnparsedRemainder string `json:"unparsed_remainder,omitempty"`
}

type ScheduleEntry struct {
	TimeSlot string         `json:"time"`
	Weekday  int            `json:"day"`
	Course   ScheduleCourse `json:"course"`
}

type ExamRecord struct {
	Index      string `json:"index"`
	ExamId     string `json:"exam_id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	ExamTime   string `json:"exam_time"`
	ExamRoom   string `json:"exam_room"`
	SeatNumber string `json:"seat_number"`
	ExamMethod string `json:"exam_method"`
	Remarks    string `json:"remarks"`
}

// ExamTime is the decomposed form of ExamRecord.ExamTime. A raw value
// that does not match "<date> <start>~<end>" leaves Date/Start/End
// empty so downstream sorting treats it as unknown (sorts last).
type ExamTime struct {
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
	Full  string `json:"full"`
}

type TermOption struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// one row of the evaluation entry page, a batch of courses open for
// evaluation
type EvaluationEntry struct {
	Url       string `json:"url"`
	Index     string `json:"index"`
	Semester  string `json:"semester"`
	Category  string `json:"category"`
	Batch     string `json:"batch"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type EvaluationCourse struct {
	Index          string `json:"index"`
	CourseCode     string `json:"course_code"`
	CourseName     string `json:"course_name"`
	Teacher        string `json:"teacher"`
	EvaluationType string `json:"evaluation_type"`
	TotalScore     string `json:"total_score"`
	IsEvaluated    string `json:"is_evaluated"`
	IsSubmitted    string `json:"is_submitted"`
	EvaluationLink string `json:"evaluation_link"`
}
