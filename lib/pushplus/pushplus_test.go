package pushplus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/snapshotdiff"

	"github.com/stretchr/testify/require"
)

func setupGateway(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientOptions{
		GatewayUrl: server.URL,
		Token:      "test-token",
	})
}

func TestSend(t *testing.T) {
	var received sendRequest
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"code":200,"msg":"请求成功"}`))
	})

	err := client.Send(context.Background(), "📊 成绩更新", "<table></table>")
	require.NoError(t, err)
	require.Equal(t, "test-token", received.Token)
	require.Equal(t, "📊 成绩更新", received.Title)
	require.Equal(t, "html", received.Template)
}

func TestSendEmptyResponse(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	err := client.Send(context.Background(), "t", "c")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSendMalformedResponse(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>502 Bad Gateway</html>"))
	})

	err := client.Send(context.Background(), "t", "c")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendGatewayRejected(t *testing.T) {
	client := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":600,"msg":"用户不存在"}`))
	})

	err := client.Send(context.Background(), "t", "c")
	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, 600, gatewayErr.Code)
	require.Equal(t, "用户不存在", gatewayErr.Msg)
	// the token must never leak through error text
	require.NotContains(t, err.Error(), "test-token")
}

func TestRenderGrades(t *testing.T) {
	html := RenderGrades([]jsxsd.GradeRecord{
		{Semester: "2024-2025-1", CourseName: "计算机基础", Score: "85", Credit: "3", Gpa: "3.5"},
	})
	require.Contains(t, html, "<table")
	require.Contains(t, html, "计算机基础")
	require.Contains(t, html, "85")
}

func TestRenderExamsUpcomingSection(t *testing.T) {
	exams := []jsxsd.ExamRecord{
		{CourseName: "高等数学", ExamTime: "2025-06-01 09:00~11:00", ExamRoom: "C4楼505"},
	}
	upcoming := []jsxsd.UpcomingExam{{ExamRecord: exams[0], DaysUntil: 7}}

	html := RenderExams(exams, upcoming)
	require.Contains(t, html, "近期考试")
	require.Contains(t, html, "7天")

	withoutUpcoming := RenderExams(exams, nil)
	require.NotContains(t, withoutUpcoming, "近期考试")
	require.Contains(t, withoutUpcoming, "高等数学")
}

func TestRenderChanges(t *testing.T) {
	html := RenderChanges([]snapshotdiff.Change{
		{Kind: snapshotdiff.Updated, Label: "计算机基础 90", PreviousLabel: "计算机基础 85"},
		{Kind: snapshotdiff.Added, Label: "大学体育 88"},
	})
	require.Contains(t, html, "计算机基础 85")
	require.Contains(t, html, "计算机基础 90")
	require.Contains(t, html, "大学体育 88")

	require.Empty(t, RenderChanges(nil))
}
