package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"jwassist-backend/lib/jwcodec"
	"jwassist-backend/lib/pushplus"
	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/testutil"
	"jwassist-backend/lib/timezone"
	"jwassist-backend/services/watcher/db"

	"github.com/stretchr/testify/require"
)

const (
	testUsername = "2023010101"
	testPassword = "s3cret"
)

// fakePortal serves just enough of the portal for a watcher run:
// login handshake, status page, grades table and the exam pages. Grade
// scores and exam rooms are mutable so tests can simulate the portal
// changing between polls.
type fakePortal struct {
	mux *http.ServeMux

	term      string
	mathScore string
	examRoom  string
}

func newFakePortal() *fakePortal {
	p := &fakePortal{
		mux:       http.NewServeMux(),
		term:      timezone.GetAcademicYear(timezone.Now()).String() + "-1",
		mathScore: "85",
		examRoom:  "C4楼505",
	}
	valid := jwcodec.EncodeCredentials(testUsername, testPassword)
	authed := false

	p.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>用户登录</body></html>"))
	})
	p.mux.HandleFunc("/xk/LoginToXk", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("encoded") == valid {
			authed = true
			w.Write([]byte("<html><body>redirecting</body></html>"))
			return
		}
		w.Write([]byte("<html><body>用户名或密码错误</body></html>"))
	})
	p.mux.HandleFunc("/framework/xsMain.jsp", func(w http.ResponseWriter, r *http.Request) {
		if authed {
			w.Write([]byte("<html><body>学生个人中心</body></html>"))
			return
		}
		w.Write([]byte("<html><body>用户登录</body></html>"))
	})

	p.mux.HandleFunc("/kscj/cjcx_list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<table id="dataList">
			<tr>%s</tr>
			<tr>
				<td>1</td><td>%s</td><td>080402D002</td><td>高等数学</td>
				<td>%s</td><td>4</td><td>64</td><td>3.5</td>
				<td>考试</td><td>必修</td><td>公共基础课</td><td>正常考试</td>
				<td>&nbsp;</td><td>&nbsp;</td>
			</tr>
		</table>`, "<th>h</th>", p.term, p.mathScore)
	})

	p.mux.HandleFunc("/xsks/xsksap_query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<select id="xnxqid">
			<option value="%s" selected="selected">%s</option>
		</select>`, p.term, p.term)
	})
	p.mux.HandleFunc("/xsks/xsksap_list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<table id="dataList">
			<tr><th>h</th></tr>
			<tr>
				<td>1</td><td>期末</td><td>080402D002</td><td>高等数学</td>
				<td>2099-01-15 09:00~11:00</td><td>%s</td><td>12</td><td>闭卷</td><td>&nbsp;</td>
			</tr>
		</table>`, p.examRoom)
	})

	return p
}

// fakeGateway records every push and answers with a configurable code
type fakeGateway struct {
	mux    *http.ServeMux
	code   int
	pushes []struct{ Title, Content string }
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{mux: http.NewServeMux(), code: 200}
	g.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		g.pushes = append(g.pushes, struct{ Title, Content string }{req.Title, req.Content})
		fmt.Fprintf(w, `{"code":%d,"msg":"ok"}`, g.code)
	})
	return g
}

func setupWatcher(t *testing.T) (*fakePortal, *fakeGateway, *Service) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "watcher",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	portal := newFakePortal()
	portalServer := httptest.NewServer(portal.mux)
	t.Cleanup(portalServer.Close)

	gateway := newFakeGateway()
	gatewayServer := httptest.NewServer(gateway.mux)
	t.Cleanup(gatewayServer.Close)

	client, err := jsxsd.NewClient(jsxsd.ClientOptions{BaseUrl: portalServer.URL})
	require.NoError(t, err)

	service := NewService(Options{
		Portal: client,
		Push: pushplus.NewClient(pushplus.ClientOptions{
			GatewayUrl: gatewayServer.URL,
			Token:      "test-token",
		}),
		Store: NewStore(res.DB),
	})
	return portal, gateway, service
}

func login(t *testing.T, s *Service) {
	require.NoError(t, s.portal.Login(context.Background(), testUsername, testPassword))
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "watcher-store",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	store := NewStore(res.DB)
	ctx := context.Background()

	loaded, err := LoadSnapshot[jsxsd.GradeRecord](ctx, store, domainGrades, "2024-2025")
	require.NoError(t, err)
	require.Nil(t, loaded)

	grades := []jsxsd.GradeRecord{{CourseName: "高等数学", Score: "85"}}
	require.NoError(t, SaveSnapshot(ctx, store, domainGrades, "2024-2025", grades))

	loaded, err = LoadSnapshot[jsxsd.GradeRecord](ctx, store, domainGrades, "2024-2025")
	require.NoError(t, err)
	require.Equal(t, grades, loaded)

	// overwrite replaces, scoping isolates
	updated := []jsxsd.GradeRecord{{CourseName: "高等数学", Score: "90"}}
	require.NoError(t, SaveSnapshot(ctx, store, domainGrades, "2024-2025", updated))
	loaded, err = LoadSnapshot[jsxsd.GradeRecord](ctx, store, domainGrades, "2024-2025")
	require.NoError(t, err)
	require.Equal(t, updated, loaded)

	other, err := LoadSnapshot[jsxsd.GradeRecord](ctx, store, domainGrades, "2025-2026")
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestRunGrades(t *testing.T) {
	portal, gateway, service := setupWatcher(t)
	ctx := context.Background()
	login(t, service)

	// first observation pushes and commits
	result, err := service.RunGrades(ctx)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.True(t, result.Pushed)
	require.Len(t, gateway.pushes, 1)
	require.Contains(t, gateway.pushes[0].Content, "高等数学")

	// identical poll stays quiet
	result, err = service.RunGrades(ctx)
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Len(t, gateway.pushes, 1)

	// score edit notifies with old and new values
	portal.mathScore = "90"
	result, err = service.RunGrades(ctx)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Len(t, gateway.pushes, 2)
	require.Contains(t, gateway.pushes[1].Content, "85")
	require.Contains(t, gateway.pushes[1].Content, "90")
}

func TestRunGradesPushFailureStillCommits(t *testing.T) {
	_, gateway, service := setupWatcher(t)
	ctx := context.Background()
	login(t, service)

	gateway.code = 600
	result, err := service.RunGrades(ctx)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.False(t, result.Pushed)
	require.Error(t, result.PushErr)

	// the snapshot was committed anyway, so a recovered gateway does
	// not get a duplicate notification for the same change
	gateway.code = 200
	result, err = service.RunGrades(ctx)
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Len(t, gateway.pushes, 1)
}

func TestRunExams(t *testing.T) {
	portal, gateway, service := setupWatcher(t)
	ctx := context.Background()
	login(t, service)

	// term is discovered from the portal's own selector
	result, err := service.RunExams(ctx)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Len(t, gateway.pushes, 1)
	require.Contains(t, gateway.pushes[0].Title, portal.term)

	result, err = service.RunExams(ctx)
	require.NoError(t, err)
	require.False(t, result.Changed)

	// a room change alone is a real change
	portal.examRoom = "B2楼201"
	result, err = service.RunExams(ctx)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Contains(t, gateway.pushes[1].Content, "B2楼201")
}

func TestRunGradesUnauthenticated(t *testing.T) {
	_, gateway, service := setupWatcher(t)

	_, err := service.RunGrades(context.Background())
	require.ErrorIs(t, err, jsxsd.ErrNotAuthenticated)
	require.Empty(t, gateway.pushes)
}
