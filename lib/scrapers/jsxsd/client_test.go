package jsxsd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"jwassist-backend/lib/jwcodec"

	"github.com/stretchr/testify/require"
)

const (
	testUsername = "2023010101"
	testPassword = "s3cret"
)

// fakePortal mimics the portal's awkward habits: every response is a
// 200, success and failure are told apart by page content alone, and
// authentication state lives in a session cookie.
type fakePortal struct {
	mux *http.ServeMux

	captcha  bool
	sessions map[string]bool
}

func newFakePortal() *fakePortal {
	p := &fakePortal{
		mux:      http.NewServeMux(),
		sessions: map[string]bool{},
	}
	valid := jwcodec.EncodeCredentials(testUsername, testPassword)

	p.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("JSESSIONID"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session-1", Path: "/"})
		}
		w.Write([]byte("<html><body>用户登录</body></html>"))
	})

	p.mux.HandleFunc("/xk/LoginToXk", func(w http.ResponseWriter, r *http.Request) {
		if p.captcha {
			w.Write([]byte("<html><body>请输入验证码</body></html>"))
			return
		}
		if r.FormValue("encoded") == valid {
			p.sessions[p.sessionId(r)] = true
			w.Write([]byte("<html><body>redirecting</body></html>"))
			return
		}
		w.Write([]byte("<html><body>用户名或密码错误</body></html>"))
	})

	p.mux.HandleFunc("/framework/xsMain.jsp", func(w http.ResponseWriter, r *http.Request) {
		if p.authenticated(r) {
			w.Write([]byte("<html><body>学生个人中心</body></html>"))
			return
		}
		w.Write([]byte("<html><body>用户登录</body></html>"))
	})

	p.mux.HandleFunc("/kscj/cjcx_list", func(w http.ResponseWriter, r *http.Request) {
		if !p.authenticated(r) {
			w.Write([]byte("<html><body>用户登录</body></html>"))
			return
		}
		w.Write([]byte(gradesFixture))
	})

	return p
}

func (p *fakePortal) sessionId(r *http.Request) string {
	cookie, err := r.Cookie("JSESSIONID")
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (p *fakePortal) authenticated(r *http.Request) bool {
	return p.sessions[p.sessionId(r)]
}

func setupPortal(t *testing.T) (*fakePortal, *Client) {
	portal := newFakePortal()
	server := httptest.NewServer(portal.mux)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return portal, client
}

func TestLogin(t *testing.T) {
	_, client := setupPortal(t)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	ok, err := client.CheckStatus(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoginBadCredentials(t *testing.T) {
	_, client := setupPortal(t)

	err := client.Login(context.Background(), testUsername, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginCaptcha(t *testing.T) {
	portal, client := setupPortal(t)
	portal.captcha = true

	err := client.Login(context.Background(), testUsername, testPassword)
	require.ErrorIs(t, err, ErrCaptchaRequired)
}

func TestGetGradesRequiresLogin(t *testing.T) {
	_, client := setupPortal(t)

	_, err := client.GetGrades(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestGetGrades(t *testing.T) {
	_, client := setupPortal(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	grades, err := client.GetGrades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "计算机基础", grades[0].CourseName)
}

// the portal expires sessions server side without telling anyone; a
// data fetch after expiry gets the login page with a 200 status
func TestSessionExpiry(t *testing.T) {
	portal, client := setupPortal(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	for id := range portal.sessions {
		delete(portal.sessions, id)
	}

	_, err := client.GetGrades(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	ok, err := client.CheckStatus(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarkers(t *testing.T) {
	m := DefaultMarkers()
	require.True(t, m.IsAuthenticatedPage("<div>学生个人中心</div>"))
	require.False(t, m.IsAuthenticatedPage("<div>用户登录</div>"))
	require.True(t, m.IsLoginPage("请进行统一身份认证"))
	require.True(t, m.IsBadCredentialsPage("密码不正确"))
	require.False(t, m.IsCaptchaPage("normal page"))
}
