package jsxsd

import "strings"

// Markers holds the literal substrings used to classify portal pages.
// The backend gives no machine-readable signal for any of these states,
// everything is sniffed out of server-rendered HTML, and the strings
// have changed across portal upgrades before. They are configuration,
// not constants: override them from config when the portal changes.
type Markers struct {
	// present on the landing page only when the session is authenticated
	Authenticated string `json:"authenticated"`
	// present on the login page when a captcha is being demanded
	Captcha string `json:"captcha"`
	// any of these on the login response means the credentials were bad
	BadCredentials []string `json:"bad_credentials"`
	// any of these in a data response means we were bounced to login
	LoginPage []string `json:"login_page"`
}

func DefaultMarkers() Markers {
	return Markers{
		Authenticated:  "学生个人中心",
		Captcha:        "验证码",
		BadCredentials: []string{"用户名或密码错误", "密码不正确", "用户名不存在"},
		LoginPage:      []string{"统一身份认证", "用户登录"},
	}
}

// the single authenticated-page predicate: every expiry check in the
// client goes through here so the detection rule can be swapped without
// touching callers
func (m Markers) IsAuthenticatedPage(body string) bool {
	return strings.Contains(body, m.Authenticated)
}

func (m Markers) IsLoginPage(body string) bool {
	for _, marker := range m.LoginPage {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func (m Markers) IsCaptchaPage(body string) bool {
	return m.Captcha != "" && strings.Contains(body, m.Captcha)
}

func (m Markers) IsBadCredentialsPage(body string) bool {
	for _, marker := range m.BadCredentials {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
