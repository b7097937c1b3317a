// Package jsxsd is a client for the jsxsd academic portal. The portal
// has no API: it authenticates with a custom credential encoding and
// serves everything as server-rendered HTML meant for a browser, so
// this package owns the session cookies, the login handshake and the
// per-page extractors that turn table soup into typed records.
package jsxsd

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"jwassist-backend/lib/jwcodec"
	"jwassist-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/jsxsd")

const (
	loginPath       = "/xk/LoginToXk"
	statusCheckPath = "/framework/xsMain.jsp"

	// login/status endpoints are cheap, data pages can be slow
	loginTimeout = time.Second * 10
	fetchTimeout = time.Second * 15
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	markers       Markers
	authenticated bool
}

type ClientOptions struct {
	BaseUrl string
	// zero value means DefaultMarkers()
	Markers Markers
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	markers := opts.Markers
	if markers.Authenticated == "" {
		markers = DefaultMarkers()
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	client.SetHeader("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	client.SetHeader("Origin", fmt.Sprintf("%s://%s", baseUrl.Scheme, baseUrl.Host))
	client.SetHeader("Referer", opts.BaseUrl+"/")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(fetchTimeout)

	telemetry.InstrumentResty(client, "scrapers/jsxsd/http")

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		markers: markers,
	}, nil
}

// Login performs the portal handshake: a warm-up request against the
// site root to pick up pre-auth cookies, then the encoded-credential
// form post, then a status check. An HTTP 200 from the login endpoint
// means nothing by itself, the portal returns 200 for its own failure
// pages, so success is decided by CheckStatus alone.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	_, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.SetStatus(codes.Error, "login warm-up failed")
		return fmt.Errorf("login warm-up: %w", err)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"encoded": jwcodec.EncodeCredentials(username, password),
		}).
		Post(loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return fmt.Errorf("login request: %w", err)
	}

	ok, err := c.CheckStatus(ctx)
	if err != nil {
		return fmt.Errorf("post-login status check: %w", err)
	}
	if ok {
		return nil
	}

	body := res.String()
	switch {
	case c.markers.IsCaptchaPage(body):
		span.SetStatus(codes.Error, ErrCaptchaRequired.Error())
		return ErrCaptchaRequired
	case c.markers.IsBadCredentialsPage(body):
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		return ErrInvalidCredentials
	}
	span.SetStatus(codes.Error, ErrLoginFailed.Error())
	return ErrLoginFailed
}

// CheckStatus reports whether the session is currently authenticated.
// Sessions expire silently (expired sessions get the login page with a
// 200 status), so this is called before every data fetch.
func (c *Client) CheckStatus(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:CheckStatus")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(statusCheckPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status check request failed")
		return false, err
	}

	c.authenticated = res.StatusCode() == 200 &&
		c.markers.IsAuthenticatedPage(res.String())
	return c.authenticated, nil
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	ok, err := c.CheckStatus(ctx)
	if err != nil {
		return fmt.Errorf("status check: %w", err)
	}
	if !ok {
		return ErrNotAuthenticated
	}
	return nil
}

// guards every data response: a bounce to the login page still comes
// back as a 200 with HTML, which must not reach the extractors
func (c *Client) checkSessionBody(body string) error {
	if c.markers.IsLoginPage(body) {
		c.authenticated = false
		return ErrNotAuthenticated
	}
	return nil
}
