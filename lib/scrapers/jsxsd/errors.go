package jsxsd

import "errors"

// login failures. the backend returns HTTP 200 for its own failure
// pages, so these come from sniffing the body, see Markers.
var (
	ErrCaptchaRequired    = errors.New("the portal is asking for a captcha")
	ErrInvalidCredentials = errors.New("the portal rejected the username or password")
	ErrLoginFailed        = errors.New("login failed for an unknown reason")
)

// raised when a data fetch discovers the session has silently expired
// (the portal serves its login page with a 200 status)
var ErrNotAuthenticated = errors.New("session is not authenticated")

// parse failures. ErrMissingTable and ErrEmptyResult are distinct on
// purpose: a page without the expected table is a schema problem, a
// table with zero usable rows may be a broken page masquerading as an
// empty term. neither may be treated as "no data, no changes".
var (
	ErrMissingTable   = errors.New("expected table is missing from the page")
	ErrEmptyResult    = errors.New("table contains no parsable data rows")
	ErrSchemaMismatch = errors.New("page layout does not match the expected schema")
)
