package earthdata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// Mode selects how credentials are presented to the login host.
type Mode int

const (
	// ModeAuto sends Basic credentials and falls back to the login form
	// when the login host rejects them.
	ModeAuto Mode = iota
	// ModeBasic sends Basic credentials on every archive and login hop.
	ModeBasic
	// ModeForm posts the login form whenever a redirect lands on the login host.
	ModeForm
)

// ParseMode parses "auto", "basic" or "form".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "basic":
		return ModeBasic, nil
	case "form":
		return ModeForm, nil
	default:
		return ModeAuto, fmt.Errorf("unknown auth mode %q (want auto, basic or form)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeForm:
		return "form"
	default:
		return "auto"
	}
}

// Authenticator produces an authenticated response for a request. The caller
// closes the returned body.
type Authenticator interface {
	Authenticate(client *http.Client, req *http.Request) (*http.Response, error)
}

// LoginFlow replays the Earthdata Login handshake for each request. The client
// passed to Authenticate must not follow redirects on its own, so that every
// hop can be authorized.
type LoginFlow struct {
	creds        Credentials
	loginHost    string
	mode         Mode
	maxRedirects int
}

// NewLoginFlow creates a LoginFlow. loginHost may carry a port.
func NewLoginFlow(creds Credentials, loginHost string, mode Mode, maxRedirects int) *LoginFlow {
	if loginHost == "" {
		loginHost = DefaultLoginHost
	}
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	return &LoginFlow{
		creds:        creds,
		loginHost:    loginHost,
		mode:         mode,
		maxRedirects: maxRedirects,
	}
}

// Authenticate sends req and follows redirects, authorizing each hop.
func (f *LoginFlow) Authenticate(client *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	origin := req.URL.Host

	resp, err := f.do(client, req, origin, nil)
	for hop := 0; ; hop++ {
		if err != nil {
			return nil, err
		}
		if !isRedirect(resp.StatusCode) {
			return resp, nil
		}
		if hop >= f.maxRedirects {
			drainClose(resp)
			return nil, fmt.Errorf("stopped after %d redirects", f.maxRedirects)
		}

		target, locErr := resp.Location()
		carried := resp.Cookies()
		drainClose(resp)
		if locErr != nil {
			return nil, fmt.Errorf("follow redirect: %w", locErr)
		}

		next, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if reqErr != nil {
			return nil, reqErr
		}
		if ua := req.Header.Get("User-Agent"); ua != "" {
			next.Header.Set("User-Agent", ua)
		}
		resp, err = f.do(client, next, origin, carried)
	}
}

// do sends a single hop. carried holds the cookies of the redirect that led here.
func (f *LoginFlow) do(client *http.Client, req *http.Request, origin string, carried []*http.Cookie) (*http.Response, error) {
	login := f.isLoginHost(req.URL)
	if login && f.mode == ModeForm {
		return f.submitForm(req.Context(), client, req.URL, carried)
	}

	if f.mode != ModeForm && (login || req.URL.Host == origin) {
		req.SetBasicAuth(f.creds.Username, f.creds.Password)
	}
	resp, err := client.Do(req)
	if err != nil || !login || f.mode != ModeAuto {
		return resp, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	drainClose(resp)
	log.Printf("INFO: %s rejected basic auth (%d); retrying with login form", req.URL.Host, resp.StatusCode)
	return f.submitForm(req.Context(), client, req.URL, carried)
}

func (f *LoginFlow) submitForm(ctx context.Context, client *http.Client, target *url.URL, carried []*http.Cookie) (*http.Response, error) {
	form := url.Values{}
	form.Set("username", f.creds.Username)
	form.Set("password", f.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range carried {
		req.AddCookie(c)
	}
	return client.Do(req)
}

func (f *LoginFlow) isLoginHost(u *url.URL) bool {
	return strings.EqualFold(u.Host, f.loginHost) || strings.EqualFold(u.Hostname(), f.loginHost)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// drainClose lets the transport reuse the connection.
func drainClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
