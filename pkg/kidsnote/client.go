package kidsnote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"knbackup/pkg/config"
	"knbackup/pkg/errors"
	"knbackup/pkg/logger"
)

// Session is the authentication state shared by every call in a run
type Session struct {
	Host         string
	ClientID     string
	RefreshToken string
	Token        *Token
}

// Authenticated reports whether an access token is present
func (s Session) Authenticated() bool {
	return s.Token != nil && s.Token.AccessToken != ""
}

// Client talks to the Kidsnote API and owns the session
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger

	mu      sync.RWMutex
	session Session
}

// NewClient creates a client for cfg. A nil httpClient gets one with
// cfg.RequestTimeout.
func NewClient(httpClient *http.Client, cfg config.KidsnoteConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = config.DefaultHost
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = config.DefaultClientID
	}

	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent": "knbackup/" + logger.Version,
			"Accept":     "application/json",
		},
		logger: log,
		session: Session{
			Host:         host,
			ClientID:     clientID,
			RefreshToken: cfg.RefreshToken,
		},
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Session returns a copy of the current session
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.session
	if s.Token != nil {
		t := *s.Token
		s.Token = &t
	}
	return s
}

// ClearSession drops the stored tokens
func (c *Client) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Token = nil
	c.session.RefreshToken = ""
}

// SetRefreshToken stores a refresh token without contacting the server
func (c *Client) SetRefreshToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.RefreshToken = token
}

// LoginWithPassword exchanges a username and password for tokens
func (c *Client) LoginWithPassword(ctx context.Context, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	form.Set("scope", TokenScope)
	return c.token(ctx, form)
}

// LoginWithRefreshToken exchanges a refresh token for a new token pair
func (c *Client) LoginWithRefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", TokenScope)
	return c.token(ctx, form)
}

// token posts a grant to the token endpoint. The session is replaced on
// success and cleared on any failure.
func (c *Client) token(ctx context.Context, form url.Values) (*Token, error) {
	log := logger.ForStage(c.logger, logger.StageLogin)

	c.mu.RLock()
	endpoint := c.session.Host + TokenEndpoint
	clientID := c.session.ClientID
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.ClearSession()
		return nil, errors.General(err, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+clientID)

	var tok Token
	if err := c.doJSON(req, &tok); err != nil {
		c.ClearSession()
		log.WarnWithFields("token request failed", map[string]interface{}{
			"grant_type": form.Get("grant_type"),
			"error":      err.Error(),
		})
		return nil, err
	}
	if tok.AccessToken == "" {
		c.ClearSession()
		return nil, errors.New(errors.ErrorTypeParsing, "token response has no access token")
	}
	tok.Expiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	c.mu.Lock()
	t := tok
	c.session.Token = &t
	c.session.RefreshToken = tok.RefreshToken
	c.mu.Unlock()

	log.InfoWithFields("token acquired", map[string]interface{}{
		"grant_type": form.Get("grant_type"),
		"expires_in": tok.ExpiresIn,
	})
	return &tok, nil
}

// AuthorizedRequest builds a request carrying the access token. path may be
// absolute or host-relative.
func (c *Client) AuthorizedRequest(ctx context.Context, method, path string) (*http.Request, error) {
	c.mu.RLock()
	host := c.session.Host
	tok := c.session.Token
	c.mu.RUnlock()

	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New(errors.ErrorTypeUnauthorized, "no access token; login first")
	}

	target := path
	if !strings.HasPrefix(path, "http") {
		target = host + path
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errors.General(err, "failed to create request")
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	req.Header.Set("Authorization", tokenType+" "+tok.AccessToken)
	return req, nil
}

// GetMyInfo fetches the account and its children
func (c *Client) GetMyInfo(ctx context.Context) (*MeInfo, error) {
	req, err := c.AuthorizedRequest(ctx, http.MethodGet, MeInfoEndpoint)
	if err != nil {
		return nil, err
	}

	var info MeInfo
	if err := c.doJSON(req, &info); err != nil {
		logger.ForStage(c.logger, logger.StageMyInfo).ErrorWithFields("failed to fetch account info", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return &info, nil
}

// GetReports fetches one page of a child's reports
func (c *Client) GetReports(ctx context.Context, childID uint64, q ReportQuery) (*ReportPage, error) {
	req, err := c.AuthorizedRequest(ctx, http.MethodGet, GetReportsPath(childID, q))
	if err != nil {
		return nil, err
	}

	var page ReportPage
	if err := c.doJSON(req, &page); err != nil {
		logger.ForStage(c.logger, logger.StageReport).ErrorWithFields("failed to fetch reports", map[string]interface{}{
			"child_id": childID,
			"page":     q.Page,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &page, nil
}

// FetchResource downloads an asset URL without authentication
func (c *Client) FetchResource(ctx context.Context, resourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidArgs, err, "bad resource url")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if e := errors.FromStatus(resp.StatusCode, resourceURL); e != nil {
		return nil, e
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "failed to read resource body")
	}
	return data, nil
}

// doRequest sends req with the client headers and logs the exchange
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      redact(req.URL),
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "%s %s", req.Method, redact(req.URL))
	}

	logger.LogRequest(c.logger, req.Method, redact(req.URL), resp.StatusCode, duration)
	return resp, nil
}

// doJSON sends req, checks the status and decodes the body into target
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if e := errors.FromStatus(resp.StatusCode, redact(req.URL)); e != nil {
		return e
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          redact(req.URL),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, err, "failed to parse %s", req.URL.Path)
	}
	return nil
}

// redact drops the query string, which can carry signed access keys
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
}
