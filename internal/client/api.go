package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
)

// ErrNoSession is returned by calls that need a login.
var ErrNoSession = errors.New("not logged in")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Client talks to a SERO-EST server on behalf of one user.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Sessions *SessionStore
}

// New returns a client for baseURL. A nil httpClient gets a 10s timeout.
func New(baseURL string, httpClient *http.Client, sessions *SessionStore) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, Sessions: sessions}
}

// NewTLSClient returns an HTTP client trusting the PEM bundle at caFile.
func NewTLSClient(caFile string) (*http.Client, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

func (c *Client) token() (string, error) {
	if c.Sessions == nil {
		return "", ErrNoSession
	}
	sess := c.Sessions.Current()
	if sess == nil {
		return "", ErrNoSession
	}
	return sess.Token, nil
}

// do sends a request and returns the open response on 2xx.
func (c *Client) do(ctx context.Context, method, path string, in any, authed bool) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		tok, err := c.token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login authenticates and stores the session.
func (c *Client) Login(ctx context.Context, nom, password string) (Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"nom": nom, "motDePasse": password}, false)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if c.Sessions != nil {
		if err := c.Sessions.Save(sess); err != nil {
			return sess, fmt.Errorf("save session: %w", err)
		}
	}
	return sess, nil
}

// Logout revokes the token and clears the local session. The local session
// is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/logout", nil, nil)
	if c.Sessions != nil {
		if cerr := c.Sessions.Clear(); cerr != nil {
			return errors.Join(err, cerr)
		}
	}
	return err
}

func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	return out, c.call(ctx, http.MethodGet, "/api/projects", nil, &out)
}

func (c *Client) Project(ctx context.Context, id string) (models.Project, error) {
	var out models.Project
	return out, c.call(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &out)
}

func (c *Client) Phases(ctx context.Context) ([]models.Phase, error) {
	var out []models.Phase
	return out, c.call(ctx, http.MethodGet, "/api/phases", nil, &out)
}

// SelectableStations lists the stations a report may use.
func (c *Client) SelectableStations(ctx context.Context) ([]models.Station, error) {
	var out []models.Station
	return out, c.call(ctx, http.MethodGet, "/api/stations?selectable=true", nil, &out)
}

func (c *Client) Tasks(ctx context.Context) ([]string, error) {
	var out []string
	return out, c.call(ctx, http.MethodGet, "/api/tasks", nil, &out)
}

func (c *Client) Submit(ctx context.Context, d service.ReportDraft) (models.Report, error) {
	var out models.Report
	return out, c.call(ctx, http.MethodPost, "/api/reports", d, &out)
}

func (c *Client) Recent(ctx context.Context) ([]models.Report, error) {
	var out []models.Report
	return out, c.call(ctx, http.MethodGet, "/api/reports/mine/recent", nil, &out)
}

func (c *Client) Summary(ctx context.Context) (service.UserSummary, error) {
	var out service.UserSummary
	return out, c.call(ctx, http.MethodGet, "/api/reports/mine/summary", nil, &out)
}

// ExportMine downloads the user's reports as xlsx or pdf. It returns the
// filename suggested by the server and the document.
func (c *Client) ExportMine(ctx context.Context, format string) (string, []byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/reports/mine/export?format="+url.QueryEscape(format), nil, true)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	name := "export." + format
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, data, nil
}
