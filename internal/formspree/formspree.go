// Package formspree pulls tester result submissions from the Formspree
// submissions API and converts them into result payloads.
package formspree

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/uatkit/uat/internal/importer/results"
)

const (
	// DefaultBaseURL is the public Formspree API host
	DefaultBaseURL = "https://formspree.io"

	pageSize       = 100
	maxPages       = 500
	requestTimeout = 30 * time.Second
)

// Submission is one form submission. Fields holds the submitted form
// fields as raw JSON.
type Submission struct {
	ID     string
	Date   time.Time
	Fields map[string]json.RawMessage
}

type submissionsResponse struct {
	Submissions []map[string]json.RawMessage `json:"submissions"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the Formspree submissions API
type Client struct {
	baseURL string
	formID  string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	maxPages int
}

// Options configures a Client
type Options struct {
	BaseURL           string
	FormID            string
	APIKey            string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// NewClient creates a client. FormID and APIKey are required.
func NewClient(opts Options) (*Client, error) {
	if opts.FormID == "" {
		return nil, fmt.Errorf("formspree form ID not set (formspree.form_id or UAT_FORMSPREE_FORM_ID)")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("formspree API key not set (formspree.api_key or UAT_FORMSPREE_API_KEY)")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		formID:  opts.FormID,
		apiKey:  opts.APIKey,
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:  opts.Logger,

		maxPages: maxPages,
	}, nil
}

// Submissions returns every submission newer than since (all when since
// is zero), oldest first. Paging stops at a short page, or at a page
// holding only submissions already seen.
func (c *Client) Submissions(ctx context.Context, since time.Time) ([]Submission, error) {
	var all []Submission
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("formspree paging did not finish after %d pages", c.maxPages)
		}
		batch, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		fresh := 0
		for _, raw := range batch {
			sub := parseSubmission(raw)
			if sub.ID != "" {
				if seen[sub.ID] {
					continue
				}
				seen[sub.ID] = true
			}
			fresh++
			if !since.IsZero() && !sub.Date.After(since) {
				continue
			}
			all = append(all, sub)
		}
		if len(batch) < pageSize {
			break
		}
		if fresh == 0 {
			c.logger.Warn("formspree returned a repeated page, stopping", zap.Int("page", page))
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	c.logger.Debug("fetched formspree submissions", zap.Int("count", len(all)))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]map[string]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	endpoint := fmt.Sprintf("%s/api/0/forms/%s/submissions?%s", c.baseURL, url.PathEscape(c.formID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("formspree API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("formspree API error (status %d)", resp.StatusCode)
	}

	var parsed submissionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse submissions: %w", err)
	}
	return parsed.Submissions, nil
}

func parseSubmission(raw map[string]json.RawMessage) Submission {
	sub := Submission{Fields: make(map[string]json.RawMessage, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id", "id":
			sub.ID = rawID(v)
		case "_date":
			if t, err := time.Parse(time.RFC3339, rawString(v)); err == nil {
				sub.Date = t
			}
		default:
			sub.Fields[k] = v
		}
	}
	return sub
}

// Payload converts a submission into a results payload. The results
// field may be a JSON array or a string holding one.
func (s Submission) Payload() (*results.Payload, error) {
	p := &results.Payload{
		Tester:      rawString(s.Fields["tester"]),
		SyncType:    rawString(s.Fields["sync_type"]),
		SubmittedAt: rawString(s.Fields["submitted_at"]),
		SyncedAt:    rawString(s.Fields["synced_at"]),
	}
	if p.SubmittedAt == "" && p.SyncedAt == "" && !s.Date.IsZero() {
		p.SubmittedAt = s.Date.UTC().Format(time.RFC3339)
	}

	raw, ok := s.Fields["results"]
	if !ok {
		return nil, fmt.Errorf("submission %s has no results field", s.ID)
	}
	if str := rawString(raw); str != "" {
		raw = json.RawMessage(str)
	}
	if err := json.Unmarshal(raw, &p.Results); err != nil {
		return nil, fmt.Errorf("submission %s: failed to parse results: %w", s.ID, err)
	}
	return p, nil
}

// rawID accepts string or numeric submission IDs
func rawID(v json.RawMessage) string {
	if s := rawString(v); s != "" {
		return s
	}
	var n json.Number
	if json.Unmarshal(v, &n) != nil {
		return ""
	}
	return n.String()
}

// rawString returns the value of a JSON string, or "" for anything else
func rawString(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}
