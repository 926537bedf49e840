// Package vikunja implements the service.Service interface against the
// Vikunja REST API.
package vikunja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jaytaylor/html2text"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dori/vikta/internal/model"
	"github.com/dori/vikta/internal/service"
)

const (
	// APITimeout bounds each API call.
	APITimeout = 5 * time.Second

	// defaultProjectID is the inbox project new tasks land in.
	defaultProjectID = 1

	// MaxPriority is the highest priority Vikunja accepts.
	MaxPriority = 5

	// totalPagesHeader carries the page count on list responses.
	totalPagesHeader = "x-pagination-total-pages"

	detailCacheSize = 256
	detailCacheTTL  = 5 * time.Minute

	requestsPerSecond = 10
	requestBurst      = 5
)

var _ service.Service = (*Client)(nil)

// Client implements service.Service using the Vikunja API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	details *expirable.LRU[int64, model.Task]
}

// New creates a new Vikunja client authenticating with the given API token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		details: expirable.NewLRU[int64, model.Task](detailCacheSize, nil, detailCacheTTL),
	}
}

// List returns one page of tasks matching the filter.
func (c *Client) List(ctx context.Context, filter model.Filter, page int) (model.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", "created")
	q.Set("filter_by", "done")
	q.Set("filter_value", strconv.FormatBool(filter.Done()))
	q.Set("filter_comparator", "equals")

	var wire []taskJSON
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/tasks/all?"+q.Encode(), nil, &wire)
	if err != nil {
		return model.Page{}, wrapError(err)
	}

	// The server omits the header on some error paths; the page just
	// served is then the only page we know about.
	total := page
	if v := resp.Header.Get(totalPagesHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			total = n
		}
	}

	p := model.Page{Number: page, TotalPages: total}
	for _, w := range wire {
		p.Tasks = append(p.Tasks, toTask(w))
	}
	log.Debugf("listed %d tasks (%s, page %d/%d)", len(p.Tasks), filter, page, total)
	return p, nil
}

// Create makes a new task in the inbox project and returns it as stored.
func (c *Client) Create(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return model.Task{}, &service.ValidationError{Reason: "task title cannot be empty"}
	}
	if draft.Priority < 0 || draft.Priority > MaxPriority {
		return model.Task{}, &service.ValidationError{
			Reason: fmt.Sprintf("priority %d is out of range (1-%d)", draft.Priority, MaxPriority),
		}
	}

	body := createJSON{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
	}
	if draft.DueDate != nil {
		// Date-precision dues go out as end of day so the task stays
		// current through the whole date it names.
		due := endOfDay(*draft.DueDate)
		body.DueDate = &due
	}

	path := fmt.Sprintf("/api/v1/projects/%d/tasks", defaultProjectID)
	var wire taskJSON
	if _, err := c.do(ctx, http.MethodPut, path, body, &wire); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return model.Task{}, &service.ValidationError{Reason: apiErr.Message}
		}
		return model.Task{}, wrapError(err)
	}
	log.Debugf("created task %d %q", wire.ID, wire.Title)
	return toTask(wire), nil
}

// SetDone sets the completion state of a task.
func (c *Client) SetDone(ctx context.Context, id int64, done bool) error {
	path := fmt.Sprintf("/api/v1/tasks/%d", id)
	if _, err := c.do(ctx, http.MethodPost, path, setDoneJSON{Done: done}, nil); err != nil {
		return wrapError(err)
	}
	c.details.Remove(id)
	log.Debugf("set task %d done=%v", id, done)
	return nil
}

// GetDetails returns the full task, caching results for a short time.
func (c *Client) GetDetails(ctx context.Context, id int64) (model.Task, error) {
	if t, ok := c.details.Get(id); ok {
		log.Debugf("detail cache hit for task %d", id)
		return t, nil
	}

	var wire taskJSON
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", id), nil, &wire); err != nil {
		return model.Task{}, wrapError(err)
	}
	t := toTask(wire)
	c.details.Add(id, t)
	return t, nil
}

// do issues one API request and decodes the JSON response into out when the
// status is 2xx. The response is returned with its body drained so callers
// can still read headers.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var r io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, err
		}
		r = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, newAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// apiError is a non-2xx response from the server.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

func newAPIError(resp *http.Response) *apiError {
	e := &apiError{StatusCode: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		e.Message = body.Message
	}
	return e
}

// wrapError rewrites transport and status errors into user-facing messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.New("authentication failed (check API_KEY)")
		case http.StatusNotFound:
			return service.ErrNotFound
		}
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("request timed out")
	}

	return err
}

// taskJSON is the wire shape of a task.
type taskJSON struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Done        bool        `json:"done"`
	Priority    int         `json:"priority"`
	DueDate     time.Time   `json:"due_date"`
	Labels      []labelJSON `json:"labels"`
}

type labelJSON struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type createJSON struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type setDoneJSON struct {
	Done bool `json:"done"`
}

// toTask maps a wire task to the model. The server reports a missing due
// date as the zero timestamp.
func toTask(w taskJSON) model.Task {
	t := model.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: descriptionText(w.Description),
		Done:        w.Done,
		Priority:    w.Priority,
	}
	if !w.DueDate.IsZero() {
		due := w.DueDate
		t.DueDate = &due
	}
	for _, l := range w.Labels {
		t.Labels = append(t.Labels, model.Label{ID: l.ID, Title: l.Title})
	}
	return t
}

// descriptionText flattens the HTML description the server stores into
// plain text. The server encodes an empty description as "<p></p>".
func descriptionText(html string) string {
	if html == "" || html == "<p></p>" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return html
	}
	return text
}

func endOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
}
