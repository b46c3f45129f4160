package fusion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/resilience"
)

// Option configures the HTTP client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b resilience.Backoff) Option {
	return func(c *httpClient) {
		c.backoff = b
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
	backoff resilience.Backoff
}

// NewHTTP creates a client for the risk platform's REST API.
func NewHTTP(baseURL, token string, timeout time.Duration, opts ...Option) Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		backoff: resilience.DefaultBackoff(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type recordList struct {
	Records []Record `json:"records"`
}

func (c *httpClient) CheckExisting(ctx context.Context, functionName string) (*ExistingRecord, error) {
	var list recordList
	q := url.Values{"function_name": []string{functionName}}
	if err := c.do(ctx, http.MethodGet, "/records?"+q.Encode(), nil, &list); err != nil {
		return nil, eris.Wrap(err, "fusion: check existing")
	}
	if len(list.Records) == 0 {
		return &ExistingRecord{RecommendedAction: ActionCreate}, nil
	}
	latest := list.Records[0]
	for _, r := range list.Records[1:] {
		if r.UpdatedAt.After(latest.UpdatedAt) {
			latest = r
		}
	}
	updated := latest.UpdatedAt
	return &ExistingRecord{Exists: true, RecordID: latest.ID, LastUpdated: &updated, RecommendedAction: ActionUpdate}, nil
}

type pushRequest struct {
	Fields   RecordFields `json:"fields"`
	Comments string       `json:"comments,omitempty"`
}

func (c *httpClient) Push(ctx context.Context, doc *model.Document, comments string) (*PushResult, error) {
	var res PushResult
	if err := c.do(ctx, http.MethodPost, "/records", pushRequest{Fields: FieldsFromDocument(doc), Comments: comments}, &res); err != nil {
		return nil, eris.Wrapf(err, "fusion: push %s", doc.ID)
	}
	if res.RecordID == "" {
		return nil, eris.Errorf("fusion: push %s: response has no record_id", doc.ID)
	}
	return &res, nil
}

func (c *httpClient) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(recordID), nil, &rec); err != nil {
		return nil, eris.Wrapf(err, "fusion: get record %s", recordID)
	}
	return &rec, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, recordID string, fields RecordFields) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPut, "/records/"+url.PathEscape(recordID), fields, &rec); err != nil {
		return nil, eris.Wrapf(err, "fusion: update record %s", recordID)
	}
	return &rec, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
	}

	body, err := resilience.Retry(ctx, c.backoff, "fusion "+method, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "read response")
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			err := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return respBody, nil
	})
	if err != nil {
		return err
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "unmarshal response")
		}
	}
	return nil
}
