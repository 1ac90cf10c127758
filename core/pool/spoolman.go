package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// SpoolmanStore talks to a Spoolman-style pool service over its synchronous
// get/put record API.
type SpoolmanStore struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// Overrides rarely change; singleflight collapses the concurrent
	// fetches that a burst of file events would otherwise fan out.
	sf singleflight.Group
}

// NewSpoolmanStore creates a client for the pool service at baseURL.
func NewSpoolmanStore(baseURL, token string, timeoutSeconds int) *SpoolmanStore {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}
	return &SpoolmanStore{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

// Get returns the record for a printer. A 404 is an empty record, not an
// error: the pool creates entries lazily on the first Put.
func (s *SpoolmanStore) Get(ctx context.Context, printerID string) (Record, error) {
	var rec Record
	status, err := s.doJSON(ctx, http.MethodGet, s.recordPath(printerID), nil, &rec)
	if err != nil {
		return Record{}, err
	}
	if status == http.StatusNotFound {
		return EmptyRecord(), nil
	}
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	return rec, nil
}

// Put replaces the record for a printer.
func (s *SpoolmanStore) Put(ctx context.Context, printerID string, rec Record) error {
	status, err := s.doJSON(ctx, http.MethodPut, s.recordPath(printerID), rec, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: record endpoint not found", ErrUnavailable)
	}
	return nil
}

// Overrides returns the static overrides map.
func (s *SpoolmanStore) Overrides(ctx context.Context) (map[string]string, error) {
	v, err, _ := s.sf.Do("overrides", func() (any, error) {
		out := map[string]string{}
		status, err := s.doJSON(ctx, http.MethodGet, "/api/v1/overrides", nil, &out)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return map[string]string{}, nil
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (s *SpoolmanStore) recordPath(printerID string) string {
	return "/api/v1/printers/" + url.PathEscape(printerID) + "/record"
}

// doJSON issues one request. Transport failures and 5xx responses map to
// ErrUnavailable so callers treat them as transient. A 404 is returned as a
// status for the caller to interpret.
func (s *SpoolmanStore) doJSON(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, nil
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return resp.StatusCode, fmt.Errorf("pool request %s %s failed: %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}
