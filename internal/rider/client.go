package rider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// APIURL is the GraphQL endpoint serving shared-ride state.
	APIURL = "https://api.liberty-rider.com/graphql"

	operationName = "rideSharingMapByUserCurrentRideSharingToken"

	// persistedQueryHash references the stored query server-side; no query
	// text is ever sent.
	persistedQueryHash = "36aac840cff92e832aa03e04b58dd2a2357d3b7459c6416c991c8862acaf3476"

	// FetchTimeout bounds one whole fetch, connection setup included.
	FetchTimeout = 10 * time.Second
)

// ErrNoRide means the API answered successfully but carried no ride object,
// typically because the share expired.
var ErrNoRide = errors.New("no ride data in response")

// TransportError is a failed HTTP exchange: non-2xx status, network error or
// timeout. The response body, when there was one, is kept for diagnostics.
type TransportError struct {
	Status int    // 0 when the request never completed
	Body   string // Truncated response body, or the underlying error text
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return "transport error: " + e.Body
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

// ProtocolError is a well-formed HTTP success whose body carries a GraphQL
// errors array.
type ProtocolError struct {
	Messages []string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("graphql errors: %v", e.Messages)
}

// Source produces ride snapshots. Client is the real implementation;
// DemoSource simulates one for development.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Ride, error)
}

// Client fetches ride state for one share token. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiURL     string
	ref        ShareRef
}

// NewClient builds a client for one share reference.
func NewClient(ref ShareRef) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: FetchTimeout},
		apiURL:     APIURL,
		ref:        ref,
	}
}

// NewClientForTesting points the client at a fake endpoint with a custom
// timeout.
func NewClientForTesting(ref ShareRef, apiURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		ref:        ref,
	}
}

func (c *Client) Name() string { return "liberty-rider api" }

type graphqlRequest struct {
	OperationName string                 `json:"operationName"`
	Variables     map[string]string      `json:"variables"`
	Extensions    map[string]interface{} `json:"extensions"`
}

type graphqlResponse struct {
	Data *struct {
		Ride *Ride `json:"ride"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Fetch performs one authenticated poll. Errors are always one of
// *TransportError, *ProtocolError or ErrNoRide; every other failure mode on
// the fetch path (bad JSON, connection reset, timeout) is folded into
// *TransportError.
func (c *Client) Fetch(ctx context.Context) (*Ride, error) {
	payload := graphqlRequest{
		OperationName: operationName,
		Variables:     map[string]string{"token": c.ref.Token},
		Extensions: map[string]interface{}{
			"persistedQuery": map[string]interface{}{
				"version":    1,
				"sha256Hash": persistedQueryHash,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Body: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apollo-operation-name", operationName)
	req.Header.Set("apollo-require-preflight", "true")
	req.Header.Set("Origin", BaseURL)
	req.Header.Set("Referer", c.ref.RawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: "bad json: " + err.Error()}
	}

	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &ProtocolError{Messages: msgs}
	}

	if parsed.Data == nil || parsed.Data.Ride == nil {
		return nil, ErrNoRide
	}

	return parsed.Data.Ride, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
