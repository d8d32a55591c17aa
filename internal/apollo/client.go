// Package apollo is a client for the Apollo.io people search and enrichment
// API, the lead source for the platform.
package apollo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.apollo.io/api/v1"

// Client is a direct HTTP client for the Apollo.io API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Apollo API client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithBaseURL creates a client against a non-default endpoint (tests).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// APIError is returned for non-2xx Apollo responses.
type APIError struct {
	Code    int
	Message string
	RawBody string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: %d %s", e.Code, e.Message)
}

// SearchQuery narrows a people search to the roles and location a
// classified requirement produced.
type SearchQuery struct {
	Titles    []string `json:"person_titles,omitempty"`
	Locations []string `json:"person_locations,omitempty"`
	Keywords  string   `json:"q_keywords,omitempty"`
	Page      int      `json:"page,omitempty"`
	PerPage   int      `json:"per_page,omitempty"`
}

// Person is one contact in a search or enrichment response.
type Person struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Title        string `json:"title"`
	Email        string `json:"email"`
	LinkedInURL  string `json:"linkedin_url"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Organization struct {
		Name          string `json:"name"`
		PrimaryDomain string `json:"primary_domain"`
	} `json:"organization"`
}

// Location joins the person's city and country into one display string.
func (p *Person) Location() string {
	switch {
	case p.City != "" && p.Country != "":
		return p.City + ", " + p.Country
	case p.City != "":
		return p.City
	default:
		return p.Country
	}
}

// SearchResult is one page of a people search.
type SearchResult struct {
	People     []Person `json:"people"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
	Total      int      `json:"total_entries"`
}

type searchResponse struct {
	People     []Person `json:"people"`
	Pagination struct {
		Page         int `json:"page"`
		TotalPages   int `json:"total_pages"`
		TotalEntries int `json:"total_entries"`
	} `json:"pagination"`
}

// SearchPeople runs a people search for the given query.
func (c *Client) SearchPeople(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 25
	}

	var result searchResponse
	if err := c.post(ctx, "/mixed_people/search", q, &result); err != nil {
		return nil, err
	}

	return &SearchResult{
		People:     result.People,
		Page:       result.Pagination.Page,
		TotalPages: result.Pagination.TotalPages,
		Total:      result.Pagination.TotalEntries,
	}, nil
}

// EnrichPerson reveals the verified email for a previously found person.
func (c *Client) EnrichPerson(ctx context.Context, personID string) (*Person, error) {
	body := map[string]any{
		"id":                     personID,
		"reveal_personal_emails": false,
	}

	var result struct {
		Person Person `json:"person"`
	}
	if err := c.post(ctx, "/people/match", body, &result); err != nil {
		return nil, err
	}
	if result.Person.ID == "" {
		return nil, &APIError{Code: http.StatusNotFound, Message: "person not found"}
	}
	return &result.Person, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("apollo request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromBody(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorFromBody builds an APIError, pulling the message out of Apollo's
// error envelope when one is present.
func errorFromBody(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Code:    statusCode,
		Message: strings.TrimSpace(string(body)),
		RawBody: string(body),
	}

	var envelope struct {
		Error  string `json:"error"`
		ErrMsg string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.ErrMsg != "":
			apiErr.Message = envelope.ErrMsg
		case envelope.Error != "":
			apiErr.Message = envelope.Error
		}
	}

	return apiErr
}
