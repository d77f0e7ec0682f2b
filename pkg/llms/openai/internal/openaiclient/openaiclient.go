package openaiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel = "gpt-5-mini"
)

// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
var ErrEmptyResponse = errors.New("empty response")

type ProviderType string

const (
	ProviderOpenAI  ProviderType = "OPENAI"
	ProviderAzure   ProviderType = "AZURE"
	ProviderAzureAD ProviderType = "AZURE_AD"
)

// Client is a client for the OpenAI Responses API.
type Client struct {
	Model    string
	Provider ProviderType

	token        string
	baseURL      string
	organization string
	httpClient   Doer

	// required when Provider is Azure or AzureAD
	apiVersion string
}

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns a new OpenAI client.
func New(provider ProviderType, model, token, baseURL, organization, apiVersion string, httpClient Doer) (*Client, error) {
	if IsAzure(provider) && !supportsResponsesAPI(apiVersion) {
		return nil, errors.Errorf("azure API version %q does not support responses", apiVersion)
	}
	c := &Client{
		Model:        model,
		token:        token,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		organization: organization,
		Provider:     provider,
		apiVersion:   apiVersion,
		httpClient:   httpClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c, nil
}

func supportsResponsesAPI(apiVersion string) bool {
	// Azure API versions are dates like YYYY-MM-DD, optionally with a "-preview" suffix.
	if idx := strings.Index(apiVersion, "-preview"); idx != -1 {
		apiVersion = apiVersion[:idx]
	}
	apiVersion = strings.TrimSpace(apiVersion)
	versionDate, err := time.Parse("2006-01-02", apiVersion)
	if err != nil {
		return false
	}
	thresholdDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return !versionDate.Before(thresholdDate)
}

// CreateResponse creates a response using the Responses API,
// the token overrides the client token if not empty.
func (c *Client) CreateResponse(ctx context.Context, token string, r *responses.ResponseNewParams) (*responses.Response, error) {
	if r.Model == "" {
		if c.Model == "" {
			r.Model = DefaultChatModel
		} else {
			r.Model = c.Model
		}
	}
	if token == "" {
		token = c.token
	}
	return c.createResponse(ctx, token, r)
}

func IsAzure(apiType ProviderType) bool {
	return apiType == ProviderAzure || apiType == ProviderAzureAD
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if c.Provider == ProviderAzure {
		req.Header.Set("api-key", token)
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

func (c *Client) buildURL(suffix string) string {
	if IsAzure(c.Provider) {
		// Azure serves responses from the global endpoint,
		// the deployment is specified by the model in the request body.
		return fmt.Sprintf("%s/openai%s?api-version=%s", c.baseURL, suffix, c.apiVersion)
	}
	return c.baseURL + suffix
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
