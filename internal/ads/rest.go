package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/util"
	"github.com/pysugar/ads-account-gateway/internal/version"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://googleads.googleapis.com"
	defaultAPIVersion = "v18"
	defaultTimeout    = 2 * time.Minute
)

// AccessTokens exchanges a refresh token for a bearer token.
type AccessTokens interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
}

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	BaseURL        string
	APIVersion     string
	DeveloperToken string
	// QPS caps outgoing requests per second. Zero or less disables the limit.
	QPS        float64
	HTTPClient *http.Client
}

// RESTClient implements Client over the advertising platform's JSON REST API.
type RESTClient struct {
	baseURL        string
	developerToken string
	tokens         AccessTokens
	httpClient     *http.Client
	limiter        *rate.Limiter
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a client that authenticates calls through tokens.
func NewRESTClient(cfg RESTConfig, tokens AccessTokens) *RESTClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.QPS > 0 {
		burst := int(cfg.QPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	return &RESTClient{
		baseURL:        base + "/" + apiVersion,
		developerToken: cfg.DeveloperToken,
		tokens:         tokens,
		httpClient:     httpClient,
		limiter:        limiter,
	}
}

// ListAccessibleCustomers calls customers:listAccessibleCustomers.
func (c *RESTClient) ListAccessibleCustomers(ctx context.Context, refreshToken string) ([]string, error) {
	var out struct {
		ResourceNames []string `json:"resourceNames"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers:listAccessibleCustomers", Scope{RefreshToken: refreshToken}, nil, &out); err != nil {
		return nil, err
	}
	return out.ResourceNames, nil
}

// Search runs query against scope.CustomerID, following page tokens.
func (c *RESTClient) Search(ctx context.Context, scope Scope, query string) ([]Row, error) {
	path := fmt.Sprintf("/customers/%s/googleAds:search", scope.CustomerID)
	logging.Debugf("%s🔎 search customer=%s login=%s query=%s",
		logging.Prefix(ctx), scope.CustomerID, scope.LoginCustomerID, util.TruncateLog(query, util.DefaultLogMaxLen))

	var rows []Row
	pageToken := ""
	for {
		req := map[string]any{"query": query}
		if pageToken != "" {
			req["pageToken"] = pageToken
		}
		var page struct {
			Results       []Row  `json:"results"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodPost, path, scope, req, &page); err != nil {
			return nil, err
		}
		rows = append(rows, page.Results...)
		if page.NextPageToken == "" {
			return rows, nil
		}
		pageToken = page.NextPageToken
	}
}

// Mutate sends mutations as one googleAds:mutate batch.
func (c *RESTClient) Mutate(ctx context.Context, scope Scope, mutations []Mutation, opts MutateOptions) (*MutateResult, error) {
	ops := make([]map[string]any, 0, len(mutations))
	for _, m := range mutations {
		op, err := encodeMutation(m)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	req := map[string]any{
		"mutateOperations": ops,
		"partialFailure":   opts.PartialFailure,
		"validateOnly":     opts.ValidateOnly,
	}

	result := &MutateResult{}
	path := fmt.Sprintf("/customers/%s/googleAds:mutate", scope.CustomerID)
	if err := c.do(ctx, http.MethodPost, path, scope, req, result); err != nil {
		return nil, err
	}
	result.ValidateOnly = opts.ValidateOnly
	return result, nil
}

// encodeMutation renders m as a MutateOperation. Update masks come from the
// resource's update_mask.paths, or else from its top-level field names.
func encodeMutation(m Mutation) (map[string]any, error) {
	inner := map[string]any{}
	switch m.Operation {
	case OpCreate:
		inner["create"] = m.Resource
		if m.ExemptPolicyViolationKeys != nil {
			inner["exemptPolicyViolationKeys"] = m.ExemptPolicyViolationKeys
		}
	case OpUpdate:
		res, ok := m.Resource.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("update of %s: resource must be an object", m.Entity)
		}
		body := make(map[string]any, len(res))
		for k, v := range res {
			if k != "update_mask" {
				body[k] = v
			}
		}
		inner["update"] = body
		inner["updateMask"] = strings.Join(updateMaskPaths(res), ",")
	case OpRemove:
		inner["remove"] = m.Resource
	default:
		return nil, fmt.Errorf("unknown operation %v for %s", m.Operation, m.Entity)
	}
	return map[string]any{lowerCamel(m.Entity) + "Operation": inner}, nil
}

func updateMaskPaths(res map[string]any) []string {
	var paths []string
	if mask, ok := res["update_mask"].(map[string]any); ok {
		switch p := mask["paths"].(type) {
		case []any:
			for _, v := range p {
				if s, ok := v.(string); ok {
					paths = append(paths, s)
				}
			}
		case []string:
			paths = append(paths, p...)
		}
	}
	if len(paths) == 0 {
		for k := range res {
			if k != "resource_name" && k != "update_mask" {
				paths = append(paths, k)
			}
		}
		sort.Strings(paths)
	}
	for i, p := range paths {
		segs := strings.Split(p, ".")
		for j, s := range segs {
			segs[j] = lowerCamel(s)
		}
		paths[i] = strings.Join(segs, ".")
	}
	return paths
}

func (c *RESTClient) do(ctx context.Context, method, path string, scope Scope, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	accessToken, err := c.tokens.AccessToken(ctx, scope.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("developer-token", c.developerToken)
	req.Header.Set("User-Agent", "adsgate/"+version.Version)
	if scope.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", scope.LoginCustomerID)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		log.Printf("%s⚠️ ads api %s %s returned %d: %s",
			logging.Prefix(ctx), method, path, resp.StatusCode, util.TruncateLog(string(respBody), util.DefaultLogMaxLen))
		return apiErr
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
