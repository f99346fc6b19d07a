// Package permission adapts the external ABAC policy service to the
// pipeline's PermissionService port.
//
// The contract is a two-step call: fetch the user's attribute set, then
// filter candidate chunks against it. Policy evaluation itself lives in
// the external service; this client only carries the inputs over and
// maps the decision back onto the candidate set, preserving order and
// identity.
//
// Failure policy is fail-closed: any transport error, non-2xx status,
// or malformed body surfaces as knowledge.ErrPermission and no chunks
// pass. The service being down never degrades to allow-all.
package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// maxResponseBytes bounds policy service response bodies.
const maxResponseBytes = 1 << 20 // 1 MiB

// Client is an HTTP client for the ABAC policy service. Safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a policy service client. timeout bounds each round trip
// in addition to the caller's context; a non-positive timeout disables
// the client-level bound. A nil logger falls back to slog.Default().
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// attribute is the wire form of a resource attribute.
type attribute struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	Name         string `json:"name"`
	Value        string `json:"value"`
}

// UserAttributes fetches the attribute set of the given user.
func (c *Client) UserAttributes(ctx context.Context, userID string) ([]knowledge.ResourceAttribute, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/attributes", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", knowledge.ErrPermission, err)
	}

	var body struct {
		Attributes []attribute `json:"attributes"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	attrs := make([]knowledge.ResourceAttribute, len(body.Attributes))
	for i, a := range body.Attributes {
		attrs[i] = knowledge.ResourceAttribute{
			ResourceID:   a.ResourceID,
			ResourceType: a.ResourceType,
			Name:         a.Name,
			Value:        a.Value,
		}
	}
	return attrs, nil
}

// filterRequest is the wire form of a filter evaluation call. Chunk
// contents are not sent; the policy service decides on identifiers and
// attributes only.
type filterRequest struct {
	UserAttributes     []attribute      `json:"user_attributes"`
	Chunks             []filterChunkRef `json:"chunks"`
	ResourceAttributes []attribute      `json:"resource_attributes"`
}

type filterChunkRef struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
}

// FilterChunks asks the policy service which candidates the user may
// see and maps its decision back onto the candidate slice. The result
// is always a subsequence of candidates by identity and relative order,
// regardless of how the service orders its reply.
func (c *Client) FilterChunks(ctx context.Context, userAttrs []knowledge.ResourceAttribute, candidates []knowledge.Chunk, resourceAttrs []knowledge.ResourceAttribute) ([]knowledge.Chunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	reqBody := filterRequest{
		UserAttributes:     toWire(userAttrs),
		Chunks:             make([]filterChunkRef, len(candidates)),
		ResourceAttributes: toWire(resourceAttrs),
	}
	for i, chunk := range candidates {
		reqBody.Chunks[i] = filterChunkRef{ID: chunk.ID, DocumentID: chunk.DocumentID}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", knowledge.ErrPermission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/filter", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", knowledge.ErrPermission, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		PermittedIDs []string `json:"permitted_ids"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	permitted := make(map[string]bool, len(body.PermittedIDs))
	for _, id := range body.PermittedIDs {
		permitted[id] = true
	}

	var result []knowledge.Chunk
	for _, chunk := range candidates {
		if permitted[chunk.ID] {
			result = append(result, chunk)
		}
	}

	c.logger.Debug("filtered chunks",
		"candidates", len(candidates),
		"permitted", len(result))
	return result, nil
}

// do executes the request and decodes a 2xx JSON response into out.
// Everything else is a permission failure.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: policy service unreachable: %w", knowledge.ErrPermission, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused; the body
		// content is not trusted enough to surface verbatim.
		_, _ = io.CopyN(io.Discard, resp.Body, maxResponseBytes)
		return fmt.Errorf("%w: policy service returned status %d", knowledge.ErrPermission, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", knowledge.ErrPermission, err)
	}
	return nil
}

func toWire(attrs []knowledge.ResourceAttribute) []attribute {
	wire := make([]attribute, len(attrs))
	for i, a := range attrs {
		wire[i] = attribute{
			ResourceID:   a.ResourceID,
			ResourceType: a.ResourceType,
			Name:         a.Name,
			Value:        a.Value,
		}
	}
	return wire
}
