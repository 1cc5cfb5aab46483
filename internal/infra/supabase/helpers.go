package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
)

// ============================================================
// Request helpers for the REST (PostgREST) API
// ============================================================

func restPath(table string, query url.Values) string {
	if len(query) == 0 {
		return "rest/v1/" + table
	}
	return fmt.Sprintf("rest/v1/%s?%s", table, query.Encode())
}

func encodeJSON(data any) (*bytes.Reader, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("encode request body: %w", err))
	}
	return bytes.NewReader(b), nil
}

func (c *Client) doGet(ctx context.Context, table string, query url.Values) ([]byte, error) {
	body, _, err := c.doRequest(ctx, http.MethodGet, restPath(table, query), nil, "")
	return body, err
}

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	payload, err := encodeJSON(data)
	if err != nil {
		return nil, err
	}
	body, _, err := c.doRequest(ctx, http.MethodPost, restPath(table, nil), payload, "return=representation")
	return body, err
}

func (c *Client) doPatch(ctx context.Context, table string, query url.Values, data any) ([]byte, error) {
	payload, err := encodeJSON(data)
	if err != nil {
		return nil, err
	}
	body, _, err := c.doRequest(ctx, http.MethodPatch, restPath(table, query), payload, "return=representation")
	return body, err
}

func (c *Client) doDelete(ctx context.Context, table string, query url.Values) ([]byte, error) {
	body, _, err := c.doRequest(ctx, http.MethodDelete, restPath(table, query), nil, "return=representation")
	return body, err
}

// decodeRows unmarshals a PostgREST array answer; an empty body is no rows.
func decodeRows[T any](body []byte) ([]T, error) {
	var rows []T
	if len(bytes.TrimSpace(body)) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode rows: %w", err))
	}
	return rows, nil
}
