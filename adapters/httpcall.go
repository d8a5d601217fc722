package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/juju/errors"

	"github.com/foldflow/pipeline/types"
	"github.com/foldflow/pipeline/utils"
)

const maxCapturedBody = 64 * 1024

// callResult is the raw outcome of one HTTP exchange, before the owning
// adapter normalizes it.
type callResult struct {
	StatusCode int
	Body       types.Data
	RawBody    string

	Request  *types.CapturedRequest
	Response *types.CapturedResponse
}

// doCall performs one HTTP exchange and captures request and response for the
// execution log. A transport failure still returns the captured request.
func doCall(ctx context.Context, client types.Doer, method, url string, headers map[string]string, body []byte) (*callResult, error) {
	captured := &types.CapturedRequest{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    truncateBody(string(body)),
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &callResult{Request: captured}, types.NewAdapterRequestError(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return &callResult{Request: captured}, types.NewAdapterRequestError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &callResult{Request: captured}, types.NewAdapterRequestError(err)
	}

	result := &callResult{
		StatusCode: resp.StatusCode,
		RawBody:    string(raw),
		Request:    captured,
		Response: &types.CapturedResponse{
			StatusCode: resp.StatusCode,
			Headers:    flattenHeaders(resp.Header),
			Body:       truncateBody(string(raw)),
		},
	}

	// non-JSON bodies are kept raw; adapters that need structure check Body
	parsed := types.Data{}
	if err := utils.Unserialize(raw, &parsed); err == nil {
		result.Body = parsed
	}
	return result, nil
}

// doJSONCall serializes payload and performs the call.
func doJSONCall(ctx context.Context, client types.Doer, method, url string, headers map[string]string, payload types.Data) (*callResult, error) {
	var body []byte
	if payload != nil {
		b, err := utils.Serialize(payload)
		if err != nil {
			return nil, errors.Trace(err)
		}
		body = b
	}
	return doCall(ctx, client, method, url, headers, body)
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func truncateBody(s string) string {
	if len(s) > maxCapturedBody {
		return s[:maxCapturedBody]
	}
	return s
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
