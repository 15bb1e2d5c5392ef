package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("test-key",
		WithBaseURL("http://gemini.test/v1/"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func sampleRequest() GenerateContentRequest {
	return GenerateContentRequest{
		Contents: []Content{{Parts: []Part{
			{Text: "describe"},
			{InlineData: &InlineData{MimeType: "image/png", Data: "AQID"}},
		}}},
		GenerationConfig: &GenerationConfig{Temperature: 0.4, MaxOutputTokens: 1024},
	}
}

func TestGenerateContentRequest(t *testing.T) {
	const expectedURL = "http://gemini.test/v1/models/gemini-2.0-flash:generateContent"

	var capturedURL string
	var capturedHeaders http.Header
	var payload map[string]any

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`), nil
	})

	resp, err := client.GenerateContent(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("generate content: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("X-Goog-Api-Key") != "test-key" {
		t.Fatalf("api key header missing")
	}
	if strings.Contains(capturedURL, "key=") {
		t.Fatalf("api key must not be sent in the query string")
	}

	parts := payload["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected two parts, got %d", len(parts))
	}
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	if inline["mime_type"] != "image/png" || inline["data"] != "AQID" {
		t.Fatalf("unexpected inline data %v", inline)
	}
	genCfg := payload["generationConfig"].(map[string]any)
	if genCfg["temperature"] != 0.4 || genCfg["maxOutputTokens"] != float64(1024) {
		t.Fatalf("unexpected generation config %v", genCfg)
	}

	text, ok := resp.FirstText()
	if !ok || text != "hello" {
		t.Fatalf("unexpected first text %q ok=%v", text, ok)
	}
}

func TestGenerateContentProviderErrorMessage(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`), nil
	})

	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "quota" || apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", pkgerrors.CodeOf(err))
	}
}

func TestGenerateContentErrorWithoutMessage(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `<html>oops</html>`), nil
	})

	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "" {
		t.Fatalf("expected empty message, got %q", apiErr.Message)
	}
}

func TestGenerateContentErrorFieldOnSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"error":{"message":"blocked"}}`), nil
	})

	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "blocked" {
		t.Fatalf("expected blocked APIError, got %v", err)
	}
}

func TestGenerateContentTransportError(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})

	_, err := client.GenerateContent(context.Background(), sampleRequest())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport errors are not provider errors")
	}
}

func TestFirstTextMissing(t *testing.T) {
	var resp *GenerateContentResponse
	if _, ok := resp.FirstText(); ok {
		t.Fatalf("nil response has no text")
	}
	if _, ok := (&GenerateContentResponse{Candidates: []Candidate{{}}}).FirstText(); ok {
		t.Fatalf("candidate without parts has no text")
	}
}

func TestNewClientOptions(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected missing key error")
	}
	client, err := NewClient("k", WithModel("gemini-1.5-pro"), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Model() != "gemini-1.5-pro" {
		t.Fatalf("unexpected model %q", client.Model())
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", client.httpClient.Timeout)
	}
	if !strings.HasSuffix(client.endpoint(), "/models/gemini-1.5-pro:generateContent") {
		t.Fatalf("unexpected endpoint %q", client.endpoint())
	}
}

func TestGenerateContentRequiresContents(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	_, err := client.GenerateContent(context.Background(), GenerateContentRequest{})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
