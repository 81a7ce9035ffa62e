package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const articleJSON = `{"title":"Tide Pools","content":"First paragraph.\n\n\n\nSecond paragraph.  ","excerpt":"Short.","tags":["nature","ocean"]}`

func completionServer(t *testing.T, status int, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
			})
			return
		}
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newClient(url string, requireArticle bool) *RouterClient {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.APIKey = "secret"
	cfg.RequireArticle = requireArticle
	return NewRouterClient(cfg, nil, nil, nil)
}

func TestAttempt_Success(t *testing.T) {
	srv, sent := completionServer(t, http.StatusOK, "```json\n"+articleJSON+"\n```")

	res, err := newClient(srv.URL, true).Attempt(context.Background(), "Qwen/Qwen2.5-7B-Instruct", Request{Prompt: ArticlePrompt("tide pools")})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	want := &Article{
		Title:   "Tide Pools",
		Content: "First paragraph.\n\nSecond paragraph.",
		Excerpt: "Short.",
		Tags:    []string{"nature", "ocean"},
	}
	if diff := cmp.Diff(want, res.Article); diff != "" {
		t.Errorf("article mismatch (-want +got):\n%s", diff)
	}
	if res.Candidate != "Qwen/Qwen2.5-7B-Instruct" {
		t.Errorf("candidate = %q", res.Candidate)
	}

	if sent.Model != "Qwen/Qwen2.5-7B-Instruct" || sent.MaxTokens != 2000 || sent.Temperature != 0.8 {
		t.Errorf("unexpected request: %+v", sent)
	}
	if len(sent.Messages) != 2 || sent.Messages[0].Content != SystemPrompt ||
		sent.Messages[1].Content != "Write a comprehensive blog article about: tide pools" {
		t.Errorf("unexpected messages: %+v", sent.Messages)
	}
}

func TestAttempt_StatusReasons(t *testing.T) {
	tests := []struct {
		status int
		want   Reason
	}{
		{http.StatusUnauthorized, ReasonAuth},
		{http.StatusForbidden, ReasonAuth},
		{http.StatusTooManyRequests, ReasonQuota},
		{http.StatusPaymentRequired, ReasonQuota},
		{http.StatusServiceUnavailable, ReasonTransient},
		{http.StatusNotFound, ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv, _ := completionServer(t, tt.status, "")
			_, err := newClient(srv.URL, true).Attempt(context.Background(), "m", Request{Prompt: "x"})
			var gerr *Error
			if !errors.As(err, &gerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if gerr.Reason != tt.want || gerr.StatusCode != tt.status {
				t.Errorf("got reason %s status %d, want %s %d", gerr.Reason, gerr.StatusCode, tt.want, tt.status)
			}
		})
	}
}

func TestAttempt_Malformed(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, "Sure! Here is an article about ducks.")

	_, err := newClient(srv.URL, true).Attempt(context.Background(), "m", Request{Prompt: "x"})
	if got := ReasonOf(err); got != ReasonMalformed {
		t.Errorf("reason = %s, want malformed", got)
	}

	res, err := newClient(srv.URL, false).Attempt(context.Background(), "m", Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("plain text should be accepted when articles are optional: %v", err)
	}
	if res.Article != nil || res.Text == "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAttempt_Unreachable(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1", true).Attempt(context.Background(), "m", Request{Prompt: "x"})
	if got := ReasonOf(err); got != ReasonTransient {
		t.Errorf("reason = %s, want transient", got)
	}
}

type denyThrottle struct{ err error }

func (d denyThrottle) Wait(context.Context) error { return d.err }

func TestAttempt_ThrottleCancellation(t *testing.T) {
	c := NewRouterClient(Config{URL: "http://unused"}, nil, denyThrottle{err: context.Canceled}, nil)
	_, err := c.Attempt(context.Background(), "m", Request{Prompt: "x"})
	if got := ReasonOf(err); got != ReasonCanceled {
		t.Errorf("reason = %s, want canceled", got)
	}
}

func TestAttempt_ThrottleGivesUp(t *testing.T) {
	for _, err := range []error{
		errors.New("rate: Wait(n=1) would exceed context deadline"),
		context.DeadlineExceeded,
	} {
		c := NewRouterClient(Config{URL: "http://unused"}, nil, denyThrottle{err: err}, nil)
		_, got := c.Attempt(context.Background(), "m", Request{Prompt: "x"})
		if r := ReasonOf(got); r != ReasonThrottled {
			t.Errorf("%v: reason = %s, want throttled", err, r)
		}
	}
}

func TestParseArticle_SingleTag(t *testing.T) {
	a, err := ParseArticle(`{"title":"T","content":"C","excerpt":"E","tags":"solo"}`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"solo"}, a.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArticle_MissingFields(t *testing.T) {
	if _, err := ParseArticle(`{"title":"T","content":"C"}`); err == nil {
		t.Error("expected error for missing excerpt and tags")
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{nil, ""},
		{errors.New("boom"), ReasonUnknown},
		{context.Canceled, ReasonCanceled},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ReasonTransient},
		{fmt.Errorf("wrapped: %w", &Error{Reason: ReasonQuota}), ReasonQuota},
	}
	for _, tt := range tests {
		if got := ReasonOf(tt.err); got != tt.want {
			t.Errorf("ReasonOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
