package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"candidates":[{"content":{"parts":[{"text":"Fees are 1,20,000 per year."}]},
"groundingMetadata":{"groundingChunks":[
{"web":{"uri":"https://college.example/fees","title":"Fee structure"}},
{"web":{"uri":"https://college.example/fees","title":"Fee structure"}},
{"web":{"uri":"https://college.example/hostel"}}]}}]}`

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, h http.HandlerFunc, attempts int) (*GeminiClient, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	c := NewGeminiClient(GeminiConfig{
		APIKey:      "test-key",
		Model:       "gemini-test",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
		MaxAttempts: attempts,
		Backoff:     Backoff{Base: 100 * time.Millisecond, Max: time.Second},
		Sleep:       rec.sleep,
	}, zerolog.Nop())
	return c, rec
}

// statusSequence answers with codes in order, then 200 with okBody.
func statusSequence(calls *int32, codes ...int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1)) - 1
		if n < len(codes) {
			w.WriteHeader(codes[n])
			_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		_, _ = w.Write([]byte(okBody))
	}
}

func TestGeminiAsk_SendsGroundedRequest(t *testing.T) {
	var got geminiRequest
	var path, key string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okBody))
	}, 3)

	_, err := c.Ask(context.Background(), "What are the fees?", "persona text")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", path)
	assert.Equal(t, "test-key", key)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "persona text", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "What are the fees?", got.Contents[0].Parts[0].Text)
	require.Len(t, got.Tools, 1)
	assert.NotNil(t, got.Tools[0].GoogleSearch)
}

func TestGeminiAsk_AppendsSources(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}, 3)

	answer, err := c.Ask(context.Background(), "fees", "p")
	require.NoError(t, err)
	assert.Equal(t, "Fees are 1,20,000 per year.\n\nSources:\n"+
		"1. Fee structure - https://college.example/fees\n"+
		"2. https://college.example/hostel - https://college.example/hostel", answer)
}

func TestGeminiAsk_RetriesTransientStatuses(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		var calls int32
		c, rec := newTestClient(t, statusSequence(&calls, code, code), 3)

		answer, err := c.Ask(context.Background(), "fees", "p")
		require.NoError(t, err, "status %d", code)
		assert.Contains(t, answer, "Fees are")
		assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
		require.Len(t, rec.delays, 2)
		assert.Less(t, rec.delays[0], rec.delays[1])
	}
}

func TestGeminiAsk_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c, rec := newTestClient(t, statusSequence(&calls, http.StatusBadRequest), 3)

	_, err := c.Ask(context.Background(), "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonHTTPStatus, f.Reason)
	assert.Equal(t, http.StatusBadRequest, f.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
}

func TestGeminiAsk_RetriesExhausted(t *testing.T) {
	var calls int32
	c, rec := newTestClient(t, statusSequence(&calls, 500, 500, 500, 500), 3)

	_, err := c.Ask(context.Background(), "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonRetriesExhausted, f.Reason)
	assert.Equal(t, 3, f.Attempts)
	assert.Equal(t, http.StatusInternalServerError, f.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Len(t, rec.delays, 2)
}

func TestGeminiAsk_RetriesTransportErrors(t *testing.T) {
	var calls int32
	rec := &sleepRecorder{}
	c := NewGeminiClient(GeminiConfig{
		Model:       "gemini-test",
		BaseURL:     "http://ai.invalid",
		MaxAttempts: 2,
		Sleep:       rec.sleep,
		HTTPClient: doerFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("connection refused")
		}),
	}, zerolog.Nop())

	_, err := c.Ask(context.Background(), "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonRetriesExhausted, f.Reason)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Len(t, rec.delays, 1)
}

func TestGeminiAsk_EmptyResponse(t *testing.T) {
	for _, body := range []string{
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`,
	} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, 3)

		_, err := c.Ask(context.Background(), "fees", "p")

		var f *Failure
		require.ErrorAs(t, err, &f)
		assert.Equal(t, ReasonEmptyResponse, f.Reason)
	}
}

func TestGeminiAsk_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}, 3)

	_, err := c.Ask(context.Background(), "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonBadResponse, f.Reason)
}

func TestGeminiAsk_CanceledContextStopsRetrying(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 3)

	_, err := c.Ask(ctx, "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonCanceled, f.Reason)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGeminiAsk_AttemptTimeout(t *testing.T) {
	rec := &sleepRecorder{}
	c := NewGeminiClient(GeminiConfig{
		Model:       "gemini-test",
		BaseURL:     "http://ai.invalid",
		Timeout:     20 * time.Millisecond,
		MaxAttempts: 1,
		Sleep:       rec.sleep,
		HTTPClient: doerFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		}),
	}, zerolog.Nop())

	_, err := c.Ask(context.Background(), "fees", "p")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonRetriesExhausted, f.Reason)

	var inner *Failure
	require.ErrorAs(t, f.Err, &inner)
	assert.Equal(t, ReasonTimeout, inner.Reason)
}

func TestAppendSources_NoSources(t *testing.T) {
	assert.Equal(t, "plain", AppendSources("plain", nil))
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }
