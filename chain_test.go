package animago

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var videoBytes = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

type fakeProvider struct {
	name string
	fn   func(ctx context.Context) (*RawResponse, error)

	calls   int
	prompt  string
	profile StyleProfile
	request ValidatedRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Attempt(ctx context.Context, req ValidatedRequest, prompt string, profile StyleProfile) (*RawResponse, error) {
	f.calls++
	f.prompt = prompt
	f.profile = profile
	f.request = req
	return f.fn(ctx)
}

func replying(name string, status int, body string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context) (*RawResponse, error) {
		return &RawResponse{StatusCode: status, Body: []byte(body)}, nil
	}}
}

func producing(name string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context) (*RawResponse, error) {
		return &RawResponse{StatusCode: http.StatusOK, Body: videoBytes, ContentType: "video/mp4"}, nil
	}}
}

func failing(name string, err error) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context) (*RawResponse, error) {
		return nil, err
	}}
}

func loading(name string) *fakeProvider {
	return replying(name, http.StatusServiceUnavailable, `{"error":"Model is currently loading","estimated_time":7.5}`)
}

type recordingObserver struct {
	mu    sync.Mutex
	kinds []ClassKind
}

func (o *recordingObserver) ObserveAttempt(provider string, kind ClassKind, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
}

func mustValidate(t interface{ Fatalf(string, ...any) }, req GenerationRequest) ValidatedRequest {
	v, rejected := Validate(req)
	if rejected != nil {
		t.Fatalf("unexpected rejection: %v", rejected)
	}
	return v
}

func providers(ps ...*fakeProvider) []Provider {
	out := make([]Provider, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func runChain(t *testing.T, cfg *ChainConfig, ps ...*fakeProvider) Outcome {
	t.Helper()
	chain, err := NewChain(providers(ps...), cfg)
	require.NoError(t, err)
	outcome, err := chain.Run(context.Background(), mustValidate(t, GenerationRequest{ImageURL: "https://example.com/a.png"}))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	return outcome
}

func TestNewChain(t *testing.T) {
	_, err := NewChain(nil)
	assert.ErrorIs(t, err, ErrNoProviders)

	_, err = NewChain(providers(producing("a")), &ChainConfig{LoadingPolicy: "sometimes"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	chain, err := NewChain(providers(producing("a"), producing("b")), &ChainConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, chain.ProviderNames())
	assert.Equal(t, LoadingAbort, chain.config.LoadingPolicy)
	assert.Equal(t, 90*time.Second, chain.config.AttemptTimeout)
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	first, second := producing("first"), producing("second")

	outcome := runChain(t, nil, first, second)

	success, ok := outcome.(*Success)
	require.True(t, ok, "expected success, got %T", outcome)
	assert.Equal(t, "first", success.Provider())
	assert.Equal(t, EncodeDataURL(videoBytes), success.Video())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChainFallsBackInOrder(t *testing.T) {
	a := replying("a", http.StatusBadRequest, `{"error":"bad input"}`)
	b := failing("b", errors.New("connection reset"))
	c := replying("c", http.StatusInternalServerError, "oops")
	d := producing("d")

	outcome := runChain(t, nil, a, b, c, d)

	success, ok := outcome.(*Success)
	require.True(t, ok, "expected success, got %T", outcome)
	assert.Equal(t, "d", success.Provider())
	for _, p := range []*fakeProvider{a, b, c, d} {
		assert.Equal(t, 1, p.calls, p.name)
	}
}

func TestChainExhausted(t *testing.T) {
	a := replying("a", http.StatusBadRequest, `{"error":"bad input"}`)
	b := failing("b", errors.New("connection reset"))
	c := replying("c", http.StatusOK, "")

	outcome := runChain(t, nil, a, b, c)

	exhausted, ok := outcome.(*Exhausted)
	require.True(t, ok, "expected exhausted, got %T", outcome)
	assert.Equal(t, []string{"a", "b", "c"}, exhausted.AttemptedProviders)
	require.Len(t, exhausted.LastErrors, 3)
	assert.Equal(t, "[a] bad input", exhausted.LastErrors[0])
	assert.Equal(t, "[b] connection reset", exhausted.LastErrors[1])
	assert.Equal(t, "[c] empty response body", exhausted.LastErrors[2])
}

func TestChainLoadingAbort(t *testing.T) {
	first, second := loading("first"), producing("second")

	outcome := runChain(t, &ChainConfig{LoadingPolicy: LoadingAbort}, first, second)

	retry, ok := outcome.(*Retryable)
	require.True(t, ok, "expected retryable, got %T", outcome)
	assert.Equal(t, 8, retry.RetryAfterSeconds)
	assert.Equal(t, "first", retry.Provider)
	assert.Contains(t, retry.Reason, "loading")
	assert.Equal(t, 0, second.calls)
}

func TestChainLoadingContinue(t *testing.T) {
	cfg := &ChainConfig{LoadingPolicy: LoadingContinue}

	t.Run("later success wins", func(t *testing.T) {
		outcome := runChain(t, cfg, loading("first"), producing("second"))

		success, ok := outcome.(*Success)
		require.True(t, ok, "expected success, got %T", outcome)
		assert.Equal(t, "second", success.Provider())
	})

	t.Run("first loading signal reported when the rest fail", func(t *testing.T) {
		outcome := runChain(t, cfg, loading("first"), loading("second"), replying("third", http.StatusBadGateway, "down"))

		retry, ok := outcome.(*Retryable)
		require.True(t, ok, "expected retryable, got %T", outcome)
		assert.Equal(t, "first", retry.Provider)
		assert.Equal(t, 8, retry.RetryAfterSeconds)
	})
}

func TestChainPassesComposedPrompt(t *testing.T) {
	p := producing("p")
	chain, err := NewChain(providers(p))
	require.NoError(t, err)

	req := mustValidate(t, GenerationRequest{ImageURL: "https://example.com/a.png", Prompt: "a dog", Style: StyleDynamic})
	_, err = chain.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "a dog, dynamic energetic motion, dramatic movement", p.prompt)
	assert.Equal(t, 180, p.profile.MotionStrength)
	assert.Equal(t, "https://example.com/a.png", p.request.ImageURL())
}

func TestChainAttemptTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", fn: func(ctx context.Context) (*RawResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := producing("fast")

	outcome := runChain(t, &ChainConfig{AttemptTimeout: 20 * time.Millisecond}, slow, fast)

	success, ok := outcome.(*Success)
	require.True(t, ok, "expected success, got %T", outcome)
	assert.Equal(t, "fast", success.Provider())
}

func TestChainProviderTimeoutOverride(t *testing.T) {
	var deadline time.Duration
	patient := &fakeProvider{name: "patient", fn: func(ctx context.Context) (*RawResponse, error) {
		d, ok := ctx.Deadline()
		if ok {
			deadline = time.Until(d)
		}
		select {
		case <-time.After(50 * time.Millisecond):
			return &RawResponse{StatusCode: http.StatusOK, Body: videoBytes}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}

	outcome := runChain(t, &ChainConfig{
		AttemptTimeout:   10 * time.Millisecond,
		ProviderTimeouts: map[string]time.Duration{"patient": time.Minute},
	}, patient)

	success, ok := outcome.(*Success)
	require.True(t, ok, "expected success, got %T", outcome)
	assert.Equal(t, "patient", success.Provider())
	assert.Greater(t, deadline, 30*time.Second)
}

func TestChainParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &fakeProvider{name: "cancelling", fn: func(context.Context) (*RawResponse, error) {
		cancel()
		return &RawResponse{StatusCode: http.StatusOK, Body: videoBytes}, nil
	}}
	next := producing("next")

	chain, err := NewChain(providers(cancelling, next))
	require.NoError(t, err)

	outcome, err := chain.Run(ctx, mustValidate(t, GenerationRequest{ImageURL: "https://example.com/a.png"}))
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, next.calls)
}

func TestChainAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := producing("p")

	chain, err := NewChain(providers(p))
	require.NoError(t, err)

	_, err = chain.Run(ctx, mustValidate(t, GenerationRequest{ImageURL: "https://example.com/a.png"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.calls)
}

func TestChainObserver(t *testing.T) {
	obs := &recordingObserver{}
	cfg := &ChainConfig{Observer: obs}

	runChain(t, cfg, failing("a", errors.New("boom")), replying("b", http.StatusBadRequest, `{"error":"x"}`), producing("c"))

	assert.Equal(t, []ClassKind{AttemptResultError, ClassStructuredError, ClassBinarySuccess}, obs.kinds)
}

func TestChainProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "providers")
		var ps []*fakeProvider
		firstSuccess := -1
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("p%d", i)
			switch rapid.IntRange(0, 3).Draw(t, name) {
			case 0:
				ps = append(ps, producing(name))
				if firstSuccess < 0 {
					firstSuccess = i
				}
			case 1:
				ps = append(ps, replying(name, http.StatusBadRequest, `{"error":"nope"}`))
			case 2:
				ps = append(ps, replying(name, http.StatusBadGateway, "down"))
			default:
				ps = append(ps, failing(name, errors.New("reset")))
			}
		}

		chain, err := NewChain(providers(ps...))
		if err != nil {
			t.Fatalf("new chain: %v", err)
		}
		outcome, err := chain.Run(context.Background(), mustValidate(t, GenerationRequest{ImageURL: "https://example.com/a.png"}))
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		if firstSuccess >= 0 {
			success, ok := outcome.(*Success)
			if !ok {
				t.Fatalf("expected success, got %T", outcome)
			}
			if success.Provider() != ps[firstSuccess].name {
				t.Fatalf("success from %s, want %s", success.Provider(), ps[firstSuccess].name)
			}
			for i, p := range ps {
				want := 0
				if i <= firstSuccess {
					want = 1
				}
				if p.calls != want {
					t.Fatalf("%s called %d times, want %d", p.name, p.calls, want)
				}
			}
			return
		}

		exhausted, ok := outcome.(*Exhausted)
		if !ok {
			t.Fatalf("expected exhausted, got %T", outcome)
		}
		if len(exhausted.AttemptedProviders) != n || len(exhausted.LastErrors) != n {
			t.Fatalf("attempted %d errors %d, want %d", len(exhausted.AttemptedProviders), len(exhausted.LastErrors), n)
		}
		for i, name := range exhausted.AttemptedProviders {
			if name != ps[i].name {
				t.Fatalf("attempt %d was %s, want %s", i, name, ps[i].name)
			}
		}
	})
}
