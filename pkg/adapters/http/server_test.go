package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/transit"
	"github.com/aretw0/transit/pkg/adapters/memory"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestServer(t *testing.T) (*httptest.Server, *transit.Orchestrator, *memory.Loader) {
	t.Helper()
	reg := prometheus.NewRegistry()
	loader := memory.NewLoader()
	orch, err := transit.New(loader,
		transit.WithMetrics(reg),
		transit.WithCache(memory.NewCache()),
		transit.WithInitialContent(loader.Preload("menu")...),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(orch, WithGatherer(reg)))
	t.Cleanup(srv.Close)
	return srv, orch, loader
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestStartTransition_Wait(t *testing.T) {
	srv, orch, loader := newTestServer(t)

	resp := post(t, srv.URL+"/transitions?wait=true", `{"destination": "level-1", "fade_in": "10ms"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := decodeSnapshot(t, resp)
	assert.Equal(t, domain.StatusComplete, snap.Status)
	assert.Equal(t, "level-1", snap.Destination)
	assert.Equal(t, []string{"level-1"}, loader.Live())
	assert.Equal(t, []string{"level-1"}, orch.Active())
}

func TestStartTransition_Async(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	resp := post(t, srv.URL+"/transitions", `{"destination": "level-1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Eventually(t, func() bool {
		return orch.Status().Status == domain.StatusComplete
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartTransition_BadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/transitions", `{`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/transitions", `{"fade_in": "1s"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/transitions", `{"destination": "x", "bogus": 1}`).StatusCode)
}

func TestFailureAndRetry(t *testing.T) {
	srv, _, loader := newTestServer(t)

	assert.Equal(t, http.StatusConflict, post(t, srv.URL+"/transitions/retry?wait=true", "").StatusCode)

	loader.FailLoad("level-1", errors.New("missing bundle"))
	resp := post(t, srv.URL+"/transitions?wait=true", `{"destination": "level-1", "cache_clear": "dependencies"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	snap := decodeSnapshot(t, resp)
	assert.Equal(t, domain.StatusFailed, snap.Status)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, domain.FailureLoad, snap.Failure.Kind)
	assert.True(t, snap.Failure.CanRetry)
	assert.True(t, snap.Failure.CanClearCache)

	loader.FailLoad("level-1", nil)
	resp = post(t, srv.URL+"/transitions/clear-cache-retry?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusComplete, decodeSnapshot(t, resp).Status)
}

func TestGates(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	resp := post(t, srv.URL+"/gates/before-activation/hold", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []domain.GateID{domain.GateBeforeActivation}, orch.Gates().Held())

	res, err := http.Get(srv.URL + "/gates")
	require.NoError(t, err)
	defer res.Body.Close()
	var body struct {
		Held []domain.GateID `json:"held"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, []domain.GateID{domain.GateBeforeActivation}, body.Held)

	done := make(chan error, 1)
	go func() { done <- orch.Run(context.Background(), domain.Request{Destination: "level-1"}) }()
	assert.Eventually(t, func() bool {
		return orch.Status().Status == domain.StatusBeforeSceneActivation
	}, 2*time.Second, 5*time.Millisecond)

	post(t, srv.URL+"/gates/before-activation/release", "")
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("release over HTTP did not unblock the run")
	}
}

func TestCancelTransition(t *testing.T) {
	srv, orch, loader := newTestServer(t)
	orch.Gates().Hold(domain.GateAfterUnload)

	done := make(chan error, 1)
	go func() { done <- orch.Run(context.Background(), domain.Request{Destination: "level-1"}) }()
	assert.Eventually(t, func() bool {
		return orch.Status().Status == domain.StatusWaitingForServer
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/transitions/cancel", "").StatusCode)

	var terr *domain.TransitionError
	require.ErrorAs(t, <-done, &terr)
	assert.Equal(t, domain.FailureCancelled, terr.Kind)
	assert.Equal(t, []string{"menu"}, loader.Live())
}

func TestReadOnlyEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	post(t, srv.URL+"/transitions?wait=true", `{"destination": "level-1"}`)

	for path, want := range map[string]string{
		"/health":   `"ok"`,
		"/info":     `"transit-http"`,
		"/status":   `"complete"`,
		"/policies": `"load_failure"`,
		"/metrics":  `transit_transitions_total`,
	} {
		t.Run(path, func(t *testing.T) {
			res, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, http.StatusOK, res.StatusCode)

			var sb strings.Builder
			scanner := bufio.NewScanner(res.Body)
			for scanner.Scan() {
				sb.WriteString(scanner.Text())
			}
			assert.Contains(t, sb.String(), want)
		})
	}
}

func TestSubscribeEvents(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	reader := bufio.NewReader(res.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	go func() { _ = orch.Run(context.Background(), domain.Request{Destination: "level-1"}) }()

	var statuses []domain.Status
	for len(statuses) < len(domain.RunOrder) {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok || strings.HasPrefix(payload, "connected") {
			continue
		}
		var ev domain.StatusEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, domain.RunOrder, statuses)
}

func TestRateLimit(t *testing.T) {
	orch, err := transit.New(memory.NewLoader())
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(orch, WithRateLimit(rate.Every(time.Hour), 1)))
	t.Cleanup(srv.Close)

	assert.Equal(t, http.StatusNoContent, post(t, srv.URL+"/gates/g/hold", "").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, post(t, srv.URL+"/gates/g/release", "").StatusCode)
	assert.Equal(t, []domain.GateID{"g"}, orch.Gates().Held())

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
