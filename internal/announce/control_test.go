package announce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doControl(t *testing.T, h http.Handler, method, body string) (int, controlState) {
	t.Helper()
	req := httptest.NewRequest(method, "/audio", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var state controlState
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	}
	return rec.Code, state
}

func TestControlHandlerMuteFlushesQueue(t *testing.T) {
	gate := make(chan struct{})
	speaker := &fakeSpeaker{gate: gate}
	p := NewPipeline(speaker, Options{Volume: 1})
	h := ControlHandler(p)

	p.Enqueue(Job{QueueCode: "A-001"})
	p.Enqueue(Job{QueueCode: "A-002"})
	require.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, time.Millisecond)

	code, state := doControl(t, h, http.MethodPut, `{"muted":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, state.Muted)
	assert.Zero(t, state.Pending)
	assert.False(t, p.Enqueue(Job{QueueCode: "A-003"}))

	close(gate)
	waitIdle(t, p)
	assert.Equal(t, []string{"chime", speakCall("A-001")}, speaker.snapshot())

	code, state = doControl(t, h, http.MethodPut, `{"muted":false,"volume":0.25}`)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, state.Muted)
	assert.Equal(t, 0.25, state.Volume)

	code, state = doControl(t, h, http.MethodGet, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.25, state.Volume)
}

func TestControlHandlerRejectsBadInput(t *testing.T) {
	h := ControlHandler(NewPipeline(&fakeSpeaker{}, Options{Volume: 1}))

	for _, body := range []string{`{"volume":1.5}`, `{"loud":true}`, `not json`} {
		code, _ := doControl(t, h, http.MethodPut, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
	}
	code, _ := doControl(t, h, http.MethodPost, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestWatchMuteToggle(t *testing.T) {
	p := NewPipeline(&fakeSpeaker{}, Options{})
	signals := make(chan os.Signal)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchMuteToggle(ctx, p, signals)
		close(done)
	}()

	signals <- syscall.SIGUSR1
	require.Eventually(t, p.Muted, time.Second, time.Millisecond)
	signals <- syscall.SIGUSR1
	require.Eventually(t, func() bool { return !p.Muted() }, time.Second, time.Millisecond)

	cancel()
	<-done
}
