package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
)

// fakeEngine implements Engine for handler tests.
type fakeEngine struct {
	snap      security.Snapshot
	err       error
	requested []security.Mode
	triggered bool
	sensor    *bool
}

func (f *fakeEngine) Snapshot() security.Snapshot { return f.snap }

func (f *fakeEngine) Subscribe(engine.Handler) func() { return func() {} }

func (f *fakeEngine) RequestTargetMode(_ context.Context, mode security.Mode, _ ...engine.RequestOption) error {
	if f.err != nil {
		return f.err
	}

	f.requested = append(f.requested, mode)

	return nil
}

func (f *fakeEngine) SensorTriggered(_ context.Context, active bool) error {
	f.sensor = &active

	return f.err
}

func (f *fakeEngine) Trigger(context.Context) error {
	f.triggered = true

	return f.err
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), method, target, nil))

	return rec
}

// TestServer_ModeEndpoints verifies each mode path requests its target.
func TestServer_ModeEndpoints(t *testing.T) {
	t.Parallel()

	eng := new(fakeEngine)
	s := NewServer(t.Context(), eng)
	defer s.Stop()

	for _, path := range []string{"/home", "/away", "/night", "/off"} {
		rec := serve(t, s, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, StateUpdatedResponse, rec.Body.String())
	}

	require.Equal(t, []security.Mode{
		security.ModeHome,
		security.ModeAway,
		security.ModeNight,
		security.ModeOff,
	}, eng.requested)

	require.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/triggeredx").Code)
	require.Equal(t, http.StatusMethodNotAllowed, serve(t, s, http.MethodPost, "/home").Code)
}

// TestServer_Triggered verifies the trigger endpoint sounds the alarm.
func TestServer_Triggered(t *testing.T) {
	t.Parallel()

	eng := new(fakeEngine)
	s := NewServer(t.Context(), eng)
	defer s.Stop()

	rec := serve(t, s, http.MethodGet, "/triggered")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, eng.triggered)
}

// TestServer_State verifies the snapshot is returned as JSON.
func TestServer_State(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{snap: security.Snapshot{
		State: security.State{
			CurrentMode: security.ModeTriggered,
			TargetMode:  security.ModeAway,
			DelayArming: true,
		},
		SirenActive: true,
	}}
	s := NewServer(t.Context(), eng)
	defer s.Stop()

	rec := serve(t, s, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body StateBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StateBody{
		CurrentMode: "triggered",
		TargetMode:  "away",
		DelayArming: true,
		SirenActive: true,
	}, body)
}

// TestServer_Sensor verifies sensor reports reach the engine.
func TestServer_Sensor(t *testing.T) {
	t.Parallel()

	eng := new(fakeEngine)
	s := NewServer(t.Context(), eng)
	defer s.Stop()

	require.Equal(t, http.StatusOK, serve(t, s, http.MethodPost, "/sensor/on").Code)
	require.NotNil(t, eng.sensor)
	require.True(t, *eng.sensor)

	require.Equal(t, http.StatusOK, serve(t, s, http.MethodPost, "/sensor/off").Code)
	require.False(t, *eng.sensor)
}

// TestServer_Errors verifies engine errors map to status codes.
func TestServer_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		code int
	}{
		"disabled":  {err: security.ErrDisabledTarget, code: http.StatusBadRequest},
		"invalid":   {err: security.ErrInvalidMode, code: http.StatusBadRequest},
		"not armed": {err: security.ErrNotArmed, code: http.StatusConflict},
		"arming":    {err: security.ErrNotYetArmed, code: http.StatusConflict},
		"closed":    {err: engine.ErrClosed, code: http.StatusServiceUnavailable},
		"other":     {err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := NewServer(t.Context(), &fakeEngine{err: tc.err})
			defer s.Stop()

			rec := serve(t, s, http.MethodGet, "/away")
			require.Equal(t, tc.code, rec.Code)
			require.Equal(t, tc.err.Error(), rec.Body.String())
		})
	}
}

// TestServer_Stream verifies websocket clients get the snapshot and then engine events.
func TestServer_Stream(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(t.Context(), engine.DefaultOptions())
	require.NoError(t, err)
	defer eng.Close()

	s := NewServer(t.Context(), eng)
	defer s.Stop()

	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readMessage(ctx, t, conn)
	require.Equal(t, MessageTypeState, first.Type)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "off", first.State.CurrentMode)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := ts.Client().Get(ts.URL + "/home")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		msg := readMessage(ctx, t, conn)
		if msg.Type == engine.EventCurrentState.String() {
			require.Equal(t, "home", msg.Mode)
			require.Nil(t, msg.Value)

			break
		}
	}
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))

	return msg
}

// TestEventMessage verifies events carry either a mode or a value.
func TestEventMessage(t *testing.T) {
	t.Parallel()

	mode := eventMessage(engine.Event{Type: engine.EventTargetState, Mode: security.ModeNight})
	require.Equal(t, "target_state", mode.Type)
	require.Equal(t, "night", mode.Mode)
	require.Nil(t, mode.Value)

	flag := eventMessage(engine.Event{Type: engine.EventArming, Value: false})
	require.NotNil(t, flag.Value)
	require.False(t, *flag.Value)
	require.Empty(t, flag.Mode)

	reset := eventMessage(engine.Event{Type: engine.EventSirenReset})
	require.Nil(t, reset.Value)
	require.NotEqual(t, flag.ID, reset.ID)
}
