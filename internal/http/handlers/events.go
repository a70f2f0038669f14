package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studio/internal/mixer"
)

const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = eventPongWait * 9 / 10
	eventBuffer     = 32
)

// Events handles GET /events: a websocket that first sends the full state and
// then every orchestrator event. A slow reader loses its oldest queued events
// rather than stalling the orchestrator.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("http: event stream upgrade failed")
		return
	}
	defer conn.Close()

	queue := make(chan any, eventBuffer)
	push := func(v any) {
		for {
			select {
			case queue <- v:
				return
			default:
			}
			select {
			case <-queue:
			default:
			}
		}
	}
	unsubscribe := a.Mixer.Subscribe(func(ev mixer.Event) { push(ev) })
	defer unsubscribe()

	push(map[string]any{
		"type":    "state",
		"config":  a.Mixer.Model().Snapshot(),
		"status":  a.Mixer.Status(),
		"outputs": a.outputViews(),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingPeriod)
	defer ping.Stop()
	for {
		select {
		case v := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				a.Logger.Debug().Err(err).Msg("http: event stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
