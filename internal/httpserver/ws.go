// internal/httpserver/ws.go
//
// Live updates over a websocket. Clients connect to GET /ws with a
// comma-separated ?topics= list ("game:<id>", "series:<id>", "rankings")
// and receive every event published on those topics as a JSON frame.
// The socket is one-way: the read side only watches for the client closing.

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/events"
)

// maxTopics bounds one connection's subscription fan-in.
const maxTopics = 8

// wsWriteTimeout bounds one frame write to a slow client.
const wsWriteTimeout = 5 * time.Second

// handleWS upgrades the connection and streams hub events for the requested
// topics until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	topics := parseTopics(r.URL.Query().Get("topics"))
	if len(topics) == 0 {
		http.Error(w, `{"error":"no_topics"}`, http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{originPattern()},
	})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer c.CloseNow()

	// CloseRead watches for the client going away and cancels the context.
	ctx := c.CloseRead(r.Context())

	merged := make(chan events.Event)
	for _, topic := range topics {
		ch, cancel := s.hub.Subscribe(topic)
		defer cancel()
		go func(ch <-chan events.Event) {
			for ev := range ch {
				select {
				case merged <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-merged:
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, c, ev)
			cancel()
			if err != nil {
				log.Debug().Err(err).Msg("websocket write, dropping client")
				return
			}
		}
	}
}

// parseTopics splits and sanitizes the ?topics= parameter.
func parseTopics(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if t != "rankings" && !strings.HasPrefix(t, "game:") && !strings.HasPrefix(t, "series:") {
			continue
		}
		out = append(out, t)
		if len(out) == maxTopics {
			break
		}
	}
	return out
}

// originPattern derives the allowed websocket origin from CLIENT_ORIGIN,
// matching the CORS policy of the rest of the API.
func originPattern() string {
	origin := getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
}
