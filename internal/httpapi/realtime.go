package httpapi

import (
	"net/http"
	"strings"

	"klinik/antrian/internal/hub"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/rs/zerolog/log"
)

// session is the part of sockjs.Session the realtime stream uses.
type session interface {
	Request() *http.Request
	Recv() (string, error)
	Send(string) error
}

// NewRealtimeHandler streams queue events over SockJS at /realtime. A client
// may pass ?department_id= on connect and later send
// {"action":"subscribe","department_id":"..."} or {"action":"unsubscribe"}.
func NewRealtimeHandler(h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(s sockjs.Session) {
		serveSession(h, s)
	})
}

func serveSession(h *hub.Hub, s session) {
	client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
	if req := s.Request(); req != nil {
		client.Subscription.DepartmentID = strings.TrimSpace(req.URL.Query().Get("department_id"))
	}
	h.Register(client)
	defer h.Unregister(client)

	go func() {
		for msg := range client.Send {
			if err := s.Send(string(msg)); err != nil {
				log.Debug().Err(err).Str("client_id", client.ID).Msg("realtime send")
			}
		}
	}()

	for {
		msg, err := s.Recv()
		if err != nil {
			return
		}
		parsed, ok := hub.ParseSubscribe([]byte(msg))
		if !ok {
			continue
		}
		if parsed.Action == "unsubscribe" {
			h.UpdateSubscription(client, hub.Subscription{})
			continue
		}
		h.UpdateSubscription(client, hub.Subscription{DepartmentID: parsed.DepartmentID})
	}
}
