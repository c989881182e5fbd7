package announce

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
)

type controlState struct {
	Muted   bool    `json:"muted"`
	Volume  float64 `json:"volume"`
	Pending int     `json:"pending"`
}

type controlRequest struct {
	Muted  *bool    `json:"muted"`
	Volume *float64 `json:"volume"`
}

// ControlHandler exposes the pipeline's mute and volume to the operator
// console on the display machine. GET returns the state; PUT changes the
// fields present in the body.
func ControlHandler(p *Pipeline) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /audio", func(w http.ResponseWriter, r *http.Request) {
		writeControlState(w, p)
	})
	mux.HandleFunc("PUT /audio", func(w http.ResponseWriter, r *http.Request) {
		var req controlRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Volume != nil {
			if *req.Volume < 0 || *req.Volume > 1 {
				http.Error(w, "volume must be within 0..1", http.StatusBadRequest)
				return
			}
			p.SetVolume(*req.Volume)
		}
		if req.Muted != nil {
			p.SetMuted(*req.Muted)
		}
		log.Info().Bool("muted", p.Muted()).Float64("volume", p.Volume()).Msg("audio settings changed")
		writeControlState(w, p)
	})
	return mux
}

func writeControlState(w http.ResponseWriter, p *Pipeline) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(controlState{Muted: p.Muted(), Volume: p.Volume(), Pending: p.Pending()})
}

// WatchMuteToggle flips mute on every signal received until ctx ends.
func WatchMuteToggle(ctx context.Context, p *Pipeline, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			muted := p.ToggleMuted()
			log.Info().Str("signal", sig.String()).Bool("muted", muted).Msg("mute toggled")
		}
	}
}
