package video

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

const ProviderJitsi = "jitsi"

// Config is the immutable video configuration.
type Config struct {
	Provider       string
	JitsiBaseURL   string
	RoomNameSecret string
}

// Room describes how a participant joins an appointment's conference.
type Room struct {
	Provider    string `json:"provider"`
	RoomName    string `json:"roomName"`
	JoinURL     string `json:"joinUrl"`
	DisplayName string `json:"displayName"`
}

// Participant is the caller joining a room.
type Participant struct {
	DisplayName string
}

// Rooms builds join links for the configured provider.
type Rooms struct {
	cfg Config
}

func NewRooms(cfg Config) *Rooms {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderJitsi
	}
	cfg.JitsiBaseURL = strings.TrimRight(cfg.JitsiBaseURL, "/")
	if cfg.JitsiBaseURL == "" {
		cfg.JitsiBaseURL = "https://meet.jit.si"
	}
	return &Rooms{cfg: cfg}
}

// Provider returns the configured provider name.
func (r *Rooms) Provider() string { return r.cfg.Provider }

// Join returns the room for an appointment. Providers other than Jitsi are
// accepted in configuration but answer with a not-implemented error.
func (r *Rooms) Join(appointmentID int64, scheduledAt time.Time, who Participant) (*Room, error) {
	name := DeriveRoomName(appointmentID, scheduledAt, r.cfg.RoomNameSecret)

	switch r.cfg.Provider {
	case ProviderJitsi:
		return &Room{
			Provider:    ProviderJitsi,
			RoomName:    name,
			JoinURL:     jitsiJoinURL(r.cfg.JitsiBaseURL, name, who.DisplayName),
			DisplayName: who.DisplayName,
		}, nil
	default:
		return nil, apperr.NotImplemented(fmt.Sprintf("video provider %q is not supported", r.cfg.Provider))
	}
}

func jitsiJoinURL(base, room, displayName string) string {
	u := base + "/" + url.PathEscape(room)
	if displayName == "" {
		return u
	}
	escaped := strings.ReplaceAll(url.QueryEscape(displayName), "+", "%20")
	return u + `#userInfo.displayName="` + escaped + `"`
}
