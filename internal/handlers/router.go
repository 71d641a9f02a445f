package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/ratelimit"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth     *services.AuthService
	Users    *services.UserService
	Events   *services.EventService
	RSVPs    *services.RSVPService
	Sync     *services.SyncService
	Avatars  *services.AvatarService
	Hub      *services.WSHub
	Sessions *middleware.Sessions
	Limiter  ratelimit.Limiter

	CalendarID string
	// TrustProxy keys the login rate limit on X-Forwarded-For/X-Real-IP
	// instead of the connection address.
	TrustProxy bool
	// StaticDir is served behind the session gate. Empty serves a placeholder.
	StaticDir string
	// Middleware is prepended to the router's own stack.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Auth, d.Sessions, d.Limiter)
	profileHandler := NewProfileHandler(d.Users, d.Avatars)
	eventHandler := NewEventHandler(d.Events)
	rsvpHandler := NewRSVPHandler(d.RSVPs)
	calendarHandler := NewCalendarHandler(d.Sync, d.CalendarID)
	wsHandler := NewWebSocketHandler(d.Hub, d.Events, d.RSVPs)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if d.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	for _, mw := range d.Middleware {
		r.Use(mw)
	}
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(d.Sessions.Required).Post("/logout", authHandler.Logout)
		})

		// Readable without a session; the viewer only adds userRSVP.
		r.Group(func(r chi.Router) {
			r.Use(d.Sessions.Optional)
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/events/{id}", eventHandler.GetEvent)
			r.Get("/events/{id}/ics", eventHandler.ExportICS)
			r.Get("/events/{id}/google-calendar", eventHandler.GoogleCalendar)
			r.Get("/events/{id}/live", wsHandler.HandleWebSocket)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Sessions.Required)
			r.Post("/events", eventHandler.CreateEvent)
			r.Put("/events/{id}", eventHandler.UpdateEvent)
			r.Delete("/events/{id}", eventHandler.DeleteEvent)
			r.Post("/rsvp", rsvpHandler.SetRSVP)
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Post("/profile/avatar", profileHandler.UploadAvatar)
			r.Post("/calendar/sync", calendarHandler.Sync)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, "not found", http.StatusNotFound)
		})
	})

	r.With(d.Sessions.Gate).Handle("/*", pages(d.StaticDir))

	return r
}

func pages(dir string) http.Handler {
	if dir != "" {
		return http.FileServer(http.Dir(dir))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("tomorrowmanyers\n"))
	})
}
