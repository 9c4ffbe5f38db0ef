package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pairwish/internal/config"
	"github.com/dukerupert/pairwish/internal/email"
	"github.com/dukerupert/pairwish/internal/handler"
	"github.com/dukerupert/pairwish/internal/images"
	"github.com/dukerupert/pairwish/internal/metrics"
	"github.com/dukerupert/pairwish/internal/middleware"
	"github.com/dukerupert/pairwish/internal/push"
	"github.com/dukerupert/pairwish/internal/store"
	ws "github.com/dukerupert/pairwish/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	metrics        *metrics.Metrics
	authH          *handler.AuthHandler
	partnerH       *handler.PartnerHandler
	wishlistH      *handler.WishlistHandler
	occasionH      *handler.OccasionHandler
	imageH         *handler.ImageHandler
	notifyH        *handler.NotifyHandler
	pushH          *handler.PushHandler
	userStore      *store.UserStore
	sessionStore   *store.SessionStore
	inviteStore    *store.InviteStore
	rateLimiter    *middleware.RateLimiter
	notifier       *push.Notifier
	pushScheduler  *push.Scheduler
	originPatterns []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()
	m.TrackGauge("websocket_clients", "Connected websocket clients.", func() float64 {
		return float64(hub.ClientCount())
	})

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	partnerStore := store.NewPartnerStore(db)
	inviteStore := store.NewInviteStore(db)
	itemStore := store.NewItemStore(db)
	occasionStore := store.NewOccasionStore(db)
	pushSt := store.NewPushStore(db)

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.EmailFrom, cfg.BaseURL)

	// Push notification service, notifier and reminder scheduler
	pushLogger := logger.With("component", "push")
	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	var notifyH *handler.NotifyHandler
	if cfg.PushConfigured() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		notifier = push.NewNotifier(pushSvc, pushSt, pushLogger, m.PushResults)
		pushSched = push.NewScheduler(notifier, occasionStore, pushSt, cfg.ReminderLeadDays, cfg.ReminderInterval, pushLogger)
		pushH = handler.NewPushHandler(pushSt, pushSvc, logger.With("component", "push_handler"))
		notifyH = handler.NewNotifyHandler(partnerStore, notifier, logger.With("component", "notify"))
	}

	// Item pictures
	var imageStore *images.Store
	var imageRemover handler.ImageRemover
	var imageH *handler.ImageHandler
	if cfg.S3.Configured() {
		imageStore = images.NewStore(cfg.S3)
		imageRemover = imageStore
		imageH = handler.NewImageHandler(imageStore, logger.With("component", "images"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		metrics:        m,
		authH:          handler.NewAuthHandler(userStore, sessionStore, partnerStore, cfg.SecureCookies, logger.With("component", "auth")),
		partnerH:       handler.NewPartnerHandler(userStore, partnerStore, inviteStore, itemStore, emailClient, hub, logger.With("component", "partner")),
		wishlistH:      handler.NewWishlistHandler(itemStore, partnerStore, occasionStore, hub, notifier, imageRemover, m, logger.With("component", "wishlist")),
		occasionH:      handler.NewOccasionHandler(occasionStore, partnerStore, hub, notifier, logger.With("component", "occasion")),
		imageH:         imageH,
		notifyH:        notifyH,
		pushH:          pushH,
		userStore:      userStore,
		sessionStore:   sessionStore,
		inviteStore:    inviteStore,
		rateLimiter:    middleware.NewRateLimiter(),
		notifier:       notifier,
		pushScheduler:  pushSched,
		originPatterns: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// PushScheduler returns the reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// Notifier returns the push notifier, nil when push is not configured.
func (s *Server) Notifier() *push.Notifier {
	return s.notifier
}

// Cleanup removes expired sessions, invites and rate limit windows.
func (s *Server) Cleanup() {
	if n, err := s.sessionStore.DeleteExpired(); err != nil {
		s.logger.Error("cleanup sessions", "error", err)
	} else if n > 0 {
		s.logger.Debug("cleaned up sessions", "count", n)
	}
	if n, err := s.inviteStore.DeleteExpired(); err != nil {
		s.logger.Error("cleanup partner invites", "error", err)
	} else if n > 0 {
		s.logger.Debug("cleaned up partner invites", "count", n)
	}
	s.rateLimiter.Cleanup()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("POST /api/register", s.rateLimited("register", s.authH.Register))
	mux.Handle("POST /api/login", s.rateLimited("login", s.authH.Login))

	s.registerProtectedRoutes(mux)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))
	return logged(middleware.Instrument(s.metrics)(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimited(prefix string, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByIP(prefix), authRateLimit, authRateWindow)(h)
}

// registerProtectedRoutes adds every route that needs a session. Each
// handler is wrapped individually so the mux pattern stays visible to the
// instrumentation middleware.
func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	// Identity
	handle("POST /api/logout", s.authH.Logout)
	handle("GET /api/me", s.authH.Me)
	handle("PUT /api/me", s.authH.UpdateMe)

	// Partner link
	handle("POST /api/partner/invite", s.partnerH.Invite)
	mux.Handle("POST /api/partner/accept", requireAuth(s.rateLimited("accept", s.partnerH.Accept)))
	handle("DELETE /api/partner", s.partnerH.Unlink)

	// Wishlist views and item mutations
	handle("GET /api/wishlist", s.wishlistH.View)
	handle("POST /api/items", s.wishlistH.CreateItem)
	handle("PUT /api/items/{id}", s.wishlistH.UpdateItem)
	handle("DELETE /api/items/{id}", s.wishlistH.DeleteItem)
	handle("POST /api/items/{id}/reservation", s.wishlistH.Reserve)
	handle("DELETE /api/items/{id}/reservation", s.wishlistH.Unreserve)
	handle("POST /api/items/{id}/purchase", s.wishlistH.Purchase)
	handle("DELETE /api/items/{id}/purchase", s.wishlistH.Unpurchase)

	// Occasions
	handle("GET /api/occasions", s.occasionH.List)
	handle("POST /api/occasions", s.occasionH.Create)
	handle("DELETE /api/occasions/{id}", s.occasionH.Delete)

	if s.imageH != nil {
		handle("POST /api/images", s.imageH.Upload)
	}

	// Push notification API routes
	if s.pushH != nil {
		handle("POST /api/notify", s.notifyH.Send)
		handle("POST /api/push/subscribe", s.pushH.Subscribe)
		handle("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		handle("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		handle("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		handle("GET /api/push/preferences", s.pushH.GetPreferences)
		handle("PUT /api/push/preferences", s.pushH.UpdatePreferences)
		handle("POST /api/push/test", s.pushH.TestNotification)
	}

	handle("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.originPatterns))
}
