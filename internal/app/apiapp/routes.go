package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/relun/backend/internal/services/auth"
	convsvc "github.com/relun/backend/internal/services/conversations"
	matchessvc "github.com/relun/backend/internal/services/matches"
	swipesvc "github.com/relun/backend/internal/services/swipes"
	"github.com/relun/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	SwipeService        *swipesvc.Service
	MatchService        *matchessvc.Service
	ConversationService *convsvc.Service
	Storage             handlers.Pinger
	StorageDriver       string
	Logger              *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Storage, deps.StorageDriver)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService, deps.Logger)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.ConversationService, deps.Logger)
	messagesHandler := handlers.NewMessagesHandler(deps.ConversationService, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)

	r.Group(func(private chi.Router) {
		private.Use(AuthMiddleware(deps.AuthService, deps.Logger))

		private.Post("/swipes", swipeHandler.Handle)
		private.Get("/swipes/{target}", swipeHandler.Get)
		private.Get("/likes/incoming", swipeHandler.IncomingLikes)

		private.Get("/matches", matchesHandler.List)
		private.Route("/matches/{id}", func(m chi.Router) {
			m.Get("/", matchesHandler.Get)
			m.Post("/unmatch", matchesHandler.Unmatch)
			m.Post("/block", matchesHandler.Block)
			m.Post("/report", matchesHandler.Report)
			m.Post("/messages", messagesHandler.Send)
			m.Get("/messages", messagesHandler.List)
			m.Post("/read", messagesHandler.MarkRead)
		})
	})
}
