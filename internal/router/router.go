package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mainstage/backend/internal/config"
	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/handlers"
	"github.com/mainstage/backend/internal/hub"
	"github.com/mainstage/backend/internal/middleware"
	"github.com/mainstage/backend/internal/services"
)

// Version is stamped at build time.
var Version = "dev"

func New(cfg *config.Config, database *sql.DB, queries *db.Queries) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.AdminTokenDuration, cfg.BotTokenDuration)
	broadcastHub := hub.New()
	libraryService := services.NewLibraryService(cfg.LibraryDir)
	srsService := services.NewSongRequestService(libraryService, broadcastHub, cfg.MaxRequestsPerUser)
	userService := services.NewUserService(queries)
	cardService := services.NewCardService(queries)
	rankingService := services.NewRankingService(queries)
	effectRegistry := services.NewEffectRegistry(broadcastHub)
	tourneyService := services.NewTourneyService(queries, effectRegistry, cardService, broadcastHub)
	cooldownGate := services.NewCooldownGate(queries)
	twitchService := services.NewTwitchService(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchChannelName, cfg.TwitchUserID)
	statusService := services.NewStatusService(database, queries, twitchService, srsService, broadcastHub, Version)

	// Handlers
	adminHandler := handlers.NewAdminHandler(cfg, authService)
	srsHandler := handlers.NewSRSHandler(srsService, libraryService, userService, queries)
	tourneyHandler := handlers.NewTourneyHandler(tourneyService, userService, effectRegistry, cooldownGate, cfg)
	cardsHandler := handlers.NewCardsHandler(cardService, userService)
	usersHandler := handlers.NewUsersHandler(userService, cardService, rankingService)
	twitchHandler := handlers.NewTwitchHandler(twitchService)
	wsHandler := handlers.NewWSHandler(broadcastHub, cfg.CORSAllowedOrigins)
	healthHandler := handlers.NewHealthHandler(statusService)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r.Route("/api", func(r chi.Router) {
		// Monitoring and live state, no auth
		r.Get("/health", healthHandler.Health)
		r.Get("/scoreboard", tourneyHandler.Scoreboard)
		r.Get("/standings", tourneyHandler.Standings)
		r.Get("/srs/status", srsHandler.Status)
		r.Get("/exp-rank", usersHandler.ExpRank)

		// Console password verification and the hub site sign-in widget
		r.With(rateLimiter.Middleware).Post("/admin/verify", adminHandler.VerifyPassword)
		r.With(rateLimiter.Middleware).Post("/login-widget", usersHandler.LoginWidget)

		// Stream metadata for the site frontend
		r.Route("/twitch", func(r chi.Router) {
			r.Use(rateLimiter.Middleware)
			r.Post("/live-data", twitchHandler.LiveData)
			r.Post("/vods", twitchHandler.VODs)
			r.Post("/clips", twitchHandler.Clips)
		})

		// Authenticated routes (bot or console token)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Route("/srs", func(r chi.Router) {
				r.Post("/request-song", srsHandler.RequestSong)
				r.Post("/request-site", srsHandler.RequestSite)
				r.Post("/check-song", srsHandler.CheckSong)
				r.Post("/remove-song", srsHandler.RemoveSong)

				// Console-only controls
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnlyMiddleware)
					r.Post("/init-library", srsHandler.InitLibrary)
					r.Post("/request-status", srsHandler.RequestStatus)
					r.Post("/clear", srsHandler.Clear)
				})
			})

			r.Route("/tourney", func(r chi.Router) {
				r.Post("/register", tourneyHandler.Register)
				r.Post("/award", tourneyHandler.Award)
				r.Post("/cooldown", tourneyHandler.Cooldown)

				// Console-only controls
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnlyMiddleware)
					r.Post("/effect", tourneyHandler.Effect)
					r.Post("/effect/clear", tourneyHandler.ClearEffect)
				})
			})

			r.Post("/gacha", cardsHandler.Gacha)
			r.Post("/check-in", usersHandler.CheckIn)
			r.Post("/get-cards", cardsHandler.GetCards)
			r.Post("/change-card", cardsHandler.ChangeCard)

			r.With(middleware.AdminOnlyMiddleware).Post("/admin/bot-token", adminHandler.IssueBotToken)
		})
	})

	// Broadcast socket for overlays and the mainframe frontend
	r.Get("/ws", wsHandler.Serve)

	return r
}
