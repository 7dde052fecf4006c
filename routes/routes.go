package routes

import (
	"github.com/cuelane/pool-league-system/handlers"
	"github.com/cuelane/pool-league-system/middleware"
	"github.com/cuelane/pool-league-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Tournament   *handlers.TournamentHandler
	Match        *handlers.MatchHandler
	Registration *handlers.RegistrationHandler
	WebSocket    *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.Get)
		r.Get("/{tournamentID}/matches", h.Tournament.ListMatches)
		r.Get("/{tournamentID}/progress", h.Tournament.GetProgress)
		r.Get("/{tournamentID}/registrations", h.Registration.ListConfirmed)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/register", h.Registration.Register)
			r.Delete("/{tournamentID}/register", h.Registration.Withdraw)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/", h.Tournament.Create)
			r.Put("/{tournamentID}", h.Tournament.Update)
			r.Delete("/{tournamentID}", h.Tournament.Delete)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Post("/{tournamentID}/levels/initialize", h.Tournament.InitializeLevel)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetMatch)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/mine", h.Match.ListMyMatches)
			r.Post("/{matchID}/dates/propose", h.Match.ProposeDates)
			r.Post("/{matchID}/dates/select", h.Match.SelectDates)
			r.Post("/{matchID}/result", h.Match.SubmitResult)
			r.Post("/{matchID}/result/confirm", h.Match.ConfirmResult)
			r.Post("/{matchID}/forfeit", h.Match.ReportForfeit)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Delete("/{matchID}", h.Match.DeleteMatch)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", h.User.GetProfile)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.User.GetCurrentUser)
			r.Post("/me/avatar", h.User.UploadAvatar)
			r.Get("/me/notifications", h.User.ListNotifications)
			r.Put("/me/notifications/{notificationID}/read", h.User.MarkNotificationRead)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)
		r.Put("/{registrationID}/confirm", h.Registration.Confirm)
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
		r.With(authenticate).Get("/me", h.WebSocket.ServeUser)
	})

	return router
}
