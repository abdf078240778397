package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MapHttpRoutes mounts every endpoint on r. graphqlHandler serves queries
// and mutations over POST; websocketHandler serves subscriptions over the
// websocket upgrade on the same path.
func MapHttpRoutes(
	r chi.Router,
	graphqlHandler http.Handler,
	websocketHandler http.Handler,
	authHandler *AuthHandler,
	healthHandler *HealthHandler,
	sessionMiddleware *SessionMiddleware,
) {
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(sessionMiddleware.Attach).Get("/session", authHandler.Session)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Attach)
		r.Method(http.MethodPost, "/graphql", graphqlHandler)
		r.Method(http.MethodGet, "/graphql", websocketHandler)
	})
}
