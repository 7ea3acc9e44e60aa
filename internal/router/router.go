package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/api/chat"
	"github.com/waynai/waynai-go/internal/api/course"
	"github.com/waynai/waynai-go/internal/api/health"
	"github.com/waynai/waynai-go/internal/api/search"
	"github.com/waynai/waynai-go/internal/api/tourist"
	"github.com/waynai/waynai-go/internal/api/travel"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TravelHandler  *travel.HandlerImpl
	ChatHandler    *chat.HandlerImpl
	SearchHandler  *search.HandlerImpl
	CourseHandler  *course.HandlerImpl
	TouristHandler *tourist.HandlerImpl
	AreaHandler    *area.HandlerImpl
	HealthHandler  *health.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/check", cfg.HealthHandler.Check)

		// SSE streaming endpoints; GET variants exist for EventSource clients.
		r.Route("/travel", func(r chi.Router) {
			r.Get("/plan", cfg.TravelHandler.GeneratePlan)
			r.Post("/plan", cfg.TravelHandler.GeneratePlan)
			r.Get("/plan-with-search", cfg.TravelHandler.GeneratePlanWithSearch)
			r.Post("/plan-with-search", cfg.TravelHandler.GeneratePlanWithSearch)
		})
		r.Post("/chat/message", cfg.ChatHandler.ProcessMessage)
		r.Post("/search/stream", cfg.SearchHandler.SearchStream)

		r.Route("/course", func(r chi.Router) {
			r.Post("/", cfg.CourseHandler.GenerateCourse)
			r.Post("/tips", cfg.CourseHandler.GenerateTips)
		})

		r.Route("/tourist", func(r chi.Router) {
			r.Get("/spots", cfg.TouristHandler.GetSpots)
			r.Get("/spots/search", cfg.TouristHandler.SearchSpots)
			r.Get("/spots/random", cfg.TouristHandler.GetRandomSpots)
			r.Get("/spots/random/{areaCode}", cfg.TouristHandler.GetRandomSubRegionSpots)
		})

		r.Route("/area", func(r chi.Router) {
			r.Get("/codes", cfg.AreaHandler.ListCodes)
			r.Get("/codes/search", cfg.AreaHandler.SearchSubRegions)
			r.Get("/resolve", cfg.AreaHandler.Resolve)
		})
	})

	return r
}
