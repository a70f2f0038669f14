package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

// Options configures the cross-cutting middleware of the operator API.
type Options struct {
	Logger          *infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/state", app.State)
		r.Get("/events", app.Events)

		r.Put("/weights", app.SetWeights)
		r.Put("/weights/{channel}/{slot}", app.SetWeight)

		r.Route("/region", func(r chi.Router) {
			r.Put("/", app.SetRegion)
			r.Put("/linked", app.SetLinked)
			r.Put("/positions/{slot}", app.SetPosition)
		})
		r.Put("/mode", app.SetMode)

		r.Route("/slots/{slot}", func(r chi.Router) {
			r.Post("/image", app.UploadSource)
			r.Get("/image", app.GetSource)
			r.Get("/views/{channel}", app.GetView)
		})

		r.Route("/outputs", func(r chi.Router) {
			r.Get("/", app.ListOutputs)
			r.Put("/active", app.SelectOutput)
			r.Get("/{output}/image", app.GetOutputImage)
		})
		r.Get("/archive", app.DownloadArchive)
	})

	return r
}
