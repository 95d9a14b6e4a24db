package httpserver

import (
	"log"
	"net/http"

	"github.com/delarge95/ai-news-aggregator/internal/http/handlers"
	"github.com/delarge95/ai-news-aggregator/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/batches", deps.API.Batches)
	mux.HandleFunc("/v1/batches/", deps.API.BatchStatus)
	mux.HandleFunc("/v1/articles/analyze", deps.API.AnalyzeArticle)
	mux.HandleFunc("/v1/stats", deps.API.Stats)
	mux.HandleFunc("/v1/stats/reset", deps.API.ResetStats)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
