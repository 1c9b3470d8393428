package httpapi

import (
	"log"
	"net/http"
	"time"
)

// NewRouter 组装路由。dataset 非空时把字库配置目录挂在 /data/configs/，
// 数据加载器与 PWA 前端可以直接回源到本服务。
func NewRouter(handler *Handler, dataset http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.healthz)
	mux.HandleFunc("GET /docs", handler.swaggerUI)
	mux.HandleFunc("GET /docs/", handler.swaggerUI)
	mux.HandleFunc("GET /docs/openapi.json", handler.swaggerSpec)
	mux.HandleFunc("GET /swagger", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/openapi.json", handler.swaggerSpec)

	mux.HandleFunc("GET /api/v1/categories", handler.categories)
	mux.HandleFunc("GET /api/v1/learning-stages", handler.learningStages)
	mux.HandleFunc("GET /api/v1/characters", handler.characters)
	mux.HandleFunc("GET /api/v1/characters/search", handler.search)
	mux.HandleFunc("GET /api/v1/characters/by-text", handler.characterByText)
	mux.HandleFunc("GET /api/v1/characters/{id}", handler.characterByID)
	mux.HandleFunc("GET /api/v1/statistics", handler.statistics)

	mux.HandleFunc("GET /api/v1/progress", handler.progressOverview)
	mux.HandleFunc("GET /api/v1/progress/categories", handler.allCategoryProgress)
	mux.HandleFunc("GET /api/v1/progress/category", handler.categoryProgress)
	mux.HandleFunc("GET /api/v1/progress/characters/{id}", handler.characterProgress)
	mux.HandleFunc("POST /api/v1/progress/complete", handler.completeLearning)
	mux.HandleFunc("POST /api/v1/progress/update", handler.updateProgress)
	mux.HandleFunc("GET /api/v1/stars", handler.totalStars)

	mux.HandleFunc("POST /api/v1/assets", handler.uploadAsset)

	if dataset != nil {
		mux.Handle("GET /data/configs/", http.StripPrefix("/data/configs/", dataset))
	}

	return withRequestLogging(withCORS(withJSONContentType(mux)))
}

func withJSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s -> %d (%s) from %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Truncate(time.Millisecond), r.RemoteAddr)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
