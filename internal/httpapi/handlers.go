package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"hanzibee/internal/loader"
	"hanzibee/internal/service"
)

const maxAssetBytes = 10 << 20

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Categories(r.Context())
	if err != nil {
		h.writeServiceError(w, "categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": names})
}

func (h *Handler) learningStages(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.LearningStages(r.Context())
	if err != nil {
		h.writeServiceError(w, "learningStages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"learning_stages": names})
}

func (h *Handler) characters(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	stage := strings.TrimSpace(r.URL.Query().Get("stage"))

	switch {
	case category != "":
		shard, err := h.svc.CharactersByCategory(r.Context(), category)
		if err != nil {
			h.writeServiceError(w, "characters", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category, "characters": shard})
	case stage != "":
		shard, err := h.svc.CharactersByStage(r.Context(), stage)
		if err != nil {
			h.writeServiceError(w, "characters", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stage": stage, "characters": shard})
	default:
		writeError(w, http.StatusBadRequest, service.ErrNameRequired.Error())
	}
}

func (h *Handler) characterByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hanzi, err := h.svc.Character(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "characterByID", err)
		return
	}
	writeJSON(w, http.StatusOK, hanzi)
}

func (h *Handler) characterByText(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	hanzi, err := h.svc.CharacterByText(r.Context(), text)
	if err != nil {
		h.writeServiceError(w, "characterByText", err)
		return
	}
	writeJSON(w, http.StatusOK, hanzi)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.svc.Search(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeServiceError(w, "statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) progressOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Overview(r.Context())
	if err != nil {
		h.writeServiceError(w, "progressOverview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) categoryProgress(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	result, err := h.svc.CategoryProgress(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, "categoryProgress", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) allCategoryProgress(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.AllCategoryProgress(r.Context())
	if err != nil {
		h.writeServiceError(w, "allCategoryProgress", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": result})
}

func (h *Handler) characterProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := h.svc.CharacterProgress(id)
	if err != nil {
		h.writeServiceError(w, "characterProgress", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) completeLearning(w http.ResponseWriter, r *http.Request) {
	var req service.CompleteLearningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("completeLearning decode error: %v", err)
		writeError(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	resp, err := h.svc.CompleteLearning(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "completeLearning", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("updateProgress decode error: %v", err)
		writeError(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	record, err := h.svc.UpdateProgress(req)
	if err != nil {
		h.writeServiceError(w, "updateProgress", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) totalStars(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"total_stars": h.svc.TotalStars()})
}

func (h *Handler) uploadAsset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAssetBytes))
	if err != nil {
		log.Printf("uploadAsset read error: %v", err)
		writeError(w, http.StatusBadRequest, "请求体读取失败")
		return
	}
	fileName := strings.TrimSpace(r.URL.Query().Get("filename"))

	resp, err := h.svc.UploadAsset(r.Context(), service.UploadAssetRequest{
		FileName: fileName,
		Bytes:    data,
	})
	if err != nil {
		h.writeServiceError(w, "uploadAsset", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError 统一的错误分发：参数类哨兵 400，查无此物 404，
// 字库上游失败 503（前端据此展示可重试的提示），其余 500。
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrCharacterIDRequired),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrQueryRequired),
		errors.Is(err, service.ErrNegativeStars),
		errors.Is(err, service.ErrAssetRequired):
		log.Printf("%s bad request: err=%v", op, err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCharacterNotFound),
		errors.Is(err, loader.ErrCategoryNotFound),
		errors.Is(err, loader.ErrLearningStageNotFound):
		log.Printf("%s not found: err=%v", op, err)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, loader.ErrConfigLoad),
		errors.Is(err, loader.ErrShardLoad),
		errors.Is(err, service.ErrUploadUnavailable):
		log.Printf("%s unavailable: err=%v", op, err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("%s internal error: err=%v", op, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
