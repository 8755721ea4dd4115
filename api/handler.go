package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jpjaydus/pixelpin/annotation"
	"github.com/jpjaydus/pixelpin/annotation/annotationrepo"
	"github.com/jpjaydus/pixelpin/domain"
)

type handler struct {
	s *apiServer
}

func (h handler) init(m *http.ServeMux) {
	m.HandleFunc("GET /api/assets/{assetId}/annotations", h.List)
	m.HandleFunc("POST /api/assets/{assetId}/annotations", h.Create)
	m.HandleFunc("PATCH /api/assets/{assetId}/annotations/{id}", h.Update)
	m.HandleFunc("DELETE /api/assets/{assetId}/annotations/{id}", h.Delete)
	m.HandleFunc("POST /api/assets/{assetId}/annotations/{id}/replies", h.CreateReply)
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, errors.New("not found"))
	})
}

func (h handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.s.annotation.ListAnnotations(r.Context(), r.PathValue("assetId"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []domain.Annotation{}
	}
	writeJson(w, http.StatusOK, list)
}

func (h handler) Create(w http.ResponseWriter, r *http.Request) {
	var req annotation.CreateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	req.AssetId = r.PathValue("assetId")
	created, err := h.s.annotation.CreateAnnotation(r.Context(), req)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusCreated, created)
}

type updateRequest struct {
	Content  *string                  `json:"content"`
	Status   *domain.AnnotationStatus `json:"status"`
	Position *domain.Position         `json:"position"`
}

func (h handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.s.annotation.UpdateAnnotation(r.Context(), r.PathValue("assetId"), r.PathValue("id"), annotationrepo.UpdatePatch{
		Content:  req.Content,
		Status:   req.Status,
		Position: req.Position,
	})
	if err != nil {
		if errors.Is(err, annotationrepo.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
		} else {
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJson(w, http.StatusOK, updated)
}

func (h handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.s.annotation.DeleteAnnotation(r.Context(), r.PathValue("assetId"), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, annotationrepo.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
		} else {
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req annotation.CreateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	req.AssetId = r.PathValue("assetId")
	req.AnnotationId = r.PathValue("id")
	reply, err := h.s.annotation.CreateReply(r.Context(), req)
	if err != nil {
		if errors.Is(err, annotationrepo.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
		} else {
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJson(w, http.StatusCreated, reply)
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, _ := json.Marshal(v)
	_, _ = w.Write(data)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJson(w, status, errResp{Error: err.Error()})
}
