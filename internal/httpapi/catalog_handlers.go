package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/JasonKing5/ifs/internal/audit"
	"github.com/JasonKing5/ifs/internal/auth"
	"github.com/JasonKing5/ifs/internal/catalog"
)

type poemResponse struct {
	envelope
	Poem catalog.Poem `json:"poem"`
}

type poemPageResponse struct {
	envelope
	catalog.Page
}

type authorRequest struct {
	Name    string `json:"name"`
	Dynasty string `json:"dynasty"`
}

type authorResponse struct {
	envelope
	Author catalog.Author `json:"author"`
}

type authorListResponse struct {
	envelope
	Items []catalog.Author `json:"items"`
}

func (a *API) handleListPoems(w http.ResponseWriter, r *http.Request) {
	page, err := a.catalog.ListPoems(r.Context(), catalog.ParseQuery(r.URL.Query()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poemPageResponse{Page: page})
}

func (a *API) handleMissingID(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusBadRequest, "id is required")
}

func (a *API) handleGetPoem(w http.ResponseWriter, r *http.Request) {
	p, err := a.catalog.GetPoem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poemResponse{Poem: p})
}

func (a *API) handleCreatePoem(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewPoem
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	p, err := a.catalog.CreatePoem(r.Context(), principal.UserID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "poetry.create", map[string]any{"poem_id": p.ID, "title": p.Title})
	writeJSON(w, http.StatusCreated, poemResponse{Poem: p})
}

func (a *API) handleUpdatePoem(w http.ResponseWriter, r *http.Request) {
	var req catalog.PoemUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	p, err := a.catalog.UpdatePoem(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "poetry.update", map[string]any{"poem_id": id})
	writeJSON(w, http.StatusOK, poemResponse{Poem: p})
}

func (a *API) handleDeletePoem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.catalog.DeletePoem(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "poetry.delete", map[string]any{"poem_id": id})
	writeJSON(w, http.StatusOK, okResponse{})
}

func (a *API) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListAuthors(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authorListResponse{Items: items})
}

func (a *API) handleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	author, err := a.catalog.CreateAuthor(r.Context(), req.Name, req.Dynasty)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "author.create", map[string]any{"author_id": author.ID})
	writeJSON(w, http.StatusCreated, authorResponse{Author: author})
}
