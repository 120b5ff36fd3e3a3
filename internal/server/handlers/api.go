package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/banzuke/banzuke/internal/core/basho"
	"github.com/banzuke/banzuke/internal/core/sumoapi"
	apperrors "github.com/banzuke/banzuke/internal/errors"
	"github.com/banzuke/banzuke/internal/metrics"
)

// API serves upstream resources through the governed client. Upstream
// failures keep their classification in the response envelope.
type API struct {
	Client *sumoapi.Client
	Now    func() time.Time
}

// Banzuke handles GET /api/banzuke/{basho}/{division}. The basho segment
// accepts "current".
func (a *API) Banzuke(w http.ResponseWriter, r *http.Request) {
	bashoID, ok := a.bashoParam(w, r)
	if !ok {
		return
	}
	division, ok := basho.ValidDivision(chi.URLParam(r, "division"))
	if !ok {
		respondWithError(w, r, apperrors.NewInvalidInputError(
			"unknown division; want one of "+strings.Join(basho.Divisions, ", ")))
		return
	}

	result, err := a.Client.GetBanzuke(r.Context(), bashoID, division)
	a.respond(w, r, "banzuke", result, err)
}

// Basho handles GET /api/basho/{basho}.
func (a *API) Basho(w http.ResponseWriter, r *http.Request) {
	bashoID, ok := a.bashoParam(w, r)
	if !ok {
		return
	}

	result, err := a.Client.GetBashoResults(r.Context(), bashoID)
	a.respond(w, r, "basho", result, err)
}

// RikishiList handles GET /api/rikishi.
func (a *API) RikishiList(w http.ResponseWriter, r *http.Request) {
	result, err := a.Client.ListRikishi(r.Context())
	a.respond(w, r, "rikishi_list", result, err)
}

// Rikishi handles GET /api/rikishi/{id}.
func (a *API) Rikishi(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("rikishi id must be a positive integer"))
		return
	}

	result, err := a.Client.GetRikishi(r.Context(), id)
	a.respond(w, r, "rikishi", result, err)
}

// respond writes result, or err as a classified envelope, and counts the
// operation by outcome.
func (a *API) respond(w http.ResponseWriter, r *http.Request, operation string, result any, err error) {
	if err != nil {
		metrics.RecordOperation(operation, sumoapi.KindOf(err).String())
		respondWithError(w, r, apperrors.FromClassified(r.Context(), err))
		return
	}
	metrics.RecordOperation(operation, "")
	writeJSON(w, http.StatusOK, result)
}

func (a *API) bashoParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "basho")
	if strings.EqualFold(raw, "current") {
		raw = ""
	}
	bashoID, err := basho.Normalize(raw, a.now())
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, err.Error()))
		return "", false
	}
	return bashoID, true
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
