package api

import (
	"errors"
	"net/http"

	"github.com/ONSdigital/dp-map-georeferencer/affine"
	"github.com/ONSdigital/dp-map-georeferencer/entities"
	"github.com/ONSdigital/dp-map-georeferencer/georef"
	"github.com/ONSdigital/dp-map-georeferencer/matcher"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/go-ns/log"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error types
var (
	internalError = "Failed to process the request due to an internal error"
	noImage       = "No image has been georeferenced"
	unknownEntity = "Unknown entity"
)

// Content types
var (
	contentJSON    = "application/json"
	contentGeoJSON = "application/geo+json"
)

func (api *GeoreferencerAPI) georeference(w http.ResponseWriter, r *http.Request) {

	log.Debug("georeference", log.Data{"headers": r.Header})
	request, err := models.CreateGeoreferenceRequest(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.ValidateGeoreferenceRequest(); err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := api.project.Georeference(request)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	writeJSON(w, result)
}

func (api *GeoreferencerAPI) changeView(w http.ResponseWriter, r *http.Request) {

	log.Debug("changeView", log.Data{"headers": r.Header})
	request, err := models.CreateViewRequest(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.ValidateViewRequest(); err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := api.project.ChangeView(*request.View)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	writeJSON(w, result)
}

func (api *GeoreferencerAPI) moveImage(w http.ResponseWriter, r *http.Request) {

	log.Debug("moveImage", log.Data{"headers": r.Header})
	request, err := models.CreateMoveRequest(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.ValidateMoveRequest(); err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := api.project.MoveImage(*request.Bounds)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	writeJSON(w, result)
}

func (api *GeoreferencerAPI) getState(w http.ResponseWriter, r *http.Request) {
	state := api.project.State()
	if state == nil {
		http.Error(w, noImage, http.StatusNotFound)
		return
	}
	writeJSON(w, state)
}

func (api *GeoreferencerAPI) clearProject(w http.ResponseWriter, r *http.Request) {
	api.project.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	bytes, err := json.Marshal(v)
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}

	setContentType(w, contentJSON)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(bytes); err != nil {
		log.Error(err, log.Data{})
	}
}

func setContentType(w http.ResponseWriter, contentType string) {
	w.Header().Set("Content-Type", contentType)
}

func setErrorCode(w http.ResponseWriter, err error) {
	log.Debug("error is", log.Data{"error": err.Error()})
	switch {
	case errors.Is(err, matcher.ErrDuplicateControlPoint),
		errors.Is(err, entities.ErrInvalidEntity),
		errors.Is(err, entities.ErrDuplicateEntity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, georef.ErrNoImage):
		http.Error(w, noImage, http.StatusNotFound)
	case errors.Is(err, affine.ErrSingularSystem),
		errors.Is(err, affine.ErrInsufficientControlPoints),
		errors.Is(err, georef.ErrInvalidImageDimensions),
		errors.Is(err, georef.ErrInvalidImageBounds),
		errors.Is(err, georef.ErrNonFinitePlacement):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, internalError, http.StatusInternalServerError)
	}
}
