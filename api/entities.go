package api

import (
	"net/http"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/go-ns/log"
	"github.com/gorilla/mux"
)

func (api *GeoreferencerAPI) registerEntities(w http.ResponseWriter, r *http.Request) {

	log.Debug("registerEntities", log.Data{"headers": r.Header})
	request, err := models.CreateEntitiesRequest(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.ValidateEntitiesRequest(); err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := api.project.Register(request)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	writeJSON(w, result)
}

// getEntities returns every tracked entity as a GeoJSON FeatureCollection
func (api *GeoreferencerAPI) getEntities(w http.ResponseWriter, r *http.Request) {
	bytes, err := api.project.FeatureCollection().MarshalJSON()
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}

	setContentType(w, contentGeoJSON)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(bytes); err != nil {
		log.Error(err, log.Data{})
	}
}

// getEntity returns a single entity, or a route or area with all of its vertices
func (api *GeoreferencerAPI) getEntity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if composite, found := api.project.Composite(id); found {
		writeJSON(w, composite)
		return
	}
	if entity, found := api.project.Entity(id); found {
		writeJSON(w, entity)
		return
	}

	log.Debug("entity not found", log.Data{"id": id})
	http.Error(w, unknownEntity, http.StatusNotFound)
}
