package api

import (
	"context"

	"github.com/ONSdigital/dp-map-georeferencer/health"
	"github.com/ONSdigital/dp-map-georeferencer/overlay"
	"github.com/ONSdigital/go-ns/log"
	"github.com/ONSdigital/go-ns/server"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"net/http"
)

var httpServer *server.Server

// GeoreferencerAPI manages georeferencing an image and the entities drawn over it
type GeoreferencerAPI struct {
	router  *mux.Router
	project *overlay.Project
}

// CreateGeoreferencerAPI manages all the routes configured to the georeferencer
func CreateGeoreferencerAPI(bindAddr string, allowedOrigins string, project *overlay.Project, errorChan chan error) {
	router := mux.NewRouter()
	routes(router, project)

	httpServer = server.New(bindAddr, createCORSHandler(allowedOrigins, router))
	// Disable this here to allow main to manage graceful shutdown of the entire app.
	httpServer.HandleOSSignals = false

	go func() {
		log.Debug("Starting map georeferencer...", nil)
		if err := httpServer.ListenAndServe(); err != nil {
			log.ErrorC("Main", err, log.Data{"MethodInError": "httpServer.ListenAndServe()"})
			errorChan <- err
		}
	}()
}

// createCORSHandler wraps the router in a CORS handler that responds to OPTIONS requests and returns the headers necessary to allow CORS-enabled clients to work
func createCORSHandler(allowedOrigins string, router *mux.Router) http.Handler {
	headersOk := handlers.AllowedHeaders([]string{"Accept", "Content-Type", "Access-Control-Allow-Origin", "Access-Control-Allow-Methods", "X-Requested-With"})
	originsOk := handlers.AllowedOrigins([]string{allowedOrigins})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})

	return handlers.CORS(originsOk, headersOk, methodsOk)(router)
}

// routes contain all endpoints for the georeferencer
func routes(router *mux.Router, project *overlay.Project) *GeoreferencerAPI {
	api := GeoreferencerAPI{router: router, project: project}

	router.Path("/healthcheck").Methods("GET").HandlerFunc(health.Healthcheck(func() string {
		return string(project.Strategy())
	}))

	api.router.HandleFunc("/georeference", api.georeference).Methods("POST")
	api.router.HandleFunc("/view", api.changeView).Methods("PUT")
	api.router.HandleFunc("/image/bounds", api.moveImage).Methods("PUT")
	api.router.HandleFunc("/state", api.getState).Methods("GET")
	api.router.HandleFunc("/entities", api.registerEntities).Methods("POST")
	api.router.HandleFunc("/entities", api.getEntities).Methods("GET")
	api.router.HandleFunc("/entities/{id:.+}", api.getEntity).Methods("GET")
	api.router.HandleFunc("/project", api.clearProject).Methods("DELETE")
	return &api
}

// Close represents the graceful shutting down of the http server
func Close(ctx context.Context) error {
	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("graceful shutdown of http server complete", nil)
	return nil
}
