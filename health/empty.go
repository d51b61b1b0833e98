package health

import (
	"net/http"

	"github.com/ONSdigital/go-ns/log"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type healthResponse struct {
	Status   string `json:"status"`
	Strategy string `json:"strategy,omitempty"`
}

// Healthcheck returns a handler reporting the service status along with the georeferencing strategy
// currently in use, as given by strategy
func Healthcheck(strategy func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		healthStateInfo := healthResponse{Status: "OK"}
		if strategy != nil {
			healthStateInfo.Strategy = strategy()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		healthStateJSON, err := json.Marshal(healthStateInfo)
		if err != nil {
			log.ErrorC("marshal json", err, log.Data{"struct": healthStateInfo})
			return
		}
		if _, err = w.Write(healthStateJSON); err != nil {
			log.ErrorC("writing json body", err, log.Data{"json": string(healthStateJSON)})
		}
	}
}
