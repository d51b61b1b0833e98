package testdata

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

// LoadExampleGeoreferenceRequest reads the example georeference request from exampleGeoreferenceRequest.json
func LoadExampleGeoreferenceRequest(t *testing.T) []byte {
	return loadTestdata(t, "exampleGeoreferenceRequest.json")
}

// LoadExampleEntitiesRequest reads the example entity registration from exampleEntitiesRequest.json
func LoadExampleEntitiesRequest(t *testing.T) []byte {
	return loadTestdata(t, "exampleEntitiesRequest.json")
}

func loadTestdata(t *testing.T, name string) []byte {
	path := filepath.Join("../testdata", name) // relative path
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return bytes
}
