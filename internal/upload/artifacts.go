package upload

import (
	"encoding/json"
	"fmt"
)

// WeightsFileName is the path referenced from the weights manifest
const WeightsFileName = "weights.bin"

// WeightSpec describes one tensor inside the weight data blob
type WeightSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

// Artifacts is a serialized model ready to be persisted
type Artifacts struct {
	ModelTopology json.RawMessage
	WeightSpecs   []WeightSpec
	WeightData    []byte
}

// WeightsGroup is one entry of the weights manifest
type WeightsGroup struct {
	Paths   []string     `json:"paths"`
	Weights []WeightSpec `json:"weights"`
}

// ModelDocument is the JSON written to the model location
type ModelDocument struct {
	ModelTopology   json.RawMessage `json:"modelTopology"`
	WeightsManifest []WeightsGroup  `json:"weightsManifest"`
}

// Document builds the model JSON document for the artifacts
func (a *Artifacts) Document() ([]byte, error) {
	topology := a.ModelTopology
	if len(topology) == 0 {
		topology = json.RawMessage("null")
	}
	weights := a.WeightSpecs
	if weights == nil {
		weights = []WeightSpec{}
	}

	doc := ModelDocument{
		ModelTopology: topology,
		WeightsManifest: []WeightsGroup{
			{Paths: []string{WeightsFileName}, Weights: weights},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model document: %w", err)
	}
	return data, nil
}
