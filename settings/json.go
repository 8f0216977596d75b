package settings

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeStructuredModule parses a JSON document shaped like:
//
//	{"package": "low-latency", "options": {"Modulo": 64, "Threshold": 50}}
//
// into a StructuredModule, for callers that keep packaged LSET settings as
// serialized config rather than building the struct in Go.
func DecodeStructuredModule(data []byte) (StructuredModule, error) {
	var wire struct {
		Package string         `json:"package"`
		Options map[string]any `json:"options"`
	}
	if err := jsonAPI.Unmarshal(data, &wire); err != nil {
		return StructuredModule{}, err
	}
	return StructuredModule{Package: wire.Package, Options: wire.Options}, nil
}
