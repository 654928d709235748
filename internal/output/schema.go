package output

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the records written in json format,
// keyed by record kind.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schemas := map[string]*jsonschema.Schema{
		"match": reflector.Reflect(&MatchRecord{}),
		"line":  reflector.Reflect(&LineRecord{}),
	}
	return json.MarshalIndent(schemas, "", "  ")
}
