package sensor

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

var ErrConflictingBody = errors.New("body and body file are mutually exclusive")

// ResolveBody returns the payload to transmit. An explicit body is sent
// verbatim, a body file may hold YAML or JSON and is converted to JSON, and
// with neither the default config is used. Overrides replace the default
// wholesale but must still decode as a complete SensorConfig.
func ResolveBody(body, bodyFile string) ([]byte, error) {
	var payload []byte
	switch {
	case body != "" && bodyFile != "":
		return nil, ErrConflictingBody
	case body != "":
		payload = []byte(body)
	case bodyFile != "":
		content, err := os.ReadFile(bodyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read body file %s: %w", bodyFile, err)
		}
		payload, err = yaml.YAMLToJSON(content)
		if err != nil {
			return nil, fmt.Errorf("failed to convert body file %s to JSON: %w", bodyFile, err)
		}
	default:
		return Default().Marshal()
	}

	if _, err := Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return payload, nil
}
