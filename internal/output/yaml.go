package output

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders values as YAML.
type YAMLFormatter struct{}

// Format renders value as YAML.
func (f *YAMLFormatter) Format(value any) (string, error) {
	if isNil(value) {
		return "", nil
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
