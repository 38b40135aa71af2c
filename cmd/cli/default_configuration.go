package cli

import (
	_ "embed"
)

//go:embed config.yaml
var embeddedDefaultConfiguration []byte

const embeddedDefaultConfigurationTypeConstant = "yaml"

// EmbeddedDefaultConfiguration returns the bundled configuration document and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), embeddedDefaultConfiguration...), embeddedDefaultConfigurationTypeConstant
}
