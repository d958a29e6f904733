package embedded

import (
	_ "embed"
)

// Default pipeline settings, overlaid by a config file and environment variables
//
//go:embed data/pipeline.yaml
var DefaultPipelineYAML []byte
