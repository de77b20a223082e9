package slideframe

import (
	_ "embed"
)

//go:embed VERSION
var Version string

//go:embed slideframe.toml
var DefaultConfig string
