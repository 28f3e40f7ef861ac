// Package openapi embeds the published API description.
package openapi

import _ "embed"

//go:embed openapi.yaml
var Document []byte

//go:embed docs.html
var DocsPage []byte
