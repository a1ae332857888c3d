package isbnapi

import _ "embed"

// Readme is used as the OpenAPI description.
//
//go:embed README.md
var Readme string
