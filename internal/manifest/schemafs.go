package manifest

import "embed"

// SchemaFS contains the embedded manifest JSON schema.
//
//go:embed schema.json
var SchemaFS embed.FS
