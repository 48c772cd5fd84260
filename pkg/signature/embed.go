package signature

import "embed"

// builtinSignaturesFS embeds the built-in signature catalogue: protocol
// markers and file magic numbers commonly seen in captured payloads.
//
//go:embed signatures/*.yml
var builtinSignaturesFS embed.FS
