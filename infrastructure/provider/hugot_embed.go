//go:build embed_model

package provider

import "embed"

// The model directory is baked into the binary under the embed_model tag
// so the sidecar can run without a local model download.
//
//go:embed all:models
var modelFS embed.FS

const modelEmbedded = true
