//go:build !embed_model

package provider

import "embed"

var modelFS embed.FS

const modelEmbedded = false
