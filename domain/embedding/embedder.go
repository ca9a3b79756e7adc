package embedding

import "context"

// Embedder converts texts into embedding vectors. Implementations must
// return one vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the width of the vectors this embedder produces.
	Dimension() int
}
