package interfaces

import (
	"context"

	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// WorklistReader is the read side of the worklist store the query responder uses
type WorklistReader interface {
	GetAll(ctx context.Context) ([]worklist.Entry, error)
}
