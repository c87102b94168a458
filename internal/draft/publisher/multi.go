package publisher

import (
	"context"
	"errors"

	"github.com/bestballhq/draftengine/internal/draft/events"
)

// Multi fans one envelope out to several publishers. Every publisher gets
// the envelope even when an earlier one fails; errors are joined.
type Multi struct {
	pubs []Publisher
}

// NewMulti builds a fan-out over pubs. Nil entries are skipped.
func NewMulti(pubs ...Publisher) *Multi {
	kept := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Multi{pubs: kept}
}

func (m *Multi) Publish(ctx context.Context, env events.Envelope) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
