// Package syncer drains the pending sync queue against the remote store.
//
// Conflict policy is last-write-wins: a remote "newer version" signal is
// answered by overwriting with the local payload, no merge, no three-way
// diff. That is the documented behavior for a single-outlet deployment
// where the terminal is the only writer that matters; multi-writer
// correctness is explicitly out of scope.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/remote"
	"warungpos/terminal/internal/store"
)

type Processor struct {
	repo   store.Repository
	remote remote.Store
	logger *log.Logger
}

// New builds a processor. A nil logger falls back to stderr.
func New(repo store.Repository, remoteStore remote.Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncer] ", log.LstdFlags)
	}
	return &Processor{repo: repo, remote: remoteStore, logger: logger}
}

// Drain pushes every pending item, in enqueue order, against the remote
// store. Per-item failures are recorded (status=failed, attempts+1) and
// never abort the pass; only a remote store that cannot be reached at all
// fails the whole call, leaving every item untouched. No backoff schedule
// is imposed here: attempts is bookkeeping and the caller owns the cadence.
func (p *Processor) Drain(ctx context.Context) (domain.SyncReport, error) {
	var report domain.SyncReport

	if err := p.remote.Ping(ctx); err != nil {
		return report, fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}

	pending, err := p.repo.ListPendingSync(ctx)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		return report, nil
	}

	envelope := uuid.NewString()
	p.logger.Printf("drain %s: %d pending item(s)", envelope, len(pending))

	for _, item := range pending {
		err := p.remote.Apply(ctx, item)

		var conflict *remote.ConflictError
		if errors.As(err, &conflict) {
			p.logger.Printf("drain %s: item %d (%s %s) conflicts with remote version %d, overwriting",
				envelope, item.ID, item.EntityType, item.Operation, conflict.RemoteVersion)
			err = p.remote.Overwrite(ctx, item)
		}

		if err != nil {
			if markErr := p.repo.MarkSyncItemFailed(ctx, item.ID); markErr != nil {
				return report, markErr
			}
			report.Failed++
			p.logger.Printf("drain %s: item %d (%s %s) failed attempt %d: %v",
				envelope, item.ID, item.EntityType, item.Operation, item.Attempts+1, err)
			continue
		}

		if err := p.repo.MarkSyncItemSynced(ctx, item.ID); err != nil {
			return report, err
		}
		report.Synced++
	}

	p.logger.Printf("drain %s: synced=%d failed=%d", envelope, report.Synced, report.Failed)
	return report, nil
}
