package storage

import (
	"context"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Archive bundles the repositories the pipeline writes through. It
// satisfies the orchestrator's Archiver interface.
type Archive struct {
	LoopResults *LoopResultRepo
	Approvals   *ApprovalRepo
	Experiments *ExperimentRepo
	Changes     *ChangeLogRepo
}

func NewArchive(db *PostgresDB) *Archive {
	return &Archive{
		LoopResults: NewLoopResultRepo(db),
		Approvals:   NewApprovalRepo(db),
		Experiments: NewExperimentRepo(db),
		Changes:     NewChangeLogRepo(db),
	}
}

func (a *Archive) ArchiveLoopResult(ctx context.Context, result domain.LoopResult) error {
	return a.LoopResults.Create(ctx, &result)
}

func (a *Archive) ArchiveApproval(ctx context.Context, approval domain.PendingApproval) error {
	return a.Approvals.Upsert(ctx, &approval)
}
