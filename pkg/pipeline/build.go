package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
)

// =============================================================================
// References and Errors
// =============================================================================

// Tips reads every reference of repo, plus HEAD, for use in cache keys.
func Tips(ctx context.Context, repo walk.Repository) (cache.RefTips, error) {
	head, err := repo.Head(ctx)
	if err != nil {
		return nil, repoErr(err, "read head")
	}
	branches, err := repo.Branches(ctx)
	if err != nil {
		return nil, repoErr(err, "read branches")
	}
	tags, err := repo.Tags(ctx)
	if err != nil {
		return nil, repoErr(err, "read tags")
	}

	tips := cache.RefTips{"HEAD": head.Name + "@" + head.Target}
	for _, b := range branches {
		v := b.Target
		if b.Upstream != "" {
			v += ">" + b.Upstream
		}
		if b.Prunable {
			v += "!"
		}
		tips[b.Name] = v
	}
	for _, t := range tags {
		tips[t.Name] = t.Target
	}
	return tips, nil
}

func repoErr(err error, op string) error {
	return classify(fmt.Errorf("%w: %w", walk.ErrRepository, err), op)
}

// classify attaches an error code to a failure from the core packages.
// Errors that already carry a code pass through.
func classify(err error, op string) error {
	if errors.GetCode(err) != "" {
		return err
	}
	code := errors.ErrCodeInternal
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code = errors.ErrCodeTimeout
	case stderrors.Is(err, dag.ErrOrphanCommit):
		code = errors.ErrCodeOrphanCommit
	case stderrors.Is(err, dag.ErrUnknownReference):
		code = errors.ErrCodeNotFound
	case stderrors.Is(err, dag.ErrInvalidCommitID):
		code = errors.ErrCodeInvalidInput
	case stderrors.Is(err, walk.ErrRepository), stderrors.Is(err, dag.ErrHistoryCycle):
		code = errors.ErrCodeRepository
	}
	return errors.Wrap(code, err, "%s", op)
}
