package audience

import (
	"context"
	"fmt"

	"github.com/pavra/push-dispatch/internal/domain"
	"go.uber.org/zap"
)

// Directory answers role-based recipient lookups against the user directory.
type Directory interface {
	UserIDsByRoles(ctx context.Context, roles []string) ([]string, error)
}

// Resolver maps a notification's target specification to a concrete
// delivery directive.
type Resolver struct {
	directory Directory
	logger    *zap.Logger
}

func NewResolver(directory Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		directory: directory,
		logger:    logger,
	}
}

// Resolve produces the target directive for a notification. Role targeting
// requires a directory lookup; lookup failures abort the dispatch and are not
// retried here.
func (r *Resolver) Resolve(ctx context.Context, n *domain.Notification) (domain.TargetDirective, error) {
	if n == nil {
		return domain.TargetDirective{}, fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}

	switch n.TargetType {
	case domain.TargetSingle, domain.TargetCustom:
		return domain.ExplicitDirective(n.TargetUserIDs)

	case domain.TargetRole:
		if r.directory == nil {
			return domain.TargetDirective{}, fmt.Errorf("%w: no directory configured for role targeting", domain.ErrAudienceLookup)
		}

		userIDs, err := r.directory.UserIDsByRoles(ctx, n.TargetRoles)
		if err != nil {
			return domain.TargetDirective{}, fmt.Errorf("%w: %v", domain.ErrAudienceLookup, err)
		}

		r.logger.Debug("resolved role audience",
			zap.String("notificationId", n.ID),
			zap.Strings("roles", n.TargetRoles),
			zap.Int("userCount", len(userIDs)),
		)

		return domain.ExplicitDirective(userIDs)

	case domain.TargetAll:
		return domain.BroadcastDirective(), nil

	default:
		return domain.TargetDirective{}, fmt.Errorf("%w: %q", domain.ErrUnknownTargetType, n.TargetType)
	}
}
