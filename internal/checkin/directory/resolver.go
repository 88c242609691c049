package directory

import (
	"context"
	"errors"
	"strings"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/ports"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
)

// Resolver maps attendee-supplied short ids to directory members.
type Resolver struct {
	members ports.MemberDirectory
}

// New creates a resolver over members.
func New(members ports.MemberDirectory) (*Resolver, error) {
	if members == nil {
		return nil, errors.New("member directory is required")
	}
	return &Resolver{members: members}, nil
}

// Resolve looks up shortID. A miss fails UNKNOWN_USER when strict and
// returns a nil member otherwise; callers must treat the nil member as an
// unattributed redemption.
func (r *Resolver) Resolve(ctx context.Context, shortID string, strict bool) (*models.Member, error) {
	m, err := r.members.FindMember(ctx, strings.TrimSpace(shortID))
	switch {
	case err == nil && m != nil:
		return m, nil
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		if strict {
			return nil, models.Fail(models.CodeUnknownUser)
		}
		return nil, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up member")
	}
}
