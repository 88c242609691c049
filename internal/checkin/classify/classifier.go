package classify

import (
	"context"
	"errors"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/ports"
	dErrors "checkpoint/pkg/domain-errors"
)

var axisCodes = map[models.Axis]dErrors.Code{
	models.AxisNonce:  models.CodeTokenAlreadyUsed,
	models.AxisDevice: models.CodeDeviceAlreadyUsed,
	models.AxisMember: models.CodeAlreadyCheckedIn,
}

// Classifier maps commit conflicts onto redemption codes.
type Classifier struct {
	probe ports.ConflictProbe
}

// New creates a classifier. probe resolves conflicts whose axis the store
// could not name; it must read from the primary.
func New(probe ports.ConflictProbe) *Classifier {
	return &Classifier{probe: probe}
}

// Classify returns the attributed axis and the redemption error for a
// conflict. Ambiguous conflicts are attributed by re-checking each key in
// insert order, which is the order in which a violation would have surfaced.
// If nothing can be confirmed the error is internal rather than a guess.
func (c *Classifier) Classify(ctx context.Context, conflict *models.ConflictError, r models.Redemption) (models.Axis, error) {
	if conflict == nil {
		return models.AxisUnknown, dErrors.New(dErrors.CodeInternal, "no conflict to classify")
	}
	if code, ok := axisCodes[conflict.Axis]; ok {
		return conflict.Axis, models.Fail(code)
	}

	axis, err := c.resolve(ctx, r)
	if err != nil {
		return models.AxisUnknown, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attribute conflict")
	}
	if code, ok := axisCodes[axis]; ok {
		return axis, models.Fail(code)
	}
	return models.AxisUnknown, dErrors.Wrap(conflict, dErrors.CodeInternal, "unattributable uniqueness conflict")
}

func (c *Classifier) resolve(ctx context.Context, r models.Redemption) (models.Axis, error) {
	if c.probe == nil {
		return models.AxisUnknown, errors.New("no conflict probe configured")
	}
	used, err := c.probe.NonceUsed(ctx, r.Nonce)
	if err != nil {
		return models.AxisUnknown, err
	}
	if used {
		return models.AxisNonce, nil
	}
	used, err = c.probe.DeviceUsed(ctx, r.MeetingID, r.Fingerprint)
	if err != nil {
		return models.AxisUnknown, err
	}
	if used {
		return models.AxisDevice, nil
	}
	if r.Member != nil {
		present, err := c.probe.HasAttendance(ctx, r.MeetingID, r.Member.ID)
		if err != nil {
			return models.AxisUnknown, err
		}
		if present {
			return models.AxisMember, nil
		}
	}
	return models.AxisUnknown, nil
}
