package effects

import (
	"context"

	auditsvc "github.com/negotiation-core/negotiation-core/internal/application/audit"
	notificationsvc "github.com/negotiation-core/negotiation-core/internal/application/notification"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

// Applier fans out the side effects a committed command produced.
// Effects are applied after the state change they describe; failure to
// deliver never rolls that change back.
type Applier struct {
	audits        *auditsvc.Service
	notifications *notificationsvc.Service
}

func NewApplier(audits *auditsvc.Service, notifications *notificationsvc.Service) *Applier {
	return &Applier{audits: audits, notifications: notifications}
}

func (a *Applier) Apply(ctx context.Context, eff effect.Effects) {
	if eff.Empty() {
		return
	}
	for _, rec := range eff.Audits {
		a.audits.Log(ctx, rec)
	}
	if len(eff.Notifications) > 0 {
		a.notifications.Dispatch(ctx, eff.Notifications)
	}
}
