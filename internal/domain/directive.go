package domain

import "fmt"

// TargetDirective is the resolved audience for one dispatch: either a
// broadcast to everyone or an explicit list of external user identifiers.
type TargetDirective struct {
	broadcast   bool
	externalIDs []string
}

// BroadcastDirective targets every subscribed device.
func BroadcastDirective() TargetDirective {
	return TargetDirective{broadcast: true}
}

// ExplicitDirective targets the given external user ids. An empty list is not
// a valid directive.
func ExplicitDirective(externalIDs []string) (TargetDirective, error) {
	if len(externalIDs) == 0 {
		return TargetDirective{}, fmt.Errorf("%w: no target users resolved", ErrEmptyAudience)
	}
	ids := make([]string, len(externalIDs))
	copy(ids, externalIDs)
	return TargetDirective{externalIDs: ids}, nil
}

func (d TargetDirective) IsBroadcast() bool { return d.broadcast }

// ExternalIDs returns the explicit recipient list; nil for broadcasts.
func (d TargetDirective) ExternalIDs() []string { return d.externalIDs }

// Size returns the explicit recipient count; zero for broadcasts.
func (d TargetDirective) Size() int { return len(d.externalIDs) }
