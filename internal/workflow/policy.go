package workflow

import "github.com/lmoretti/birchside/internal/models"

// Access policy predicates consulted by every operation. These are pure
// checks; all session machinery lives at the transport edge.

// CanModerate reports whether the actor may perform admin-only operations.
func CanModerate(actor *models.Resident) bool {
	return actor != nil && actor.IsAdmin
}

// CanMutate reports whether the actor may modify an entity owned by
// ownerID. Owners and admins qualify.
func CanMutate(actor *models.Resident, ownerID uint) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.IsAdmin
}

// CanEndorse reports whether the actor may submit endorsements. Requires a
// verified address; help requests carry no such gate.
func CanEndorse(actor *models.Resident) bool {
	return actor != nil && actor.IsVerified()
}
