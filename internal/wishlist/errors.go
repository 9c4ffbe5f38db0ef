package wishlist

import (
	"errors"
	"fmt"
)

// ErrRejected is the root of every invalid-mutation error. Rejections are
// decided before any write reaches the store.
var ErrRejected = errors.New("operation rejected")

// ErrForbidden marks rejections caused by the actor lacking a stake in the
// entity. It matches ErrRejected as well.
var ErrForbidden = fmt.Errorf("%w: forbidden", ErrRejected)

var (
	ErrAlreadyReserved = fmt.Errorf("%w: item is already reserved", ErrRejected)
	ErrOwnItem         = fmt.Errorf("%w: cannot reserve your own item", ErrRejected)
	ErrNotReserved     = fmt.Errorf("%w: item is not reserved", ErrRejected)
	ErrPurchased       = fmt.Errorf("%w: item is already purchased", ErrRejected)
	ErrNoPartner       = fmt.Errorf("%w: no linked partner", ErrRejected)
	ErrAlreadyLinked   = fmt.Errorf("%w: already linked to a partner", ErrRejected)
	ErrInvalidOccasion = fmt.Errorf("%w: unknown occasion", ErrRejected)
	ErrNotAuthor       = fmt.Errorf("%w: only the author may change this item", ErrForbidden)
	ErrNotReserver     = fmt.Errorf("%w: only the reserving user may do this", ErrForbidden)
	ErrNotPartner      = fmt.Errorf("%w: item does not belong to your partner", ErrForbidden)
	ErrNotParticipant  = fmt.Errorf("%w: not a participant of this occasion", ErrForbidden)
	ErrNoStake         = fmt.Errorf("%w: only the author or reserver may do this", ErrForbidden)
)

// ErrNotFound is returned when the addressed entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable wraps failures of the backing store so callers can tell
// them apart from an empty result.
var ErrUnavailable = errors.New("unavailable")

// ErrInvalidRequest is returned by ParseRequest for unknown parameters.
var ErrInvalidRequest = errors.New("invalid view request")

// Unavailable wraps err as an upstream failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
