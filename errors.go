package sharingway

import "github.com/sharingway-go/sharingway/internal/sherrors"

// Public API errors - re-export the internal sentinel set as a stable
// contract per §7's error taxonomy.
var (
	ErrAccessDenied = sherrors.ErrAccessDenied
	ErrNotAttached  = sherrors.ErrNotAttached
	ErrOversize     = sherrors.ErrOversize
	ErrInvalid      = sherrors.ErrInvalid
	ErrTimeout      = sherrors.ErrTimeout
	ErrAbandoned    = sherrors.ErrAbandoned
	ErrEmpty        = sherrors.ErrEmpty
)
