package sharingway

import "github.com/sharingway-go/sharingway/internal/naming"

// PrefixMode selects whether a privileged-prefix fallback is attempted when
// a named object cannot be opened or created under the privileged prefix.
type PrefixMode = naming.PrefixMode

const (
	PrefixLenient = naming.PrefixLenient
	PrefixStrict  = naming.PrefixStrict
)
