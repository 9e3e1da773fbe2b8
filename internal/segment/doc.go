// Wire format (bit-exact, per §6 of the specification):
//
//	offset 0..3   int32, little-endian   L (frame length, 0 <= L <= size-4)
//	offset 4..4+L UTF-8 bytes            one JSON value
//
// There is no checksum and no version byte. A malformed length is the only
// in-band corruption signal: ReadFrame reports ErrInvalid when L is out of
// range, distinguishing it from ErrEmpty (L == 0, a legitimate "nothing
// published yet" state).
package segment

import "github.com/sharingway-go/sharingway/internal/naming"

// OpenNamed opens (or creates) a segment whose name is derived from nameFn
// under the privileged-prefix fallback policy in mode. nameFn is typically
// naming.Segment or naming.RegistrySegment partially applied to a provider
// name.
func OpenNamed(nameFn func(prefix string) string, size int, mode naming.PrefixMode) (*Segment, error) {
	var result *Segment
	_, err := naming.OpenWithFallback(mode, nameFn, func(name string) error {
		seg, openErr := Open(name, size)
		if openErr != nil {
			return openErr
		}
		result = seg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
