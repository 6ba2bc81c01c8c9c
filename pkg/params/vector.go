package params

import (
	"encoding/json"

	"github.com/samber/oops"
)

// Vec3 is a fixed three-component vector, serialized as a JSON array.
// Used for pixel coordinates (upper_left) and motor positions (position).
type Vec3 [3]float64

// UnmarshalJSON rejects arrays that do not have exactly three components.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return oops.Wrapf(err, "vector components must be numeric")
	}

	if len(raw) != 3 {
		return oops.
			With("length", len(raw)).
			Errorf("vector must have exactly 3 components, got %d", len(raw))
	}

	copy(v[:], raw)
	return nil
}

// X returns the first component.
func (v Vec3) X() float64 { return v[0] }

// Y returns the second component.
func (v Vec3) Y() float64 { return v[1] }

// Z returns the third component.
func (v Vec3) Z() float64 { return v[2] }
