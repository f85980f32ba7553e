package models

// Metadata is the open key-value bag stored in the jsonb metadata columns.
// Keys the application depends on are documented where they are read; all
// other keys pass through untouched.
type Metadata map[string]any

// Known metadata keys.
const (
	// MetaInsurancePolicy holds the insurance policy number on a vehicle.
	MetaInsurancePolicy = "insurance_policy"
	// MetaGarageRef holds the external garage reference on a maintenance.
	MetaGarageRef = "garage_ref"
)

// String returns the string value for key, or "" if absent or not a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
