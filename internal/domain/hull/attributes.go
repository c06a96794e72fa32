package hull

// AttributeOperationSetIfNull writes the value only when the attribute is
// currently empty on the platform.
const AttributeOperationSetIfNull = "setIfNull"

// Attributes is the trait set written back to a platform record.
type Attributes map[string]any

// AttributeValue carries a value together with a merge operation.
type AttributeValue struct {
	Value     any    `json:"value"`
	Operation string `json:"operation"`
}

// SetIfNull wraps value so that it never overwrites an existing attribute.
func SetIfNull(value any) AttributeValue {
	return AttributeValue{Value: value, Operation: AttributeOperationSetIfNull}
}

// UserClaims identifies the user a write-back targets.
type UserClaims struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
}

// AccountClaims identifies the account a write-back targets.
type AccountClaims struct {
	ID          string `json:"id,omitempty"`
	Domain      string `json:"domain,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
}
