package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimSubmitted           Type = "claim.submitted"
	TypeClaimDocumentsAttached   Type = "claim.documents_attached"
	TypeClaimDocumentsIncomplete Type = "claim.documents_incomplete"
	TypeClaimStatusChanged       Type = "claim.status_changed"
	TypeSignedUp                 Type = "auth.signed_up"
	TypeSignedIn                 Type = "auth.signed_in"
	TypeSignedOut                Type = "auth.signed_out"
	TypeUserUpdated              Type = "auth.user_updated"
	TypeUserInvited              Type = "user.invited"
	TypeRoleUpdated              Type = "user.role_updated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

var allTypes = []Type{
	TypeClaimSubmitted,
	TypeClaimDocumentsAttached,
	TypeClaimDocumentsIncomplete,
	TypeClaimStatusChanged,
	TypeSignedUp,
	TypeSignedIn,
	TypeSignedOut,
	TypeUserUpdated,
	TypeUserInvited,
	TypeRoleUpdated,
}

// AllTypes returns every defined event type
func AllTypes() []Type {
	return append([]Type(nil), allTypes...)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsAuth reports whether the event is an auth-state change
func (t Type) IsAuth() bool {
	switch t {
	case TypeSignedUp, TypeSignedIn, TypeSignedOut, TypeUserUpdated:
		return true
	default:
		return false
	}
}
