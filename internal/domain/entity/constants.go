package entity

// Claim type constants
const (
	ClaimTypeDental          = "Dental"
	ClaimTypeOptical         = "Optical"
	ClaimTypeGeneralMedical  = "General Medical"
	ClaimTypeMaternity       = "Maternity"
	ClaimTypeSurgery         = "Surgery"
	ClaimTypeHospitalization = "Hospitalization"
	ClaimTypeOther           = "Other"
)

// ClaimTypes lists the accepted claim types in display order
var ClaimTypes = []string{
	ClaimTypeDental,
	ClaimTypeOptical,
	ClaimTypeGeneralMedical,
	ClaimTypeMaternity,
	ClaimTypeSurgery,
	ClaimTypeHospitalization,
	ClaimTypeOther,
}

// Reimbursement method constants
const (
	ReimbursementCheque       = "cheque"
	ReimbursementBankTransfer = "bank-transfer"
)

// Documents status constants. A claim row is written before its files are
// uploaded; this flag records how far the upload got.
const (
	DocumentsNone       = "none"
	DocumentsPending    = "pending"
	DocumentsAttached   = "attached"
	DocumentsIncomplete = "incomplete"
	// DocumentsFailed is terminal: the retry job no longer picks the claim up
	DocumentsFailed = "failed"
)

// Role constants
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Invite status constants
const (
	InviteStatusUnused  = "UNUSED"
	InviteStatusUsed    = "USED"
	InviteStatusExpired = "EXPIRED"
)

// DocumentsBucket is the object store bucket holding claim documents
const DocumentsBucket = "claim-documents"

// MaxClaimFiles caps the number of documents attached to one claim
const MaxClaimFiles = 10

// AllowedDocumentExtensions are the accepted upload extensions (lowercase, with dot)
var AllowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsClaimType reports whether t is an accepted claim type
func IsClaimType(t string) bool {
	for _, ct := range ClaimTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// IsReimbursementMethod reports whether m is an accepted reimbursement method
func IsReimbursementMethod(m string) bool {
	return m == ReimbursementCheque || m == ReimbursementBankTransfer
}

// IsRole reports whether r is a known role
func IsRole(r string) bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}
