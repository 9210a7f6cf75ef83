package definitions

// VerificationState is the normalized per-domain verification status. Both
// command dialects map their raw status tokens onto this one enumeration;
// tokens neither dialect recognizes become VerificationUnknown, never an error.
type VerificationState string

const (
	VerificationVerified      VerificationState = "verified"
	VerificationApproved      VerificationState = "approved"
	VerificationDenied        VerificationState = "denied"
	VerificationUnverified    VerificationState = "unverified"
	VerificationLegacyFailure VerificationState = "legacy_failure"
	VerificationUnknown       VerificationState = "unknown"
)

// IsSuccessful reports whether the domain opens directly in the app.
// Approved is the legacy dialect's equivalent of verified.
func (s VerificationState) IsSuccessful() bool {
	return s == VerificationVerified || s == VerificationApproved
}

type DomainVerification struct {
	Domain string            `json:"domain"`
	State  VerificationState `json:"state"`
	// Fingerprint is the signing certificate reported alongside the domain
	// listing. Only the new command dialect emits it; empty means absent.
	Fingerprint string `json:"fingerprint,omitempty"`
}

type AppLink struct {
	PackageName string               `json:"package_name"`
	Domains     []DomainVerification `json:"domains"`
}
