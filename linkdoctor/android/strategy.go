package android

// DomainVerificationAPILevel is the API level (Android 12) where the
// DomainVerificationService and its `pm get-app-links` report replaced the
// legacy IntentFilterVerifier machinery.
const DomainVerificationAPILevel = 31

// Dialect names the report format a device speaks, so callers can pick the
// matching parser.
type Dialect string

const (
	DialectNew    Dialect = "new"
	DialectLegacy Dialect = "legacy"
)

// VerificationStrategy builds the shell commands for one dialect. Command
// construction is pure string work; execution belongs to the caller.
type VerificationStrategy interface {
	Dialect() Dialect

	// ListVerificationCommand returns the shell command that prints the
	// verification report. An empty packageName lists every package.
	ListVerificationCommand(packageName string) string

	// ForceReverifyCommand returns the shell command that makes the system
	// re-run verification for a package.
	ForceReverifyCommand(packageName string) string
}

// SelectStrategy picks the dialect for a device API level. Anything below
// DomainVerificationAPILevel, including unknown levels reported as zero,
// gets the legacy strategy.
func SelectStrategy(apiLevel int) VerificationStrategy {
	if apiLevel >= DomainVerificationAPILevel {
		return &DomainVerificationStrategy{}
	}
	return &IntentFilterVerifierStrategy{}
}

// DomainVerificationStrategy targets API 31+ devices.
type DomainVerificationStrategy struct {
}

func (r *DomainVerificationStrategy) Dialect() Dialect {
	return DialectNew
}

func (r *DomainVerificationStrategy) ListVerificationCommand(packageName string) string {
	if len(packageName) > 0 {
		return "pm get-app-links " + packageName
	}
	return "pm get-app-links"
}

func (r *DomainVerificationStrategy) ForceReverifyCommand(packageName string) string {
	return "pm verify-app-links --re-verify " + packageName
}

// IntentFilterVerifierStrategy targets devices before API 31. The dumpsys
// report is inherently global; package filtering happens after parsing.
type IntentFilterVerifierStrategy struct {
}

func (r *IntentFilterVerifierStrategy) Dialect() Dialect {
	return DialectLegacy
}

func (r *IntentFilterVerifierStrategy) ListVerificationCommand(string) string {
	return "dumpsys package domain-preferred-apps"
}

func (r *IntentFilterVerifierStrategy) ForceReverifyCommand(packageName string) string {
	// Resetting the stored link selection makes the legacy verifier run
	// again the next time the package's filters are evaluated.
	return "pm set-app-link " + packageName + " undefined"
}
