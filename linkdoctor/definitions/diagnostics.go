package definitions

import "time"

// ComparisonOutcome tags the variant of a FingerprintComparisonResult.
type ComparisonOutcome string

const (
	OutcomeMatch               ComparisonOutcome = "match"
	OutcomeMismatch            ComparisonOutcome = "mismatch"
	OutcomeNoLocalFingerprint  ComparisonOutcome = "no_local_fingerprint"
	OutcomeNoRemoteFingerprint ComparisonOutcome = "no_remote_fingerprint"
	OutcomeRemoteUnavailable   ComparisonOutcome = "remote_unavailable"
)

// FingerprintComparisonResult is a tagged variant: exactly one outcome per
// comparison. Local and Remotes carry the conflicting values for display and
// are populated only on a mismatch; Local keeps its original formatting.
type FingerprintComparisonResult struct {
	Outcome ComparisonOutcome `json:"outcome"`
	Local   string            `json:"local,omitempty"`
	Remotes []string          `json:"remotes,omitempty"`
}

func (r FingerprintComparisonResult) IsMatch() bool {
	return r.Outcome == OutcomeMatch
}

func FingerprintMatch() FingerprintComparisonResult {
	return FingerprintComparisonResult{Outcome: OutcomeMatch}
}

func FingerprintMismatch(local string, remotes []string) FingerprintComparisonResult {
	return FingerprintComparisonResult{Outcome: OutcomeMismatch, Local: local, Remotes: remotes}
}

func NoLocalFingerprint() FingerprintComparisonResult {
	return FingerprintComparisonResult{Outcome: OutcomeNoLocalFingerprint}
}

func NoRemoteFingerprint() FingerprintComparisonResult {
	return FingerprintComparisonResult{Outcome: OutcomeNoRemoteFingerprint}
}

func RemoteUnavailable() FingerprintComparisonResult {
	return FingerprintComparisonResult{Outcome: OutcomeRemoteUnavailable}
}

type FailureReason string

const (
	ReasonAssetLinksMissing      FailureReason = "asset_links_missing"
	ReasonAssetLinksInvalidJSON  FailureReason = "asset_links_invalid_json"
	ReasonAssetLinksNetworkError FailureReason = "asset_links_network_error"
	ReasonAssetLinksRedirect     FailureReason = "asset_links_redirect"
	ReasonFingerprintMismatch    FailureReason = "fingerprint_mismatch"
	ReasonPackageNotInAssetLinks FailureReason = "package_not_in_asset_links"
	ReasonDNSFailure             FailureReason = "dns_failure"
	ReasonUnknown                FailureReason = "unknown"
)

// DomainDiagnosticResult is built once per domain per diagnose run and never
// partially updated afterwards.
type DomainDiagnosticResult struct {
	Domain            string                      `json:"domain"`
	VerificationState VerificationState           `json:"verification_state"`
	AssetLinksStatus  ValidationStatus            `json:"asset_links_status"`
	Fingerprint       FingerprintComparisonResult `json:"fingerprint"`
	FailureReasons    []FailureReason             `json:"failure_reasons,omitempty"`
	Suggestions       []string                    `json:"suggestions,omitempty"`
}

type VerificationDiagnostics struct {
	ReportID         string                   `json:"report_id"`
	PackageName      string                   `json:"package_name"`
	DeviceSerial     string                   `json:"device_serial,omitempty"`
	LocalFingerprint string                   `json:"local_fingerprint,omitempty"`
	GeneratedAt      time.Time                `json:"generated_at"`
	Domains          []DomainDiagnosticResult `json:"domains"`

	TotalDomains    int `json:"total_domains"`
	VerifiedDomains int `json:"verified_domains"`
	FailedDomains   int `json:"failed_domains"`
}
