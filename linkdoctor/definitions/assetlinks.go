package definitions

// AssetTarget mirrors the target object of a Digital Asset Links statement.
type AssetTarget struct {
	Namespace              string   `json:"namespace"`
	PackageName            string   `json:"package_name"`
	Sha256CertFingerprints []string `json:"sha256_cert_fingerprints"`
}

type AssetStatement struct {
	Relation []string     `json:"relation"`
	Target   *AssetTarget `json:"target"`
}

// AssetLinksContent holds the statements that survived validation. Statements
// with missing required fields are dropped during parsing and recorded as
// issues instead; they never appear here.
type AssetLinksContent struct {
	Statements []AssetStatement `json:"statements"`
}

// FingerprintsFor collects every fingerprint declared for the package across
// all statements, in declaration order.
func (c *AssetLinksContent) FingerprintsFor(packageName string) []string {
	var fps []string
	for _, st := range c.Statements {
		if st.Target == nil || st.Target.PackageName != packageName {
			continue
		}
		fps = append(fps, st.Target.Sha256CertFingerprints...)
	}
	return fps
}

type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

type IssueCode string

const (
	IssueMissingRelation      IssueCode = "missing_relation"
	IssueMissingTarget        IssueCode = "missing_target"
	IssueInvalidNamespace     IssueCode = "invalid_namespace"
	IssueMissingPackageName   IssueCode = "missing_package_name"
	IssueMissingFingerprint   IssueCode = "missing_fingerprint"
	IssueMalformedFingerprint IssueCode = "malformed_fingerprint"
	IssueMultipleStatements   IssueCode = "multiple_statements"
	IssueMultipleFingerprints IssueCode = "multiple_fingerprints"
	IssueEmptyStatementList   IssueCode = "empty_statement_list"
	IssueFileNotFound         IssueCode = "file_not_found"
	IssueRedirectDetected     IssueCode = "redirect_detected"
	IssueWrongContentType     IssueCode = "wrong_content_type"
	IssueNetworkError         IssueCode = "network_error"
	IssueTimeout              IssueCode = "timeout"
	IssueDNSError             IssueCode = "dns_error"
	IssueSSLError             IssueCode = "ssl_error"
	IssueInvalidJSONSyntax    IssueCode = "invalid_json_syntax"
)

type ValidationIssue struct {
	Severity IssueSeverity `json:"severity"`
	Code     IssueCode     `json:"code"`
	Message  string        `json:"message"`
	Details  string        `json:"details,omitempty"`
}

// ValidationStatus is the overall outcome of fetching and validating a
// domain's assetlinks.json. StatusNotChecked is only ever set by the
// orchestrator on domains whose assetlinks.json was never requested.
type ValidationStatus string

const (
	StatusValid               ValidationStatus = "valid"
	StatusInvalidJSON         ValidationStatus = "invalid_json"
	StatusNotFound            ValidationStatus = "not_found"
	StatusRedirect            ValidationStatus = "redirect"
	StatusNetworkError        ValidationStatus = "network_error"
	StatusFingerprintMismatch ValidationStatus = "fingerprint_mismatch"
	StatusInvalidContentType  ValidationStatus = "invalid_content_type"
	StatusNotChecked          ValidationStatus = "not_checked"
)

type AssetLinksValidation struct {
	Domain  string             `json:"domain"`
	URL     string             `json:"url"`
	Status  ValidationStatus   `json:"status"`
	Issues  []ValidationIssue  `json:"issues,omitempty"`
	Content *AssetLinksContent `json:"content,omitempty"`
	RawBody string             `json:"raw_body,omitempty"`
}

// HasErrors reports whether any SeverityError issue was recorded.
// A validation gets StatusValid only when this is false and content parsed.
func (v *AssetLinksValidation) HasErrors() bool {
	for _, is := range v.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasIssueCode reports whether an issue with the given code was recorded.
func (v *AssetLinksValidation) HasIssueCode(code IssueCode) bool {
	for _, is := range v.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}
