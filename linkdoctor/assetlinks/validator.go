package assetlinks

import (
	"context"
	"fmt"
	"mime"
	"regexp"
	"strings"

	json "github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

// WellKnownPath is fixed by the Digital Asset Links specification. The
// verifier on the device requests exactly this path, so we must too.
const WellKnownPath = "/.well-known/assetlinks.json"

const (
	AndroidAppNamespace = "android_app"
	RelationHandleAll   = "delegate_permission/common.handle_all_urls"
)

// reFingerprintShape is the canonical SHA-256 shape once colons are stripped.
var reFingerprintShape = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)

// URLFor returns the canonical manifest URL for a domain.
func URLFor(domain string) string {
	return "https://" + domain + WellKnownPath
}

// ParseStatements decodes and validates an assetlinks.json document.
// Undecodable JSON returns a non-nil error plus a single syntax issue.
// On successful decode the returned content holds only the statements that
// passed the required-field checks; everything else is reported through the
// issue list. The function never panics on any input.
func ParseStatements(jsonText string) (*definitions.AssetLinksContent, []definitions.ValidationIssue, error) {
	var statements []definitions.AssetStatement
	if err := json.Unmarshal([]byte(jsonText), &statements); err != nil {
		issue := definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueInvalidJSONSyntax,
			Message:  "assetlinks.json is not valid JSON",
			Details:  err.Error(),
		}
		return nil, []definitions.ValidationIssue{issue}, fmt.Errorf("decode assetlinks.json: %w", err)
	}

	var issues []definitions.ValidationIssue

	if len(statements) == 0 {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityWarning,
			Code:     definitions.IssueEmptyStatementList,
			Message:  "assetlinks.json contains no statements",
		})
		return &definitions.AssetLinksContent{}, issues, nil
	}
	if len(statements) > 1 {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityInfo,
			Code:     definitions.IssueMultipleStatements,
			Message:  fmt.Sprintf("assetlinks.json declares %d statements", len(statements)),
		})
	}

	content := &definitions.AssetLinksContent{}
	for i, st := range statements {
		stIssues, ok := validateStatement(i, st)
		issues = append(issues, stIssues...)
		if ok {
			content.Statements = append(content.Statements, st)
		}
	}

	return content, issues, nil
}

// validateStatement applies the per-statement rules. ok=false means the
// statement is dropped from the usable content.
func validateStatement(index int, st definitions.AssetStatement) (issues []definitions.ValidationIssue, ok bool) {
	at := fmt.Sprintf("statement[%d]", index)

	if len(st.Relation) == 0 {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueMissingRelation,
			Message:  at + " has no relation list",
			Details:  "expected " + RelationHandleAll,
		})
		return issues, false
	}
	if st.Target == nil {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueMissingTarget,
			Message:  at + " has no target object",
		})
		return issues, false
	}
	if st.Target.Namespace != "" && st.Target.Namespace != AndroidAppNamespace {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityWarning,
			Code:     definitions.IssueInvalidNamespace,
			Message:  at + ` target namespace is not "` + AndroidAppNamespace + `"`,
			Details:  st.Target.Namespace,
		})
	}
	if strings.TrimSpace(st.Target.PackageName) == "" {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueMissingPackageName,
			Message:  at + " target has no package name",
		})
		return issues, false
	}
	if len(st.Target.Sha256CertFingerprints) == 0 {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueMissingFingerprint,
			Message:  at + " target declares no sha256_cert_fingerprints",
		})
		return issues, false
	}

	for _, fp := range st.Target.Sha256CertFingerprints {
		if stripped := strings.ReplaceAll(fp, ":", ""); !reFingerprintShape.MatchString(stripped) {
			issues = append(issues, definitions.ValidationIssue{
				Severity: definitions.SeverityWarning,
				Code:     definitions.IssueMalformedFingerprint,
				Message:  at + " fingerprint is not a SHA-256 hex digest",
				Details:  fp,
			})
		}
	}
	if len(st.Target.Sha256CertFingerprints) > 1 {
		issues = append(issues, definitions.ValidationIssue{
			Severity: definitions.SeverityInfo,
			Code:     definitions.IssueMultipleFingerprints,
			Message:  fmt.Sprintf("%s declares %d fingerprints", at, len(st.Target.Sha256CertFingerprints)),
		})
	}

	return issues, true
}

// Validator composes the network fetch with document validation.
type Validator struct {
	fetcher Fetcher
}

func NewValidator(fetcher Fetcher) *Validator {
	return &Validator{fetcher: fetcher}
}

// Validate fetches and checks a domain's assetlinks.json. Transport
// failures, redirects, missing files and malformed documents all come back
// as a typed status plus issues, so callers can treat the validation as
// total.
func (r *Validator) Validate(ctx context.Context, domain string) *definitions.AssetLinksValidation {
	v := &definitions.AssetLinksValidation{
		Domain: domain,
		URL:    URLFor(domain),
	}

	res, err := r.fetcher.Fetch(ctx, v.URL)
	if err != nil {
		v.Status = definitions.StatusNetworkError
		v.Issues = append(v.Issues, fetchErrorIssue(err))
		log.Debug().Str("domain", domain).Err(err).Msg("[Validate] fetch failed")
		return v
	}

	switch {
	case res.StatusCode >= 300 && res.StatusCode < 400:
		v.Status = definitions.StatusRedirect
		v.Issues = append(v.Issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueRedirectDetected,
			Message:  "assetlinks.json must be served directly, redirects are not followed by the verifier",
			Details:  fmt.Sprintf("HTTP %d -> %s", res.StatusCode, res.RedirectLocation),
		})
		return v

	case res.StatusCode == 404:
		v.Status = definitions.StatusNotFound
		v.Issues = append(v.Issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueFileNotFound,
			Message:  "no assetlinks.json published at " + v.URL,
		})
		return v

	case res.StatusCode != 200:
		v.Status = definitions.StatusNotFound
		v.Issues = append(v.Issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueFileNotFound,
			Message:  fmt.Sprintf("server answered HTTP %d for %s", res.StatusCode, v.URL),
		})
		return v
	}

	v.RawBody = res.Body

	content, issues, parseErr := ParseStatements(res.Body)
	v.Issues = append(v.Issues, issues...)
	if parseErr != nil {
		v.Status = definitions.StatusInvalidJSON
		return v
	}
	v.Content = content

	if !isJSONContentType(res.ContentType) {
		v.Status = definitions.StatusInvalidContentType
		v.Issues = append(v.Issues, definitions.ValidationIssue{
			Severity: definitions.SeverityError,
			Code:     definitions.IssueWrongContentType,
			Message:  "assetlinks.json must be served with Content-Type application/json",
			Details:  res.ContentType,
		})
		return v
	}

	// Syntactically valid JSON with structurally broken statements still
	// cannot verify; surface it as an invalid document.
	if v.HasErrors() {
		v.Status = definitions.StatusInvalidJSON
		return v
	}

	v.Status = definitions.StatusValid
	return v
}

func fetchErrorIssue(err error) definitions.ValidationIssue {
	issue := definitions.ValidationIssue{
		Severity: definitions.SeverityError,
		Details:  err.Error(),
	}
	switch KindOf(err) {
	case ErrKindTimeout:
		issue.Code = definitions.IssueTimeout
		issue.Message = "request for assetlinks.json timed out"
	case ErrKindDNS:
		issue.Code = definitions.IssueDNSError
		issue.Message = "domain name could not be resolved"
	case ErrKindTLS:
		issue.Code = definitions.IssueSSLError
		issue.Message = "TLS handshake with the domain failed"
	default:
		issue.Code = definitions.IssueNetworkError
		issue.Message = "assetlinks.json could not be fetched"
	}
	return issue
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
