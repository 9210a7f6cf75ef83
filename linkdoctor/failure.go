package linkdoctor

import (
	"github.com/samber/lo"
	"github.com/spance/linkdoctor-go/constants"
	"github.com/spance/linkdoctor-go/linkdoctor/assetlinks"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
	"github.com/valyala/fasttemplate"
)

// AnalyzeFailure explains why a domain is not verified. It is pure over its
// inputs: the verification state from the device report, the fingerprint
// comparison, and the asset links validation outcome. A successful state
// yields no reasons and no suggestions; a failed state with no identifiable
// cause yields a single unknown reason so the caller never renders a failed
// domain without an explanation.
func AnalyzeFailure(
	state definitions.VerificationState,
	fpResult definitions.FingerprintComparisonResult,
	assetStatus definitions.ValidationStatus,
	issues []definitions.ValidationIssue,
	packageName, domain string,
) ([]definitions.FailureReason, []string) {
	if state.IsSuccessful() {
		return nil, nil
	}

	var reasons []definitions.FailureReason

	switch assetStatus {
	case definitions.StatusNotFound:
		reasons = append(reasons, definitions.ReasonAssetLinksMissing)
	case definitions.StatusInvalidJSON, definitions.StatusInvalidContentType:
		reasons = append(reasons, definitions.ReasonAssetLinksInvalidJSON)
	case definitions.StatusNetworkError:
		if hasIssueCode(issues, definitions.IssueDNSError) {
			reasons = append(reasons, definitions.ReasonDNSFailure)
		} else {
			reasons = append(reasons, definitions.ReasonAssetLinksNetworkError)
		}
	case definitions.StatusRedirect:
		reasons = append(reasons, definitions.ReasonAssetLinksRedirect)
	}

	switch fpResult.Outcome {
	case definitions.OutcomeMismatch:
		reasons = append(reasons, definitions.ReasonFingerprintMismatch)
	case definitions.OutcomeNoRemoteFingerprint:
		reasons = append(reasons, definitions.ReasonPackageNotInAssetLinks)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, definitions.ReasonUnknown)
	}

	vars := map[string]interface{}{
		"package":           packageName,
		"domain":            domain,
		"url":               assetlinks.URLFor(domain),
		"local_fingerprint": fpResult.Local,
	}

	suggestions := lo.FlatMap(reasons, func(reason definitions.FailureReason, _ int) []string {
		return renderSuggestions(reason, vars)
	})

	return reasons, suggestions
}

func renderSuggestions(reason definitions.FailureReason, vars map[string]interface{}) []string {
	templates, ok := constants.SuggestionsFor(string(reason))
	if !ok {
		return nil
	}

	return lo.Map(templates, func(t string, _ int) string {
		return fasttemplate.ExecuteString(t, "{{", "}}", vars)
	})
}

func hasIssueCode(issues []definitions.ValidationIssue, code definitions.IssueCode) bool {
	return lo.ContainsBy(issues, func(issue definitions.ValidationIssue) bool {
		return issue.Code == code
	})
}
