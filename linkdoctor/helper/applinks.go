package helper

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

// rePackageHeader matches a package block opener in `pm get-app-links`
// output: a package name alone on the line, terminated by a colon.
// Metadata lines ("Signatures: [..]") carry text after the colon and section
// headers ("Domain verification state:") contain spaces, so neither matches.
var rePackageHeader = regexp.MustCompile(`^([A-Za-z0-9_.]+):$`)

const (
	signaturesPrefix    = "Signatures:"
	domainSectionHeader = "Domain verification state:"
)

// ParseAppLinks parses the new-dialect verification listing (API 31+,
// `pm get-app-links`). It never fails: unrecognized lines are skipped, ADB
// error banners and truncated output simply accumulate nothing, and a package
// block is emitted only when it collected at least one domain line.
func ParseAppLinks(output string) []definitions.AppLink {
	var (
		links       []definitions.AppLink
		pkg         string
		fingerprint string
		domains     []definitions.DomainVerification
		inDomains   bool
	)

	flush := func() {
		if pkg == "" || len(domains) == 0 {
			return
		}
		for i := range domains {
			domains[i].Fingerprint = fingerprint
		}
		links = append(links, definitions.AppLink{PackageName: pkg, Domains: domains})
	}

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if m := rePackageHeader.FindStringSubmatch(line); m != nil && !inDomains {
			flush()
			pkg = m[1]
			fingerprint = ""
			domains = nil
			continue
		}

		if strings.HasPrefix(line, signaturesPrefix) {
			inDomains = false
			fingerprint = parseSignatureValue(strings.TrimPrefix(line, signaturesPrefix))
			continue
		}

		if line == domainSectionHeader {
			inDomains = true
			continue
		}

		if !inDomains {
			continue
		}

		domain, state, ok := splitDomainState(line)
		if !ok {
			// Any non domain:state line ("User 0:", "Selection state:", a
			// fresh package header) terminates the domain section.
			inDomains = false
			if m := rePackageHeader.FindStringSubmatch(line); m != nil {
				flush()
				pkg = m[1]
				fingerprint = ""
				domains = nil
			}
			continue
		}
		domains = append(domains, definitions.DomainVerification{
			Domain: domain,
			State:  mapNewDialectState(state),
		})
	}
	flush()

	return links
}

// ParseSignatures returns the first signing certificate digest found in a
// pm get-app-links report, "" when the report carries none.
func ParseSignatures(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, signaturesPrefix) {
			if fp := parseSignatureValue(strings.TrimPrefix(line, signaturesPrefix)); fp != "" {
				return fp
			}
		}
	}
	return ""
}

// parseSignatureValue strips the surrounding brackets from a Signatures
// value. Empty brackets yield no fingerprint.
func parseSignatureValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")
	return strings.TrimSpace(v)
}

// splitDomainState splits an indented `domain: state` entry. The domain part
// must be a single space-free token and the state must be non-empty,
// otherwise the line is metadata and the section is over.
func splitDomainState(line string) (domain, state string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	domain = strings.TrimSpace(line[:idx])
	state = strings.TrimSpace(line[idx+1:])
	if domain == "" || state == "" || strings.ContainsAny(domain, " \t") {
		return "", "", false
	}
	return domain, state, true
}

func mapNewDialectState(token string) definitions.VerificationState {
	switch strings.ToLower(token) {
	case "verified":
		return definitions.VerificationVerified
	case "approved":
		return definitions.VerificationApproved
	case "denied":
		return definitions.VerificationDenied
	case "none":
		return definitions.VerificationUnverified
	case "legacy_failure":
		return definitions.VerificationLegacyFailure
	default:
		// Numeric system-set codes (1024 etc.) and future tokens land here.
		return definitions.VerificationUnknown
	}
}

// ParseLegacyAppLinks parses the legacy verification listing
// (`dumpsys package domain-preferred-apps`, API < 31). A `Status:` line both
// fixes the state for every accumulated domain and triggers emission; a
// package without a terminating Status line is never emitted.
func ParseLegacyAppLinks(output string) []definitions.AppLink {
	var (
		links   []definitions.AppLink
		pkg     string
		domains []string
	)

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.HasPrefix(line, "Package:"):
			pkg = strings.TrimSpace(strings.TrimPrefix(line, "Package:"))
			domains = nil

		case strings.HasPrefix(line, "Domains:"):
			domains = strings.Fields(strings.TrimPrefix(line, "Domains:"))

		case strings.HasPrefix(line, "Status:"):
			if pkg == "" {
				continue
			}
			state := mapLegacyStatus(strings.TrimSpace(strings.TrimPrefix(line, "Status:")))
			dvs := make([]definitions.DomainVerification, 0, len(domains))
			for _, d := range domains {
				dvs = append(dvs, definitions.DomainVerification{Domain: d, State: state})
			}
			links = append(links, definitions.AppLink{PackageName: pkg, Domains: dvs})
			pkg = ""
			domains = nil
		}
	}

	return links
}

// mapLegacyStatus maps a legacy status value ("always : 200000002") onto the
// normalized states. Only the first token matters; the trailing number is the
// stored preference generation.
func mapLegacyStatus(v string) definitions.VerificationState {
	token := v
	if fields := strings.Fields(v); len(fields) > 0 {
		token = fields[0]
	}
	switch strings.ToLower(token) {
	case "always":
		return definitions.VerificationApproved
	case "never":
		return definitions.VerificationDenied
	case "ask":
		return definitions.VerificationUnverified
	default:
		return definitions.VerificationLegacyFailure
	}
}
