package helper

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

// CanonicalizeFingerprint normalizes a SHA-256 certificate fingerprint for
// comparison: separators stripped, hex uppercased. Idempotent, so values that
// are already canonical pass through unchanged.
func CanonicalizeFingerprint(fp string) string {
	fp = strings.TrimSpace(fp)
	fp = strings.ReplaceAll(fp, ":", "")
	fp = strings.ReplaceAll(fp, " ", "")
	return strings.ToUpper(fp)
}

// CompareFingerprints reconciles the locally-known signing fingerprint with
// the fingerprints a parsed assetlinks document declares for the package.
// Checks short-circuit in order: no local value, no document, no fingerprints
// for the package, then canonical set membership. The mismatch variant keeps
// the local value exactly as it was passed in, for display.
func CompareFingerprints(local, packageName string, content *definitions.AssetLinksContent) definitions.FingerprintComparisonResult {
	if local == "" {
		return definitions.NoLocalFingerprint()
	}
	if content == nil {
		return definitions.RemoteUnavailable()
	}
	remotes := content.FingerprintsFor(packageName)
	if len(remotes) == 0 {
		return definitions.NoRemoteFingerprint()
	}

	canonical := CanonicalizeFingerprint(local)
	match := lo.ContainsBy(remotes, func(remote string) bool {
		return CanonicalizeFingerprint(remote) == canonical
	})
	if match {
		return definitions.FingerprintMatch()
	}
	return definitions.FingerprintMismatch(local, remotes)
}
