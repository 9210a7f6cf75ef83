package linkdoctor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/spance/linkdoctor-go/linkdoctor/android"
	"github.com/spance/linkdoctor-go/linkdoctor/assetlinks"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
	"github.com/spance/linkdoctor-go/linkdoctor/helper"
)

const defaultMaxParallelDomains = 4

// logcatWindow bounds how far back the deep link event scan looks.
const logcatWindow = "1000"

// Doctor runs App Links diagnostics against one device at a time. All
// device and network access goes through the injected collaborators, so a
// Doctor is as testable as its fakes.
type Doctor struct {
	runner    CommandRunner
	inspector CertificateInspector
	validator *assetlinks.Validator

	// MaxParallelDomains caps concurrent assetlinks.json fetches during
	// Diagnose.
	MaxParallelDomains int

	// SkipNetwork diagnoses from the device report alone; every domain
	// keeps AssetLinksStatus NOT_CHECKED.
	SkipNetwork bool
}

func NewDoctor(runner CommandRunner, fetcher assetlinks.Fetcher, inspector CertificateInspector) *Doctor {
	return &Doctor{
		runner:             runner,
		inspector:          inspector,
		validator:          assetlinks.NewValidator(fetcher),
		MaxParallelDomains: defaultMaxParallelDomains,
	}
}

// Diagnose produces the full verification report for one package. Only the
// initial device queries can fail the run; per-domain problems degrade that
// domain's own entry and leave the siblings alone.
func (r *Doctor) Diagnose(ctx context.Context, serial, packageName string) (*definitions.VerificationDiagnostics, error) {
	if len(packageName) == 0 {
		return nil, fmt.Errorf("package name is required")
	}
	if err := r.ensureOnline(ctx, serial); err != nil {
		return nil, err
	}

	apiLevel, err := r.apiLevel(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("query API level: %w", err)
	}
	strategy := android.SelectStrategy(apiLevel)

	log.Debug().Int("api_level", apiLevel).Str("dialect", string(strategy.Dialect())).Msg("[Diagnose] strategy selected")

	output, err := r.runner.RunCommand(ctx, serial, "shell", strategy.ListVerificationCommand(packageName))
	if err != nil {
		return nil, fmt.Errorf("list app links: %w", err)
	}

	link, found := lo.Find(parseDialect(strategy.Dialect(), output), func(l definitions.AppLink) bool {
		return l.PackageName == packageName
	})

	diag := &definitions.VerificationDiagnostics{
		ReportID:     uuid.New().String(),
		PackageName:  packageName,
		DeviceSerial: serial,
		GeneratedAt:  time.Now(),
	}
	if !found {
		// The package declares no verifiable domains on this device.
		return diag, nil
	}

	diag.LocalFingerprint = r.localFingerprint(ctx, serial, packageName, link)

	domains := lo.Uniq(lo.Map(link.Domains, func(d definitions.DomainVerification, _ int) string {
		return d.Domain
	}))
	states := firstStates(link.Domains)

	results := make(chan indexedResult, len(domains))

	p := pool.New().WithMaxGoroutines(r.maxParallel())
	for i, domain := range domains {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			results <- indexedResult{
				index:  i,
				result: r.diagnoseDomain(ctx, packageName, domain, states[domain], diag.LocalFingerprint),
			}
		})
	}
	p.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diag.Domains = make([]definitions.DomainDiagnosticResult, len(domains))
	for out := range results {
		diag.Domains[out.index] = out.result
	}

	diag.TotalDomains = len(diag.Domains)
	diag.VerifiedDomains = lo.CountBy(diag.Domains, func(d definitions.DomainDiagnosticResult) bool {
		return d.VerificationState.IsSuccessful()
	})
	diag.FailedDomains = diag.TotalDomains - diag.VerifiedDomains

	return diag, nil
}

type indexedResult struct {
	index  int
	result definitions.DomainDiagnosticResult
}

// diagnoseDomain runs the network check, the fingerprint reconciliation and
// the failure analysis for one domain. It never fails; problems end up in
// the result itself.
func (r *Doctor) diagnoseDomain(ctx context.Context, packageName, domain string, state definitions.VerificationState, localFP string) definitions.DomainDiagnosticResult {
	var (
		status   = definitions.StatusNotChecked
		issues   []definitions.ValidationIssue
		fpResult = definitions.RemoteUnavailable()
	)

	if !r.SkipNetwork {
		validation := r.validator.Validate(ctx, domain)
		status = validation.Status
		issues = validation.Issues
		fpResult = helper.CompareFingerprints(localFP, packageName, validation.Content)

		if status == definitions.StatusValid && fpResult.Outcome == definitions.OutcomeMismatch {
			status = definitions.StatusFingerprintMismatch
		}
	}

	reasons, suggestions := AnalyzeFailure(state, fpResult, status, issues, packageName, domain)

	return definitions.DomainDiagnosticResult{
		Domain:            domain,
		VerificationState: state,
		AssetLinksStatus:  status,
		Fingerprint:       fpResult,
		FailureReasons:    reasons,
		Suggestions:       suggestions,
	}
}

// GetAppLinks lists the app link declarations the device reports. An empty
// packageName returns every package.
func (r *Doctor) GetAppLinks(ctx context.Context, serial, packageName string) ([]definitions.AppLink, error) {
	if err := r.ensureOnline(ctx, serial); err != nil {
		return nil, err
	}
	apiLevel, err := r.apiLevel(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("query API level: %w", err)
	}
	strategy := android.SelectStrategy(apiLevel)

	output, err := r.runner.RunCommand(ctx, serial, "shell", strategy.ListVerificationCommand(packageName))
	if err != nil {
		return nil, fmt.Errorf("list app links: %w", err)
	}

	links := parseDialect(strategy.Dialect(), output)
	if len(packageName) > 0 {
		links = lo.Filter(links, func(l definitions.AppLink, _ int) bool {
			return l.PackageName == packageName
		})
	}
	return links, nil
}

// ForceReverify asks the device to re-run verification for a package and
// returns the command's own output.
func (r *Doctor) ForceReverify(ctx context.Context, serial, packageName string) (string, error) {
	if len(packageName) == 0 {
		return "", fmt.Errorf("package name is required")
	}
	if err := r.ensureOnline(ctx, serial); err != nil {
		return "", err
	}
	apiLevel, err := r.apiLevel(ctx, serial)
	if err != nil {
		return "", fmt.Errorf("query API level: %w", err)
	}
	strategy := android.SelectStrategy(apiLevel)

	output, err := r.runner.RunCommand(ctx, serial, "shell", strategy.ForceReverifyCommand(packageName))
	if err != nil {
		return "", fmt.Errorf("force reverify: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// ValidateDomain checks a domain's assetlinks.json without any device.
func (r *Doctor) ValidateDomain(ctx context.Context, domain string) *definitions.AssetLinksValidation {
	return r.validator.Validate(ctx, domain)
}

// InspectManifest parses the package's intent filters out of dumpsys.
func (r *Doctor) InspectManifest(ctx context.Context, serial, packageName string) (*definitions.ManifestInfo, error) {
	if len(packageName) == 0 {
		return nil, fmt.Errorf("package name is required")
	}
	if err := r.ensureOnline(ctx, serial); err != nil {
		return nil, err
	}
	output, err := r.runner.RunCommand(ctx, serial, "shell", "dumpsys package "+packageName)
	if err != nil {
		return nil, fmt.Errorf("dump package: %w", err)
	}
	return helper.ParseManifest(packageName, output), nil
}

// DeepLinkEvents scans the recent logcat buffer for deep link activity.
func (r *Doctor) DeepLinkEvents(ctx context.Context, serial string) ([]definitions.DeepLinkEvent, error) {
	if err := r.ensureOnline(ctx, serial); err != nil {
		return nil, err
	}

	lines, err := r.runner.StreamCommand(ctx, serial, "logcat", "-v", "threadtime", "-t", logcatWindow)
	if err != nil {
		return nil, fmt.Errorf("read logcat: %w", err)
	}

	var events []definitions.DeepLinkEvent
	for line := range lines {
		entry := helper.ParseLogLine(line)
		if entry == nil {
			continue
		}
		if event := helper.ClassifyDeepLinkEvent(entry); event != nil {
			events = append(events, *event)
		}
	}
	return events, nil
}

// ensureOnline refuses to run diagnostics against offline or unauthorized
// devices; their command output is garbage or worse.
func (r *Doctor) ensureOnline(ctx context.Context, serial string) error {
	output, err := r.runner.RunCommand(ctx, serial, "get-state")
	if err != nil {
		return fmt.Errorf("device not reachable: %w", err)
	}
	if state := strings.TrimSpace(output); state != "device" {
		return fmt.Errorf("device state is %q, need an online device", state)
	}
	return nil
}

func (r *Doctor) apiLevel(ctx context.Context, serial string) (int, error) {
	output, err := r.runner.RunCommand(ctx, serial, "shell", "getprop ro.build.version.sdk")
	if err != nil {
		return 0, err
	}
	level, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, fmt.Errorf("unexpected getprop output %q", strings.TrimSpace(output))
	}
	return level, nil
}

// localFingerprint asks the inspector first so an explicit override always
// wins, then falls back to the digest already present in the device report.
func (r *Doctor) localFingerprint(ctx context.Context, serial, packageName string, link definitions.AppLink) string {
	fp, err := r.inspector.LocalFingerprint(ctx, serial, packageName)
	if err != nil {
		log.Warn().Err(err).Str("package", packageName).Msg("[Diagnose] local fingerprint unavailable")
	}
	if len(fp) > 0 {
		return fp
	}
	for _, d := range link.Domains {
		if len(d.Fingerprint) > 0 {
			return d.Fingerprint
		}
	}
	return ""
}

func (r *Doctor) maxParallel() int {
	if r.MaxParallelDomains > 0 {
		return r.MaxParallelDomains
	}
	return defaultMaxParallelDomains
}

func parseDialect(dialect android.Dialect, output string) []definitions.AppLink {
	if dialect == android.DialectLegacy {
		return helper.ParseLegacyAppLinks(output)
	}
	return helper.ParseAppLinks(output)
}

// firstStates keeps the first observed state per domain when a report
// repeats a domain.
func firstStates(domains []definitions.DomainVerification) map[string]definitions.VerificationState {
	states := make(map[string]definitions.VerificationState, len(domains))
	for _, d := range domains {
		if _, seen := states[d.Domain]; !seen {
			states[d.Domain] = d.State
		}
	}
	return states
}
