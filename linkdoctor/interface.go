package linkdoctor

import (
	"context"
	"time"

	"github.com/spance/linkdoctor-go/linkdoctor/android"
	"github.com/spance/linkdoctor-go/linkdoctor/assetlinks"
)

// CommandRunner executes commands against a device identified by serial.
type CommandRunner interface {
	RunCommand(ctx context.Context, serial string, args ...string) (string, error)
	StreamCommand(ctx context.Context, serial string, args ...string) (<-chan string, error)
}

// CertificateInspector resolves the signing certificate digest of an
// installed package.
type CertificateInspector interface {
	LocalFingerprint(ctx context.Context, serial, packageName string) (string, error)
}

// CreateDoctor wires the production collaborators. A non-empty fingerprint
// bypasses the on-device certificate lookup.
func CreateDoctor(timeout time.Duration, fingerprint string) *Doctor {
	runner := android.NewADBRunner(timeout)

	var inspector CertificateInspector
	if len(fingerprint) > 0 {
		inspector = &android.StaticCertificateInspector{Fingerprint: fingerprint}
	} else {
		inspector = android.NewADBCertificateInspector(runner)
	}

	return NewDoctor(runner, assetlinks.NewHTTPFetcher(timeout), inspector)
}
