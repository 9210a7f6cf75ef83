package android

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spance/linkdoctor-go/linkdoctor/helper"
)

// ADBCertificateInspector reads the signing certificate digest the device
// itself reports for an installed package. Only the API 31+ report carries
// it; on older devices the result is empty and fingerprint reconciliation
// degrades gracefully.
type ADBCertificateInspector struct {
	runner Runner
}

func NewADBCertificateInspector(runner Runner) *ADBCertificateInspector {
	return &ADBCertificateInspector{runner: runner}
}

func (r *ADBCertificateInspector) LocalFingerprint(ctx context.Context, serial, packageName string) (string, error) {
	output, err := r.runner.RunCommand(ctx, serial, "shell", "pm get-app-links "+packageName)
	if err != nil {
		// Old devices have no `pm get-app-links`; treat it as no digest.
		log.Debug().Err(err).Str("package", packageName).Msg("[LocalFingerprint] report unavailable")
		return "", nil
	}
	return helper.ParseSignatures(output), nil
}

// StaticCertificateInspector serves a caller-supplied digest, used when the
// expected fingerprint is known out of band.
type StaticCertificateInspector struct {
	Fingerprint string
}

func (r *StaticCertificateInspector) LocalFingerprint(context.Context, string, string) (string, error) {
	return r.Fingerprint, nil
}
