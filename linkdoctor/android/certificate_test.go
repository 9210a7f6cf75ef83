package android

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	output  string
	err     error
	gotArgs []string
}

func (r *scriptedRunner) RunCommand(_ context.Context, _ string, args ...string) (string, error) {
	r.gotArgs = args
	if r.err != nil {
		return "", r.err
	}
	return r.output, nil
}

func TestADBCertificateInspector_LocalFingerprint(t *testing.T) {
	runner := &scriptedRunner{output: `  com.example.shop:
    ID: 4ef2a9c1-2b6a-4f7e-9f3a-8c1d2e3f4a5b
    Signatures: [AA:BB:CC:DD]
    Domain verification state:
      example.com: verified
`}

	fp, err := NewADBCertificateInspector(runner).LocalFingerprint(context.Background(), "SER1", "com.example.shop")

	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD", fp)
	assert.Equal(t, []string{"shell", "pm get-app-links com.example.shop"}, runner.gotArgs)
}

func TestADBCertificateInspector_LegacyDeviceDegrades(t *testing.T) {
	// pm get-app-links does not exist before API 31; the inspector treats
	// the failure as "no digest available", not an error.
	runner := &scriptedRunner{err: errors.New("Unknown command: get-app-links")}

	fp, err := NewADBCertificateInspector(runner).LocalFingerprint(context.Background(), "SER1", "com.example.shop")

	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestADBCertificateInspector_NoSignaturesInReport(t *testing.T) {
	runner := &scriptedRunner{output: "  com.example.shop:\n    Signatures: []\n"}

	fp, err := NewADBCertificateInspector(runner).LocalFingerprint(context.Background(), "SER1", "com.example.shop")

	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestStaticCertificateInspector(t *testing.T) {
	inspector := &StaticCertificateInspector{Fingerprint: "AA:BB"}

	fp, err := inspector.LocalFingerprint(context.Background(), "any", "com.example.shop")

	require.NoError(t, err)
	assert.Equal(t, "AA:BB", fp)
}
