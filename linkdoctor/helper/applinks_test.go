package helper

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

var (
	dataAppLinksNew, _    = os.ReadFile("testdata/app-links-new.txt")
	dataAppLinksLegacy, _ = os.ReadFile("testdata/app-links-legacy.txt")
)

const shopFingerprint = "FA:C6:17:45:DC:09:03:78:6F:B9:ED:E6:2A:96:2B:39:9F:73:48:F0:BB:6F:89:9B:83:32:66:75:91:03:3B:9C"

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataAppLinksNew":    dataAppLinksNew,
		"dataAppLinksLegacy": dataAppLinksLegacy,
		"dataPackageDump":    dataPackageDump,
		"dataLogcat":         dataLogcat,
	} {
		require.NotEmpty(t, data, name)
	}
}

func TestParseAppLinks(t *testing.T) {
	links := ParseAppLinks(string(dataAppLinksNew))
	require.Len(t, links, 2)

	shop := links[0]
	assert.Equal(t, "com.example.shop", shop.PackageName)
	require.Len(t, shop.Domains, 4)
	assert.Equal(t, definitions.DomainVerification{
		Domain:      "example.com",
		State:       definitions.VerificationVerified,
		Fingerprint: shopFingerprint,
	}, shop.Domains[0])
	assert.Equal(t, "www.example.com", shop.Domains[1].Domain)
	assert.Equal(t, definitions.VerificationUnknown, shop.Domains[1].State)
	assert.Equal(t, definitions.VerificationUnverified, shop.Domains[2].State)
	// A repeated domain stays in the report; de-duplication is the caller's call.
	assert.Equal(t, "example.com", shop.Domains[3].Domain)

	beta := links[1]
	assert.Equal(t, "com.example.beta", beta.PackageName)
	require.Len(t, beta.Domains, 1)
	assert.Equal(t, definitions.VerificationDenied, beta.Domains[0].State)
	assert.Empty(t, beta.Domains[0].Fingerprint)
}

func TestParseAppLinks_StateTokens(t *testing.T) {
	tests := map[string]definitions.VerificationState{
		"verified":       definitions.VerificationVerified,
		"approved":       definitions.VerificationApproved,
		"denied":         definitions.VerificationDenied,
		"none":           definitions.VerificationUnverified,
		"legacy_failure": definitions.VerificationLegacyFailure,
		"VERIFIED":       definitions.VerificationVerified,
		"1024":           definitions.VerificationUnknown,
		"system_denied":  definitions.VerificationUnknown,
	}

	for token, want := range tests {
		t.Run(token, func(t *testing.T) {
			input := "com.example.app:\n  Domain verification state:\n    example.com: " + token + "\n"
			links := ParseAppLinks(input)
			require.Len(t, links, 1)
			require.Len(t, links[0].Domains, 1)
			assert.Equal(t, want, links[0].Domains[0].State)
		})
	}
}

func TestParseAppLinks_Degenerate(t *testing.T) {
	tests := map[string]struct {
		input     string
		wantLinks int
	}{
		"empty input": {
			input: "",
		},
		"adb error banner": {
			input: "adb: device 'emulator-5554' not found\n",
		},
		"package without domain section": {
			input: "com.example.empty:\n  Signatures: []\n",
		},
		"truncated after section header": {
			input: "com.example.shop:\n  Domain verification state:\n",
		},
		"truncated inside domain list": {
			input:     "com.example.shop:\n  Domain verification state:\n    example.com: verified",
			wantLinks: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, ParseAppLinks(test.input), test.wantLinks)
		})
	}
}

func TestParseSignatures(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"full report":      {input: string(dataAppLinksNew), want: shopFingerprint},
		"empty brackets":   {input: "  Signatures: []\n", want: ""},
		"no signatures":    {input: "com.example.app:\n  ID: x\n", want: ""},
		"unbracketed form": {input: "Signatures: AA:BB:CC\n", want: "AA:BB:CC"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, ParseSignatures(test.input))
		})
	}
}

func TestParseLegacyAppLinks(t *testing.T) {
	links := ParseLegacyAppLinks(string(dataAppLinksLegacy))
	require.Len(t, links, 2)

	shop := links[0]
	assert.Equal(t, "com.example.shop", shop.PackageName)
	require.Len(t, shop.Domains, 2)
	assert.Equal(t, "example.com", shop.Domains[0].Domain)
	assert.Equal(t, definitions.VerificationApproved, shop.Domains[0].State)
	assert.Equal(t, definitions.VerificationApproved, shop.Domains[1].State)

	news := links[1]
	assert.Equal(t, "com.example.news", news.PackageName)
	require.Len(t, news.Domains, 1)
	assert.Equal(t, definitions.VerificationUnverified, news.Domains[0].State)
}

func TestParseLegacyAppLinks_StatusTokens(t *testing.T) {
	tests := map[string]struct {
		status string
		want   definitions.VerificationState
	}{
		"always with generation": {status: "always : 200000002", want: definitions.VerificationApproved},
		"never":                  {status: "never", want: definitions.VerificationDenied},
		"ask":                    {status: "ask", want: definitions.VerificationUnverified},
		"unrecognized":           {status: "undefined", want: definitions.VerificationLegacyFailure},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			input := "Package: com.example.app\nDomains: example.com\nStatus: " + test.status + "\n"
			links := ParseLegacyAppLinks(input)
			require.Len(t, links, 1)
			require.Len(t, links[0].Domains, 1)
			assert.Equal(t, test.want, links[0].Domains[0].State)
		})
	}
}

func TestParseLegacyAppLinks_StatusWithoutPackage(t *testing.T) {
	assert.Empty(t, ParseLegacyAppLinks("Status: always\n"))
}
