package assetlinks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

const testFingerprint = "14:6D:E9:83:C5:73:06:50:D8:EE:B9:95:2F:34:FC:64:16:A0:83:42:E6:1D:BE:A8:8A:04:96:B2:3F:CF:44:BF"

func statementJSON(target string) string {
	return fmt.Sprintf(`[{"relation":[%q],"target":%s}]`, RelationHandleAll, target)
}

func validStatementJSON() string {
	return statementJSON(fmt.Sprintf(
		`{"namespace":%q,"package_name":"com.example.shop","sha256_cert_fingerprints":[%q]}`,
		AndroidAppNamespace, testFingerprint))
}

type fakeFetcher struct {
	res     *FetchResult
	err     error
	lastURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*FetchResult, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func TestURLFor(t *testing.T) {
	assert.Equal(t, "https://example.com/.well-known/assetlinks.json", URLFor("example.com"))
}

func TestParseStatements(t *testing.T) {
	tests := map[string]struct {
		json      string
		wantErr   bool
		wantKept  int
		wantCodes []definitions.IssueCode
	}{
		"single valid statement": {
			json:     validStatementJSON(),
			wantKept: 1,
		},
		"broken json": {
			json:      `{"relation": [`,
			wantErr:   true,
			wantCodes: []definitions.IssueCode{definitions.IssueInvalidJSONSyntax},
		},
		"object instead of array": {
			json:      `{"relation":["x"]}`,
			wantErr:   true,
			wantCodes: []definitions.IssueCode{definitions.IssueInvalidJSONSyntax},
		},
		"empty array": {
			json:      `[]`,
			wantCodes: []definitions.IssueCode{definitions.IssueEmptyStatementList},
		},
		"null document": {
			json:      `null`,
			wantCodes: []definitions.IssueCode{definitions.IssueEmptyStatementList},
		},
		"two valid statements": {
			json: fmt.Sprintf(`[{"relation":[%q],"target":{"namespace":%q,"package_name":"com.a","sha256_cert_fingerprints":[%q]}},
				{"relation":[%q],"target":{"namespace":%q,"package_name":"com.b","sha256_cert_fingerprints":[%q]}}]`,
				RelationHandleAll, AndroidAppNamespace, testFingerprint,
				RelationHandleAll, AndroidAppNamespace, testFingerprint),
			wantKept:  2,
			wantCodes: []definitions.IssueCode{definitions.IssueMultipleStatements},
		},
		"missing relation": {
			json:      fmt.Sprintf(`[{"target":{"namespace":%q,"package_name":"com.a","sha256_cert_fingerprints":[%q]}}]`, AndroidAppNamespace, testFingerprint),
			wantCodes: []definitions.IssueCode{definitions.IssueMissingRelation},
		},
		"missing target": {
			json:      fmt.Sprintf(`[{"relation":[%q]}]`, RelationHandleAll),
			wantCodes: []definitions.IssueCode{definitions.IssueMissingTarget},
		},
		"foreign namespace kept with warning": {
			json:      statementJSON(fmt.Sprintf(`{"namespace":"web","package_name":"com.a","sha256_cert_fingerprints":[%q]}`, testFingerprint)),
			wantKept:  1,
			wantCodes: []definitions.IssueCode{definitions.IssueInvalidNamespace},
		},
		"absent namespace tolerated": {
			json:     statementJSON(fmt.Sprintf(`{"package_name":"com.a","sha256_cert_fingerprints":[%q]}`, testFingerprint)),
			wantKept: 1,
		},
		"missing package name": {
			json:      statementJSON(fmt.Sprintf(`{"namespace":%q,"sha256_cert_fingerprints":[%q]}`, AndroidAppNamespace, testFingerprint)),
			wantCodes: []definitions.IssueCode{definitions.IssueMissingPackageName},
		},
		"missing fingerprints": {
			json:      statementJSON(fmt.Sprintf(`{"namespace":%q,"package_name":"com.a"}`, AndroidAppNamespace)),
			wantCodes: []definitions.IssueCode{definitions.IssueMissingFingerprint},
		},
		"malformed fingerprint kept with warning": {
			json:      statementJSON(fmt.Sprintf(`{"namespace":%q,"package_name":"com.a","sha256_cert_fingerprints":["GG:HH:II"]}`, AndroidAppNamespace)),
			wantKept:  1,
			wantCodes: []definitions.IssueCode{definitions.IssueMalformedFingerprint},
		},
		"several fingerprints noted": {
			json: statementJSON(fmt.Sprintf(`{"namespace":%q,"package_name":"com.a","sha256_cert_fingerprints":[%q,%q]}`,
				AndroidAppNamespace, testFingerprint, testFingerprint)),
			wantKept:  1,
			wantCodes: []definitions.IssueCode{definitions.IssueMultipleFingerprints},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			content, issues, err := ParseStatements(test.json)

			if test.wantErr {
				require.Error(t, err)
				assert.Nil(t, content)
			} else {
				require.NoError(t, err)
				require.NotNil(t, content)
				assert.Len(t, content.Statements, test.wantKept)
			}

			codes := make([]definitions.IssueCode, 0, len(issues))
			for _, issue := range issues {
				codes = append(codes, issue.Code)
			}
			assert.ElementsMatch(t, test.wantCodes, codes)
		})
	}
}

func TestParseStatements_DroppedStatementsInvisibleToLookup(t *testing.T) {
	json := fmt.Sprintf(`[{"relation":[%q],"target":{"namespace":%q,"package_name":"com.a"}},
		{"relation":[%q],"target":{"namespace":%q,"package_name":"com.b","sha256_cert_fingerprints":[%q]}}]`,
		RelationHandleAll, AndroidAppNamespace,
		RelationHandleAll, AndroidAppNamespace, testFingerprint)

	content, _, err := ParseStatements(json)
	require.NoError(t, err)

	assert.Empty(t, content.FingerprintsFor("com.a"))
	assert.Equal(t, []string{testFingerprint}, content.FingerprintsFor("com.b"))
}

func TestValidator_Validate(t *testing.T) {
	tests := map[string]struct {
		res        *FetchResult
		err        error
		wantStatus definitions.ValidationStatus
		wantCode   definitions.IssueCode
	}{
		"dns failure": {
			err:        &FetchError{Kind: ErrKindDNS, Err: errors.New("no such host")},
			wantStatus: definitions.StatusNetworkError,
			wantCode:   definitions.IssueDNSError,
		},
		"timeout": {
			err:        &FetchError{Kind: ErrKindTimeout, Err: errors.New("deadline exceeded")},
			wantStatus: definitions.StatusNetworkError,
			wantCode:   definitions.IssueTimeout,
		},
		"tls failure": {
			err:        &FetchError{Kind: ErrKindTLS, Err: errors.New("certificate expired")},
			wantStatus: definitions.StatusNetworkError,
			wantCode:   definitions.IssueSSLError,
		},
		"unclassified transport error": {
			err:        errors.New("connection reset"),
			wantStatus: definitions.StatusNetworkError,
			wantCode:   definitions.IssueNetworkError,
		},
		"redirect": {
			res:        &FetchResult{StatusCode: 301, RedirectLocation: "https://www.example.com/.well-known/assetlinks.json"},
			wantStatus: definitions.StatusRedirect,
			wantCode:   definitions.IssueRedirectDetected,
		},
		"not found": {
			res:        &FetchResult{StatusCode: 404},
			wantStatus: definitions.StatusNotFound,
			wantCode:   definitions.IssueFileNotFound,
		},
		"server error": {
			res:        &FetchResult{StatusCode: 503},
			wantStatus: definitions.StatusNotFound,
			wantCode:   definitions.IssueFileNotFound,
		},
		"undecodable body": {
			res:        &FetchResult{StatusCode: 200, ContentType: "application/json", Body: "<html>oops</html>"},
			wantStatus: definitions.StatusInvalidJSON,
			wantCode:   definitions.IssueInvalidJSONSyntax,
		},
		"wrong content type": {
			res:        &FetchResult{StatusCode: 200, ContentType: "text/html; charset=utf-8", Body: validStatementJSON()},
			wantStatus: definitions.StatusInvalidContentType,
			wantCode:   definitions.IssueWrongContentType,
		},
		"statement errors degrade the document": {
			res: &FetchResult{
				StatusCode:  200,
				ContentType: "application/json",
				Body:        statementJSON(fmt.Sprintf(`{"namespace":%q,"package_name":"com.a"}`, AndroidAppNamespace)),
			},
			wantStatus: definitions.StatusInvalidJSON,
			wantCode:   definitions.IssueMissingFingerprint,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			v := NewValidator(&fakeFetcher{res: test.res, err: test.err})

			got := v.Validate(context.Background(), "example.com")

			assert.Equal(t, test.wantStatus, got.Status)
			assert.True(t, got.HasIssueCode(test.wantCode), "expected issue %s, got %+v", test.wantCode, got.Issues)
		})
	}
}

func TestValidator_Validate_CleanDocument(t *testing.T) {
	fetcher := &fakeFetcher{res: &FetchResult{
		StatusCode:  200,
		ContentType: "application/json; charset=utf-8",
		Body:        validStatementJSON(),
	}}

	got := NewValidator(fetcher).Validate(context.Background(), "example.com")

	assert.Equal(t, "https://example.com/.well-known/assetlinks.json", fetcher.lastURL)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, fetcher.lastURL, got.URL)
	assert.Equal(t, definitions.StatusValid, got.Status)
	assert.Empty(t, got.Issues)
	require.NotNil(t, got.Content)
	assert.Equal(t, []string{testFingerprint}, got.Content.FingerprintsFor("com.example.shop"))
	assert.NotEmpty(t, got.RawBody)
}

func Test_isJSONContentType(t *testing.T) {
	tests := map[string]bool{
		"application/json":                true,
		"application/json; charset=utf-8": true,
		"application/problem+json":        true,
		"text/html":                       false,
		"text/plain; charset=utf-8":       false,
		"":                                false,
		"not a/valid/type;;":              false,
	}

	for contentType, want := range tests {
		t.Run(contentType, func(t *testing.T) {
			assert.Equal(t, want, isJSONContentType(contentType))
		})
	}
}
