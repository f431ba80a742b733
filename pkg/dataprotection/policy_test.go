package dataprotection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Document(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		wantErr bool
		check   func(assert *assert.Assertions, doc Document)
	}{
		{
			name: "managed identifiers are expanded sorted and deduplicated",
			policy: Policy{
				Name:        "orders-policy",
				Identifiers: []string{"EmailAddress", "CreditCardNumber", "EmailAddress"},
			},
			check: func(assert *assert.Assertions, doc Document) {
				assert.Equal("orders-policy", doc.Name)
				assert.Equal(PolicyVersion, doc.Version)
				require.Len(t, doc.Statement, 2)
				want := []string{
					"arn:aws:dataprotection::aws:data-identifier/CreditCardNumber",
					"arn:aws:dataprotection::aws:data-identifier/EmailAddress",
				}
				assert.Equal(want, doc.Statement[0].DataIdentifier)
				assert.Equal(want, doc.Statement[1].DataIdentifier)
			},
		},
		{
			name: "audit statement precedes deidentify statement",
			policy: Policy{
				Identifiers: []string{"EmailAddress"},
			},
			check: func(assert *assert.Assertions, doc Document) {
				assert.Equal("audit-statement", doc.Statement[0].Sid)
				assert.NotNil(doc.Statement[0].Operation.Audit)
				assert.Nil(doc.Statement[0].Operation.Deidentify)
				assert.Equal("redact-statement", doc.Statement[1].Sid)
				assert.NotNil(doc.Statement[1].Operation.Deidentify)
				assert.Nil(doc.Statement[1].Operation.Audit)
			},
		},
		{
			name: "full arns pass through untouched",
			policy: Policy{
				Identifiers: []string{"arn:aws:dataprotection::123456789012:data-identifier/custom"},
			},
			check: func(assert *assert.Assertions, doc Document) {
				assert.Equal(
					[]string{"arn:aws:dataprotection::123456789012:data-identifier/custom"},
					doc.Statement[0].DataIdentifier,
				)
			},
		},
		{
			name: "findings destination on the audit statement only",
			policy: Policy{
				Identifiers:         []string{"EmailAddress"},
				FindingsDestination: &FindingsDestination{LogGroup: "/audit/findings"},
			},
			check: func(assert *assert.Assertions, doc Document) {
				audit := doc.Statement[0].Operation.Audit
				require.NotNil(t, audit)
				require.NotNil(t, audit.FindingsDestination.CloudWatchLogs)
				assert.Equal("/audit/findings", audit.FindingsDestination.CloudWatchLogs.LogGroup)
				assert.Nil(audit.FindingsDestination.S3)
				assert.Nil(audit.FindingsDestination.Firehose)
			},
		},
		{
			name:    "no identifiers is an error",
			policy:  Policy{Name: "empty"},
			wantErr: true,
		},
		{
			name:    "blank identifiers resolve to an error",
			policy:  Policy{Identifiers: []string{"", "  "}},
			wantErr: true,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			doc, err := tt.policy.Document()
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			tt.check(assert, doc)
		})
	}
}

func Test_DocumentWireShape(t *testing.T) {
	assert := assert.New(t)
	doc, err := Policy{
		Name:        "orders-policy",
		Description: "mask PII in service logs",
		Identifiers: []string{"EmailAddress"},
	}.Document()
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	want := `{` +
		`"Name":"orders-policy",` +
		`"Description":"mask PII in service logs",` +
		`"Version":"2021-06-01",` +
		`"Statement":[` +
		`{"Sid":"audit-statement",` +
		`"DataIdentifier":["arn:aws:dataprotection::aws:data-identifier/EmailAddress"],` +
		`"Operation":{"Audit":{"FindingsDestination":{}}}},` +
		`{"Sid":"redact-statement",` +
		`"DataIdentifier":["arn:aws:dataprotection::aws:data-identifier/EmailAddress"],` +
		`"Operation":{"Deidentify":{"MaskConfig":{}}}}` +
		`]}`
	assert.JSONEq(want, string(raw))
}

func Test_Render(t *testing.T) {
	assert := assert.New(t)
	out, err := Policy{Identifiers: []string{"EmailAddress"}}.Render()
	require.NoError(t, err)
	assert.Equal("2021-06-01", out["Version"])
	assert.Equal("data-protection-policy", out["Name"])
	statements, ok := out["Statement"].([]interface{})
	require.True(t, ok)
	assert.Len(statements, 2)
}
