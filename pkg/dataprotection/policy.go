// Package dataprotection synthesizes the sensitive-data-protection policy
// document attached to CloudWatch log groups and SNS topics. The document
// shape is fixed by the service schema: a name, description, version, and
// exactly two statements — an audit statement (with an optional findings
// destination) followed by a de-identification statement — both carrying the
// same sorted, deduplicated list of data-identifier references.
package dataprotection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// PolicyVersion is the only version the control plane accepts today.
	PolicyVersion = "2021-06-01"

	auditSid  = "audit-statement"
	redactSid = "redact-statement"

	managedIdentifierPrefix = "arn:aws:dataprotection::aws:data-identifier/"
)

type (
	Policy struct {
		Name        string
		Description string
		// Identifiers lists the sensitive-data patterns to audit and mask.
		// Bare names ("EmailAddress") are expanded to AWS managed data
		// identifier ARNs; anything containing a ":" or "/" is passed
		// through untouched.
		Identifiers []string
		// FindingsDestination optionally routes audit findings to a log
		// group, bucket, or delivery stream.
		FindingsDestination *FindingsDestination
	}

	FindingsDestination struct {
		LogGroup       string
		BucketName     string
		DeliveryStream string
	}

	Document struct {
		Name        string      `json:"Name"`
		Description string      `json:"Description"`
		Version     string      `json:"Version"`
		Statement   []Statement `json:"Statement"`
	}

	Statement struct {
		Sid            string    `json:"Sid"`
		DataIdentifier []string  `json:"DataIdentifier"`
		Operation      Operation `json:"Operation"`
	}

	Operation struct {
		Audit      *AuditOperation      `json:"Audit,omitempty"`
		Deidentify *DeidentifyOperation `json:"Deidentify,omitempty"`
	}

	AuditOperation struct {
		FindingsDestination findingsDestinationDoc `json:"FindingsDestination"`
	}

	DeidentifyOperation struct {
		MaskConfig struct{} `json:"MaskConfig"`
	}

	findingsDestinationDoc struct {
		CloudWatchLogs *cloudWatchLogsDestination `json:"CloudWatchLogs,omitempty"`
		S3             *s3Destination             `json:"S3,omitempty"`
		Firehose       *firehoseDestination       `json:"Firehose,omitempty"`
	}

	cloudWatchLogsDestination struct {
		LogGroup string `json:"LogGroup"`
	}

	s3Destination struct {
		Bucket string `json:"Bucket"`
	}

	firehoseDestination struct {
		DeliveryStream string `json:"DeliveryStream"`
	}
)

// Document resolves the policy into its wire form. The identifier list is
// expanded, deduplicated, and sorted; an empty resolved list is an error
// because the control plane rejects a statement with no identifiers.
func (p Policy) Document() (Document, error) {
	identifiers, err := resolveIdentifiers(p.Identifiers)
	if err != nil {
		return Document{}, err
	}

	audit := &AuditOperation{}
	if fd := p.FindingsDestination; fd != nil {
		if fd.LogGroup != "" {
			audit.FindingsDestination.CloudWatchLogs = &cloudWatchLogsDestination{LogGroup: fd.LogGroup}
		}
		if fd.BucketName != "" {
			audit.FindingsDestination.S3 = &s3Destination{Bucket: fd.BucketName}
		}
		if fd.DeliveryStream != "" {
			audit.FindingsDestination.Firehose = &firehoseDestination{DeliveryStream: fd.DeliveryStream}
		}
	}

	name := p.Name
	if name == "" {
		name = "data-protection-policy"
	}
	return Document{
		Name:        name,
		Description: p.Description,
		Version:     PolicyVersion,
		Statement: []Statement{
			{
				Sid:            auditSid,
				DataIdentifier: identifiers,
				Operation:      Operation{Audit: audit},
			},
			{
				Sid:            redactSid,
				DataIdentifier: identifiers,
				Operation:      Operation{Deidentify: &DeidentifyOperation{}},
			},
		},
	}, nil
}

// Render returns the document as the untyped map the jsii layer expects for
// the L1 DataProtectionPolicy properties.
func (p Policy) Render() (map[string]interface{}, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling data protection policy")
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshaling data protection policy")
	}
	return out, nil
}

func resolveIdentifiers(identifiers []string) ([]string, error) {
	seen := make(map[string]struct{}, len(identifiers))
	resolved := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !strings.ContainsAny(id, ":/") {
			id = fmt.Sprintf("%s%s", managedIdentifierPrefix, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}
	if len(resolved) == 0 {
		return nil, errors.New("data protection policy requires at least one data identifier")
	}
	sort.Strings(resolved)
	return resolved, nil
}
