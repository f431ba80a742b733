// Package secure wraps AWS CDK primitives in opinionated constructs that
// resolve security and compliance defaults before handing the dense
// configuration to the CDK: customer-managed encryption unless told
// otherwise, secure-transport-only resource policies, access logging,
// retention, and companion resources (keys, dead-letter queues, log buckets)
// synthesized with deterministic names when none are supplied.
//
// Every construct follows the same contract: New<X> validates the sparse
// props record, resolves it into a dense config, creates the CDK resources,
// and never mutates them afterwards. Validation is fail-fast; there is no
// recovery or retry at this layer.
package secure

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const (
	managedByTag      = "managed-by"
	managedByTagValue = "buy-with-prime-cdk-constructs"
	constructKindTag  = "construct"
)

// applyStandardTags propagates the fixed metadata tag set plus any caller
// tags onto the construct subtree.
func applyStandardTags(scope constructs.IConstruct, kind string, tags map[string]string) {
	awscdk.Tags_Of(scope).Add(jsii.String(managedByTag), jsii.String(managedByTagValue), nil)
	awscdk.Tags_Of(scope).Add(jsii.String(constructKindTag), jsii.String(kind), nil)
	for k, v := range tags {
		awscdk.Tags_Of(scope).Add(jsii.String(k), jsii.String(v), nil)
	}
}

// denyInsecureTransport is the standard statement denying any access that
// does not arrive over TLS. Attached to bucket, queue, and topic resource
// policies by default.
func denyInsecureTransport(actions *[]*string, resources *[]*string) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("DenyInsecureTransport"),
		Effect:     awsiam.Effect_DENY,
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Actions:    actions,
		Resources:  resources,
		Conditions: &map[string]interface{}{
			"Bool": map[string]interface{}{
				"aws:SecureTransport": "false",
			},
		},
	})
}

func boolValue(b *bool, defaultValue bool) bool {
	if b == nil {
		return defaultValue
	}
	return *b
}

func float64Value(f *float64, defaultValue float64) float64 {
	if f == nil {
		return defaultValue
	}
	return *f
}

func stringValue(s *string, defaultValue string) string {
	if s == nil {
		return defaultValue
	}
	return *s
}
