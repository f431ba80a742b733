package secure

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

const kmsAliasPrefix = "alias/"

type (
	// KeyProps configures a customer-managed KMS key. Every field is
	// optional; unset fields resolve to the compliance defaults.
	KeyProps struct {
		// Alias for the key. The "alias/" prefix is added when missing.
		Alias       *string
		Description *string
		// EnableKeyRotation defaults to true.
		EnableKeyRotation *bool
		// PendingWindowDays is the deletion waiting period. Defaults to 7.
		PendingWindowDays *float64
		MultiRegion       *bool
		// RemovalPolicy defaults to RETAIN: keys guard data that outlives
		// the stack.
		RemovalPolicy awscdk.RemovalPolicy
		// Admins are granted key administration through the key policy.
		Admins []awsiam.IPrincipal
		// RequiredEncryptionContextKey, when set, attaches a statement
		// denying cryptographic use of the key without that encryption
		// context key present.
		RequiredEncryptionContextKey *string
		// DisableSecureTransportPolicy omits the deny-if-insecure-transport
		// key policy statement.
		DisableSecureTransportPolicy *bool
		Tags                         map[string]string
	}

	Key struct {
		constructs.Construct
		Key awskms.Key
	}

	keyConfig struct {
		Alias                        string
		Description                  string
		EnableKeyRotation            bool
		PendingWindowDays            float64
		MultiRegion                  bool
		RemovalPolicy                awscdk.RemovalPolicy
		RequiredEncryptionContextKey string
		AttachTransportPolicy        bool
	}
)

func resolveKeyProps(id string, props *KeyProps) (keyConfig, error) {
	if props == nil {
		return keyConfig{}, errors.New("props are required")
	}
	cfg := keyConfig{
		Description:           stringValue(props.Description, fmt.Sprintf("Customer managed key for %s", id)),
		EnableKeyRotation:     boolValue(props.EnableKeyRotation, true),
		PendingWindowDays:     float64Value(props.PendingWindowDays, 7),
		MultiRegion:           boolValue(props.MultiRegion, false),
		RemovalPolicy:         props.RemovalPolicy,
		AttachTransportPolicy: !boolValue(props.DisableSecureTransportPolicy, false),
	}
	if cfg.RemovalPolicy == "" {
		cfg.RemovalPolicy = awscdk.RemovalPolicy_RETAIN
	}
	if props.Alias != nil {
		alias := *props.Alias
		if !strings.HasPrefix(alias, kmsAliasPrefix) {
			alias = kmsAliasPrefix + alias
		}
		if err := awssan.KmsAliasSanitizer.Validate(alias); err != nil {
			return keyConfig{}, errors.Wrap(err, "key alias")
		}
		cfg.Alias = alias
	}
	if props.RequiredEncryptionContextKey != nil {
		if *props.RequiredEncryptionContextKey == "" {
			return keyConfig{}, errors.New("required encryption context key must not be empty")
		}
		cfg.RequiredEncryptionContextKey = *props.RequiredEncryptionContextKey
	}
	return cfg, nil
}

// NewKey creates a customer-managed KMS key with rotation enabled and the
// standard deny statements attached to its key policy.
func NewKey(scope constructs.Construct, id string, props *KeyProps) (*Key, error) {
	cfg, err := resolveKeyProps(id, props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure key %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))
	keyProps := &awskms.KeyProps{
		Description:       jsii.String(cfg.Description),
		EnableKeyRotation: jsii.Bool(cfg.EnableKeyRotation),
		PendingWindow:     awscdk.Duration_Days(jsii.Number(cfg.PendingWindowDays)),
		MultiRegion:       jsii.Bool(cfg.MultiRegion),
		RemovalPolicy:     cfg.RemovalPolicy,
	}
	if cfg.Alias != "" {
		keyProps.Alias = jsii.String(cfg.Alias)
	}
	if len(props.Admins) > 0 {
		admins := props.Admins
		keyProps.Admins = &admins
	}
	key := awskms.NewKey(node, jsii.String("Key"), keyProps)

	if cfg.AttachTransportPolicy {
		key.AddToResourcePolicy(denyInsecureTransport(jsii.Strings("kms:*"), jsii.Strings("*")), nil)
	}
	if cfg.RequiredEncryptionContextKey != "" {
		key.AddToResourcePolicy(denyMissingEncryptionContext(cfg.RequiredEncryptionContextKey), nil)
	}

	applyStandardTags(node, "kms-key", props.Tags)
	zap.S().Debugf("resolved key %s: rotation=%t pendingWindow=%vd alias=%q", id, cfg.EnableKeyRotation, cfg.PendingWindowDays, cfg.Alias)
	return &Key{Construct: node, Key: key}, nil
}

// denyMissingEncryptionContext denies cryptographic operations unless the
// request carries the given encryption context key.
func denyMissingEncryptionContext(contextKey string) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("DenyMissingEncryptionContext"),
		Effect:     awsiam.Effect_DENY,
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Actions:    jsii.Strings("kms:Encrypt", "kms:Decrypt", "kms:ReEncrypt*", "kms:GenerateDataKey*"),
		Resources:  jsii.Strings("*"),
		Conditions: &map[string]interface{}{
			"Null": map[string]interface{}{
				"kms:EncryptionContext:" + contextKey: "true",
			},
		},
	})
}
