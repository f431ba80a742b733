package secure

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

const accessLogsSuffix = "access-logs"

type (
	// BucketProps configures an S3 bucket with encryption, versioning,
	// public-access blocking, and server access logging resolved to
	// compliance defaults when unset.
	BucketProps struct {
		// BucketName is validated against S3 naming rules; when unset the
		// provisioning layer generates one.
		BucketName *string
		// Encryption defaults to customer-managed KMS. When it resolves to
		// KMS and no EncryptionKey is given, a companion key is created.
		Encryption    awss3.BucketEncryption
		EncryptionKey awskms.IKey
		// Versioned defaults to true.
		Versioned *bool
		// DisableAccessLogs turns off server access logging entirely.
		DisableAccessLogs *bool
		// AccessLogsBucket suppresses synthesis of the companion log bucket.
		AccessLogsBucket awss3.IBucket
		AccessLogsPrefix *string
		// LogRetentionDays expires objects in the companion log bucket.
		// Defaults to 365.
		LogRetentionDays *float64
		// RemovalPolicy defaults to RETAIN.
		RemovalPolicy                awscdk.RemovalPolicy
		DisableSecureTransportPolicy *bool
		Tags                         map[string]string
	}

	Bucket struct {
		constructs.Construct
		Bucket awss3.Bucket
		// AccessLogsBucket is the log destination in use, companion or
		// caller-supplied. Nil when access logging is disabled.
		AccessLogsBucket awss3.IBucket
		// EncryptionKey is the customer-managed key in use, companion or
		// caller-supplied. Nil for non-KMS encryption modes.
		EncryptionKey awskms.IKey
	}

	bucketConfig struct {
		BucketName      string
		Encryption      awss3.BucketEncryption
		CreateKey       bool
		Versioned       bool
		RemovalPolicy   awscdk.RemovalPolicy
		CreateLogBucket bool
		// LogBucketName is empty when no deterministic name fits the
		// budget; the provisioning layer generates one instead.
		LogBucketName         string
		LogPrefix             string
		LogRetentionDays      float64
		AttachTransportPolicy bool
	}
)

func resolveBucketProps(props *BucketProps) (bucketConfig, error) {
	if props == nil {
		return bucketConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	cfg := bucketConfig{
		Encryption:            props.Encryption,
		Versioned:             boolValue(props.Versioned, true),
		RemovalPolicy:         props.RemovalPolicy,
		LogPrefix:             stringValue(props.AccessLogsPrefix, ""),
		LogRetentionDays:      float64Value(props.LogRetentionDays, 365),
		AttachTransportPolicy: !boolValue(props.DisableSecureTransportPolicy, false),
	}
	if cfg.Encryption == "" {
		cfg.Encryption = awss3.BucketEncryption_KMS
	}
	if cfg.RemovalPolicy == "" {
		cfg.RemovalPolicy = awscdk.RemovalPolicy_RETAIN
	}

	if props.BucketName != nil {
		if err := awssan.S3BucketSanitizer.Validate(*props.BucketName); err != nil {
			e.Append(errors.Wrap(err, "bucket name"))
		} else {
			cfg.BucketName = *props.BucketName
		}
	}

	switch cfg.Encryption {
	case awss3.BucketEncryption_KMS:
		cfg.CreateKey = props.EncryptionKey == nil
	default:
		if props.EncryptionKey != nil {
			e.Append(errors.Errorf("encryption key requires KMS encryption, got %s", cfg.Encryption))
		}
	}

	if !boolValue(props.DisableAccessLogs, false) && props.AccessLogsBucket == nil {
		cfg.CreateLogBucket = true
		if cfg.BucketName != "" {
			if name, ok := awssan.S3BucketSanitizer.DeriveName(cfg.BucketName, accessLogsSuffix); ok {
				cfg.LogBucketName = name
			}
		}
	}

	return cfg, e.ErrOrNil()
}

// NewBucket creates an S3 bucket with public access blocked, versioning on,
// customer-managed encryption, and server access logging to a companion
// bucket unless one is supplied or logging is disabled.
func NewBucket(scope constructs.Construct, id string, props *BucketProps) (*Bucket, error) {
	cfg, err := resolveBucketProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure bucket %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	logBucket := props.AccessLogsBucket
	if cfg.CreateLogBucket {
		logProps := &awss3.BucketProps{
			Encryption:        awss3.BucketEncryption_S3_MANAGED,
			BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
			EnforceSSL:        jsii.Bool(true),
			RemovalPolicy:     cfg.RemovalPolicy,
			LifecycleRules: &[]*awss3.LifecycleRule{{
				Id:         jsii.String("ExpireAccessLogs"),
				Enabled:    jsii.Bool(true),
				Expiration: awscdk.Duration_Days(jsii.Number(cfg.LogRetentionDays)),
			}},
		}
		if cfg.LogBucketName != "" {
			logProps.BucketName = jsii.String(cfg.LogBucketName)
		}
		logBucket = awss3.NewBucket(node, jsii.String("AccessLogs"), logProps)
	}

	key := props.EncryptionKey
	if cfg.CreateKey {
		companion, err := NewKey(node, "EncryptionKey", &KeyProps{
			Description:   jsii.String(fmt.Sprintf("Bucket encryption key for %s", id)),
			RemovalPolicy: cfg.RemovalPolicy,
			Tags:          props.Tags,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "secure bucket %s", id)
		}
		key = companion.Key
	}

	bucketProps := &awss3.BucketProps{
		Encryption:        cfg.Encryption,
		Versioned:         jsii.Bool(cfg.Versioned),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		RemovalPolicy:     cfg.RemovalPolicy,
	}
	if cfg.BucketName != "" {
		bucketProps.BucketName = jsii.String(cfg.BucketName)
	}
	if key != nil {
		bucketProps.EncryptionKey = key
	}
	if logBucket != nil {
		bucketProps.ServerAccessLogsBucket = logBucket
		if cfg.LogPrefix != "" {
			bucketProps.ServerAccessLogsPrefix = jsii.String(cfg.LogPrefix)
		}
	}
	bucket := awss3.NewBucket(node, jsii.String("Bucket"), bucketProps)

	if cfg.AttachTransportPolicy {
		bucket.AddToResourcePolicy(denyInsecureTransport(
			jsii.Strings("s3:*"),
			&[]*string{bucket.BucketArn(), bucket.ArnForObjects(jsii.String("*"))},
		))
	}

	applyStandardTags(node, "s3-bucket", props.Tags)
	zap.S().Debugf("resolved bucket %s: encryption=%s companionKey=%t companionLogBucket=%t", id, cfg.Encryption, cfg.CreateKey, cfg.CreateLogBucket)
	return &Bucket{
		Construct:        node,
		Bucket:           bucket,
		AccessLogsBucket: logBucket,
		EncryptionKey:    key,
	}, nil
}
