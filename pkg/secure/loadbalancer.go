package secure

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

const albLogsSuffix = "alb-logs"

type (
	// LoadBalancerProps configures an application load balancer that is
	// internal unless stated otherwise, drops invalid headers, and ships
	// access logs to a companion bucket.
	LoadBalancerProps struct {
		// Vpc is required.
		Vpc awsec2.IVpc
		// LoadBalancerName is validated against ELB naming rules.
		LoadBalancerName *string
		// InternetFacing defaults to false.
		InternetFacing *bool
		// DropInvalidHeaderFields defaults to true.
		DropInvalidHeaderFields *bool
		// DesyncMitigationMode defaults to DEFENSIVE.
		DesyncMitigationMode awselasticloadbalancingv2.DesyncMitigationMode
		// DeletionProtection defaults to true.
		DeletionProtection *bool
		// DisableAccessLogs turns off access logging entirely.
		DisableAccessLogs *bool
		// AccessLogsBucket suppresses synthesis of the companion log bucket.
		// ELB log delivery requires S3-managed encryption on the target.
		AccessLogsBucket awss3.IBucket
		AccessLogsPrefix *string
		// LogRetentionDays expires objects in the companion log bucket.
		// Defaults to 365.
		LogRetentionDays *float64
		Tags             map[string]string
	}

	LoadBalancer struct {
		constructs.Construct
		LoadBalancer awselasticloadbalancingv2.ApplicationLoadBalancer
		// AccessLogsBucket is the log destination in use, companion or
		// caller-supplied. Nil when access logging is disabled.
		AccessLogsBucket awss3.IBucket
	}

	loadBalancerConfig struct {
		Name                    string
		InternetFacing          bool
		DropInvalidHeaderFields bool
		DesyncMitigationMode    awselasticloadbalancingv2.DesyncMitigationMode
		DeletionProtection      bool
		CreateLogBucket         bool
		LogBucketName           string
		LogPrefix               string
		LogRetentionDays        float64
	}
)

func resolveLoadBalancerProps(props *LoadBalancerProps) (loadBalancerConfig, error) {
	if props == nil {
		return loadBalancerConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	if props.Vpc == nil {
		e.Append(errors.New("vpc is required"))
	}
	cfg := loadBalancerConfig{
		InternetFacing:          boolValue(props.InternetFacing, false),
		DropInvalidHeaderFields: boolValue(props.DropInvalidHeaderFields, true),
		DesyncMitigationMode:    props.DesyncMitigationMode,
		DeletionProtection:      boolValue(props.DeletionProtection, true),
		LogPrefix:               stringValue(props.AccessLogsPrefix, ""),
		LogRetentionDays:        float64Value(props.LogRetentionDays, 365),
	}
	if cfg.DesyncMitigationMode == "" {
		cfg.DesyncMitigationMode = awselasticloadbalancingv2.DesyncMitigationMode_DEFENSIVE
	}

	if props.LoadBalancerName != nil {
		if err := awssan.LoadBalancerSanitizer.Validate(*props.LoadBalancerName); err != nil {
			e.Append(errors.Wrap(err, "load balancer name"))
		} else {
			cfg.Name = *props.LoadBalancerName
		}
	}

	if !boolValue(props.DisableAccessLogs, false) && props.AccessLogsBucket == nil {
		cfg.CreateLogBucket = true
		if cfg.Name != "" {
			if name, ok := awssan.S3BucketSanitizer.DeriveName(cfg.Name, albLogsSuffix); ok {
				cfg.LogBucketName = name
			}
		}
	}

	return cfg, e.ErrOrNil()
}

// NewLoadBalancer creates an application load balancer with the hardened
// listener-level defaults and access logging wired to a companion bucket
// unless one is supplied or logging is disabled.
func NewLoadBalancer(scope constructs.Construct, id string, props *LoadBalancerProps) (*LoadBalancer, error) {
	cfg, err := resolveLoadBalancerProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure load balancer %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	lbProps := &awselasticloadbalancingv2.ApplicationLoadBalancerProps{
		Vpc:                     props.Vpc,
		InternetFacing:          jsii.Bool(cfg.InternetFacing),
		DropInvalidHeaderFields: jsii.Bool(cfg.DropInvalidHeaderFields),
		DesyncMitigationMode:    cfg.DesyncMitigationMode,
		DeletionProtection:      jsii.Bool(cfg.DeletionProtection),
	}
	if cfg.Name != "" {
		lbProps.LoadBalancerName = jsii.String(cfg.Name)
	}
	lb := awselasticloadbalancingv2.NewApplicationLoadBalancer(node, jsii.String("LoadBalancer"), lbProps)

	logBucket := props.AccessLogsBucket
	if cfg.CreateLogBucket {
		logProps := &awss3.BucketProps{
			Encryption:        awss3.BucketEncryption_S3_MANAGED,
			BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
			EnforceSSL:        jsii.Bool(true),
			RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
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
	if logBucket != nil {
		var prefix *string
		if cfg.LogPrefix != "" {
			prefix = jsii.String(cfg.LogPrefix)
		}
		lb.LogAccessLogs(logBucket, prefix)
	}

	applyStandardTags(node, "application-load-balancer", props.Tags)
	zap.S().Debugf("resolved load balancer %s: internetFacing=%t companionLogBucket=%t", id, cfg.InternetFacing, cfg.CreateLogBucket)
	return &LoadBalancer{Construct: node, LoadBalancer: lb, AccessLogsBucket: logBucket}, nil
}
