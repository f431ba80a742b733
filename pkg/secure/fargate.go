package secure

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/dataprotection"
	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
)

type (
	// FargateServiceProps configures a Fargate service with an encrypted,
	// retention-bounded log group, deployment circuit breaking, and optional
	// load balancer composition resolved as defaults.
	FargateServiceProps struct {
		// Cluster to deploy into. Exactly one of Cluster and Vpc must be
		// set; with only a Vpc a companion cluster is created with
		// container insights enabled.
		Cluster awsecs.ICluster
		Vpc     awsec2.IVpc
		// Image is required.
		Image awsecs.ContainerImage
		// ContainerPort defaults to 8080.
		ContainerPort *float64
		// Cpu defaults to 256 CPU units.
		Cpu *float64
		// MemoryLimitMiB defaults to 512.
		MemoryLimitMiB *float64
		// DesiredCount defaults to 1.
		DesiredCount *float64
		Environment  map[string]string
		// AssignPublicIp defaults to false.
		AssignPublicIp *bool
		// DisableCircuitBreaker turns off deployment circuit breaking with
		// rollback.
		DisableCircuitBreaker *bool
		// LoadBalancer composes a SecureLoadBalancer created at the call
		// site; a listener and target group are wired when present.
		LoadBalancer *LoadBalancer
		// LogRetention defaults to one month.
		LogRetention awslogs.RetentionDays
		// LogEncryptionKey suppresses synthesis of the companion key for
		// the service log group.
		LogEncryptionKey awskms.IKey
		// DataProtectionPolicy masks and audits sensitive data in the
		// service log group.
		DataProtectionPolicy *dataprotection.Policy
		Tags                 map[string]string
	}

	FargateService struct {
		constructs.Construct
		Service        awsecs.FargateService
		TaskDefinition awsecs.FargateTaskDefinition
		LogGroup       awslogs.LogGroup
		Cluster        awsecs.ICluster
		// LogEncryptionKey is the key encrypting the service log group,
		// companion or caller-supplied.
		LogEncryptionKey awskms.IKey
	}

	fargateConfig struct {
		ContainerPort          float64
		Cpu                    float64
		MemoryLimitMiB         float64
		DesiredCount           float64
		AssignPublicIp         bool
		CircuitBreaker         bool
		CreateCluster          bool
		CreateLogKey           bool
		LogRetention           awslogs.RetentionDays
		DataProtectionDocument map[string]interface{}
	}
)

func resolveFargateServiceProps(props *FargateServiceProps) (fargateConfig, error) {
	if props == nil {
		return fargateConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	if props.Image == nil {
		e.Append(errors.New("image is required"))
	}
	switch {
	case props.Cluster == nil && props.Vpc == nil:
		e.Append(errors.New("one of cluster or vpc is required"))
	case props.Cluster != nil && props.Vpc != nil:
		e.Append(errors.New("cluster and vpc are mutually exclusive"))
	}

	cfg := fargateConfig{
		ContainerPort:  float64Value(props.ContainerPort, 8080),
		Cpu:            float64Value(props.Cpu, 256),
		MemoryLimitMiB: float64Value(props.MemoryLimitMiB, 512),
		DesiredCount:   float64Value(props.DesiredCount, 1),
		AssignPublicIp: boolValue(props.AssignPublicIp, false),
		CircuitBreaker: !boolValue(props.DisableCircuitBreaker, false),
		CreateCluster:  props.Cluster == nil && props.Vpc != nil,
		CreateLogKey:   props.LogEncryptionKey == nil,
		LogRetention:   props.LogRetention,
	}
	if cfg.LogRetention == "" {
		cfg.LogRetention = awslogs.RetentionDays_ONE_MONTH
	}

	if props.DataProtectionPolicy != nil {
		doc, err := props.DataProtectionPolicy.Render()
		if err != nil {
			e.Append(err)
		} else {
			cfg.DataProtectionDocument = doc
		}
	}

	return cfg, e.ErrOrNil()
}

// NewFargateService creates a Fargate service whose logs land in an
// encrypted log group with bounded retention, optionally registered behind a
// SecureLoadBalancer composed at the call site.
func NewFargateService(scope constructs.Construct, id string, props *FargateServiceProps) (*FargateService, error) {
	cfg, err := resolveFargateServiceProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure fargate service %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	cluster := props.Cluster
	if cfg.CreateCluster {
		cluster = awsecs.NewCluster(node, jsii.String("Cluster"), &awsecs.ClusterProps{
			Vpc:               props.Vpc,
			ContainerInsights: jsii.Bool(true),
		})
	}

	logKey := props.LogEncryptionKey
	if cfg.CreateLogKey {
		companion, err := NewKey(node, "LogEncryptionKey", &KeyProps{
			Description: jsii.String(fmt.Sprintf("Log group encryption key for %s", id)),
			Tags:        props.Tags,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "secure fargate service %s", id)
		}
		logKey = companion.Key
	}
	// CloudWatch Logs needs use of the key to write encrypted log events.
	logKey.GrantEncryptDecrypt(awsiam.NewServicePrincipal(jsii.String("logs.amazonaws.com"), nil))

	logGroup := awslogs.NewLogGroup(node, jsii.String("LogGroup"), &awslogs.LogGroupProps{
		Retention:     cfg.LogRetention,
		EncryptionKey: logKey,
	})
	if cfg.DataProtectionDocument != nil {
		cfnLogGroup := logGroup.Node().DefaultChild().(awslogs.CfnLogGroup)
		cfnLogGroup.SetDataProtectionPolicy(cfg.DataProtectionDocument)
	}

	taskDefinition := awsecs.NewFargateTaskDefinition(node, jsii.String("TaskDefinition"), &awsecs.FargateTaskDefinitionProps{
		Cpu:            jsii.Number(cfg.Cpu),
		MemoryLimitMiB: jsii.Number(cfg.MemoryLimitMiB),
	})
	containerOptions := &awsecs.ContainerDefinitionOptions{
		Image: props.Image,
		Logging: awsecs.LogDrivers_AwsLogs(&awsecs.AwsLogDriverProps{
			LogGroup:     logGroup,
			StreamPrefix: jsii.String(id),
		}),
		PortMappings: &[]*awsecs.PortMapping{{
			ContainerPort: jsii.Number(cfg.ContainerPort),
		}},
	}
	if len(props.Environment) > 0 {
		env := make(map[string]*string, len(props.Environment))
		for k, v := range props.Environment {
			env[k] = jsii.String(v)
		}
		containerOptions.Environment = &env
	}
	taskDefinition.AddContainer(jsii.String("app"), containerOptions)

	serviceProps := &awsecs.FargateServiceProps{
		Cluster:        cluster,
		TaskDefinition: taskDefinition,
		DesiredCount:   jsii.Number(cfg.DesiredCount),
		AssignPublicIp: jsii.Bool(cfg.AssignPublicIp),
	}
	if cfg.CircuitBreaker {
		serviceProps.CircuitBreaker = &awsecs.DeploymentCircuitBreaker{
			Enable:   jsii.Bool(true),
			Rollback: jsii.Bool(true),
		}
	}
	service := awsecs.NewFargateService(node, jsii.String("Service"), serviceProps)

	if props.LoadBalancer != nil {
		listener := props.LoadBalancer.LoadBalancer.AddListener(jsii.String("Listener"), &awselasticloadbalancingv2.BaseApplicationListenerProps{
			Port:     jsii.Number(80),
			Protocol: awselasticloadbalancingv2.ApplicationProtocol_HTTP,
		})
		listener.AddTargets(jsii.String("Targets"), &awselasticloadbalancingv2.AddApplicationTargetsProps{
			Port:     jsii.Number(cfg.ContainerPort),
			Protocol: awselasticloadbalancingv2.ApplicationProtocol_HTTP,
			Targets:  &[]awselasticloadbalancingv2.IApplicationLoadBalancerTarget{service},
		})
	}

	applyStandardTags(node, "fargate-service", props.Tags)
	zap.S().Debugf("resolved fargate service %s: cpu=%v memory=%v companionCluster=%t companionLogKey=%t", id, cfg.Cpu, cfg.MemoryLimitMiB, cfg.CreateCluster, cfg.CreateLogKey)
	return &FargateService{
		Construct:        node,
		Service:          service,
		TaskDefinition:   taskDefinition,
		LogGroup:         logGroup,
		Cluster:          cluster,
		LogEncryptionKey: logKey,
	}, nil
}
