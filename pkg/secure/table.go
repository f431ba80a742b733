package secure

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

type (
	// TableProps configures a DynamoDB table with customer-managed
	// encryption, point-in-time recovery, and capacity auto-scaling
	// resolved as defaults.
	TableProps struct {
		// TableName is validated against DynamoDB naming rules.
		TableName *string
		// PartitionKey is required.
		PartitionKey *awsdynamodb.Attribute
		SortKey      *awsdynamodb.Attribute
		// BillingMode defaults to PAY_PER_REQUEST. PROVISIONED mode
		// requires both ReadScaling and WriteScaling.
		BillingMode  awsdynamodb.BillingMode
		ReadScaling  *ScalingProps
		WriteScaling *ScalingProps
		// Encryption defaults to CUSTOMER_MANAGED; a companion key is
		// created when none is given.
		Encryption    awsdynamodb.TableEncryption
		EncryptionKey awskms.IKey
		// PointInTimeRecovery defaults to true.
		PointInTimeRecovery *bool
		TimeToLiveAttribute *string
		// RemovalPolicy defaults to RETAIN.
		RemovalPolicy awscdk.RemovalPolicy
		Tags          map[string]string
	}

	// ScalingProps bounds the auto-scaling policy for one capacity
	// dimension of a provisioned table.
	ScalingProps struct {
		MinCapacity float64
		MaxCapacity float64
		// TargetUtilizationPercent defaults to 70.
		TargetUtilizationPercent *float64
	}

	Table struct {
		constructs.Construct
		Table         awsdynamodb.Table
		EncryptionKey awskms.IKey
	}

	tableScaling struct {
		MinCapacity              float64
		MaxCapacity              float64
		TargetUtilizationPercent float64
	}

	tableConfig struct {
		TableName           string
		BillingMode         awsdynamodb.BillingMode
		ReadScaling         tableScaling
		WriteScaling        tableScaling
		Encryption          awsdynamodb.TableEncryption
		CreateKey           bool
		PointInTimeRecovery bool
		TimeToLiveAttribute string
		RemovalPolicy       awscdk.RemovalPolicy
	}
)

func resolveScaling(name string, props *ScalingProps, e *multierr.Error) tableScaling {
	if props == nil {
		e.Append(errors.Errorf("provisioned billing requires %s scaling bounds", name))
		return tableScaling{}
	}
	scaling := tableScaling{
		MinCapacity:              props.MinCapacity,
		MaxCapacity:              props.MaxCapacity,
		TargetUtilizationPercent: float64Value(props.TargetUtilizationPercent, 70),
	}
	if scaling.MinCapacity < 1 {
		e.Append(errors.Errorf("%s scaling minimum capacity must be at least 1", name))
	}
	if scaling.MaxCapacity < scaling.MinCapacity {
		e.Append(errors.Errorf("%s scaling maximum capacity must not be below the minimum", name))
	}
	return scaling
}

func resolveTableProps(props *TableProps) (tableConfig, error) {
	if props == nil {
		return tableConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	cfg := tableConfig{
		BillingMode:         props.BillingMode,
		Encryption:          props.Encryption,
		PointInTimeRecovery: boolValue(props.PointInTimeRecovery, true),
		TimeToLiveAttribute: stringValue(props.TimeToLiveAttribute, ""),
		RemovalPolicy:       props.RemovalPolicy,
	}
	if cfg.BillingMode == "" {
		cfg.BillingMode = awsdynamodb.BillingMode_PAY_PER_REQUEST
	}
	if cfg.Encryption == "" {
		cfg.Encryption = awsdynamodb.TableEncryption_CUSTOMER_MANAGED
	}
	if cfg.RemovalPolicy == "" {
		cfg.RemovalPolicy = awscdk.RemovalPolicy_RETAIN
	}

	if props.PartitionKey == nil {
		e.Append(errors.New("partition key is required"))
	}
	if props.TableName != nil {
		if err := awssan.DynamoDBTableSanitizer.Validate(*props.TableName); err != nil {
			e.Append(errors.Wrap(err, "table name"))
		} else {
			cfg.TableName = *props.TableName
		}
	}

	switch cfg.BillingMode {
	case awsdynamodb.BillingMode_PROVISIONED:
		cfg.ReadScaling = resolveScaling("read", props.ReadScaling, &e)
		cfg.WriteScaling = resolveScaling("write", props.WriteScaling, &e)
	case awsdynamodb.BillingMode_PAY_PER_REQUEST:
		if props.ReadScaling != nil || props.WriteScaling != nil {
			e.Append(errors.New("scaling bounds require provisioned billing"))
		}
	}

	if cfg.Encryption == awsdynamodb.TableEncryption_CUSTOMER_MANAGED {
		cfg.CreateKey = props.EncryptionKey == nil
	} else if props.EncryptionKey != nil {
		e.Append(errors.Errorf("encryption key requires customer-managed encryption, got %s", cfg.Encryption))
	}

	return cfg, e.ErrOrNil()
}

// NewTable creates a DynamoDB table with customer-managed encryption and
// point-in-time recovery; provisioned tables get utilization-tracking
// auto-scaling on both capacity dimensions.
func NewTable(scope constructs.Construct, id string, props *TableProps) (*Table, error) {
	cfg, err := resolveTableProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure table %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	key := props.EncryptionKey
	if cfg.CreateKey {
		companion, err := NewKey(node, "EncryptionKey", &KeyProps{
			Description:   jsii.String(fmt.Sprintf("Table encryption key for %s", id)),
			RemovalPolicy: cfg.RemovalPolicy,
			Tags:          props.Tags,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "secure table %s", id)
		}
		key = companion.Key
	}

	tableProps := &awsdynamodb.TableProps{
		PartitionKey:        props.PartitionKey,
		BillingMode:         cfg.BillingMode,
		Encryption:          cfg.Encryption,
		PointInTimeRecovery: jsii.Bool(cfg.PointInTimeRecovery),
		RemovalPolicy:       cfg.RemovalPolicy,
	}
	if props.SortKey != nil {
		tableProps.SortKey = props.SortKey
	}
	if cfg.TableName != "" {
		tableProps.TableName = jsii.String(cfg.TableName)
	}
	if key != nil {
		tableProps.EncryptionKey = key
	}
	if cfg.TimeToLiveAttribute != "" {
		tableProps.TimeToLiveAttribute = jsii.String(cfg.TimeToLiveAttribute)
	}
	if cfg.BillingMode == awsdynamodb.BillingMode_PROVISIONED {
		tableProps.ReadCapacity = jsii.Number(cfg.ReadScaling.MinCapacity)
		tableProps.WriteCapacity = jsii.Number(cfg.WriteScaling.MinCapacity)
	}
	table := awsdynamodb.NewTable(node, jsii.String("Table"), tableProps)

	if cfg.BillingMode == awsdynamodb.BillingMode_PROVISIONED {
		table.AutoScaleReadCapacity(&awsdynamodb.EnableScalingProps{
			MinCapacity: jsii.Number(cfg.ReadScaling.MinCapacity),
			MaxCapacity: jsii.Number(cfg.ReadScaling.MaxCapacity),
		}).ScaleOnUtilization(&awsdynamodb.UtilizationScalingProps{
			TargetUtilizationPercent: jsii.Number(cfg.ReadScaling.TargetUtilizationPercent),
		})
		table.AutoScaleWriteCapacity(&awsdynamodb.EnableScalingProps{
			MinCapacity: jsii.Number(cfg.WriteScaling.MinCapacity),
			MaxCapacity: jsii.Number(cfg.WriteScaling.MaxCapacity),
		}).ScaleOnUtilization(&awsdynamodb.UtilizationScalingProps{
			TargetUtilizationPercent: jsii.Number(cfg.WriteScaling.TargetUtilizationPercent),
		})
	}

	applyStandardTags(node, "dynamodb-table", props.Tags)
	zap.S().Debugf("resolved table %s: billing=%s companionKey=%t pitr=%t", id, cfg.BillingMode, cfg.CreateKey, cfg.PointInTimeRecovery)
	return &Table{Construct: node, Table: table, EncryptionKey: key}, nil
}
