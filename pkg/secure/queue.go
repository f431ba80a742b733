package secure

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

const (
	fifoSuffix = ".fifo"
	dlqSuffix  = "dlq"

	// dlqRetentionDays holds failed messages long enough for an operator to
	// intervene; 14 days is the SQS maximum.
	dlqRetentionDays = 14
)

type (
	// QueueProps configures an SQS queue with customer-managed encryption, a
	// dead-letter companion queue, and a secure-transport-only resource
	// policy resolved as defaults.
	QueueProps struct {
		// QueueName is validated against SQS naming rules. FIFO queue names
		// must carry the ".fifo" suffix.
		QueueName *string
		Fifo      *bool
		// ContentBasedDeduplication is only valid on FIFO queues.
		ContentBasedDeduplication *bool
		// Encryption defaults to customer-managed KMS; a companion key is
		// created when none is given.
		Encryption    awssqs.QueueEncryption
		EncryptionKey awskms.IKey
		// DataKeyReuseMinutes defaults to 5.
		DataKeyReuseMinutes *float64
		// RetentionDays defaults to 4, the SQS default.
		RetentionDays *float64
		// VisibilityTimeoutSeconds defaults to 30.
		VisibilityTimeoutSeconds *float64
		// DisableDeadLetterQueue omits the companion dead-letter queue.
		DisableDeadLetterQueue *bool
		// DeadLetterQueue suppresses synthesis of the companion.
		DeadLetterQueue *awssqs.DeadLetterQueue
		// MaxReceiveCount before messages move to the dead-letter queue.
		// Defaults to 5.
		MaxReceiveCount              *float64
		DisableSecureTransportPolicy *bool
		Tags                         map[string]string
	}

	Queue struct {
		constructs.Construct
		Queue awssqs.Queue
		// DeadLetterQueue is the companion queue when one was synthesized,
		// nil otherwise.
		DeadLetterQueue awssqs.Queue
		EncryptionKey   awskms.IKey
	}

	queueConfig struct {
		// QueueName carries the ".fifo" suffix for FIFO queues. Empty means
		// the provisioning layer generates a name.
		QueueName                 string
		Fifo                      bool
		ContentBasedDeduplication bool
		Encryption                awssqs.QueueEncryption
		CreateKey                 bool
		DataKeyReuseMinutes       float64
		RetentionDays             float64
		VisibilityTimeoutSeconds  float64
		CreateDLQ                 bool
		// DLQName is empty when no deterministic name fits the budget.
		DLQName               string
		MaxReceiveCount       float64
		AttachTransportPolicy bool
	}
)

func resolveQueueProps(props *QueueProps) (queueConfig, error) {
	if props == nil {
		return queueConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	cfg := queueConfig{
		Encryption:               props.Encryption,
		DataKeyReuseMinutes:      float64Value(props.DataKeyReuseMinutes, 5),
		RetentionDays:            float64Value(props.RetentionDays, 4),
		VisibilityTimeoutSeconds: float64Value(props.VisibilityTimeoutSeconds, 30),
		MaxReceiveCount:          float64Value(props.MaxReceiveCount, 5),
		AttachTransportPolicy:    !boolValue(props.DisableSecureTransportPolicy, false),
	}
	if cfg.Encryption == "" {
		cfg.Encryption = awssqs.QueueEncryption_KMS
	}
	if cfg.Encryption == awssqs.QueueEncryption_KMS {
		cfg.CreateKey = props.EncryptionKey == nil
	} else if props.EncryptionKey != nil {
		e.Append(errors.Errorf("encryption key requires KMS encryption, got %s", cfg.Encryption))
	}

	baseName := ""
	if props.QueueName != nil {
		baseName = strings.TrimSuffix(*props.QueueName, fifoSuffix)
		hasFifoSuffix := strings.HasSuffix(*props.QueueName, fifoSuffix)
		switch {
		case props.Fifo == nil:
			cfg.Fifo = hasFifoSuffix
		case *props.Fifo && !hasFifoSuffix:
			e.Append(errors.Errorf("FIFO queue name %q must end in %q", *props.QueueName, fifoSuffix))
		case !*props.Fifo && hasFifoSuffix:
			e.Append(errors.Errorf("standard queue name %q must not end in %q", *props.QueueName, fifoSuffix))
		default:
			cfg.Fifo = *props.Fifo
		}
		if err := awssan.SqsQueueSanitizer.Validate(baseName); err != nil {
			e.Append(errors.Wrap(err, "queue name"))
		} else {
			cfg.QueueName = baseName
			if cfg.Fifo {
				cfg.QueueName += fifoSuffix
			}
		}
	} else {
		cfg.Fifo = boolValue(props.Fifo, false)
	}

	if boolValue(props.ContentBasedDeduplication, false) {
		if !cfg.Fifo {
			e.Append(errors.New("content-based deduplication requires a FIFO queue"))
		}
		cfg.ContentBasedDeduplication = true
	}

	if props.DeadLetterQueue != nil && boolValue(props.DisableDeadLetterQueue, false) {
		e.Append(errors.New("dead-letter queue supplied but also disabled"))
	}
	if props.DeadLetterQueue == nil && !boolValue(props.DisableDeadLetterQueue, false) {
		cfg.CreateDLQ = true
		if baseName != "" {
			if name, ok := awssan.SqsQueueSanitizer.DeriveName(baseName, dlqSuffix); ok {
				if cfg.Fifo {
					name += fifoSuffix
				}
				if len(name) <= awssan.SqsQueueSanitizer.MaxLength() {
					cfg.DLQName = name
				}
			}
		}
	}

	return cfg, e.ErrOrNil()
}

// NewQueue creates an SQS queue encrypted with a customer-managed key and
// backed by a dead-letter companion queue unless one is supplied or disabled.
func NewQueue(scope constructs.Construct, id string, props *QueueProps) (*Queue, error) {
	cfg, err := resolveQueueProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure queue %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	key := props.EncryptionKey
	if cfg.CreateKey {
		companion, err := NewKey(node, "EncryptionKey", &KeyProps{
			Description: jsii.String(fmt.Sprintf("Queue encryption key for %s", id)),
			Tags:        props.Tags,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "secure queue %s", id)
		}
		key = companion.Key
	}

	dlq := props.DeadLetterQueue
	var dlqQueue awssqs.Queue
	if cfg.CreateDLQ {
		dlqProps := &awssqs.QueueProps{
			Encryption:      cfg.Encryption,
			RetentionPeriod: awscdk.Duration_Days(jsii.Number(dlqRetentionDays)),
		}
		if cfg.Fifo {
			dlqProps.Fifo = jsii.Bool(true)
		}
		if cfg.DLQName != "" {
			dlqProps.QueueName = jsii.String(cfg.DLQName)
		}
		if key != nil {
			dlqProps.EncryptionMasterKey = key
		}
		dlqQueue = awssqs.NewQueue(node, jsii.String("DeadLetterQueue"), dlqProps)
		dlq = &awssqs.DeadLetterQueue{
			MaxReceiveCount: jsii.Number(cfg.MaxReceiveCount),
			Queue:           dlqQueue,
		}
	}

	queueProps := &awssqs.QueueProps{
		Encryption:        cfg.Encryption,
		RetentionPeriod:   awscdk.Duration_Days(jsii.Number(cfg.RetentionDays)),
		VisibilityTimeout: awscdk.Duration_Seconds(jsii.Number(cfg.VisibilityTimeoutSeconds)),
		DeadLetterQueue:   dlq,
	}
	if cfg.Encryption == awssqs.QueueEncryption_KMS || cfg.Encryption == awssqs.QueueEncryption_KMS_MANAGED {
		queueProps.DataKeyReuse = awscdk.Duration_Minutes(jsii.Number(cfg.DataKeyReuseMinutes))
	}
	if cfg.Fifo {
		queueProps.Fifo = jsii.Bool(true)
		if cfg.ContentBasedDeduplication {
			queueProps.ContentBasedDeduplication = jsii.Bool(true)
		}
	}
	if cfg.QueueName != "" {
		queueProps.QueueName = jsii.String(cfg.QueueName)
	}
	if key != nil {
		queueProps.EncryptionMasterKey = key
	}
	queue := awssqs.NewQueue(node, jsii.String("Queue"), queueProps)

	if cfg.AttachTransportPolicy {
		queue.AddToResourcePolicy(denyInsecureTransport(jsii.Strings("sqs:*"), &[]*string{queue.QueueArn()}))
		if dlqQueue != nil {
			dlqQueue.AddToResourcePolicy(denyInsecureTransport(jsii.Strings("sqs:*"), &[]*string{dlqQueue.QueueArn()}))
		}
	}

	applyStandardTags(node, "sqs-queue", props.Tags)
	zap.S().Debugf("resolved queue %s: fifo=%t companionKey=%t companionDLQ=%t dlqName=%q", id, cfg.Fifo, cfg.CreateKey, cfg.CreateDLQ, cfg.DLQName)
	return &Queue{
		Construct:       node,
		Queue:           queue,
		DeadLetterQueue: dlqQueue,
		EncryptionKey:   key,
	}, nil
}
