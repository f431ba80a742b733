package secure

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/dataprotection"
	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/multierr"
	awssan "github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization/aws"
)

type (
	// TopicProps configures an SNS topic with customer-managed encryption, a
	// secure-transport-only resource policy, and an optional sensitive-data
	// protection policy resolved as defaults.
	TopicProps struct {
		// TopicName is validated against SNS naming rules. FIFO topic names
		// must carry the ".fifo" suffix.
		TopicName *string
		Fifo      *bool
		// ContentBasedDeduplication is only valid on FIFO topics.
		ContentBasedDeduplication *bool
		// MasterKey suppresses synthesis of the companion encryption key.
		MasterKey awskms.IKey
		// DisableEncryption publishes the topic without a customer-managed
		// key.
		DisableEncryption *bool
		DisplayName       *string
		// DataProtectionPolicy masks and audits sensitive data in messages.
		// Not supported on FIFO topics.
		DataProtectionPolicy         *dataprotection.Policy
		DisableSecureTransportPolicy *bool
		Tags                         map[string]string
	}

	Topic struct {
		constructs.Construct
		Topic awssns.Topic
		// MasterKey is the customer-managed key in use, companion or
		// caller-supplied. Nil when encryption is disabled.
		MasterKey awskms.IKey
	}

	topicConfig struct {
		TopicName                 string
		Fifo                      bool
		ContentBasedDeduplication bool
		CreateKey                 bool
		DisplayName               string
		DataProtectionDocument    map[string]interface{}
		AttachTransportPolicy     bool
	}
)

func resolveTopicProps(props *TopicProps) (topicConfig, error) {
	if props == nil {
		return topicConfig{}, errors.New("props are required")
	}
	var e multierr.Error

	cfg := topicConfig{
		DisplayName:           stringValue(props.DisplayName, ""),
		AttachTransportPolicy: !boolValue(props.DisableSecureTransportPolicy, false),
	}
	if !boolValue(props.DisableEncryption, false) {
		cfg.CreateKey = props.MasterKey == nil
	} else if props.MasterKey != nil {
		e.Append(errors.New("master key supplied but encryption disabled"))
	}

	if props.TopicName != nil {
		baseName := strings.TrimSuffix(*props.TopicName, fifoSuffix)
		hasFifoSuffix := strings.HasSuffix(*props.TopicName, fifoSuffix)
		switch {
		case props.Fifo == nil:
			cfg.Fifo = hasFifoSuffix
		case *props.Fifo && !hasFifoSuffix:
			e.Append(errors.Errorf("FIFO topic name %q must end in %q", *props.TopicName, fifoSuffix))
		case !*props.Fifo && hasFifoSuffix:
			e.Append(errors.Errorf("standard topic name %q must not end in %q", *props.TopicName, fifoSuffix))
		default:
			cfg.Fifo = *props.Fifo
		}
		if err := awssan.SnsTopicSanitizer.Validate(baseName); err != nil {
			e.Append(errors.Wrap(err, "topic name"))
		} else {
			cfg.TopicName = baseName
			if cfg.Fifo {
				cfg.TopicName += fifoSuffix
			}
		}
	} else {
		cfg.Fifo = boolValue(props.Fifo, false)
	}

	if boolValue(props.ContentBasedDeduplication, false) {
		if !cfg.Fifo {
			e.Append(errors.New("content-based deduplication requires a FIFO topic"))
		}
		cfg.ContentBasedDeduplication = true
	}

	if props.DataProtectionPolicy != nil {
		if cfg.Fifo {
			e.Append(errors.New("data protection policies are not supported on FIFO topics"))
		} else {
			doc, err := props.DataProtectionPolicy.Render()
			if err != nil {
				e.Append(err)
			} else {
				cfg.DataProtectionDocument = doc
			}
		}
	}

	return cfg, e.ErrOrNil()
}

// NewTopic creates an SNS topic encrypted with a customer-managed key and
// carrying the standard secure-transport deny statement.
func NewTopic(scope constructs.Construct, id string, props *TopicProps) (*Topic, error) {
	cfg, err := resolveTopicProps(props)
	if err != nil {
		return nil, errors.Wrapf(err, "secure topic %s", id)
	}

	node := constructs.NewConstruct(scope, jsii.String(id))

	key := props.MasterKey
	if cfg.CreateKey {
		companion, err := NewKey(node, "MasterKey", &KeyProps{
			Description: jsii.String(fmt.Sprintf("Topic encryption key for %s", id)),
			Tags:        props.Tags,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "secure topic %s", id)
		}
		key = companion.Key
	}

	topicProps := &awssns.TopicProps{}
	if cfg.TopicName != "" {
		topicProps.TopicName = jsii.String(cfg.TopicName)
	}
	if cfg.Fifo {
		topicProps.Fifo = jsii.Bool(true)
		if cfg.ContentBasedDeduplication {
			topicProps.ContentBasedDeduplication = jsii.Bool(true)
		}
	}
	if cfg.DisplayName != "" {
		topicProps.DisplayName = jsii.String(cfg.DisplayName)
	}
	if key != nil {
		topicProps.MasterKey = key
	}
	topic := awssns.NewTopic(node, jsii.String("Topic"), topicProps)

	if cfg.AttachTransportPolicy {
		topic.AddToResourcePolicy(denyInsecureTransport(jsii.Strings("sns:Publish"), &[]*string{topic.TopicArn()}))
	}
	if cfg.DataProtectionDocument != nil {
		cfnTopic := topic.Node().DefaultChild().(awssns.CfnTopic)
		cfnTopic.SetDataProtectionPolicy(cfg.DataProtectionDocument)
	}

	applyStandardTags(node, "sns-topic", props.Tags)
	zap.S().Debugf("resolved topic %s: fifo=%t companionKey=%t dataProtection=%t", id, cfg.Fifo, cfg.CreateKey, cfg.DataProtectionDocument != nil)
	return &Topic{Construct: node, Topic: topic, MasterKey: key}, nil
}
