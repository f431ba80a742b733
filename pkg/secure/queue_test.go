package secure

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
)

func Test_resolveQueueProps(t *testing.T) {
	cases := []struct {
		name    string
		props   *QueueProps
		wantErr bool
		check   func(assert *assert.Assertions, cfg queueConfig)
	}{
		{
			name:    "nil props",
			props:   nil,
			wantErr: true,
		},
		{
			name:  "defaults",
			props: &QueueProps{},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.Equal(awssqs.QueueEncryption_KMS, cfg.Encryption)
				assert.True(cfg.CreateKey)
				assert.True(cfg.CreateDLQ)
				assert.Empty(cfg.DLQName)
				assert.False(cfg.Fifo)
				assert.Equal(float64(5), cfg.MaxReceiveCount)
				assert.Equal(float64(4), cfg.RetentionDays)
				assert.Equal(float64(30), cfg.VisibilityTimeoutSeconds)
				assert.True(cfg.AttachTransportPolicy)
			},
		},
		{
			name:  "named queue derives the dead-letter queue name",
			props: &QueueProps{QueueName: jsii.String("orders")},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.Equal("orders", cfg.QueueName)
				assert.Equal("orders-dlq", cfg.DLQName)
			},
		},
		{
			name:  "fifo suffix implies a fifo queue",
			props: &QueueProps{QueueName: jsii.String("orders.fifo")},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.True(cfg.Fifo)
				assert.Equal("orders.fifo", cfg.QueueName)
				assert.Equal("orders-dlq.fifo", cfg.DLQName)
			},
		},
		{
			name:    "fifo queue without the suffix",
			props:   &QueueProps{QueueName: jsii.String("orders"), Fifo: jsii.Bool(true)},
			wantErr: true,
		},
		{
			name:    "standard queue with the fifo suffix",
			props:   &QueueProps{QueueName: jsii.String("orders.fifo"), Fifo: jsii.Bool(false)},
			wantErr: true,
		},
		{
			name:  "over-budget dead-letter queue name is omitted not truncated",
			props: &QueueProps{QueueName: jsii.String(strings.Repeat("a", 78))},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.True(cfg.CreateDLQ)
				assert.Empty(cfg.DLQName)
			},
		},
		{
			name:  "fifo suffix counts against the dead-letter name budget",
			props: &QueueProps{QueueName: jsii.String(strings.Repeat("a", 72) + ".fifo")},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.True(cfg.Fifo)
				assert.True(cfg.CreateDLQ)
				assert.Empty(cfg.DLQName)
			},
		},
		{
			name:  "explicit dead-letter queue suppresses companion",
			props: &QueueProps{DeadLetterQueue: &awssqs.DeadLetterQueue{}},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.False(cfg.CreateDLQ)
			},
		},
		{
			name:  "dead-letter queue disabled",
			props: &QueueProps{DisableDeadLetterQueue: jsii.Bool(true)},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.False(cfg.CreateDLQ)
			},
		},
		{
			name:    "dead-letter queue supplied and disabled",
			props:   &QueueProps{DeadLetterQueue: &awssqs.DeadLetterQueue{}, DisableDeadLetterQueue: jsii.Bool(true)},
			wantErr: true,
		},
		{
			name:  "explicit key suppresses companion key",
			props: &QueueProps{EncryptionKey: &fakeKey{}},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.False(cfg.CreateKey)
			},
		},
		{
			name:    "key with sqs-managed encryption",
			props:   &QueueProps{Encryption: awssqs.QueueEncryption_SQS_MANAGED, EncryptionKey: &fakeKey{}},
			wantErr: true,
		},
		{
			name:    "content-based deduplication on a standard queue",
			props:   &QueueProps{ContentBasedDeduplication: jsii.Bool(true)},
			wantErr: true,
		},
		{
			name:  "content-based deduplication on a fifo queue",
			props: &QueueProps{Fifo: jsii.Bool(true), ContentBasedDeduplication: jsii.Bool(true)},
			check: func(assert *assert.Assertions, cfg queueConfig) {
				assert.True(cfg.ContentBasedDeduplication)
			},
		},
		{
			name:    "queue name with invalid characters",
			props:   &QueueProps{QueueName: jsii.String("orders queue")},
			wantErr: true,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg, err := resolveQueueProps(tt.props)
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			tt.check(assert, cfg)
		})
	}
}
