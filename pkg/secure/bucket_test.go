package secure

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
)

func Test_resolveBucketProps(t *testing.T) {
	cases := []struct {
		name    string
		props   *BucketProps
		wantErr bool
		check   func(assert *assert.Assertions, cfg bucketConfig)
	}{
		{
			name:    "nil props",
			props:   nil,
			wantErr: true,
		},
		{
			name:  "defaults",
			props: &BucketProps{},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.Equal(awss3.BucketEncryption_KMS, cfg.Encryption)
				assert.True(cfg.CreateKey)
				assert.True(cfg.Versioned)
				assert.Equal(awscdk.RemovalPolicy_RETAIN, cfg.RemovalPolicy)
				assert.True(cfg.CreateLogBucket)
				assert.Empty(cfg.LogBucketName)
				assert.Equal(float64(365), cfg.LogRetentionDays)
				assert.True(cfg.AttachTransportPolicy)
			},
		},
		{
			name:  "named bucket derives the log bucket name",
			props: &BucketProps{BucketName: jsii.String("orders-data")},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.Equal("orders-data", cfg.BucketName)
				assert.Equal("orders-data-access-logs", cfg.LogBucketName)
			},
		},
		{
			name:  "over-budget log bucket name is omitted not truncated",
			props: &BucketProps{BucketName: jsii.String(strings.Repeat("a", 55))},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.True(cfg.CreateLogBucket)
				assert.Empty(cfg.LogBucketName)
			},
		},
		{
			name:  "explicit key suppresses companion key",
			props: &BucketProps{EncryptionKey: &fakeKey{}},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.False(cfg.CreateKey)
			},
		},
		{
			name:  "explicit log bucket suppresses companion",
			props: &BucketProps{AccessLogsBucket: &fakeBucket{}},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.False(cfg.CreateLogBucket)
			},
		},
		{
			name:  "access logs disabled",
			props: &BucketProps{DisableAccessLogs: jsii.Bool(true)},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.False(cfg.CreateLogBucket)
			},
		},
		{
			name:    "key with s3-managed encryption",
			props:   &BucketProps{Encryption: awss3.BucketEncryption_S3_MANAGED, EncryptionKey: &fakeKey{}},
			wantErr: true,
		},
		{
			name:  "s3-managed encryption without key",
			props: &BucketProps{Encryption: awss3.BucketEncryption_S3_MANAGED},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.Equal(awss3.BucketEncryption_S3_MANAGED, cfg.Encryption)
				assert.False(cfg.CreateKey)
			},
		},
		{
			name:    "uppercase bucket name",
			props:   &BucketProps{BucketName: jsii.String("OrdersData")},
			wantErr: true,
		},
		{
			name:  "transport policy can be disabled",
			props: &BucketProps{DisableSecureTransportPolicy: jsii.Bool(true)},
			check: func(assert *assert.Assertions, cfg bucketConfig) {
				assert.False(cfg.AttachTransportPolicy)
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg, err := resolveBucketProps(tt.props)
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			tt.check(assert, cfg)
		})
	}
}
