package secure

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
)

func Test_resolveKeyProps(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		props   *KeyProps
		wantErr bool
		check   func(assert *assert.Assertions, cfg keyConfig)
	}{
		{
			name:    "nil props",
			props:   nil,
			wantErr: true,
		},
		{
			name:  "defaults",
			id:    "orders-key",
			props: &KeyProps{},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.True(cfg.EnableKeyRotation)
				assert.Equal(float64(7), cfg.PendingWindowDays)
				assert.False(cfg.MultiRegion)
				assert.Equal(awscdk.RemovalPolicy_RETAIN, cfg.RemovalPolicy)
				assert.True(cfg.AttachTransportPolicy)
				assert.Empty(cfg.Alias)
				assert.Equal("Customer managed key for orders-key", cfg.Description)
			},
		},
		{
			name:  "alias gains the alias prefix",
			props: &KeyProps{Alias: jsii.String("orders")},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.Equal("alias/orders", cfg.Alias)
			},
		},
		{
			name:  "prefixed alias kept as is",
			props: &KeyProps{Alias: jsii.String("alias/orders")},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.Equal("alias/orders", cfg.Alias)
			},
		},
		{
			name:    "alias with invalid characters",
			props:   &KeyProps{Alias: jsii.String("orders key!")},
			wantErr: true,
		},
		{
			name:  "transport policy can be disabled",
			props: &KeyProps{DisableSecureTransportPolicy: jsii.Bool(true)},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.False(cfg.AttachTransportPolicy)
			},
		},
		{
			name:  "explicit overrides survive",
			props: &KeyProps{EnableKeyRotation: jsii.Bool(false), PendingWindowDays: jsii.Number(30), RemovalPolicy: awscdk.RemovalPolicy_DESTROY},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.False(cfg.EnableKeyRotation)
				assert.Equal(float64(30), cfg.PendingWindowDays)
				assert.Equal(awscdk.RemovalPolicy_DESTROY, cfg.RemovalPolicy)
			},
		},
		{
			name:  "required encryption context key",
			props: &KeyProps{RequiredEncryptionContextKey: jsii.String("tenant-id")},
			check: func(assert *assert.Assertions, cfg keyConfig) {
				assert.Equal("tenant-id", cfg.RequiredEncryptionContextKey)
			},
		},
		{
			name:    "empty encryption context key",
			props:   &KeyProps{RequiredEncryptionContextKey: jsii.String("")},
			wantErr: true,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg, err := resolveKeyProps(tt.id, tt.props)
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			tt.check(assert, cfg)
		})
	}
}
