package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// EcsClusterSanitizer returns a sanitized ECS cluster name when applied.
var EcsClusterSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_-]`),
			Replacement: "-",
		},
	},
	255,
)

// EcsServiceSanitizer returns a sanitized ECS service name when applied.
var EcsServiceSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_-]`),
			Replacement: "-",
		},
	},
	255,
)
