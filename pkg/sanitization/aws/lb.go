package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// LoadBalancerSanitizer returns a sanitized load balancer name when applied.
var LoadBalancerSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9-]`),
			Replacement: "-",
		},
		{
			Pattern:     regexp.MustCompile(`^-+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`-+$`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`^internal-`),
			Replacement: "",
		},
	},
	32,
)
