package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// LogGroupSanitizer returns a sanitized CloudWatch log group name when applied.
var LogGroupSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_./#-]`),
			Replacement: "-",
		},
	},
	512,
)
