package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// SnsTopicSanitizer returns a sanitized SNS topic name when applied. As with
// SQS, the ".fifo" suffix is handled by the caller.
var SnsTopicSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_-]`),
			Replacement: "-",
		},
	},
	256,
)
