package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// SqsQueueSanitizer returns a sanitized SQS queue name when applied. The
// ".fifo" suffix is not a legal character sequence under these rules, so
// callers strip it before sanitizing and re-append it after.
var SqsQueueSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_-]`),
			Replacement: "-",
		},
	},
	80,
)
