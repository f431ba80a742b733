package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// DynamoDBTableSanitizer returns a sanitized DynamoDB table name when applied.
var DynamoDBTableSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_.-]`),
			Replacement: "-",
		},
	},
	255,
)
