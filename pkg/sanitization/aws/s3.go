package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// S3BucketSanitizer returns a sanitized S3 bucket name when applied.
var S3BucketSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-z0-9.-]`),
			Replacement: "-",
		},
		{
			Pattern:     regexp.MustCompile(`^[.-]+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`[.-]+$`),
			Replacement: "",
		},
	},
	63,
)
