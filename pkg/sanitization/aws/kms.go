package aws

import (
	"regexp"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/sanitization"
)

// KmsAliasSanitizer returns a sanitized KMS alias name when applied. The
// "alias/" prefix counts against the length budget.
var KmsAliasSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9/_-]`),
			Replacement: "-",
		},
	},
	256,
)
