package secure

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
)

// The fakes below stand in for caller-supplied CDK resources in resolution
// tests. Resolution only ever nil-checks them, so none of the embedded
// interface methods are reachable.
type (
	fakeKey     struct{ awskms.IKey }
	fakeBucket  struct{ awss3.IBucket }
	fakeVpc     struct{ awsec2.IVpc }
	fakeCluster struct{ awsecs.ICluster }
	fakeImage   struct{ awsecs.ContainerImage }
)
