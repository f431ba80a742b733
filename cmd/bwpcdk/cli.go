package main

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/config"
	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/dataprotection"
	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/logging"
	"github.com/amzn/buy-with-prime-cdk-constructs/pkg/secure"
)

var synthCfg struct {
	configPath string
	outDir     string
	image      string
	verbose    bool
	color      string
	encoding   string
}

var policyCfg struct {
	name        string
	identifiers []string
	logGroup    string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bwpcdk",
		Short:         "Synthesize the hardened baseline stack",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&synthCfg.verbose, "verbose", "v", false, "Verbose flag")
	flags.StringVar(&synthCfg.color, "color", "auto", "Color output (auto, always, never)")
	flags.StringVar(&synthCfg.encoding, "encoding", "console", "Log encoding (console, json)")

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize a stack with one of each secure construct",
		RunE:  runSynth,
	}
	flags = synthCmd.Flags()
	flags.StringVarP(&synthCfg.configPath, "config", "c", "", "Compliance defaults file (json or yaml)")
	flags.StringVarP(&synthCfg.outDir, "outdir", "o", "cdk.out", "Cloud assembly output directory")
	flags.StringVar(&synthCfg.image, "image", "public.ecr.aws/nginx/nginx:stable", "Container image for the sample service")

	policyCmd := &cobra.Command{
		Use:   "render-policy",
		Short: "Render a data protection policy document as JSON",
		RunE:  runRenderPolicy,
	}
	flags = policyCmd.Flags()
	flags.StringVar(&policyCfg.name, "name", "", "Policy name")
	flags.StringSliceVarP(&policyCfg.identifiers, "identifier", "i", nil, "Data identifier (repeatable); short names refer to AWS managed identifiers")
	flags.StringVar(&policyCfg.logGroup, "findings-log-group", "", "CloudWatch log group to receive audit findings")

	root.AddCommand(synthCmd)
	root.AddCommand(policyCmd)
	return root
}

func setupLogger() func() {
	logger := logging.LogOpts{
		Verbose:  synthCfg.verbose,
		Color:    synthCfg.color,
		Encoding: synthCfg.encoding,
	}.NewLogger()
	zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
	}
}

func runSynth(cmd *cobra.Command, args []string) error {
	defer setupLogger()()

	cfg := config.Compliance{AppName: "app"}
	if synthCfg.configPath != "" {
		var err error
		cfg, err = config.ReadConfig(synthCfg.configPath)
		if err != nil {
			return errors.Wrap(err, "reading config")
		}
	}

	app := awscdk.NewApp(&awscdk.AppProps{
		Outdir: jsii.String(synthCfg.outDir),
	})
	stack := awscdk.NewStack(app, jsii.String(strcase.ToCamel(cfg.AppName+"-baseline")), &awscdk.StackProps{})

	if err := buildBaselineStack(stack, cfg); err != nil {
		return err
	}

	app.Synth(nil)
	zap.S().Infof("wrote cloud assembly to %s", synthCfg.outDir)
	return nil
}

// buildBaselineStack instantiates one of each construct with the compliance
// defaults applied, so a synth run shows the full set of substitutions.
func buildBaselineStack(stack awscdk.Stack, cfg config.Compliance) error {
	removal := awscdk.RemovalPolicy_RETAIN
	if cfg.RetainResources != nil && !*cfg.RetainResources {
		removal = awscdk.RemovalPolicy_DESTROY
	}

	var policy *dataprotection.Policy
	if len(cfg.DataIdentifiers) > 0 {
		policy = &dataprotection.Policy{
			Name:        cfg.AppName + "-data-protection",
			Identifiers: cfg.DataIdentifiers,
		}
	}

	if _, err := secure.NewKey(stack, "SharedKey", &secure.KeyProps{
		Alias:         jsii.String(cfg.AppName + "-shared"),
		RemovalPolicy: removal,
		Tags:          cfg.Tags,
	}); err != nil {
		return err
	}

	if _, err := secure.NewBucket(stack, "Artifacts", &secure.BucketProps{
		BucketName:    jsii.String(cfg.AppName + "-artifacts"),
		RemovalPolicy: removal,
		Tags:          cfg.Tags,
	}); err != nil {
		return err
	}

	if _, err := secure.NewQueue(stack, "Jobs", &secure.QueueProps{
		QueueName: jsii.String(cfg.AppName + "-jobs"),
		Tags:      cfg.Tags,
	}); err != nil {
		return err
	}

	if _, err := secure.NewTopic(stack, "Events", &secure.TopicProps{
		TopicName:            jsii.String(cfg.AppName + "-events"),
		DataProtectionPolicy: policy,
		Tags:                 cfg.Tags,
	}); err != nil {
		return err
	}

	if _, err := secure.NewTable(stack, "State", &secure.TableProps{
		TableName: jsii.String(cfg.AppName + "-state"),
		PartitionKey: &awsdynamodb.Attribute{
			Name: jsii.String("pk"),
			Type: awsdynamodb.AttributeType_STRING,
		},
		RemovalPolicy: removal,
		Tags:          cfg.Tags,
	}); err != nil {
		return err
	}

	vpc := awsec2.NewVpc(stack, jsii.String("Vpc"), &awsec2.VpcProps{
		MaxAzs: jsii.Number(2),
	})

	lb, err := secure.NewLoadBalancer(stack, "Ingress", &secure.LoadBalancerProps{
		Vpc:  vpc,
		Tags: cfg.Tags,
	})
	if err != nil {
		return err
	}

	_, err = secure.NewFargateService(stack, "Service", &secure.FargateServiceProps{
		Vpc:                  vpc,
		Image:                awsecs.ContainerImage_FromRegistry(jsii.String(synthCfg.image), nil),
		LoadBalancer:         lb,
		LogRetention:         logRetention(cfg.LogRetentionDays),
		DataProtectionPolicy: policy,
		Tags:                 cfg.Tags,
	})
	return err
}

func logRetention(days int) awslogs.RetentionDays {
	switch days {
	case 0:
		return ""
	case 7:
		return awslogs.RetentionDays_ONE_WEEK
	case 30:
		return awslogs.RetentionDays_ONE_MONTH
	case 90:
		return awslogs.RetentionDays_THREE_MONTHS
	case 180:
		return awslogs.RetentionDays_SIX_MONTHS
	case 365:
		return awslogs.RetentionDays_ONE_YEAR
	default:
		zap.S().Warnf("no log retention period matches %d days, using one month", days)
		return awslogs.RetentionDays_ONE_MONTH
	}
}

func runRenderPolicy(cmd *cobra.Command, args []string) error {
	defer setupLogger()()

	policy := &dataprotection.Policy{
		Name:        policyCfg.name,
		Identifiers: policyCfg.identifiers,
	}
	if policyCfg.logGroup != "" {
		policy.FindingsDestination = &dataprotection.FindingsDestination{LogGroup: policyCfg.logGroup}
	}

	doc, err := policy.Render()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
