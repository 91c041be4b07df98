package provider

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/models"
)

// bedrockServingTimeoutSeconds is the serving timeout written into the
// derived model configuration for Bedrock custom models.
const bedrockServingTimeoutSeconds = 120

// Bedrock launches fine-tuning via AWS Bedrock model-customization jobs.
// The dataset is staged to S3 first, which is why this provider is the one
// whose requests must carry a region and an output bucket.
type Bedrock struct {
	awsCfg  aws.Config
	roleARN string
}

var _ Provider = (*Bedrock)(nil)

// NewBedrock creates the Bedrock provider. roleARN is the service role
// Bedrock assumes to read the training data and write the custom model.
func NewBedrock(ctx context.Context, roleARN string) (*Bedrock, error) {
	if roleARN == "" {
		return nil, fmt.Errorf("Bedrock role ARN required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Bedrock{awsCfg: cfg, roleARN: roleARN}, nil
}

// Name returns the provider identifier.
func (b *Bedrock) Name() string { return models.ProviderBedrock }

// Launch stages the dataset to S3 and creates the customization job in the
// request's region. Validation has already guaranteed Location is set.
func (b *Bedrock) Launch(ctx context.Context, req models.JobRequest, dataset gateway.Dataset) (models.JobHandle, error) {
	if req.Location == nil || req.Location.Region == "" || req.Location.Bucket == "" {
		return models.JobHandle{}, fmt.Errorf("bedrock launch requires region and bucket")
	}
	region, bucket := req.Location.Region, req.Location.Bucket

	s3Client := s3.NewFromConfig(b.awsCfg, func(o *s3.Options) { o.Region = region })
	trainingKey := fmt.Sprintf("tuneboard/datasets/%s/train.jsonl", req.ID)
	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(trainingKey),
		Body:   bytes.NewReader(dataset.Training),
	})
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("stage training data: %w", err)
	}

	bedrockClient := bedrock.NewFromConfig(b.awsCfg, func(o *bedrock.Options) { o.Region = region })
	jobName := "tuneboard-" + req.ID
	out, err := bedrockClient.CreateModelCustomizationJob(ctx, &bedrock.CreateModelCustomizationJobInput{
		JobName:             aws.String(jobName),
		CustomModelName:     aws.String(fmt.Sprintf("%s-%s", req.Function, req.ID)),
		RoleArn:             aws.String(b.roleARN),
		BaseModelIdentifier: aws.String(req.Model),
		CustomizationType:   bedrocktypes.CustomizationTypeFineTuning,
		TrainingDataConfig: &bedrocktypes.TrainingDataConfig{
			S3Uri: aws.String(fmt.Sprintf("s3://%s/%s", bucket, trainingKey)),
		},
		OutputDataConfig: &bedrocktypes.OutputDataConfig{
			S3Uri: aws.String(fmt.Sprintf("s3://%s/tuneboard/output/%s/", bucket, req.ID)),
		},
	})
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("create customization job: %w", err)
	}

	jobARN := aws.ToString(out.JobArn)
	return models.JobHandle{
		ProviderJobID: jobARN,
		HumanURL: fmt.Sprintf(
			"https://%s.console.aws.amazon.com/bedrock/home?region=%s#/custom-models", region, region),
		CredentialRef: b.roleARN,
	}, nil
}

// Poll maps the customization job status onto the union.
func (b *Bedrock) Poll(ctx context.Context, handle models.JobHandle) (models.JobStatus, error) {
	region := regionFromARN(handle.ProviderJobID)
	bedrockClient := bedrock.NewFromConfig(b.awsCfg, func(o *bedrock.Options) {
		if region != "" {
			o.Region = region
		}
	})

	out, err := bedrockClient.GetModelCustomizationJob(ctx, &bedrock.GetModelCustomizationJobInput{
		JobIdentifier: aws.String(handle.ProviderJobID),
	})
	if err != nil {
		return nil, fmt.Errorf("get customization job: %w", err)
	}

	switch out.Status {
	case bedrocktypes.ModelCustomizationJobStatusInProgress:
		return models.PendingStatus{Message: "Customization job in progress"}, nil

	case bedrocktypes.ModelCustomizationJobStatusCompleted:
		modelARN := aws.ToString(out.OutputModelArn)
		if modelARN == "" {
			return nil, fmt.Errorf("job %s completed without an output model", handle.ProviderJobID)
		}
		return models.CompletedStatus{Result: models.FineTuneResult{
			FineTunedModel: modelARN,
			Serving: models.ServingConfig{
				Provider:       models.ProviderBedrock,
				ModelName:      modelARN,
				TimeoutSeconds: bedrockServingTimeoutSeconds,
				Capabilities:   []string{"chat"},
			},
		}}, nil

	case bedrocktypes.ModelCustomizationJobStatusFailed,
		bedrocktypes.ModelCustomizationJobStatusStopping,
		bedrocktypes.ModelCustomizationJobStatusStopped:
		msg := aws.ToString(out.FailureMessage)
		if msg == "" {
			msg = fmt.Sprintf("customization job %s", out.Status)
		}
		return models.FailedStatus{Message: msg}, nil

	default:
		return nil, fmt.Errorf("unknown customization job status %q", out.Status)
	}
}

// regionFromARN extracts the region segment of a job ARN
// (arn:aws:bedrock:REGION:account:model-customization-job/...).
func regionFromARN(arn string) string {
	parts := 0
	start := 0
	for i := 0; i < len(arn); i++ {
		if arn[i] == ':' {
			parts++
			if parts == 3 {
				start = i + 1
			}
			if parts == 4 {
				return arn[start:i]
			}
		}
	}
	return ""
}
