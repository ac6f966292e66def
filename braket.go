package qls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/braket"
	braketypes "github.com/aws/aws-sdk-go-v2/service/braket/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/theapemachine/errnie"
)

// Managed simulator and QPU device ARNs.
const (
	DeviceSV1 = "arn:aws:braket:::device/quantum-simulator/amazon/sv1"
	DeviceDM1 = "arn:aws:braket:::device/quantum-simulator/amazon/dm1"
	DeviceTN1 = "arn:aws:braket:::device/quantum-simulator/amazon/tn1"

	deviceIonQ    = "arn:aws:braket:us-east-1::device/qpu/ionq/Harmony"
	deviceRigetti = "arn:aws:braket:us-west-1::device/qpu/rigetti/Aspen-M-1"
	deviceOQC     = "arn:aws:braket:eu-west-2::device/qpu/oqc/Lucy"
)

// DeviceForName resolves the short provider names used on the command line.
func DeviceForName(name string) (string, error) {
	switch name {
	case "sv1":
		return DeviceSV1, nil
	case "ionq":
		return deviceIonQ, nil
	case "rigetti":
		return deviceRigetti, nil
	case "oqc":
		return deviceOQC, nil
	default:
		return "", fmt.Errorf("%s not in the list of known device names", name)
	}
}

// IsAccessDenied reports whether a provider error is specifically an IAM
// access denial, the one failure mode the submission loop tolerates.
func IsAccessDenied(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException"
}

/*
RoleInfo is one IAM role with its attached policy names, the candidates the
hybrid-job loop tries to submit under.
*/
type RoleInfo struct {
	Name     string
	Arn      string
	Policies []string
}

/*
HybridJobParams describes one hybrid-job submission: which device runs the
quantum parts, which role the job assumes, and the algorithm payload.
*/
type HybridJobParams struct {
	Name            string
	DeviceArn       string
	RoleArn         string
	ScriptS3URI     string
	EntryPoint      string
	Hyperparameters map[string]string
}

/*
BraketClient bundles the cloud clients one execution run needs: identity
lookup, role enumeration and hybrid-job submission, all scoped to a
workspace configuration.
*/
type BraketClient struct {
	braket    *braket.Client
	iam       *iam.Client
	sts       *sts.Client
	workspace *Config
}

// NewBraketClient loads the default credential chain for the region and
// wires up the service clients.
func NewBraketClient(ctx context.Context, region string, workspace *Config) (*BraketClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &BraketClient{
		braket:    braket.NewFromConfig(cfg),
		iam:       iam.NewFromConfig(cfg),
		sts:       sts.NewFromConfig(cfg),
		workspace: workspace,
	}, nil
}

// AccountID resolves the caller's AWS account.
func (c *BraketClient) AccountID(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

/*
Roles lists every IAM role visible to the caller together with its attached
policies, logging them as it goes. The hybrid-job loop tries each in turn.
*/
func (c *BraketClient) Roles(ctx context.Context) ([]RoleInfo, error) {
	log.Println("checking roles")
	out, err := c.iam.ListRoles(ctx, &iam.ListRolesInput{})
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}

	roles := make([]RoleInfo, 0, len(out.Roles))
	for _, role := range out.Roles {
		info := RoleInfo{
			Name: aws.ToString(role.RoleName),
			Arn:  aws.ToString(role.Arn),
		}
		log.Printf("role name: %s", info.Name)

		policies, err := c.iam.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
			RoleName: role.RoleName,
		})
		if err != nil {
			return nil, fmt.Errorf("listing policies for role %s: %w", info.Name, err)
		}
		for _, policy := range policies.AttachedPolicies {
			name := aws.ToString(policy.PolicyName)
			log.Printf("policy name: %s", name)
			info.Policies = append(info.Policies, name)
		}
		roles = append(roles, info)
	}
	return roles, nil
}

/*
SubmitHybridJob creates a hybrid job on the device under the given role and
returns its ARN. Output lands in the workspace's Braket bucket.
*/
func (c *BraketClient) SubmitHybridJob(ctx context.Context, params HybridJobParams) (string, error) {
	bucket, key := c.workspace.S3Folder(params.Name)

	out, err := c.braket.CreateJob(ctx, &braket.CreateJobInput{
		JobName: aws.String(params.Name),
		RoleArn: aws.String(params.RoleArn),
		AlgorithmSpecification: &braketypes.AlgorithmSpecification{
			ScriptModeConfig: &braketypes.ScriptModeConfig{
				EntryPoint: aws.String(params.EntryPoint),
				S3Uri:      aws.String(params.ScriptS3URI),
			},
		},
		DeviceConfig: &braketypes.DeviceConfig{
			Device: aws.String(params.DeviceArn),
		},
		OutputDataConfig: &braketypes.JobOutputDataConfig{
			S3Path: aws.String(fmt.Sprintf("s3://%s/%s", bucket, key)),
		},
		InstanceConfig: &braketypes.InstanceConfig{
			InstanceType:   braketypes.InstanceType("ml.m5.large"),
			VolumeSizeInGb: aws.Int32(30),
		},
		HyperParameters: params.Hyperparameters,
		Tags:            c.workspace.Tags(),
	})
	if err != nil {
		return "", err
	}
	arn := aws.ToString(out.JobArn)
	errnie.Info("submitted hybrid job %s", arn)
	return arn, nil
}

// HybridJobStatus maps the provider's job state onto JobStatus.
func (c *BraketClient) HybridJobStatus(ctx context.Context, jobArn string) (*JobStatus, error) {
	out, err := c.braket.GetJob(ctx, &braket.GetJobInput{
		JobArn: aws.String(jobArn),
	})
	if err != nil {
		return nil, err
	}
	status := &JobStatus{
		ID:    jobArn,
		State: mapProviderState(string(out.Status)),
	}
	if out.FailureReason != nil {
		status.Error = aws.ToString(out.FailureReason)
	}
	return status, nil
}

func mapProviderState(s string) JobState {
	switch s {
	case "CREATED", "QUEUED":
		return JobQueued
	case "RUNNING", "CANCELLING":
		return JobRunning
	case "COMPLETED":
		return JobCompleted
	case "FAILED":
		return JobFailed
	case "CANCELLED":
		return JobCancelled
	default:
		return JobRunning
	}
}

// WaitForHybridJob polls a hybrid job until it reaches a terminal state.
func (c *BraketClient) WaitForHybridJob(ctx context.Context, jobArn string, interval time.Duration) (*JobStatus, error) {
	return pollStatus(ctx, c.HybridJobStatus, jobArn, interval)
}

/*
BraketBackend submits standalone circuits as quantum tasks. Measurement
data is written to the configured S3 location by the service; this backend
only tracks the task lifecycle.
*/
type BraketBackend struct {
	Client    *braket.Client
	DeviceArn string
	Bucket    string
	Prefix    string
	Shots     int64
	Tags      map[string]string
}

func (b *BraketBackend) Name() string      { return b.DeviceArn }
func (b *BraketBackend) IsSimulator() bool { return b.DeviceArn == DeviceSV1 || b.DeviceArn == DeviceDM1 || b.DeviceArn == DeviceTN1 }

// openQASMAction is the Braket IR envelope for an OpenQASM program.
type openQASMAction struct {
	BraketSchemaHeader struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"braketSchemaHeader"`
	Source string `json:"source"`
}

func (b *BraketBackend) Submit(ctx context.Context, program Program) (string, error) {
	circuit, ok := program.(*Circuit)
	if !ok {
		return "", fmt.Errorf("braket backend runs gate-level circuits, not %T", program)
	}

	var action openQASMAction
	action.BraketSchemaHeader.Name = "braket.ir.openqasm.program"
	action.BraketSchemaHeader.Version = "1"
	action.Source = circuit.QASM()
	payload, err := json.Marshal(action)
	if err != nil {
		return "", err
	}

	shots := b.Shots
	if shots == 0 {
		shots = 1000
	}
	out, err := b.Client.CreateQuantumTask(ctx, &braket.CreateQuantumTaskInput{
		Action:            aws.String(string(payload)),
		DeviceArn:         aws.String(b.DeviceArn),
		OutputS3Bucket:    aws.String(b.Bucket),
		OutputS3KeyPrefix: aws.String(b.Prefix),
		Shots:             aws.Int64(shots),
		Tags:              b.Tags,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.QuantumTaskArn), nil
}

func (b *BraketBackend) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	out, err := b.Client.GetQuantumTask(ctx, &braket.GetQuantumTaskInput{
		QuantumTaskArn: aws.String(jobID),
		AdditionalAttributeNames: []braketypes.QuantumTaskAdditionalAttributeName{
			braketypes.QuantumTaskAdditionalAttributeName("QueueInfo"),
		},
	})
	if err != nil {
		return nil, err
	}
	status := &JobStatus{
		ID:    jobID,
		State: mapProviderState(string(out.Status)),
	}
	if out.FailureReason != nil {
		status.Error = aws.ToString(out.FailureReason)
	}
	if out.QueueInfo != nil && out.QueueInfo.Position != nil {
		status.QueuePosition = aws.ToString(out.QueueInfo.Position)
	}
	return status, nil
}

func (b *BraketBackend) Result(ctx context.Context, jobID string) (*ExecutionResult, error) {
	status, err := b.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status.State != JobCompleted {
		return nil, fmt.Errorf("task %s is %s, no results yet", jobID, status.State)
	}
	// Measurement data lives in s3://bucket/prefix; fetching and parsing it
	// is the cloud console's job, not this harness's.
	log.Printf("task %s results are in s3://%s/%s", jobID, b.Bucket, b.Prefix)
	return &ExecutionResult{JobID: jobID, BackendName: b.Name()}, nil
}

func (b *BraketBackend) Cancel(ctx context.Context, jobID string) error {
	_, err := b.Client.CancelQuantumTask(ctx, &braket.CancelQuantumTaskInput{
		QuantumTaskArn: aws.String(jobID),
		ClientToken:    aws.String(fmt.Sprintf("cancel-%d", time.Now().UnixNano())),
	})
	return err
}
