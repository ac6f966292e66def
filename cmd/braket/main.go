// Command braket submits the variational solve as an AWS Braket hybrid job,
// trying every IAM role visible to the caller and tolerating access
// denials, then polls each submitted job until it settles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"

	qls "github.com/SURFQuantum/quantum-linear-systems"
)

func main() {
	region := flag.String("region", "eu-west-2", "AWS region")
	configPath := flag.String("config", qls.DefaultConfigPath, "workspace configuration file")
	device := flag.String("device", "sv1", "device name (sv1, ionq, rigetti, oqc)")
	name := flag.String("name", "quantum-linear-systems", "hybrid job name and S3 prefix")
	flag.Parse()

	ctx := context.Background()

	cfg, err := qls.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := qls.NewBraketClient(ctx, *region, cfg)
	if err != nil {
		log.Fatal(err)
	}

	account, err := client.AccountID(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("running as account %s", account)

	deviceArn, err := qls.DeviceForName(*device)
	if err != nil {
		log.Fatal(err)
	}

	roles, err := client.Roles(ctx)
	if err != nil {
		log.Fatal(err)
	}

	model := qls.ClassiqDemoExample()
	bucket, key := cfg.S3Folder(*name)

	for _, role := range roles {
		jobArn, err := client.SubmitHybridJob(ctx, qls.HybridJobParams{
			Name:        *name,
			DeviceArn:   deviceArn,
			RoleArn:     role.Arn,
			ScriptS3URI: fmt.Sprintf("s3://%s/%s/source.tar.gz", bucket, key),
			EntryPoint:  "quantum_linear_systems.vqls",
			Hyperparameters: map[string]string{
				"problem": model.Name,
				"qubits":  strconv.Itoa(model.Qubits()),
				"reps":    "3",
				"maxiter": "250",
			},
		})
		if err != nil {
			if qls.IsAccessDenied(err) {
				fmt.Printf("Access denied for %s when trying to submit.\n", role.Name)
			} else {
				fmt.Println("An unexpected error occurred.")
			}
			continue
		}

		status, err := client.WaitForHybridJob(ctx, jobArn, cfg.PollInterval)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Job %s finished with status %s.\n", jobArn, status.State)
	}
}
