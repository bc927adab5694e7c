// Package main implements the bootstrap CLI tool for provisioning a
// potager environment.
//
// Deployment reads its secrets from AWS SSM Parameter Store; this tool
// is the way those parameters come into existence before the first
// infrastructure deployment. It collects the database URL, generates
// the API bearer token, writes the bcrypt hash of the token and the
// database URL to SSM as SecureStrings, and prints the plain token once
// for the operator to store.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap --env=dev
//	go run ./cmd/ops/bootstrap --env=dev --export-env
//	go run ./cmd/ops/bootstrap --env=prod --region=eu-west-3
//	go run ./cmd/ops/bootstrap --env=dev --endpoint-url=http://localhost:4566
//
// The tool verifies the active AWS identity via STS before writing
// anything, and an --env=prod run requires typing "yes" at the
// confirmation prompt. With --export-env the parameters are read back
// and written to a .env file for local development.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var validEnvironments = map[string]bool{
	"dev":  true,
	"prod": true,
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/prod) [required]")
	regionFlag := flag.String("region", "eu-west-3", "AWS region")
	endpointFlag := flag.String("endpoint-url", "", "Override the AWS endpoint (LocalStack)")
	databaseURLFlag := flag.String("database-url", "", "Database URL to store (prompted when omitted)")
	exportEnvFlag := flag.Bool("export-env", false, "Read the parameters back and write a .env file for local development")
	exportEnvPath := flag.String("export-env-path", ".env", "Path for the exported .env file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Potager bootstrap tool\n\n")
		fmt.Fprintf(os.Stderr, "Seeds AWS SSM Parameter Store with the secrets a deployment needs.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  bootstrap --env=dev [--region=REGION] [--export-env]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *envFlag == "" {
		fmt.Fprintf(os.Stderr, "error: --env is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if !validEnvironments[*envFlag] {
		fmt.Fprintf(os.Stderr, "error: invalid environment %q (must be dev or prod)\n", *envFlag)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*regionFlag))
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	endpoint := *endpointFlag
	stsClient := sts.NewFromConfig(awsCfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		logger.Error("failed to verify AWS identity, check your credentials", "error", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\nBootstrapping potager\n")
	fmt.Fprintf(os.Stderr, "  environment: %s\n", *envFlag)
	fmt.Fprintf(os.Stderr, "  region:      %s\n", *regionFlag)
	fmt.Fprintf(os.Stderr, "  account:     %s\n", aws.ToString(identity.Account))
	fmt.Fprintf(os.Stderr, "  identity:    %s\n\n", aws.ToString(identity.Arn))

	reader := bufio.NewReader(os.Stdin)

	if *envFlag == "prod" {
		fmt.Fprintf(os.Stderr, "This writes production secrets. Type \"yes\" to continue: ")
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintf(os.Stderr, "aborted\n")
			os.Exit(1)
		}
	}

	databaseURL := strings.TrimSpace(*databaseURLFlag)
	if databaseURL == "" {
		fmt.Fprintf(os.Stderr, "Database URL (postgres://...): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			logger.Error("failed to read database URL", "error", err)
			os.Exit(1)
		}
		databaseURL = strings.TrimSpace(line)
	}
	if databaseURL == "" {
		logger.Error("a database URL is required")
		os.Exit(1)
	}

	ssmClient := ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	manager := NewManagerWithClient(ssmClient, *envFlag, logger)

	token, err := runBootstrap(ctx, manager, databaseURL)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	// The plain token exists only here; SSM stores its bcrypt hash.
	fmt.Fprintf(os.Stderr, "\nAPI bearer token (store it now, it cannot be recovered):\n\n")
	fmt.Fprintf(os.Stdout, "%s\n", token)
	fmt.Fprintf(os.Stderr, "\n")

	if *exportEnvFlag {
		if err := exportEnv(ctx, manager, *regionFlag, *exportEnvPath); err != nil {
			logger.Error("exporting .env failed", "error", err)
			os.Exit(1)
		}
		logger.Info(".env written", "path", *exportEnvPath)
	}

	logger.Info("bootstrap complete", "environment", *envFlag)
}

// runBootstrap generates the API token and writes both secrets to SSM.
// It returns the plain token for the operator.
func runBootstrap(ctx context.Context, manager *Manager, databaseURL string) (string, error) {
	token, err := GenerateAPIToken()
	if err != nil {
		return "", err
	}
	hash, err := HashAPIToken(token)
	if err != nil {
		return "", err
	}

	if err := manager.PutSecret(ctx, paramDatabaseURL, databaseURL); err != nil {
		return "", err
	}
	if err := manager.PutSecret(ctx, paramAPITokenHash, hash); err != nil {
		return "", err
	}
	return token, nil
}
