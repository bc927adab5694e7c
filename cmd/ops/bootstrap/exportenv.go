package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// exportEnv reads the bootstrap parameters back from SSM and writes a
// .env file for local development. An existing file is never
// overwritten.
func exportEnv(ctx context.Context, manager *Manager, region, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, move it aside first", path)
	}

	databaseURL, err := manager.GetSecret(ctx, paramDatabaseURL)
	if err != nil {
		return err
	}
	tokenHash, err := manager.GetSecret(ctx, paramAPITokenHash)
	if err != nil {
		return err
	}

	content := renderEnvFile(region, databaseURL, tokenHash)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// renderEnvFile builds the .env content. APP_ENV=local makes the config
// loader skip SSM and read these values directly.
func renderEnvFile(region, databaseURL, tokenHash string) string {
	var b strings.Builder
	b.WriteString("# Generated by cmd/ops/bootstrap --export-env\n")
	b.WriteString("APP_ENV=local\n")
	b.WriteString("AWS_REGION=" + region + "\n")
	b.WriteString("DATABASE_URL=" + databaseURL + "\n")
	b.WriteString("API_TOKEN_HASH=" + tokenHash + "\n")
	b.WriteString("# SQS_REPORTS=http://localhost:4566/000000000000/potager-reports\n")
	return b.String()
}
