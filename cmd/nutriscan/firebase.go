package main

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
)

const (
	CredentialsPathEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
	CredentialsJsonEnvVar = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
)

// configureFirebaseCredentials points GOOGLE_APPLICATION_CREDENTIALS at a file. Hosts
// that can only set env vars pass the JSON itself, which is written to a temp file.
func configureFirebaseCredentials(log *zap.Logger) error {
	if credentialsPath, ok := os.LookupEnv(CredentialsPathEnvVar); ok {
		log.Info("using credentials file from env", zap.String("path", credentialsPath))
		return nil
	}
	credentialsJson, ok := os.LookupEnv(CredentialsJsonEnvVar)
	if !ok {
		return fmt.Errorf("must specify either %v (a path)"+
			" or %v (credentials as JSON string)", CredentialsPathEnvVar, CredentialsJsonEnvVar)
	}
	log.Info("credentials JSON string detected in env")
	file, err := os.CreateTemp("", "google-application-credentials-*.json")
	if err != nil {
		return fmt.Errorf("error creating credentials file: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(credentialsJson); err != nil {
		return fmt.Errorf("error writing credentials to temp file: %w", err)
	}
	if err := os.Setenv(CredentialsPathEnvVar, file.Name()); err != nil {
		return fmt.Errorf("error setting %v env var: %w", CredentialsPathEnvVar, err)
	}
	return nil
}

func newFirebaseApp(ctx context.Context, log *zap.Logger) (*firebase.App, error) {
	if err := configureFirebaseCredentials(log); err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase: %w", err)
	}
	return app, nil
}
