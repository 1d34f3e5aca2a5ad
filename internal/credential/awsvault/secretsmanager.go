// Package awsvault implements the RemoteVault CredentialStore variant
// backed by AWS Secrets Manager, grounded on the teacher's exec-shelling
// secret resolvers (internal/secrets/ssm.go) but using the AWS SDK for Go v2
// directly instead of shelling out to the aws CLI.
package awsvault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/credential"
)

// client is the subset of *secretsmanager.Client this store calls,
// narrowed for testability.
type client interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	DeleteSecret(ctx context.Context, in *secretsmanager.DeleteSecretInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, in *secretsmanager.ListSecretsInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// Store implements credential.Store against a single AWS Secrets Manager
// secret per service, storing each service's keys as a JSON object so
// credential.Store.List doesn't require one API call per key.
type Store struct {
	client client
	prefix string
}

// NewStore builds a Store from a resolved AWS region and secret name
// prefix (e.g. "aquaman"), loading default AWS credentials the way the
// standard SDK config loader does (environment, shared config, IMDS, SSO).
func NewStore(ctx context.Context, region, prefix string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Store{client: secretsmanager.NewFromConfig(cfg), prefix: prefix}, nil
}

func (s *Store) secretName(service string) string {
	return strings.Join([]string{s.prefix, service}, "/")
}

func (s *Store) readServiceSecrets(ctx context.Context, service string) (map[string]string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName(service)),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if isResourceNotFound(err, &rnf) {
			return map[string]string{}, nil
		}
		return nil, &apperror.BackendUnavailable{Backend: "aws-secrets-manager", Reason: err.Error()}
	}

	values := map[string]string{}
	if out.SecretString != nil {
		if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
			return nil, &apperror.InvalidFormat{Reason: "secret value is not a JSON object"}
		}
	}
	return values, nil
}

func isResourceNotFound(err error, target **types.ResourceNotFoundException) bool {
	e, ok := err.(*types.ResourceNotFoundException)
	if ok {
		*target = e
	}
	return ok
}

func (s *Store) writeServiceSecrets(ctx context.Context, service string, values map[string]string) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling secret payload: %w", err)
	}

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(s.secretName(service)),
		SecretString: aws.String(string(payload)),
	})
	if err == nil {
		return nil
	}

	var rnf *types.ResourceNotFoundException
	if !isResourceNotFound(err, &rnf) {
		return &apperror.BackendUnavailable{Backend: "aws-secrets-manager", Reason: err.Error()}
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.secretName(service)),
		SecretString: aws.String(string(payload)),
	})
	if err != nil {
		return &apperror.BackendUnavailable{Backend: "aws-secrets-manager", Reason: err.Error()}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, service, key string) (string, error) {
	values, err := s.readServiceSecrets(ctx, service)
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", &apperror.CredentialNotFound{Service: service, Key: key}
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, service, key, value string) error {
	values, err := s.readServiceSecrets(ctx, service)
	if err != nil {
		return err
	}
	values[key] = value
	return s.writeServiceSecrets(ctx, service, values)
}

func (s *Store) Delete(ctx context.Context, service, key string) error {
	values, err := s.readServiceSecrets(ctx, service)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.writeServiceSecrets(ctx, service, values)
}

// serviceFromSecretName reverses secretName, recovering the service portion
// of an AWS secret name this store created.
func (s *Store) serviceFromSecretName(name string) (string, bool) {
	prefixStr := s.prefix + "/"
	if !strings.HasPrefix(name, prefixStr) {
		return "", false
	}
	return strings.TrimPrefix(name, prefixStr), true
}

// listServiceNames enumerates every service this store has a secret for,
// paginating through ListSecrets.
func (s *Store) listServiceNames(ctx context.Context) ([]string, error) {
	var names []string
	var nextToken *string
	for {
		out, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{NextToken: nextToken})
		if err != nil {
			return nil, &apperror.BackendUnavailable{Backend: "aws-secrets-manager", Reason: err.Error()}
		}
		for _, entry := range out.SecretList {
			if entry.Name == nil {
				continue
			}
			if service, ok := s.serviceFromSecretName(*entry.Name); ok {
				names = append(names, service)
			}
		}
		if out.NextToken == nil {
			return names, nil
		}
		nextToken = out.NextToken
	}
}

func refsForService(service string, values map[string]string) []credential.CredentialRef {
	out := make([]credential.CredentialRef, 0, len(values))
	for k := range values {
		out = append(out, credential.CredentialRef{Service: service, Key: k})
	}
	return out
}

// List returns the (service, key) refs for service, or — when service is
// empty — across every service this store holds a secret for.
func (s *Store) List(ctx context.Context, service string) ([]credential.CredentialRef, error) {
	if service != "" {
		values, err := s.readServiceSecrets(ctx, service)
		if err != nil {
			return nil, err
		}
		return refsForService(service, values), nil
	}

	names, err := s.listServiceNames(ctx)
	if err != nil {
		return nil, err
	}
	var out []credential.CredentialRef
	for _, svc := range names {
		values, err := s.readServiceSecrets(ctx, svc)
		if err != nil {
			return nil, err
		}
		out = append(out, refsForService(svc, values)...)
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, service, key string) (bool, error) {
	values, err := s.readServiceSecrets(ctx, service)
	if err != nil {
		return false, err
	}
	_, ok := values[key]
	return ok, nil
}

// Probe lists at most one secret to confirm credentials and network access
// are usable, mirroring the teacher's availability-check pattern.
func (s *Store) Probe(ctx context.Context) error {
	_, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return &apperror.BackendUnavailable{Backend: "aws-secrets-manager", Reason: err.Error()}
	}
	return nil
}
