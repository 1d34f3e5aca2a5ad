package awsvault

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/require"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/credential"
)

type fakeClient struct {
	secrets map[string]string // secretName -> JSON payload
}

func newFakeClient() *fakeClient {
	return &fakeClient{secrets: map[string]string{}}
}

func (f *fakeClient) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	payload, ok := f.secrets[*in.SecretId]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(payload)}, nil
}

func (f *fakeClient) PutSecretValue(_ context.Context, in *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	if _, ok := f.secrets[*in.SecretId]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	f.secrets[*in.SecretId] = *in.SecretString
	return &secretsmanager.PutSecretValueOutput{}, nil
}

func (f *fakeClient) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.secrets[*in.Name] = *in.SecretString
	return &secretsmanager.CreateSecretOutput{}, nil
}

func (f *fakeClient) DeleteSecret(_ context.Context, in *secretsmanager.DeleteSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	delete(f.secrets, *in.SecretId)
	return &secretsmanager.DeleteSecretOutput{}, nil
}

func (f *fakeClient) ListSecrets(_ context.Context, _ *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	out := &secretsmanager.ListSecretsOutput{}
	for name := range f.secrets {
		out.SecretList = append(out.SecretList, types.SecretListEntry{Name: aws.String(name)})
	}
	return out, nil
}

func newTestStore() *Store {
	return &Store{client: newFakeClient(), prefix: "aquaman-test"}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "anthropic", "api_key", "sk-ant-test"))

	got, err := s.Get(ctx, "anthropic", "api_key")
	require.NoError(t, err)
	require.Equal(t, "sk-ant-test", got)
}

func TestGetMissingKeyReturnsCredentialNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.Get(context.Background(), "anthropic", "api_key")

	var notFound *apperror.CredentialNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteThenExists(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "twilio", "auth_token", "tok"))

	ok, err := s.Exists(ctx, "twilio", "auth_token")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(ctx, "twilio", "auth_token"))

	ok, err = s.Exists(ctx, "twilio", "auth_token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListReturnsStoredKeysForService(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "twilio", "account_sid", "AC123"))
	require.NoError(t, s.Set(ctx, "twilio", "auth_token", "tok"))

	refs, err := s.List(ctx, "twilio")
	require.NoError(t, err)
	require.ElementsMatch(t, []credential.CredentialRef{
		{Service: "twilio", Key: "account_sid"},
		{Service: "twilio", Key: "auth_token"},
	}, refs)
}

func TestListWithEmptyServiceSpansEveryService(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "twilio", "account_sid", "AC123"))
	require.NoError(t, s.Set(ctx, "anthropic", "api_key", "sk-ant-test"))

	refs, err := s.List(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []credential.CredentialRef{
		{Service: "twilio", Key: "account_sid"},
		{Service: "anthropic", Key: "api_key"},
	}, refs)
}

func TestSecretNameIsNamespacedByPrefix(t *testing.T) {
	s := newTestStore()
	require.Equal(t, "aquaman-test/anthropic", s.secretName("anthropic"))
}

func TestReadServiceSecretsRejectsNonObjectPayload(t *testing.T) {
	s := newTestStore()
	fc := s.client.(*fakeClient)
	payload, _ := json.Marshal([]string{"not", "an", "object"})
	fc.secrets[s.secretName("broken")] = string(payload)

	_, err := s.Get(context.Background(), "broken", "key")
	var invalidFormat *apperror.InvalidFormat
	require.ErrorAs(t, err, &invalidFormat)
}
