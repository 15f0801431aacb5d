package secrets

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/cockroachdb/errors"
)

// AWSStore reads secrets from a single AWS Secrets Manager secret holding a
// JSON object of key to value. The secret is fetched once and cached.
type AWSStore struct {
	client   secretsmanageriface.SecretsManagerAPI
	secretID string

	mu struct {
		sync.Mutex
		values map[string]string
	}
}

func NewAWSStore(sess *session.Session, secretID string) *AWSStore {
	return NewAWSStoreWithClient(secretsmanager.New(sess), secretID)
}

func NewAWSStoreWithClient(
	client secretsmanageriface.SecretsManagerAPI, secretID string,
) *AWSStore {
	return &AWSStore{client: client, secretID: secretID}
}

func (s *AWSStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.values == nil {
		values, err := s.fetch(ctx)
		if err != nil {
			return "", err
		}
		s.mu.values = values
	}
	v, ok := s.mu.values[key]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "key %s in secret %s", key, s.secretID)
	}
	return v, nil
}

func (s *AWSStore) fetch(ctx context.Context) (map[string]string, error) {
	out, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching secret %s", s.secretID)
	}
	if out.SecretString == nil {
		return nil, errors.Newf("secret %s has no string value", s.secretID)
	}
	// Port is commonly stored as a number.
	var raw map[string]any
	if err := json.Unmarshal([]byte(aws.StringValue(out.SecretString)), &raw); err != nil {
		return nil, errors.Wrapf(err, "secret %s is not a JSON object", s.secretID)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			values[k] = v
		case float64:
			values[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, errors.Newf("secret %s key %s has unsupported value type %T", s.secretID, k, v)
		}
	}
	return values, nil
}
