// Package secrets resolves the database credentials a run connects with.
package secrets

import (
	"context"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	KeyHost     = "postgres_host"
	KeyPort     = "postgres_port"
	KeyDBName   = "postgres_dbname"
	KeyUser     = "postgres_user"
	KeyPassword = "postgres_pw"
)

const DefaultPort = "5432"

// ErrNotFound is returned by a Store that has no value for a key.
var ErrNotFound = errors.New("secret not found")

// Store looks up secret values by name.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvStore reads secrets from environment variables named after the upper
// cased key, e.g. POSTGRES_HOST.
type EnvStore struct {
	// Prefix is prepended to every variable name.
	Prefix string
}

func (s EnvStore) Get(ctx context.Context, key string) (string, error) {
	name := s.Prefix + strings.ToUpper(key)
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "environment variable %s", name)
	}
	return v, nil
}

// FileStore reads secrets from a flat YAML mapping of key to value.
type FileStore struct {
	values map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading secrets file %s", path)
	}
	return ParseFileStore(data)
}

func ParseFileStore(data []byte) (*FileStore, error) {
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "error parsing secrets file")
	}
	return &FileStore{values: values}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "key %s", key)
	}
	return v, nil
}

// Credentials are the values needed to reach the datamart database.
type Credentials struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
}

// LoadCredentials resolves every connection secret from the store.
func LoadCredentials(ctx context.Context, store Store) (Credentials, error) {
	var c Credentials
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyHost, &c.Host},
		{KeyPort, &c.Port},
		{KeyDBName, &c.DBName},
		{KeyUser, &c.User},
		{KeyPassword, &c.Password},
	} {
		v, err := store.Get(ctx, f.key)
		if err != nil {
			return Credentials{}, errors.Wrapf(err, "error loading secret %s", f.key)
		}
		*f.dst = v
	}
	if c.Host == "" || c.DBName == "" || c.User == "" {
		return Credentials{}, errors.Newf("%s, %s and %s must not be empty", KeyHost, KeyDBName, KeyUser)
	}
	return c, nil
}

// ConnStr returns a postgres URL for the credentials. The port defaults to
// DefaultPort.
func (c Credentials) ConnStr() string {
	port := c.Port
	if port == "" {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, port),
		Path:   "/" + c.DBName,
	}
	return u.String()
}
