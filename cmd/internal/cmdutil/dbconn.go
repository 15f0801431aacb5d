package cmdutil

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/dbconn"
	"github.com/cockroachdb/typecheck/secrets"
	"github.com/spf13/cobra"
)

const (
	secretsSourceEnv  = "env"
	secretsSourceFile = "file"
	secretsSourceAWS  = "aws"
)

type dbConnConfig struct {
	source        string
	secretsSource string
	secretsFile   string
	envPrefix     string
	awsSecretID   string
	awsRegion     string
}

var dbConnCfg = dbConnConfig{
	secretsSource: secretsSourceEnv,
}

func RegisterDBConnFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.source,
		"source",
		"",
		"URL of the database to check; if unset, credentials are read from --secrets",
	)
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.secretsSource,
		"secrets",
		dbConnCfg.secretsSource,
		"where to read database credentials from: env, file or aws",
	)
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.secretsFile,
		"secrets-file",
		"",
		"YAML file of credentials, used with --secrets=file",
	)
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.envPrefix,
		"secrets-env-prefix",
		"",
		"prefix of the environment variables holding credentials, used with --secrets=env",
	)
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.awsSecretID,
		"aws-secret-id",
		"",
		"AWS Secrets Manager secret holding credentials as JSON, used with --secrets=aws",
	)
	cmd.PersistentFlags().StringVar(
		&dbConnCfg.awsRegion,
		"aws-region",
		"",
		"AWS region of --aws-secret-id (defaults to the SDK's region resolution)",
	)
}

func secretsStore() (secrets.Store, error) {
	switch dbConnCfg.secretsSource {
	case secretsSourceEnv:
		return secrets.EnvStore{Prefix: dbConnCfg.envPrefix}, nil
	case secretsSourceFile:
		if dbConnCfg.secretsFile == "" {
			return nil, errors.Newf("--secrets-file is required with --secrets=%s", secretsSourceFile)
		}
		return secrets.NewFileStore(dbConnCfg.secretsFile)
	case secretsSourceAWS:
		if dbConnCfg.awsSecretID == "" {
			return nil, errors.Newf("--aws-secret-id is required with --secrets=%s", secretsSourceAWS)
		}
		cfg := aws.NewConfig()
		if dbConnCfg.awsRegion != "" {
			cfg = cfg.WithRegion(dbConnCfg.awsRegion)
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "error creating AWS session")
		}
		return secrets.NewAWSStore(sess, dbConnCfg.awsSecretID), nil
	default:
		return nil, errors.Newf("unknown secrets source %q", dbConnCfg.secretsSource)
	}
}

// ConnectDB resolves credentials and opens a connection to the database
// being checked. Credentials are resolved on every call.
func ConnectDB(ctx context.Context) (dbconn.Conn, error) {
	connStr := dbConnCfg.source
	if connStr == "" {
		store, err := secretsStore()
		if err != nil {
			return nil, err
		}
		creds, err := secrets.LoadCredentials(ctx, store)
		if err != nil {
			return nil, err
		}
		connStr = creds.ConnStr()
	}
	return dbconn.Connect(ctx, "datamart", connStr)
}
