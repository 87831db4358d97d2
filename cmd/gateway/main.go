package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/authgate/lambda-oidc-gateway/gateway"
	"github.com/authgate/lambda-oidc-gateway/internal/config"
	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/oidcprovider"
	"github.com/authgate/lambda-oidc-gateway/sessions"
	"github.com/authgate/lambda-oidc-gateway/sessions/dynamorepo"
	"github.com/authgate/lambda-oidc-gateway/views"
)

func main() {
	g, err := build(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("gateway initialisation failed")
	}
	lambda.Start(g.Invoke)
}

// build wires the gateway's collaborators once per cold start. Each
// invocation is otherwise stateless: the only shared mutable resource is the
// session table.
func build(ctx context.Context) (*gateway.Gateway, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, "load aws config")
	}
	repo := dynamorepo.New(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.SidIndexName)
	store := sessions.NewStore(repo)

	provider, err := oidcprovider.New(ctx, cfg.Authority, cfg.ClientID, cfg.ClientSecret, cfg.Scopes)
	if err != nil {
		return nil, err
	}

	return gateway.New(cfg, store, provider, views.DefaultRegistry()), nil
}
