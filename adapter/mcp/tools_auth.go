package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	identity "github.com/felixgeelhaar/featureboard/internal/identity/domain"
)

type apiKeyIssueInput struct {
	UserID string `json:"user_id,omitempty"`
}

type apiKeyResolveInput struct {
	APIKey string `json:"api_key" jsonschema:"required"`
}

type apiKeyOutput struct {
	UserID string `json:"userId"`
	APIKey string `json:"apiKey,omitempty"`
	Known  bool   `json:"known"`
}

type loginInput struct {
	Email    string `json:"email" jsonschema:"required"`
	Password string `json:"password" jsonschema:"required"`
}

type signupInput struct {
	Email    string `json:"email" jsonschema:"required"`
	Password string `json:"password" jsonschema:"required"`
	Name     string `json:"name" jsonschema:"required"`
}

func registerAuthTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("apikey.issue").
		Description("Get the API key of a user, issuing one on first use").
		Handler(func(ctx context.Context, input apiKeyIssueInput) (apiKeyOutput, error) {
			return issueAPIKey(ctx, app, input)
		})

	srv.Tool("apikey.resolve").
		Description("Find the user owning an API key").
		Handler(func(ctx context.Context, input apiKeyResolveInput) (apiKeyOutput, error) {
			if app == nil || app.Keys == nil {
				return apiKeyOutput{}, cli.ErrNotInitialized
			}
			owner, ok, err := app.Keys.ResolveAPIKey(ctx, input.APIKey)
			if err != nil {
				return apiKeyOutput{}, err
			}
			return apiKeyOutput{UserID: owner, Known: ok}, nil
		})

	srv.Tool("auth.login").
		Description("Check demo account credentials").
		Handler(func(ctx context.Context, input loginInput) (identity.User, error) {
			if app == nil || app.Accounts == nil {
				return identity.User{}, cli.ErrNotInitialized
			}
			return app.Accounts.Login(ctx, input.Email, input.Password)
		})

	srv.Tool("auth.signup").
		Description("Register a demo account").
		Handler(func(ctx context.Context, input signupInput) (identity.User, error) {
			if app == nil || app.Accounts == nil {
				return identity.User{}, cli.ErrNotInitialized
			}
			return app.Accounts.Signup(ctx, input.Email, input.Password, input.Name)
		})

	return nil
}

func issueAPIKey(ctx context.Context, app *cli.App, input apiKeyIssueInput) (apiKeyOutput, error) {
	if app == nil || app.Keys == nil {
		return apiKeyOutput{}, cli.ErrNotInitialized
	}
	user := input.UserID
	if user == "" {
		user = app.CurrentUserID
	}
	if user == "" {
		return apiKeyOutput{}, errors.New("user_id is required")
	}
	key, err := app.Keys.GetOrCreateAPIKey(ctx, user)
	if err != nil {
		return apiKeyOutput{}, err
	}
	return apiKeyOutput{UserID: user, APIKey: key, Known: true}, nil
}
