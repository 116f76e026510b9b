package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

type feedbackListInput struct {
	APIKey   string   `json:"api_key,omitempty"`
	Search   string   `json:"search,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Sort     string   `json:"sort,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Where    string   `json:"where,omitempty"`
	Public   bool     `json:"public,omitempty"`
}

type feedbackListOutput struct {
	Items []domain.Item `json:"items"`
	Total int           `json:"total"`
}

type feedbackCreateInput struct {
	APIKey  string   `json:"api_key,omitempty"`
	Title   string   `json:"title" jsonschema:"required"`
	Summary string   `json:"summary" jsonschema:"required"`
	Status  string   `json:"status,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	Author  string   `json:"author,omitempty"`
}

type feedbackUpdateInput struct {
	APIKey  string    `json:"api_key,omitempty"`
	ID      string    `json:"id" jsonschema:"required"`
	Title   *string   `json:"title,omitempty"`
	Summary *string   `json:"summary,omitempty"`
	Status  *string   `json:"status,omitempty"`
	Labels  *[]string `json:"labels,omitempty"`
	Author  *string   `json:"author,omitempty"`
}

type feedbackIDInput struct {
	APIKey string `json:"api_key,omitempty"`
	ID     string `json:"id" jsonschema:"required"`
}

type feedbackCommentInput struct {
	APIKey   string `json:"api_key,omitempty"`
	ID       string `json:"id" jsonschema:"required"`
	Content  string `json:"content" jsonschema:"required"`
	Author   string `json:"author,omitempty"`
	Internal bool   `json:"internal,omitempty"`
}

type feedbackUpvoteInput struct {
	APIKey   string `json:"api_key,omitempty"`
	ID       string `json:"id" jsonschema:"required"`
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

type deletedOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func registerFeedbackTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("feedback.list").
		Description("List feedback items with filters, sorting and an optional where expression").
		Handler(func(ctx context.Context, input feedbackListInput) (feedbackListOutput, error) {
			return listFeedback(ctx, app, input)
		})

	srv.Tool("feedback.get").
		Description("Get a feedback item by id").
		Handler(func(ctx context.Context, input feedbackIDInput) (domain.Item, error) {
			board, err := boardFor(ctx, app, input.APIKey)
			if err != nil {
				return domain.Item{}, err
			}
			return getItem(board, input.ID)
		})

	srv.Tool("feedback.create").
		Description("Create a feedback item").
		Handler(func(ctx context.Context, input feedbackCreateInput) (domain.Item, error) {
			return createFeedback(ctx, app, input)
		})

	srv.Tool("feedback.update").
		Description("Update fields of a feedback item; labels replace the whole set").
		Handler(func(ctx context.Context, input feedbackUpdateInput) (domain.Item, error) {
			return updateFeedback(ctx, app, input)
		})

	srv.Tool("feedback.delete").
		Description("Delete a feedback item").
		Handler(func(ctx context.Context, input feedbackIDInput) (deletedOutput, error) {
			board, err := boardFor(ctx, app, input.APIKey)
			if err != nil {
				return deletedOutput{}, err
			}
			_, existed := board.Get(input.ID)
			board.Delete(ctx, input.ID)
			return deletedOutput{ID: input.ID, Deleted: existed}, nil
		})

	srv.Tool("feedback.comment").
		Description("Add a comment to a feedback item").
		Handler(func(ctx context.Context, input feedbackCommentInput) (domain.Comment, error) {
			return commentFeedback(ctx, app, input)
		})

	srv.Tool("feedback.upvote").
		Description("Upvote a feedback item").
		Handler(func(ctx context.Context, input feedbackUpvoteInput) (domain.Upvote, error) {
			return upvoteFeedback(ctx, app, input)
		})

	srv.Tool("feedback.unvote").
		Description("Remove every upvote a user gave a feedback item").
		Handler(func(ctx context.Context, input feedbackUpvoteInput) (domain.Item, error) {
			board, err := boardFor(ctx, app, input.APIKey)
			if err != nil {
				return domain.Item{}, err
			}
			user := input.UserID
			if user == "" {
				user = app.CurrentUserID
			}
			board.RemoveUpvote(ctx, input.ID, user)
			return getItem(board, input.ID)
		})

	srv.Tool("feedback.labels").
		Description("List the labels items can carry").
		Handler(func(ctx context.Context, input struct{}) ([]domain.Label, error) {
			return domain.BuiltinLabels(), nil
		})

	return nil
}

func boardFor(ctx context.Context, app *cli.App, apiKey string) (*application.Board, error) {
	if app == nil || app.Boards == nil {
		return nil, cli.ErrNotInitialized
	}
	return app.Board(ctx, apiKey)
}

func getItem(board *application.Board, id string) (domain.Item, error) {
	if id == "" {
		return domain.Item{}, errors.New("id is required")
	}
	item, ok := board.Get(id)
	if !ok {
		return domain.Item{}, fmt.Errorf("feedback %s not found", id)
	}
	return item, nil
}

func listFeedback(ctx context.Context, app *cli.App, input feedbackListInput) (feedbackListOutput, error) {
	if app == nil || app.ListItems == nil {
		return feedbackListOutput{}, cli.ErrNotInitialized
	}
	ns, err := app.Namespace(ctx, input.APIKey)
	if err != nil {
		return feedbackListOutput{}, err
	}

	criteria := domain.Criteria{Search: input.Search, Sort: domain.SortKey(input.Sort)}
	if criteria.Statuses, err = parseStatuses(input.Statuses); err != nil {
		return feedbackListOutput{}, err
	}
	labels, err := resolveLabels(input.Labels)
	if err != nil {
		return feedbackListOutput{}, err
	}
	criteria.LabelIDs = labelIDs(labels)
	if criteria.From, err = parseDate(input.From); err != nil {
		return feedbackListOutput{}, err
	}
	if criteria.To, err = parseEndDate(input.To); err != nil {
		return feedbackListOutput{}, err
	}

	items, err := app.ListItems.Handle(ctx, queries.ListItemsQuery{
		Namespace:  ns,
		Criteria:   criteria,
		Where:      input.Where,
		PublicOnly: input.Public,
	})
	if err != nil {
		return feedbackListOutput{}, err
	}
	return feedbackListOutput{Items: items, Total: len(items)}, nil
}

func createFeedback(ctx context.Context, app *cli.App, input feedbackCreateInput) (domain.Item, error) {
	board, err := boardFor(ctx, app, input.APIKey)
	if err != nil {
		return domain.Item{}, err
	}
	labels, err := resolveLabels(input.Labels)
	if err != nil {
		return domain.Item{}, err
	}
	return board.Create(ctx, domain.Draft{
		Title:   input.Title,
		Summary: input.Summary,
		Status:  domain.Status(input.Status),
		Labels:  labels,
		Author:  input.Author,
	})
}

func updateFeedback(ctx context.Context, app *cli.App, input feedbackUpdateInput) (domain.Item, error) {
	board, err := boardFor(ctx, app, input.APIKey)
	if err != nil {
		return domain.Item{}, err
	}
	if _, err := getItem(board, input.ID); err != nil {
		return domain.Item{}, err
	}

	patch := domain.Patch{
		Title:   input.Title,
		Summary: input.Summary,
		Author:  input.Author,
	}
	if input.Status != nil {
		st := domain.Status(*input.Status)
		patch.Status = &st
	}
	if input.Labels != nil {
		labels, err := resolveLabels(*input.Labels)
		if err != nil {
			return domain.Item{}, err
		}
		patch.Labels = &labels
	}
	if patch.IsEmpty() {
		return domain.Item{}, errors.New("nothing to update")
	}
	if err := board.Update(ctx, input.ID, patch); err != nil {
		return domain.Item{}, err
	}
	return getItem(board, input.ID)
}

func commentFeedback(ctx context.Context, app *cli.App, input feedbackCommentInput) (domain.Comment, error) {
	board, err := boardFor(ctx, app, input.APIKey)
	if err != nil {
		return domain.Comment{}, err
	}
	if _, err := getItem(board, input.ID); err != nil {
		return domain.Comment{}, err
	}
	author := input.Author
	if author == "" {
		author = "Admin"
	}
	return board.AddComment(ctx, input.ID, domain.CommentInput{
		Content:  input.Content,
		Author:   author,
		IsPublic: !input.Internal,
	})
}

func upvoteFeedback(ctx context.Context, app *cli.App, input feedbackUpvoteInput) (domain.Upvote, error) {
	board, err := boardFor(ctx, app, input.APIKey)
	if err != nil {
		return domain.Upvote{}, err
	}
	if _, err := getItem(board, input.ID); err != nil {
		return domain.Upvote{}, err
	}
	user := input.UserID
	if user == "" {
		user = app.CurrentUserID
	}
	if user == "" {
		return domain.Upvote{}, errors.New("user_id is required")
	}
	name := input.UserName
	if name == "" {
		name = user
	}
	return board.AddUpvote(ctx, input.ID, domain.UpvoteInput{UserID: user, UserName: name}), nil
}
