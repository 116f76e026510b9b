package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common board workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("triage_feedback").
		Description("Walk through pending feedback and decide what to publish, label or archive.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Feedback Triage", `Help me triage incoming feedback. Please:

1. Read the featureboard://feedback/pending resource
2. Read featureboard://labels for the labels available

For each pending item:
- Suggest a label (FIX, ANNOUNCEMENT, IMPROVEMENT, FEATURE or BUG)
- Say whether it should go public, stay internal or be archived
- Point out duplicates of items already on the board

Apply the decisions I confirm with feedback.update.`), nil
		})

	srv.Prompt("roadmap_summary").
		Description("Summarize what users ask for most, grouped by label.").
		Argument("limit", "How many top items to include (default 10)", false).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			limit := args["limit"]
			if limit == "" {
				limit = "10"
			}
			return userPrompt("Roadmap Summary", fmt.Sprintf(`Summarize what our users want most.

1. Read featureboard://feedback/public, which is sorted by upvotes
2. Take the top %s items

Group them by label, note the upvote count and the gist of the public
comments, and close with three suggestions for the next release.`, limit)), nil
		})

	srv.Prompt("reply_to_feedback").
		Description("Draft a public reply to a feedback item.").
		Argument("id", "Feedback item id", true).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			id := args["id"]
			if id == "" {
				return nil, fmt.Errorf("id is required")
			}
			return userPrompt("Reply to Feedback", fmt.Sprintf(`Draft a short, friendly public reply to feedback item %s.

Fetch it with feedback.get, read its comments, and thank the author. If the
item is already planned, say so. Show me the draft before posting it with
feedback.comment.`, id)), nil
		})

	return nil
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
