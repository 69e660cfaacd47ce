// Package notify posts generation outcomes to a Slack-compatible webhook so
// operators can watch degraded results and failures without tailing logs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mealsuggest"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// PostResult formats and posts the outcome of one generation run.
func (c *Client) PostResult(ctx context.Context, channel string, session *mealsuggest.Session, suggestions []mealsuggest.MealSuggestion, runErr error) error {
	return c.PostMessage(ctx, channel, FormatResult(session, suggestions, runErr))
}

// FormatResult renders a one-line-per-fact summary of a generation run.
func FormatResult(session *mealsuggest.Session, suggestions []mealsuggest.MealSuggestion, runErr error) string {
	if runErr != nil {
		return fmt.Sprintf("Suggestion generation failed: %v", runErr)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d suggestion(s) for user %s (session %s, %.0f kcal target):\n", len(suggestions), session.UserID, session.ID, session.TargetCalories)
	for _, s := range suggestions {
		fmt.Fprintf(&b, "- %s (%.0f kcal, %d min)\n", s.Name, s.Macros.Calories, s.PrepTimeMinutes)
	}
	return b.String()
}
