package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"taskbridge/internal/types"
)

// Client wraps the Google Calendar service for inserting action-item
// events into one configured calendar.
type Client struct {
	srv        *gcal.Service
	calendarID string
	loc        *time.Location
}

// NewClient creates a new Google Calendar client for the given calendar
// and timezone.
func NewClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token, calendarID, timezone string) (*Client, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	httpClient := config.Client(ctx, token)
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	return &Client{srv: srv, calendarID: calendarID, loc: loc}, nil
}

// InsertActionEvent creates one calendar event for an extracted action
// item. Items with a due date become a 14:00-15:00 event on that day;
// items without one start now and run for an hour.
func (c *Client) InsertActionEvent(ctx context.Context, item types.ActionItem) (*gcal.Event, error) {
	event := buildActionEvent(item, c.loc, time.Now().In(c.loc))
	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to insert calendar event: %w", err)
	}
	slog.Info("calendar event created", "summary", item.Action, "event_id", created.Id)
	return created, nil
}

// InsertActionPlan inserts every action in the plan, stopping at the
// first failure. The events created so far are returned either way.
func (c *Client) InsertActionPlan(ctx context.Context, plan *types.ActionPlan) ([]*gcal.Event, error) {
	var created []*gcal.Event
	for i := range plan.Actions {
		event, err := c.InsertActionEvent(ctx, plan.Actions[i])
		if err != nil {
			return created, fmt.Errorf("action %d: %w", i, err)
		}
		created = append(created, event)
	}
	return created, nil
}

func buildActionEvent(item types.ActionItem, loc *time.Location, now time.Time) *gcal.Event {
	var start, end time.Time
	if due, ok := item.DueDate(); ok {
		start = time.Date(due.Year(), due.Month(), due.Day(), 14, 0, 0, 0, loc)
		end = start.Add(time.Hour)
	} else {
		start = now
		end = now.Add(time.Hour)
	}

	return &gcal.Event{
		Summary:     item.Action,
		Description: fmt.Sprintf("Priority: %s, Owner: %s", item.Priority, item.Owner),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
	}
}
