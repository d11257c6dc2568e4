// Package calendar applies calendar actions to Google Calendar.
package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/coworker/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/coworker/internal/connectors/google"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

var _ driven.CalendarClient = (*Client)(nil)

// DefaultRateLimit keeps well under the Calendar API per-user quota.
var DefaultRateLimit = ratelimit.Config{RequestsPerSecond: 5, BurstSize: 5}

// Client performs insert, update and delete on Google Calendar.
type Client struct {
	svc     *gcal.Service
	limiter *ratelimit.Limiter
}

// New creates a calendar client from a token source.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	svc, err := google.NewCalendarService(ctx, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc, limiter: ratelimit.New(DefaultRateLimit)}, nil
}

// Apply validates the action and performs it, returning the event id.
func (c *Client) Apply(ctx context.Context, action domain.CalendarAction) (string, error) {
	if err := action.Validate(); err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ref := action.Event
	switch action.Action {
	case domain.CalendarInsert:
		ev, err := c.svc.Events.Insert(ref.CalendarID, toEvent(ref.RequestBody)).Context(ctx).Do()
		if err != nil {
			return "", c.fail(err)
		}
		return ev.Id, nil

	case domain.CalendarUpdate:
		ev, err := c.svc.Events.Update(ref.CalendarID, ref.EventID, toEvent(ref.RequestBody)).Context(ctx).Do()
		if err != nil {
			return "", c.fail(err)
		}
		return ev.Id, nil

	case domain.CalendarDelete:
		if err := c.svc.Events.Delete(ref.CalendarID, ref.EventID).Context(ctx).Do(); err != nil {
			return "", c.fail(err)
		}
		return ref.EventID, nil
	}
	return "", fmt.Errorf("%w: unknown calendar action %q", domain.ErrSchemaValidation, action.Action)
}

// fail backs off the limiter on rate limiting and maps the error.
func (c *Client) fail(err error) error {
	if google.IsRateLimited(err) {
		c.limiter.Backoff(0)
	}
	return google.MapError(err)
}

func toEvent(body *domain.EventBody) *gcal.Event {
	return &gcal.Event{
		Summary:     body.Summary,
		Description: body.Description,
		Start:       toEventDateTime(body.Start),
		End:         toEventDateTime(body.End),
	}
}

func toEventDateTime(t domain.EventTime) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		Date:     t.Date,
		DateTime: t.DateTime,
		TimeZone: t.TimeZone,
	}
}
