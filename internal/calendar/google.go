package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Окно слота короткое, двадцати событий хватает с запасом
const listMaxResults = 20

// GoogleClient клиент Google Calendar API v3
type GoogleClient struct {
	srv    *gcal.Service
	logger *zap.Logger
}

// NewGoogleClient создаёт клиент. Авторизация и endpoint передаются опциями
func NewGoogleClient(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*GoogleClient, error) {
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleClient{srv: srv, logger: logger}, nil
}

// NewHTTPClient строит авторизованный HTTP клиент из файла учётных данных.
// Ключ сервисного аккаунта используется напрямую, для OAuth клиента
// нужен сохранённый токен в tokenFile.
func NewHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar credentials: %w", err)
	}

	if jwtConfig, err := google.JWTConfigFromJSON(data, gcal.CalendarEventsScope); err == nil {
		return jwtConfig.Client(ctx), nil
	}

	config, err := google.ConfigFromJSON(data, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse calendar credentials: %w", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parse calendar token: %w", err)
	}

	return config.Client(ctx, &token), nil
}

// ListEventsInWindow возвращает развёрнутые события окна по времени начала
func (c *GoogleClient) ListEventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error) {
	resp, err := c.srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(listMaxResults).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, fromGoogleEvent(item))
	}

	c.logger.Debug("Calendar events listed",
		zap.String("calendar_id", calendarID),
		zap.Time("start", start),
		zap.Int("count", len(events)),
	)

	return events, nil
}

// CreateEvent создаёт событие и возвращает его id
func (c *GoogleClient) CreateEvent(ctx context.Context, calendarID string, event Event) (string, error) {
	created, err := c.srv.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent частично обновляет событие (PATCH)
func (c *GoogleClient) UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) error {
	if _, err := c.srv.Events.Patch(calendarID, eventID, toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent удаляет событие
func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.srv.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func toGoogleEvent(event Event) *gcal.Event {
	return &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}
}

func fromGoogleEvent(item *gcal.Event) Event {
	event := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
	}

	if item.Start != nil {
		event.Start = parseEventTime(item.Start)
		event.TimeZone = item.Start.TimeZone
	}
	if item.End != nil {
		event.End = parseEventTime(item.End)
	}

	return event
}

// parseEventTime разбирает dateTime, а для событий на весь день - date
func parseEventTime(dt *gcal.EventDateTime) time.Time {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	} else if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
