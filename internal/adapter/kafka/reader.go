package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"hazardwatch/internal/domain"
)

// EventHandler consumes one decoded alert event. Implemented by the alert
// engine.
type EventHandler interface {
	Process(ctx context.Context, ev domain.AlertEvent) error
}

// Reader consumes the realtime alert change feed. The feed delivers inserted
// and updated alert rows with at-least-once semantics; downstream dedup
// handles redelivery.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer for the alert change-feed topic.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: 0, // explicit commits
	})
	return &Reader{reader: r, logger: logger}
}

// Run consumes messages until the context is cancelled, handing each decoded
// event to the handler. Undecodable messages are logged, committed, and
// skipped; a malformed row must never wedge the stream. Handler errors
// (dispatcher failures) are logged and the offset still commits; the intent
// is lost rather than redelivered as a duplicate notification storm.
func (r *Reader) Run(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch alert message: %w", err)
		}

		ev, err := decodeAlertRow(msg.Value, msg.Time)
		if err != nil {
			r.logger.Warn("skipping undecodable alert row",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		} else if err := handler.Process(ctx, ev); err != nil {
			r.logger.Error("alert processing failed", "alert_id", ev.ID, "error", err)
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn("commit alert offset failed", "error", err, "offset", msg.Offset)
		}
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// alertRow mirrors the change-feed payload for one alert. Severity arrives
// either as the numeric severity_level column or as a severity word; the
// RawMessage accepts both.
type alertRow struct {
	ID            string          `json:"id"`
	AlertType     string          `json:"alert_type"`
	SeverityLevel json.RawMessage `json:"severity_level"`
	Severity      json.RawMessage `json:"severity"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	Coordinates   *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"coordinates"`
	CreatedAt string `json:"created_at"`
}

// decodeAlertRow converts a change-feed row into a domain event. msgTime is
// the broker timestamp, used as ReceivedAt when the row has no usable
// created_at.
func decodeAlertRow(value []byte, msgTime time.Time) (domain.AlertEvent, error) {
	var row alertRow
	if err := json.Unmarshal(value, &row); err != nil {
		return domain.AlertEvent{}, fmt.Errorf("decode alert row: %w", err)
	}
	if row.ID == "" {
		return domain.AlertEvent{}, errors.New("alert row missing id")
	}

	sevRaw := row.SeverityLevel
	if len(sevRaw) == 0 {
		sevRaw = row.Severity
	}
	severity, err := parseSeverity(sevRaw)
	if err != nil {
		return domain.AlertEvent{}, err
	}

	ev := domain.AlertEvent{
		ID:         row.ID,
		Type:       mapAlertType(row.AlertType),
		Severity:   severity,
		Title:      row.Title,
		Body:       row.Message,
		ReceivedAt: msgTime.UTC(),
	}
	if t, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
		ev.ReceivedAt = t.UTC()
	}
	if row.Coordinates != nil {
		pos := domain.Geo{Lat: row.Coordinates.Lat, Lon: row.Coordinates.Lng}
		if pos.Valid() && pos != (domain.Geo{}) {
			ev.Position = &pos
		}
	}
	return ev, nil
}

// parseSeverity accepts a 1-5 number or a severity word.
func parseSeverity(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("alert row missing severity")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return domain.ClampSeverityLevel(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.SeverityFromWord(s), nil
	}
	return 0, fmt.Errorf("unparseable severity %q", raw)
}

// alertTypeWords maps change-feed alert_type values onto hazard types. The
// feed uses a few looser labels than the poll pipeline.
var alertTypeWords = map[string]domain.HazardType{
	"earthquake": domain.HazardSeismic,
	"heavyrain":  domain.HazardRainSensor,
	"storm":      domain.HazardRainSensor,
	"wildfire":   domain.HazardWildfireHotspot,
	"airquality": domain.HazardAirQuality,
	"flood":      domain.HazardFlood,
	"drought":    domain.HazardDrought,
}

func mapAlertType(s string) domain.HazardType {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := domain.ParseHazardType(s); ok {
		return t
	}
	if t, ok := alertTypeWords[s]; ok {
		return t
	}
	// Unknown categories pass through so grouping still works client-side.
	return domain.HazardType(s)
}
