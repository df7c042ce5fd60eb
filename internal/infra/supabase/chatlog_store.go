package supabase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
)

// ============================================================
// Chat log — implements port.ChatLogStore
// ============================================================

// LogMessage appends one chat log row. Best effort by contract: the
// caller tolerates failures, so there is no retry here.
func (c *Client) LogMessage(ctx context.Context, entry *domain.ChatLogEntry) error {
	ctx, span := tracer.Start(ctx, "Supabase.LogMessage")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := c.doPost(ctx, "chat_logs", map[string]any{
		"id":           entry.ID,
		"phone_number": entry.PhoneNumber,
		"direction":    entry.Direction,
		"content":      entry.Content,
		"intent":       entry.Intent,
		"created_at":   entry.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/chat_logs", Err: err}
	}
	return nil
}
