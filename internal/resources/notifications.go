package resources

import (
	"context"
	"net/http"
)

// Notification batch actions.
const (
	ActionRead    = "read"
	ActionUnread  = "unread"
	ActionArchive = "archive"
	ActionDelete  = "delete"
)

type Notification struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	IsRead      bool   `json:"is_read"`
	IsArchived  bool   `json:"is_archived"`
	ReadAt      string `json:"read_at,omitempty"`
	ArchivedAt  string `json:"archived_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type NotificationPage struct {
	Messages   []Notification `json:"messages"`
	Pagination struct {
		Page    int   `json:"page"`
		PerPage int   `json:"per_page"`
		Total   int64 `json:"total"`
		Pages   int   `json:"pages"`
		HasNext bool  `json:"has_next"`
		HasPrev bool  `json:"has_prev"`
	} `json:"pagination"`
}

type NotificationListParams struct {
	Page       int    `query:"page,omitempty"`
	PerPage    int    `query:"per_page,omitempty"`
	Type       string `query:"type,omitempty"`
	IsRead     string `query:"is_read,omitempty"`
	IsArchived string `query:"is_archived,omitempty"`
}

type NotificationInput struct {
	Title      string  `json:"title" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	Type       string  `json:"type" validate:"required,oneof=info warning error success"`
	Priority   string  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	TargetType string  `json:"target_type" validate:"required,oneof=all role users students teachers"`
	TargetIDs  []int64 `json:"target_ids,omitempty"`
	ScheduleAt string  `json:"scheduled_at,omitempty"`
	ExpiresAt  string  `json:"expires_at,omitempty"`
}

type NotificationUpdate struct {
	Read     *bool `json:"read,omitempty"`
	Archived *bool `json:"archived,omitempty"`
}

type BatchAction struct {
	MessageIDs []int64 `json:"message_ids" validate:"required,min=1"`
	Action     string  `json:"action" validate:"required,oneof=read unread archive delete"`
}

type Notifications struct {
	b *base
}

func (n *Notifications) List(ctx context.Context, params NotificationListParams) (NotificationPage, error) {
	return fetch[NotificationPage](ctx, n.b, "/notifications/messages", params)
}

func (n *Notifications) Create(ctx context.Context, in NotificationInput) (Notification, error) {
	return send[Notification](ctx, n.b, http.MethodPost, "/notifications/messages", in)
}

func (n *Notifications) Get(ctx context.Context, id int64) (Notification, error) {
	return fetch[Notification](ctx, n.b, path("/notifications/messages/%d", id), nil)
}

func (n *Notifications) Update(ctx context.Context, id int64, in NotificationUpdate) error {
	return exec(ctx, n.b, http.MethodPut, path("/notifications/messages/%d", id), in)
}

func (n *Notifications) Delete(ctx context.Context, id int64) error {
	return exec(ctx, n.b, http.MethodDelete, path("/notifications/messages/%d", id), nil)
}

func (n *Notifications) UnreadCount(ctx context.Context) (int, error) {
	out, err := fetch[struct {
		Count int `json:"unread_count"`
	}](ctx, n.b, "/notifications/unread-count", nil)
	return out.Count, err
}

func (n *Notifications) MarkAllRead(ctx context.Context) error {
	return exec(ctx, n.b, http.MethodPost, "/notifications/mark-all-read", nil)
}

func (n *Notifications) Batch(ctx context.Context, in BatchAction) error {
	return exec(ctx, n.b, http.MethodPost, "/notifications/batch-action", in)
}

func (n *Notifications) Templates(ctx context.Context) ([]MessageTemplate, error) {
	return fetch[[]MessageTemplate](ctx, n.b, "/notifications/templates", nil)
}

func (n *Notifications) Preview(ctx context.Context, templateID int64, vars map[string]string) (RenderedMessage, error) {
	return send[RenderedMessage](ctx, n.b, http.MethodPost, path("/notifications/templates/%d/preview", templateID), map[string]any{"variables": vars})
}
