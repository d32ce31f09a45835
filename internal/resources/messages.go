package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Message struct {
	ID            int64    `json:"id"`
	SenderID      int64    `json:"sender_id"`
	SenderName    string   `json:"sender_name,omitempty"`
	RecipientID   int64    `json:"recipient_id,omitempty"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Type          string   `json:"type"`
	Priority      string   `json:"priority"`
	IsRead        bool     `json:"is_read"`
	IsArchived    bool     `json:"is_archived"`
	ReadAt        string   `json:"read_at,omitempty"`
	AttachmentIDs []int64  `json:"attachment_ids,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

type MessageListParams struct {
	ListParams `query:",squash"`
	Type       string `query:"type,omitempty"`
	Priority   string `query:"priority,omitempty"`
	IsRead     string `query:"is_read,omitempty"`
	IsArchived string `query:"is_archived,omitempty"`
}

// Recipient types accepted by MessageInput.RecipientType.
const (
	RecipientAll   = "all"
	RecipientRole  = "role"
	RecipientUsers = "users"
)

type MessageInput struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Content       string  `json:"content" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Priority      string  `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	RecipientType string  `json:"recipient_type" validate:"required,oneof=all role users"`
	RecipientRole string  `json:"recipient_role,omitempty" validate:"required_if=RecipientType role"`
	RecipientIDs  []int64 `json:"recipient_ids,omitempty" validate:"required_if=RecipientType users"`
	SendAt        string  `json:"send_at,omitempty"`
}

type MessageTemplate struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name" validate:"required"`
	Type        string   `json:"type"`
	Title       string   `json:"title_template" validate:"required"`
	Content     string   `json:"content_template" validate:"required"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
}

type RenderedMessage struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Messages struct {
	b *base
}

func (m *Messages) List(ctx context.Context, params MessageListParams) (Page[Message], error) {
	return fetch[Page[Message]](ctx, m.b, "/messages", params)
}

func (m *Messages) Get(ctx context.Context, id int64) (Message, error) {
	return fetch[Message](ctx, m.b, path("/messages/%d", id), nil)
}

func (m *Messages) Create(ctx context.Context, in MessageInput) (Message, error) {
	return send[Message](ctx, m.b, http.MethodPost, "/messages", in)
}

// Announce sends a message to every user.
func (m *Messages) Announce(ctx context.Context, title, content, priority string) (Message, error) {
	return m.Create(ctx, MessageInput{Title: title, Content: content, Type: "announcement", Priority: priority, RecipientType: RecipientAll})
}

func (m *Messages) SendToRole(ctx context.Context, role string, in MessageInput) (Message, error) {
	in.RecipientType = RecipientRole
	in.RecipientRole = role
	return m.Create(ctx, in)
}

func (m *Messages) MarkRead(ctx context.Context, id int64) error {
	return exec(ctx, m.b, http.MethodPost, path("/messages/%d/read", id), nil)
}

func (m *Messages) BatchRead(ctx context.Context, ids []int64) error {
	return exec(ctx, m.b, http.MethodPost, "/messages/batch-read", IDs{IDs: ids})
}

func (m *Messages) Archive(ctx context.Context, id int64) error {
	return exec(ctx, m.b, http.MethodPost, path("/messages/%d/archive", id), nil)
}

func (m *Messages) BatchArchive(ctx context.Context, ids []int64) error {
	return exec(ctx, m.b, http.MethodPost, "/messages/batch-archive", IDs{IDs: ids})
}

func (m *Messages) Delete(ctx context.Context, id int64) error {
	return exec(ctx, m.b, http.MethodDelete, path("/messages/%d", id), nil)
}

func (m *Messages) UnreadCount(ctx context.Context) (int, error) {
	out, err := fetch[struct {
		Count int `json:"unread_count"`
	}](ctx, m.b, "/messages/unread-count", nil)
	return out.Count, err
}

func (m *Messages) Templates(ctx context.Context, kind string) ([]MessageTemplate, error) {
	return fetch[[]MessageTemplate](ctx, m.b, "/message-templates", struct {
		Type string `query:"type,omitempty"`
	}{kind})
}

func (m *Messages) CreateTemplate(ctx context.Context, in MessageTemplate) (MessageTemplate, error) {
	return send[MessageTemplate](ctx, m.b, http.MethodPost, "/message-templates", in)
}

func (m *Messages) UpdateTemplate(ctx context.Context, id int64, in MessageTemplate) (MessageTemplate, error) {
	return send[MessageTemplate](ctx, m.b, http.MethodPut, path("/message-templates/%d", id), in)
}

func (m *Messages) DeleteTemplate(ctx context.Context, id int64) error {
	return exec(ctx, m.b, http.MethodDelete, path("/message-templates/%d", id), nil)
}

func (m *Messages) UseTemplate(ctx context.Context, id int64, vars map[string]string) (RenderedMessage, error) {
	return send[RenderedMessage](ctx, m.b, http.MethodPost, path("/message-templates/%d/use", id), map[string]any{"variables": vars})
}

func (m *Messages) DownloadAttachment(ctx context.Context, attachmentID int64) (*apiclient.Raw, error) {
	return download(ctx, m.b, http.MethodGet, path("/message-attachments/%d/download", attachmentID), nil, nil)
}
