package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/internal/notifications"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
)

type stubNotificationService struct {
	list        func(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) (*notifications.ListResult, error)
	markRead    func(ctx context.Context, userID, id uuid.UUID) error
	markAllRead func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (s stubNotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) (*notifications.ListResult, error) {
	if s.list != nil {
		return s.list(ctx, userID, unreadOnly, limit)
	}
	panic("unimplemented")
}

func (s stubNotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if s.markRead != nil {
		return s.markRead(ctx, userID, id)
	}
	panic("unimplemented")
}

func (s stubNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllRead != nil {
		return s.markAllRead(ctx, userID)
	}
	panic("unimplemented")
}

func TestListNotificationsPassesFilters(t *testing.T) {
	userID := uuid.New()
	var captured struct {
		userID     uuid.UUID
		unreadOnly bool
		limit      int
	}
	svc := stubNotificationService{
		list: func(ctx context.Context, uid uuid.UUID, unreadOnly bool, limit int) (*notifications.ListResult, error) {
			captured.userID = uid
			captured.unreadOnly = unreadOnly
			captured.limit = limit
			return &notifications.ListResult{UnreadCount: 3}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/notifications?unreadOnly=true&limit=10", "", userID, enums.UserRoleClient)
	resp := httptest.NewRecorder()
	ListNotifications(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.userID != userID {
		t.Fatalf("expected user %s got %s", userID, captured.userID)
	}
	if !captured.unreadOnly {
		t.Fatal("expected unreadOnly filter")
	}
	if captured.limit != 10 {
		t.Fatalf("expected limit 10 got %d", captured.limit)
	}
}

func TestListNotificationsRejectsOutOfRangeLimit(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/notifications?limit=9999", "", uuid.New(), enums.UserRoleClient)
	resp := httptest.NewRecorder()
	ListNotifications(stubNotificationService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadScopesToOwner(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := stubNotificationService{
		markRead: func(ctx context.Context, uid, id uuid.UUID) error {
			if uid != userID {
				t.Fatalf("expected owner %s got %s", userID, uid)
			}
			if id != notificationID {
				t.Fatalf("expected notification %s got %s", notificationID, id)
			}
			return nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "", userID, enums.UserRoleClient)
	req = withURLParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMarkNotificationReadMapsNotFound(t *testing.T) {
	notificationID := uuid.New()
	svc := stubNotificationService{
		markRead: func(ctx context.Context, uid, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "", uuid.New(), enums.UserRoleClient)
	req = withURLParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil)(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadReturnsCount(t *testing.T) {
	svc := stubNotificationService{
		markAllRead: func(ctx context.Context, uid uuid.UUID) (int64, error) {
			return 4, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/read-all", "", uuid.New(), enums.UserRoleClient)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Updated != 4 {
		t.Fatalf("expected 4 updated got %d", envelope.Data.Updated)
	}
}
