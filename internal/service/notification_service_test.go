package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
)

func TestNotificationService(t *testing.T) {
	store := newMemStore()
	store.notifications = []model.Notification{
		{NotificationID: "n1", RecipientExternalID: "S001", Type: model.NotifySessionInvitation, Title: "会话邀请"},
		{NotificationID: "n2", RecipientExternalID: "S001", Type: model.NotifySessionStatus, Title: "会话已完成"},
		{NotificationID: "n3", RecipientExternalID: "S002", Type: model.NotifySessionInvitation, Title: "会话邀请"},
	}
	svc := NewNotificationService(store.repository(), zap.NewNop())
	ctx := context.Background()

	list, total, err := svc.List(ctx, menteeActor, &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("查询通知失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("只应看到自己的 2 条通知，实际 total=%d", total)
	}

	// 不能标记他人的通知
	if err := svc.MarkRead(ctx, menteeActor, "n3"); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}

	if err := svc.MarkRead(ctx, menteeActor, "n1"); err != nil {
		t.Fatalf("标记已读失败: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, menteeActor); n != 1 {
		t.Errorf("期望未读 1 条，实际 %d", n)
	}

	unread, _, err := svc.List(ctx, menteeActor, &dto.NotificationListRequest{UnreadOnly: true})
	if err != nil {
		t.Fatalf("查询未读失败: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "n2" {
		t.Errorf("未读列表不正确: %+v", unread)
	}

	if err := svc.MarkAllRead(ctx, menteeActor); err != nil {
		t.Fatalf("全部已读失败: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, menteeActor); n != 0 {
		t.Errorf("期望未读 0 条，实际 %d", n)
	}
	if store.notifications[2].IsRead {
		t.Error("他人的通知不应被标记")
	}
}
