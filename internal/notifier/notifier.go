// Package notifier 负责把领域事件转成站内通知。
package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

// SessionInvitation 会话邀请
type SessionInvitation struct {
	SessionID   string   `json:"session_id"`
	SessionName string   `json:"session_name"`
	SessionDate string   `json:"session_date"`
	SessionTime string   `json:"session_time"`
	Location    string   `json:"location"`
	MentorName  string   `json:"mentor_name"`
	StudentIDs  []string `json:"student_ids"`
}

// AssignmentNotice 分配创建/结束通知
type AssignmentNotice struct {
	AssignmentID      string `json:"assignment_id"`
	CycleID           string `json:"cycle_id"`
	MentorExternalID  string `json:"mentor_external_id"`
	StudentExternalID string `json:"student_external_id"`
	Role              string `json:"role"`
	Reason            string `json:"reason,omitempty"`
}

// SessionStatusNotice 会话状态变更通知
type SessionStatusNotice struct {
	SessionID        string   `json:"session_id"`
	SessionName      string   `json:"session_name"`
	MentorExternalID string   `json:"mentor_external_id"`
	FromStatus       string   `json:"from_status"`
	ToStatus         string   `json:"to_status"`
	Reason           string   `json:"reason,omitempty"`
	StudentIDs       []string `json:"student_ids"`
}

// Dispatcher 通知投递接口
type Dispatcher interface {
	SendSessionInvitations(ctx context.Context, inv SessionInvitation) error
	NotifyAssignmentCreated(ctx context.Context, n AssignmentNotice) error
	NotifyAssignmentEnded(ctx context.Context, n AssignmentNotice) error
	NotifySessionStatus(ctx context.Context, n SessionStatusNotice) error
}

// InAppDispatcher 写入 notifications 表并推送变更事件
type InAppDispatcher struct {
	repo   repository.NotificationRepository
	feed   *changefeed.Publisher
	logger *zap.Logger
}

// NewInAppDispatcher 创建站内通知投递器
func NewInAppDispatcher(repo repository.NotificationRepository, feed *changefeed.Publisher, logger *zap.Logger) *InAppDispatcher {
	return &InAppDispatcher{repo: repo, feed: feed, logger: logger}
}

// SendSessionInvitations 为每位学生写一条会话邀请。学生列表为空时直接返回。
func (d *InAppDispatcher) SendSessionInvitations(ctx context.Context, inv SessionInvitation) error {
	if len(inv.StudentIDs) == 0 {
		return nil
	}

	when := inv.SessionDate
	if inv.SessionTime != "" {
		when += " " + inv.SessionTime
	}
	mentor := inv.MentorName
	if mentor == "" {
		mentor = "导师"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s 邀请你参加辅导会话「%s」，时间：%s", mentor, inv.SessionName, when)
	if inv.Location != "" {
		fmt.Fprintf(&b, "，地点：%s", inv.Location)
	}

	list := make([]model.Notification, 0, len(inv.StudentIDs))
	for _, sid := range uniq(inv.StudentIDs) {
		list = append(list, d.build(sid, model.NotifySessionInvitation, "新的辅导会话邀请", b.String(), "session", inv.SessionID))
	}
	return d.save(ctx, list)
}

// NotifyAssignmentCreated 通知导师与学生已建立分配关系
func (d *InAppDispatcher) NotifyAssignmentCreated(ctx context.Context, n AssignmentNotice) error {
	role := "主导师"
	if n.Role == string(model.AssignmentRoleCoMentor) {
		role = "协同导师"
	}
	list := []model.Notification{
		d.build(n.MentorExternalID, model.NotifyAssignmentCreated, "新的指导学生",
			fmt.Sprintf("你已被分配为学生 %s 的%s", n.StudentExternalID, role), "assignment", n.AssignmentID),
		d.build(n.StudentExternalID, model.NotifyAssignmentCreated, "导师分配通知",
			fmt.Sprintf("导师 %s 已被分配为你的%s", n.MentorExternalID, role), "assignment", n.AssignmentID),
	}
	return d.save(ctx, list)
}

// NotifyAssignmentEnded 通知双方分配关系已结束
func (d *InAppDispatcher) NotifyAssignmentEnded(ctx context.Context, n AssignmentNotice) error {
	content := fmt.Sprintf("导师 %s 与学生 %s 的指导关系已结束", n.MentorExternalID, n.StudentExternalID)
	if n.Reason != "" {
		content += "，原因：" + n.Reason
	}
	list := []model.Notification{
		d.build(n.MentorExternalID, model.NotifyAssignmentEnded, "指导关系结束", content, "assignment", n.AssignmentID),
		d.build(n.StudentExternalID, model.NotifyAssignmentEnded, "指导关系结束", content, "assignment", n.AssignmentID),
	}
	return d.save(ctx, list)
}

// NotifySessionStatus 通知参与学生会话状态变化
func (d *InAppDispatcher) NotifySessionStatus(ctx context.Context, n SessionStatusNotice) error {
	if len(n.StudentIDs) == 0 {
		return nil
	}
	content := fmt.Sprintf("辅导会话「%s」状态由 %s 变为 %s", n.SessionName, statusText(n.FromStatus), statusText(n.ToStatus))
	if n.Reason != "" {
		content += "，原因：" + n.Reason
	}

	list := make([]model.Notification, 0, len(n.StudentIDs))
	for _, sid := range uniq(n.StudentIDs) {
		list = append(list, d.build(sid, model.NotifySessionStatus, "会话状态变更", content, "session", n.SessionID))
	}
	return d.save(ctx, list)
}

func (d *InAppDispatcher) build(recipient, typ, title, content, relatedType, relatedID string) model.Notification {
	n := model.Notification{
		RecipientExternalID: recipient,
		Type:                typ,
		Title:               title,
		Content:             content,
	}
	if relatedID != "" {
		n.RelatedType = &relatedType
		n.RelatedID = &relatedID
	}
	return n
}

func (d *InAppDispatcher) save(ctx context.Context, list []model.Notification) error {
	if err := d.repo.CreateBatch(ctx, list); err != nil {
		d.logger.Error("写入通知失败", zap.Int("count", len(list)), zap.Error(err))
		return err
	}
	for i := range list {
		d.feed.Publish(ctx, "notifications", changefeed.OpInsert, nil, list[i])
	}
	return nil
}

func statusText(s string) string {
	switch model.SessionStatus(s) {
	case model.SessionPending:
		return "待进行"
	case model.SessionPendingFeedback:
		return "待导师反馈"
	case model.SessionCompleted:
		return "已完成"
	case model.SessionCancelled:
		return "已取消"
	}
	return s
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
