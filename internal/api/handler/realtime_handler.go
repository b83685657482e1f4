package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/service"
	pkgerrors "mentor-hub/backend/pkg/errors"
	"mentor-hub/backend/pkg/response"
)

// 心跳间隔，防止代理断开空闲连接
const sseKeepAlive = 25 * time.Second

// sessionAccess 判断执行者能否查看某个会话
type sessionAccess interface {
	Get(ctx context.Context, actor permission.Actor, id string) (*dto.SessionDetailResponse, error)
}

// RealtimeHandler 行变更推送（SSE）
type RealtimeHandler struct {
	feed     *changefeed.Publisher
	sessions sessionAccess
}

// NewRealtimeHandler 创建 RealtimeHandler
func NewRealtimeHandler(feed *changefeed.Publisher, sessions sessionAccess) *RealtimeHandler {
	return &RealtimeHandler{feed: feed, sessions: sessions}
}

// Subscribe 订阅某张表的变更事件
// GET /api/v1/realtime/:table
//
// 学生只能订阅 notifications。通知只推给收件人本人；
// 导师只收到自己会话与分配相关的事件，管理员收到其余全部事件。
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	table := c.Param("table")
	if actor.IsMentee() && table != "notifications" {
		response.Forbidden(c, 10003, "无权执行该操作")
		return
	}

	events, closeFn, err := h.feed.Subscribe(c.Request.Context(), table)
	if err != nil {
		switch {
		case errors.Is(err, changefeed.ErrUnknownTable):
			response.BadRequest(c, 23001, "不支持订阅该表")
		case errors.Is(err, changefeed.ErrUnavailable):
			response.Unavailable(c, 23002, "变更推送不可用")
		default:
			response.InternalError(c, err)
		}
		return
	}
	defer closeFn()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	filter := newEventFilter(actor, h.sessions)
	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if filter.visible(c.Request.Context(), ev) {
				c.SSEvent(string(ev.Op), ev)
			}
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().Unix()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// eventFilter 单个连接内的事件可见性判断，会话权限结果按连接缓存
type eventFilter struct {
	actor    permission.Actor
	sessions sessionAccess
	allowed  map[string]bool
}

func newEventFilter(actor permission.Actor, sessions sessionAccess) *eventFilter {
	return &eventFilter{actor: actor, sessions: sessions, allowed: make(map[string]bool)}
}

// eventRow 事件行中用于判断归属的字段
type eventRow struct {
	RecipientExternalID string `json:"recipient_external_id"`
	MentorExternalID    string `json:"mentor_external_id"`
	SessionID           string `json:"session_id"`
}

func (f *eventFilter) visible(ctx context.Context, ev changefeed.Event) bool {
	rows := make([]eventRow, 0, 2)
	for _, raw := range []json.RawMessage{ev.New, ev.Old} {
		if len(raw) == 0 {
			continue
		}
		var r eventRow
		if err := json.Unmarshal(raw, &r); err != nil {
			return false
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return false
	}

	// 通知对任何角色都只推给收件人
	if ev.Table == "notifications" {
		return rows[0].RecipientExternalID == f.actor.ExternalID
	}
	if f.actor.Can(permission.FullSystemAccess) {
		return true
	}
	if !f.actor.IsMentor() {
		return false
	}

	switch ev.Table {
	case "counseling_sessions", "mentor_assignments":
		// 导师变更时新旧导师都能收到
		for _, r := range rows {
			if r.MentorExternalID == f.actor.ExternalID {
				return true
			}
		}
		return false
	default:
		return f.sessionVisible(ctx, rows[0].SessionID)
	}
}

func (f *eventFilter) sessionVisible(ctx context.Context, sessionID string) bool {
	if sessionID == "" || f.sessions == nil {
		return false
	}
	if ok, cached := f.allowed[sessionID]; cached {
		return ok
	}
	_, err := f.sessions.Get(ctx, f.actor, sessionID)
	switch {
	case err == nil:
		f.allowed[sessionID] = true
	case errors.Is(err, pkgerrors.ErrPermissionDenied), errors.Is(err, service.ErrSessionNotFound):
		f.allowed[sessionID] = false
	default:
		// 查询失败不缓存，下一条事件重试
		return false
	}
	return f.allowed[sessionID]
}
