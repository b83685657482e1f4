package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentor-hub/backend/internal/dto"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

func TestSessionFeedbackSubmit(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.create(t, mentorActor, "S001", "S002")
	svc := NewSessionFeedbackService(f.store.repository(), zap.NewNop())
	ctx := context.Background()

	fb, err := svc.Submit(ctx, menteeActor, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 5, Comments: " 很有帮助 "})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, "很有帮助", fb.Comments)
	assert.Equal(t, "S001", fb.StudentExternalID)

	_, err = svc.Submit(ctx, menteeActor, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrFeedbackExists)
	assert.Len(t, f.store.sessionFeedback, 1)
}

func TestSessionFeedbackSubmit_Rejections(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.create(t, mentorActor, "S001")
	svc := NewSessionFeedbackService(f.store.repository(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, outsiderMentee, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, ErrFeedbackNotAttendee)

	_, err = svc.Submit(ctx, mentorActor, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, pkgerrors.ErrPermissionDenied)

	_, err = svc.Submit(ctx, menteeActor, "missing", &dto.SubmitSessionFeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Cancel(ctx, adminActor, sess.ID, &dto.CancelSessionRequest{})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, menteeActor, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, ErrFeedbackSessionState)
}

func TestSessionFeedbackList(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.create(t, mentorActor, "S001", "S002")
	svc := NewSessionFeedbackService(f.store.repository(), zap.NewNop())
	ctx := context.Background()
	second := menteeActor
	second.ExternalID = "S002"

	_, err := svc.Submit(ctx, menteeActor, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 4})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, second, sess.ID, &dto.SubmitSessionFeedbackRequest{Rating: 2})
	require.NoError(t, err)

	all, err := svc.ListBySession(ctx, mentorActor, sess.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.ListBySession(ctx, second, sess.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, 2, own[0].Rating)
}
