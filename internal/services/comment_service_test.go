package services

import (
	"context"
	"testing"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentNotifiesOnlyOtherPrincipals(t *testing.T) {
	e := newEnv(t)
	svc := NewCommentService(e.db, e.dispatcher)
	author := testutil.User(t, e.db, "author@example.com", []string{models.RoleUser})
	other := testutil.User(t, e.db, "other@example.com", []string{models.RoleUser})
	p := testutil.Proposal(t, e.db, author, "Cotton", models.ProposalStatusApproved)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, author.ID, p.ID, "own note")
	require.NoError(t, err)
	e.dispatcher.Wait()
	assert.Empty(t, e.transport.deliveries())

	c, err := svc.AddComment(ctx, other.ID, p.ID, "  interested  ")
	require.NoError(t, err)
	assert.Equal(t, "interested", c.Comment)
	require.NotNil(t, c.User)
	assert.Equal(t, other.ID, c.User.ID)

	e.dispatcher.Wait()
	sent := e.transport.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, author.ID, sent[0].UserID)
	assert.Equal(t, events.ProposalNewComment, sent[0].Event)
}

func TestCommentValidation(t *testing.T) {
	e := newEnv(t)
	svc := NewCommentService(e.db, e.dispatcher)
	author := testutil.User(t, e.db, "author@example.com", []string{models.RoleUser})
	p := testutil.Proposal(t, e.db, author, "Cotton", models.ProposalStatusApproved)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, author.ID, p.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.BadRequest))

	require.NoError(t, e.db.Delete(p).Error)
	_, err = svc.AddComment(ctx, author.ID, p.ID, "late")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCommentTextAliases(t *testing.T) {
	assert.Equal(t, "hi", CommentText(map[string]interface{}{"message": " hi "}, CommentKeys...))
	assert.Equal(t, "body", CommentText(map[string]interface{}{"comment": "", "text": "body"}, CommentKeys...))
	assert.Equal(t, "", CommentText(map[string]interface{}{"comment": 12}, CommentKeys...))
	assert.Equal(t, "r", CommentText(map[string]interface{}{"comment": "r"}, ReplyKeys...))
}

func TestRepliesAndOwnDeletes(t *testing.T) {
	e := newEnv(t)
	svc := NewCommentService(e.db, e.dispatcher)
	author := testutil.User(t, e.db, "author@example.com", []string{models.RoleUser})
	other := testutil.User(t, e.db, "other@example.com", []string{models.RoleUser})
	p := testutil.Proposal(t, e.db, author, "Cotton", models.ProposalStatusApproved)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, other.ID, p.ID, "question")
	require.NoError(t, err)
	e.dispatcher.Wait()

	r, err := svc.AddReply(ctx, author.ID, c.ID, "answer")
	require.NoError(t, err)
	assert.Equal(t, c.ID, r.CommentID)
	e.dispatcher.Wait()
	assert.Len(t, e.transport.deliveries(), 1)

	assert.True(t, apperr.Is(svc.DeleteReply(ctx, other.ID, r.ID), apperr.NotFound))
	require.NoError(t, svc.DeleteReply(ctx, author.ID, r.ID))

	assert.True(t, apperr.Is(svc.DeleteComment(ctx, author.ID, c.ID), apperr.NotFound))
	require.NoError(t, svc.DeleteComment(ctx, other.ID, c.ID))

	_, err = svc.AddReply(ctx, author.ID, c.ID, "too late")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestReplyToCommentOfDeletedProposal(t *testing.T) {
	e := newEnv(t)
	svc := NewCommentService(e.db, e.dispatcher)
	author := testutil.User(t, e.db, "author@example.com", []string{models.RoleUser})
	p := testutil.Proposal(t, e.db, author, "Cotton", models.ProposalStatusApproved)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, author.ID, p.ID, "note")
	require.NoError(t, err)
	require.NoError(t, e.db.Delete(p).Error)

	_, err = svc.AddReply(ctx, author.ID, c.ID, "reply")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
