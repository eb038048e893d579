package services

import (
	"context"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/models"

	"gorm.io/gorm"
)

// CommentText picks the comment body from the first non-empty alias.
func CommentText(body map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := body[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

var (
	CommentKeys = []string{"comment", "message", "content", "text"}
	ReplyKeys   = []string{"reply", "comment"}
)

type CommentService struct {
	db         *gorm.DB
	dispatcher *events.Dispatcher
}

func NewCommentService(db *gorm.DB, dispatcher *events.Dispatcher) *CommentService {
	return &CommentService{db: db, dispatcher: dispatcher}
}

// AddComment stores a comment on a non-deleted proposal and notifies the
// author unless they wrote it.
func (s *CommentService) AddComment(ctx context.Context, userID, proposalID, text string) (*models.ProposalComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.NewBadRequest("Comment text is required")
	}

	var (
		comment *models.ProposalComment
		notes   []events.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.SourcingProposal
		if err := tx.Where("id = ?", proposalID).First(&p).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Proposal not found")
			}
			return err
		}

		comment = &models.ProposalComment{
			SourcingProposalID: p.ID,
			UserID:             userID,
			Comment:            text,
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Preload("User", publicUser).First(comment, "id = ?", comment.ID).Error; err != nil {
			return err
		}
		comment.Replies = []models.ProposalReply{}
		notes = p.NewComment(userID, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(notes...)
	return comment, nil
}

// AddReply answers a non-deleted comment of a non-deleted proposal. Replies do
// not nest and do not notify.
func (s *CommentService) AddReply(ctx context.Context, userID, commentID, text string) (*models.ProposalReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.NewBadRequest("Reply text is required")
	}

	var reply *models.ProposalReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.ProposalComment
		if err := tx.
			Joins("JOIN sourcing_proposals ON sourcing_proposals.id = proposal_comments.sourcing_proposal_id AND sourcing_proposals.deleted_at IS NULL").
			Where("proposal_comments.id = ?", commentID).
			First(&c).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Comment not found")
			}
			return err
		}

		reply = &models.ProposalReply{CommentID: c.ID, UserID: userID, Reply: text}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return tx.Preload("User", publicUser).First(reply, "id = ?", reply.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// DeleteComment soft deletes a comment written by userID.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", commentID, userID).Delete(&models.ProposalComment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Comment not found")
	}
	return nil
}

// DeleteReply soft deletes a reply written by userID.
func (s *CommentService) DeleteReply(ctx context.Context, userID, replyID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", replyID, userID).Delete(&models.ProposalReply{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Reply not found")
	}
	return nil
}
