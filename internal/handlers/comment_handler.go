package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// bodyMap reads a JSON object or form body as loose key/value pairs.
func bodyMap(c echo.Context) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) || strings.HasPrefix(ctype, echo.MIMEApplicationForm) {
		form, err := c.FormParams()
		if err != nil {
			return nil, apperr.NewBadRequest("Invalid form data")
		}
		for k, v := range form {
			if len(v) > 0 {
				body[k] = v[0]
			}
		}
		return body, nil
	}
	if req.ContentLength == 0 {
		return body, nil
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.NewBadRequest("Invalid request body")
	}
	return body, nil
}

// AddComment accepts the text under comment, message, content or text.
// @Summary Comment on a proposal
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param proposalId path string true "Proposal id"
// @Success 200 {object} Response{data=models.ProposalComment}
// @Failure 400 {object} Response "Comment text is required"
// @Failure 404 {object} Response "Proposal not found"
// @Router /sourcing-proposals/{proposalId}/comments [post]
func (h *CommentHandler) AddComment(c echo.Context) error {
	body, err := bodyMap(c)
	if err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.Request().Context(), userID(c), c.Param("proposalId"), services.CommentText(body, services.CommentKeys...))
	if err != nil {
		return err
	}
	return ok(c, "Comment added successfully", comment)
}

// AddReply accepts the text under reply or comment.
// @Summary Reply to a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commentId path string true "Comment id"
// @Success 200 {object} Response{data=models.ProposalReply}
// @Router /sourcing-proposals/comments/{commentId}/replies [post]
func (h *CommentHandler) AddReply(c echo.Context) error {
	body, err := bodyMap(c)
	if err != nil {
		return err
	}
	reply, err := h.comments.AddReply(c.Request().Context(), userID(c), c.Param("commentId"), services.CommentText(body, services.ReplyKeys...))
	if err != nil {
		return err
	}
	return ok(c, "Reply added successfully", reply)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.comments.DeleteComment(c.Request().Context(), userID(c), c.Param("commentId")); err != nil {
		return err
	}
	return ok(c, "Comment deleted successfully", nil)
}

func (h *CommentHandler) DeleteReply(c echo.Context) error {
	if err := h.comments.DeleteReply(c.Request().Context(), userID(c), c.Param("replyId")); err != nil {
		return err
	}
	return ok(c, "Reply deleted successfully", nil)
}
