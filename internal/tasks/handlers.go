package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/utils/logger"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// TaskHandler processes the queued tasks.
type TaskHandler struct {
	db     *gorm.DB
	mailer Mailer
	logger *logger.Logger
	now    func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB, mailer Mailer) *TaskHandler {
	return &TaskHandler{
		db:     db,
		mailer: mailer,
		logger: logger.New("task_handler"),
		now:    time.Now,
	}
}

// Register binds every task type to its handler.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePasswordOTP, h.HandlePasswordOTP)
	mux.HandleFunc(TypeWelcome, h.HandleWelcome)
	mux.HandleFunc(TypeCleanupPasswordResets, h.HandleCleanupPasswordResets)
}

func decodeEmail(t *asynq.Task) (EmailPayload, error) {
	var p EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.Email == "" {
		return p, fmt.Errorf("%s payload without recipient: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}

func greeting(name string) string {
	if name == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", name)
}

func (h *TaskHandler) HandlePasswordOTP(ctx context.Context, t *asynq.Task) error {
	p, err := decodeEmail(t)
	if err != nil {
		return err
	}
	if p.Code == "" {
		return fmt.Errorf("%s payload without code: %w", t.Type(), asynq.SkipRetry)
	}

	body := fmt.Sprintf("%s\n\nYour password reset code is %s.\nIt expires in 10 minutes. If you did not request a reset, ignore this email.\n",
		greeting(p.Name), p.Code)
	if err := h.mailer.Send(ctx, p.Email, "Your password reset code", body); err != nil {
		return h.logger.Error("Failed to send OTP mail", err)
	}
	return nil
}

func (h *TaskHandler) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	p, err := decodeEmail(t)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("%s\n\nWelcome to the marketplace. Your account is ready.\n", greeting(p.Name))
	if err := h.mailer.Send(ctx, p.Email, "Welcome to the marketplace", body); err != nil {
		return h.logger.Error("Failed to send welcome mail", err)
	}
	return nil
}

// HandleCleanupPasswordResets removes used and expired reset codes.
func (h *TaskHandler) HandleCleanupPasswordResets(ctx context.Context, _ *asynq.Task) error {
	res := h.db.WithContext(ctx).Unscoped().
		Where("used = ? OR expires_at < ?", true, h.now()).
		Delete(&models.PasswordReset{})
	if res.Error != nil {
		return h.logger.Error("Failed to clean up password resets", res.Error)
	}
	h.logger.Info("Removed %d stale password resets", res.RowsAffected)
	return nil
}
