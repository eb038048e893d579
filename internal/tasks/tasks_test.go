package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/tasks/rate"
	"marketplace/internal/testutil"
	"marketplace/internal/utils/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func emailTask(t *testing.T, taskType string, p EmailPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(taskType, data)
}

func newMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	h.Register(mux)
	return mux
}

func TestPasswordOTPMail(t *testing.T) {
	mailer := &recordingMailer{}
	mux := newMux(NewTaskHandler(nil, mailer))

	err := mux.ProcessTask(context.Background(), emailTask(t, TypePasswordOTP, EmailPayload{Email: "a@example.com", Name: "Ada", Code: "123456"}))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, "123456")
	assert.Contains(t, mailer.sent[0].body, "Hello Ada,")
}

func TestWelcomeMail(t *testing.T) {
	mailer := &recordingMailer{}
	mux := newMux(NewTaskHandler(nil, mailer))

	require.NoError(t, mux.ProcessTask(context.Background(), emailTask(t, TypeWelcome, EmailPayload{Email: "b@example.com"})))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Welcome to the marketplace", mailer.sent[0].subject)
}

func TestMalformedPayloadIsNotRetried(t *testing.T) {
	mux := newMux(NewTaskHandler(nil, &recordingMailer{}))

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeWelcome, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = mux.ProcessTask(context.Background(), emailTask(t, TypePasswordOTP, EmailPayload{Email: "a@example.com"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMailerFailureIsRetried(t *testing.T) {
	mux := newMux(NewTaskHandler(nil, &recordingMailer{err: errors.New("smtp down")}))

	err := mux.ProcessTask(context.Background(), emailTask(t, TypeWelcome, EmailPayload{Email: "b@example.com"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestCleanupPasswordResets(t *testing.T) {
	gdb := testutil.DB(t)
	u := testutil.User(t, gdb, "reset@example.com", []string{models.RoleUser})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := []models.PasswordReset{
		{UserID: u.ID, Code: "x", ExpiresAt: now.Add(5 * time.Minute)},
		{UserID: u.ID, Code: "x", ExpiresAt: now.Add(-time.Minute)},
		{UserID: u.ID, Code: "x", Used: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	require.NoError(t, gdb.Create(&rows).Error)

	h := NewTaskHandler(gdb, &recordingMailer{})
	h.now = func() time.Time { return now }
	require.NoError(t, newMux(h).ProcessTask(context.Background(), asynq.NewTask(TypeCleanupPasswordResets, nil)))

	var left []models.PasswordReset
	require.NoError(t, gdb.Unscoped().Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, rows[0].ID, left[0].ID)
}

func TestClientThrottlesOTPMails(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var queued []*asynq.Task
	c := &TaskClient{
		enqueue: func(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
			queued = append(queued, task)
			return &asynq.TaskInfo{ID: "id"}, nil
		},
		otpLimiter: rate.NewWindowLimiter(rdb, rate.Config{Name: "mail_otp", RateLimit: rate.RateLimit{Window: time.Minute, Max: 2}}),
		logger:     logger.New("TASKS"),
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.EnqueuePasswordOTP(ctx, "a@example.com", "Ada", "123456"))
	}
	require.NoError(t, c.EnqueuePasswordOTP(ctx, "other@example.com", "", "654321"))
	require.NoError(t, c.EnqueueWelcome(ctx, "a@example.com", "Ada"))

	require.Len(t, queued, 4)
	var p EmailPayload
	require.NoError(t, json.Unmarshal(queued[0].Payload(), &p))
	assert.Equal(t, EmailPayload{Email: "a@example.com", Name: "Ada", Code: "123456"}, p)
	assert.Equal(t, TypeWelcome, queued[3].Type())
}

func newTestScheduler(t *testing.T, worker config.WorkerConfig) *Scheduler {
	mr := miniredis.RunT(t)
	return newScheduler(
		asynq.NewScheduler(asynq.RedisClientOpt{Addr: mr.Addr()}, &asynq.SchedulerOpts{}),
		maintenance(worker),
		logger.New("scheduler"),
	)
}

func TestRegisterCustomTaskValidatesSchedule(t *testing.T) {
	s := newTestScheduler(t, config.WorkerConfig{})

	err := s.RegisterCustomTask("every tuesday", TypeCleanupPasswordResets, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
	assert.Empty(t, s.Entries())
}

func TestRegisterCustomTaskReplacesEntry(t *testing.T) {
	s := newTestScheduler(t, config.WorkerConfig{})

	require.NoError(t, s.RegisterCustomTask("@hourly", TypeCleanupPasswordResets, nil))
	first := s.Entries()[TypeCleanupPasswordResets]
	require.NoError(t, s.RegisterCustomTask("*/5 * * * *", TypeCleanupPasswordResets, nil))

	entries := s.Entries()
	assert.Len(t, entries, 1)
	assert.NotEqual(t, first, entries[TypeCleanupPasswordResets])
}

func TestMaintenanceSchedule(t *testing.T) {
	assert.Equal(t, DefaultCleanupSpec, maintenance(config.WorkerConfig{})[0].Spec)
	assert.Equal(t, "0 3 * * *", maintenance(config.WorkerConfig{CleanupSchedule: "0 3 * * *"})[0].Spec)

	// Stop before Start must not block.
	newTestScheduler(t, config.WorkerConfig{}).Stop()
}
