package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/tasks/rate"
	"marketplace/internal/utils/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// OTP mails per address and window. Requests above it are dropped silently so
// the forgot password endpoint cannot be used to flood an inbox.
var otpMailLimit = rate.RateLimit{Window: 15 * time.Minute, Max: 5}

type enqueueFunc func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)

// TaskClient enqueues background work. It satisfies services.MailQueue.
type TaskClient struct {
	client     *asynq.Client
	enqueue    enqueueFunc
	otpLimiter *rate.WindowLimiter
	logger     *logger.Logger
}

// RedisOpt converts the redis settings for asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient. redisClient backs the OTP throttle.
func NewTaskClient(cfg config.RedisConfig, redisClient *redis.Client) *TaskClient {
	client := asynq.NewClient(RedisOpt(cfg))
	return &TaskClient{
		client:     client,
		enqueue:    client.EnqueueContext,
		otpLimiter: rate.NewWindowLimiter(redisClient, rate.Config{Name: "mail_otp", RateLimit: otpMailLimit}),
		logger:     logger.New("TASKS"),
	}
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func newEmailTask(taskType string, payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data), nil
}

// EnqueuePasswordOTP queues the reset code mail on the critical queue.
func (c *TaskClient) EnqueuePasswordOTP(ctx context.Context, email, name, code string) error {
	if c.otpLimiter != nil {
		res, err := c.otpLimiter.Allow(ctx, email)
		if err != nil {
			c.logger.Warn("OTP throttle unavailable: %v", err)
		} else if !res.Allowed {
			c.logger.Warn("Dropping OTP mail for %s, limit of %d per %s reached", email, otpMailLimit.Max, otpMailLimit.Window)
			return nil
		}
	}

	task, err := newEmailTask(TypePasswordOTP, EmailPayload{Email: email, Name: name, Code: code})
	if err != nil {
		return err
	}
	info, err := c.enqueue(ctx, task,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryMax),
		asynq.Timeout(TimeoutShort),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypePasswordOTP, err)
	}
	c.logger.Debug("Enqueued %s task %s", TypePasswordOTP, info.ID)
	return nil
}

// EnqueueWelcome queues the welcome mail sent after sign up.
func (c *TaskClient) EnqueueWelcome(ctx context.Context, email, name string) error {
	task, err := newEmailTask(TypeWelcome, EmailPayload{Email: email, Name: name})
	if err != nil {
		return err
	}
	info, err := c.enqueue(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeWelcome, err)
	}
	c.logger.Debug("Enqueued %s task %s", TypeWelcome, info.ID)
	return nil
}
