package quiz

import (
	"context"
	"log/slog"

	"hackohio/quizd/pkg/worker"
)

// Config holds the per-action retry policies and the fixed question count.
type Config struct {
	Count    int
	Quiz     worker.Policy
	Feedback worker.Policy
}

func DefaultConfig() Config {
	return Config{
		Count:    5,
		Quiz:     worker.DefaultPolicy().WithMaxAttempts(3),
		Feedback: worker.DefaultPolicy().WithMaxAttempts(1),
	}
}

// Service turns quiz requests into validated worker results.
type Service struct {
	inv    worker.Invoker
	cfg    Config
	logger *slog.Logger
}

func NewService(inv worker.Invoker, cfg Config, logger *slog.Logger) *Service {
	if cfg.Count <= 0 {
		cfg.Count = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Quiz.Logger = logger
	cfg.Feedback.Logger = logger
	return &Service{inv: inv, cfg: cfg, logger: logger}
}

// FeedbackRequest carries a finished quiz's score. Score and Total are
// forwarded as the client sent them; nil fields are left for the worker to
// default.
type FeedbackRequest struct {
	Topic string `json:"topic"`
	Score any    `json:"score"`
	Total any    `json:"total"`
}

// GenerateQuiz asks the worker for Count questions about topic.
func (s *Service) GenerateQuiz(ctx context.Context, topic string) (worker.Result[Quiz], error) {
	if topic == "" {
		topic = DefaultTopic
	}
	payload := worker.Payload{"topic": topic, "count": s.cfg.Count}
	res, err := worker.Call[Quiz](ctx, s.inv, ActionGenerateQuiz, payload, s.cfg.Quiz)
	if err == nil {
		s.logger.Info("quiz generated",
			slog.String("topic", topic),
			slog.Int("questions", len(res.Value.Questions)),
			slog.Int("attempts", res.Attempts),
		)
	}
	return res, err
}

// GenerateFeedback asks the worker to comment on a score.
func (s *Service) GenerateFeedback(ctx context.Context, req FeedbackRequest) (worker.Result[Feedback], error) {
	payload := worker.Payload{}
	if req.Topic != "" {
		payload["topic"] = req.Topic
	}
	if req.Score != nil {
		payload["score"] = req.Score
	}
	if req.Total != nil {
		payload["total"] = req.Total
	}
	return worker.Call[Feedback](ctx, s.inv, ActionGenerateFeedback, payload, s.cfg.Feedback)
}
