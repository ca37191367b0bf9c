package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"hackohio/quizd/internal/config"
	"hackohio/quizd/internal/httpapi"
	"hackohio/quizd/internal/quiz"
	"hackohio/quizd/internal/service"
	"hackohio/quizd/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP front-end (and the gRPC socket when configured)",
	Long: `Run the HTTP front-end.

The worker script is not bundled; point --worker (or QUIZD_WORKER_PATH) at
it. serve refuses to start when the script does not exist.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().String("host", "", "Listen host (env HOST)")
	serveCmd.Flags().Int("port", 0, "Listen port (env PORT)")
	serveCmd.Flags().String("grpc-socket", "", "Unix socket for the gRPC worker service")
	_ = v.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("grpc.socket", serveCmd.Flags().Lookup("grpc-socket"))
}

// components wires the invocation stack shared by every command.
type components struct {
	cfg     *config.Config
	channel *worker.ExecChannel
	orch    *worker.Orchestrator
	quiz    *quiz.Service
}

func build() (*components, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	ch := worker.NewExecChannel(cfg.ChannelConfig(), logger)
	orch := worker.NewOrchestrator(cfg.OrchestratorConfig(), ch, logger)
	return &components{
		cfg:     cfg,
		channel: ch,
		orch:    orch,
		quiz:    quiz.NewService(orch, cfg.QuizServiceConfig(), logger),
	}, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	c, err := build()
	if err != nil {
		return err
	}
	if err := c.cfg.CheckWorker(); err != nil {
		return err
	}

	// Open every listener before serving anything so a bad socket path
	// leaves nothing running.
	var grpcLn net.Listener
	if sock := c.cfg.GRPC.Socket; sock != "" {
		if grpcLn, err = listenUnix(sock); err != nil {
			return err
		}
		defer grpcLn.Close()
	}
	httpLn, err := net.Listen("tcp", c.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := handleSignals(cmd.Context())
	defer cancel()

	httpSrv := &http.Server{
		Handler:           httpapi.NewHandler(c.quiz, c.channel, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("quizd listening",
			slog.String("url", "http://"+httpLn.Addr().String()),
			slog.String("worker", c.cfg.Worker.Path),
			slog.Any("candidates", c.cfg.Worker.Candidates),
		)
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if grpcLn != nil {
		impl := service.NewWorkerServer(c.orch, c.channel,
			[]string{quiz.ActionGenerateQuiz, quiz.ActionGenerateFeedback},
			map[string]string{"impl": "exec", "worker": c.cfg.Worker.Path},
		)
		grpcSrv = service.NewGRPCServer(impl, logger)
		go func() {
			logger.Info("gRPC worker service listening", slog.String("socket", c.cfg.GRPC.Socket))
			if err := grpcSrv.Serve(grpcLn); err != nil {
				errc <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	logger.Info("worker channel totals", slog.Any("metrics", c.channel.Metrics()))
	return err
}

// listenUnix replaces a stale socket file and opens the listener.
func listenUnix(sock string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(sock), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	if _, err := os.Stat(sock); err == nil {
		_ = os.Remove(sock)
	}
	l, err := net.Listen("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	_ = os.Chmod(sock, 0o766)
	return l, nil
}
