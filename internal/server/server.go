package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/kafka"
	"app/internal/usecase"

	"go.uber.org/zap"
)

// 購読コンシューマと定期ジョブを束ねるワーカー本体。
type Server struct {
	consumer *kafka.Consumer
	reports  *usecase.ReportUsecase
	interval time.Duration
	logger   *zap.Logger
}

func New(consumer *kafka.Consumer, reports *usecase.ReportUsecase, interval time.Duration, logger *zap.Logger) *Server {
	return &Server{
		consumer: consumer,
		reports:  reports,
		interval: interval,
		logger:   logger,
	}
}

// Start は購読と集計キャッシュの予熱を開始し、SIGINT/SIGTERMで止まるまでブロックする。
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		received := <-sig
		s.logger.Info("shutting down", zap.String("signal", received.String()))
		cancel()
	}()

	return s.Run(ctx)
}

// Run はctxが閉じるまで定期ジョブ（とconsumerがあれば購読）を回す。
// consumerがnilでも予熱ループだけで動く。
func (s *Server) Run(ctx context.Context) error {
	if s.consumer == nil {
		s.logger.Info("no consumer configured, running warmup loop only")
		s.warmLoop(ctx)
		return nil
	}

	go s.warmLoop(ctx)

	return s.consumer.Start(ctx)
}

// TTL切れ直後の読み手が重い集計を踏まないよう、定期的に温め直す。
func (s *Server) warmLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.warm(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

func (s *Server) warm(ctx context.Context) {
	if _, err := s.reports.Metrics(ctx); err != nil {
		s.logger.Warn("metrics warmup failed", zap.Error(err))
	}
	if _, err := s.reports.OutOfStockItems(ctx); err != nil {
		s.logger.Warn("out of stock warmup failed", zap.Error(err))
	}
	if _, err := s.reports.LowStockItems(ctx); err != nil {
		s.logger.Warn("low stock warmup failed", zap.Error(err))
	}
}
