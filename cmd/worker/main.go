package main

import (
	"time"

	"app/internal/cache"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/events"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/kafka"
	"app/internal/logger"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envが無ければ環境変数だけで起動する
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.GoEnv)
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.Reservation{},
		&model.InventoryHistory{},
	); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	//Repository（GORM実装）生成
	reservationRepo := infraRepo.NewReservationGormRepository(gormDB)
	historyRepo := infraRepo.NewInventoryHistoryGormRepository(gormDB)
	reportRepo := infraRepo.NewReportGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//キャッシュ（Redis不通ならインメモリ）。ブレーカ越しに叩く
	stockCache := cache.NewBreakerCache(
		cache.NewCache(cfg, log),
		breaker.New(3, 1, 10*time.Second),
		log,
	)

	//イベント発行。ブローカ未設定・不通でもワーカーは止めない
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) == 0 {
		publisher = events.NewInMemoryPublisher(log)
	} else if kafkaPublisher, err := events.NewKafkaPublisher(cfg, log); err != nil {
		log.Warn("kafka publisher unavailable, falling back to in-memory", zap.Error(err))
		publisher = events.NewInMemoryPublisher(log)
	} else {
		publisher = kafkaPublisher
	}
	defer publisher.Close()

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	inventoryValidator := validator.NewInventoryValidator()

	//Usecase生成
	adjustUC := usecase.NewAdjustmentUsecase(txManager, inventoryValidator, stockCache, publisher, idGen, clock, log)
	reserveUC := usecase.NewReservationUsecase(cfg, txManager, reservationRepo, adjustUC, inventoryValidator, stockCache, idGen, clock, log)
	reportUC := usecase.NewReportUsecase(cfg, reportRepo, historyRepo, stockCache, clock, log)

	//Handler生成
	orderH := handler.NewOrderEventHandler(reserveUC, log)

	//Consumer起動。ブローカ未設定なら予熱ループだけで動かす
	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer, err = kafka.NewConsumer(cfg, orderH, log)
		if err != nil {
			log.Fatal("failed to create kafka consumer", zap.Error(err))
		}
		defer consumer.Close()
	} else {
		log.Info("no kafka brokers configured, order event consumption disabled")
	}

	worker := server.New(consumer, reportUC, cfg.OutOfStockCacheTTL, log)
	if err := worker.Start(); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}
