package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"app/internal/cache"
	"app/internal/domain/model"
	"app/internal/events"
	repo "app/internal/repository"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdjTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdjTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdjTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdjTxReposMock struct {
	products     repo.ProductRepository
	reservations repo.ReservationRepository
	histories    repo.InventoryHistoryRepository
}

func (r *AdjTxReposMock) Products() repo.ProductRepository           { return r.products }
func (r *AdjTxReposMock) Reservations() repo.ReservationRepository   { return r.reservations }
func (r *AdjTxReposMock) Histories() repo.InventoryHistoryRepository { return r.histories }

// =====================
// Repository mocks（衝突回避の命名）
// =====================

type AdjProductRepoMock struct{ mock.Mock }

func (m *AdjProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *AdjProductRepoMock) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *AdjProductRepoMock) FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	args := m.Called(ctx, variantID)
	v, _ := args.Get(0).(model.ProductVariant)
	return v, args.Error(1)
}

func (m *AdjProductRepoMock) CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	args := m.Called(ctx, v)
	created, _ := args.Get(0).(model.ProductVariant)
	return created, args.Error(1)
}

func (m *AdjProductRepoMock) ApplyInventoryDelta(ctx context.Context, variantID int64, delta int64) (int64, bool, error) {
	args := m.Called(ctx, variantID, delta)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

type AdjReservationRepoMock struct{ mock.Mock }

func (m *AdjReservationRepoMock) FindByID(ctx context.Context, id int64) (model.Reservation, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) FindBySessionAndVariant(ctx context.Context, productID int64, variantID *int64, sessionID string) (model.Reservation, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) ListBySession(ctx context.Context, sessionID string) ([]model.Reservation, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) Create(ctx context.Context, rsv model.Reservation) (model.Reservation, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) UpdateQuantityAndExpiry(ctx context.Context, id int64, quantity int64, expiresAt time.Time) error {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) DeleteByID(ctx context.Context, id int64) (int64, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	panic("not used in AdjustmentUsecase tests")
}

func (m *AdjReservationRepoMock) SumActiveForVariant(ctx context.Context, productID int64, variantID *int64, now time.Time) (int64, error) {
	args := m.Called(ctx, productID, variantID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AdjReservationRepoMock) SumActiveForProduct(ctx context.Context, productID int64, now time.Time) (int64, error) {
	panic("not used in AdjustmentUsecase tests")
}

type AdjHistoryRepoMock struct{ mock.Mock }

func (m *AdjHistoryRepoMock) Create(ctx context.Context, h model.InventoryHistory) (model.InventoryHistory, error) {
	args := m.Called(ctx, h)
	created, _ := args.Get(0).(model.InventoryHistory)
	return created, args.Error(1)
}

func (m *AdjHistoryRepoMock) List(ctx context.Context, filter repo.HistoryFilter) ([]model.InventoryHistory, error) {
	panic("not used in AdjustmentUsecase tests")
}

// =====================
// 共通スタブ・ヘルパ
// =====================

type testClock struct{ now time.Time }

func (c testClock) Now() time.Time { return c.now }

type fixedIDGen struct {
	id    string
	calls int
}

func (g *fixedIDGen) NewID() string {
	g.calls++
	return g.id
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertAppCode(t *testing.T, err error, code usecase.ErrorCode) {
	t.Helper()
	ae, ok := usecase.AsAppError(err)
	if assert.True(t, ok, "err=%v want AppError", err) {
		assert.Equal(t, code, ae.Code)
	}
}

// 照会キャッシュの全形式＋集計キーを埋めておく（破棄の検証用）
func seedStockKeys(t *testing.T, c cache.Cache, productID int64, variantID int64, label string) {
	t.Helper()
	ctx := context.Background()
	keys := []string{
		cache.ProductStockKey(productID),
		cache.VariantStockKey(productID, variantID),
		cache.VariantLabelStockKey(productID, label),
		cache.MetricsKey,
		cache.OutOfStockKey,
		cache.LowStockKey,
	}
	for _, key := range keys {
		assert.NoError(t, c.Set(ctx, key, []byte("1"), time.Minute))
	}
}

func assertStockKeysGone(t *testing.T, c cache.Cache, productID int64, variantID int64, label string) {
	t.Helper()
	ctx := context.Background()
	keys := []string{
		cache.ProductStockKey(productID),
		cache.VariantStockKey(productID, variantID),
		cache.VariantLabelStockKey(productID, label),
		cache.MetricsKey,
		cache.OutOfStockKey,
		cache.LowStockKey,
	}
	for _, key := range keys {
		_, err := c.Get(ctx, key)
		assert.Equal(t, cache.ErrCacheMiss, err, "key %s should be invalidated", key)
	}
}

// 依存一式をまとめて組む
type adjFixture struct {
	tx    *AdjTxManagerMock
	pRepo *AdjProductRepoMock
	rRepo *AdjReservationRepoMock
	hRepo *AdjHistoryRepoMock
	cache *cache.InMemoryCache
	pub   *events.InMemoryPublisher
	idGen *fixedIDGen
	now   time.Time
	uc    *usecase.AdjustmentUsecase
}

func newAdjFixture() *adjFixture {
	f := &adjFixture{
		tx:    new(AdjTxManagerMock),
		pRepo: new(AdjProductRepoMock),
		rRepo: new(AdjReservationRepoMock),
		hRepo: new(AdjHistoryRepoMock),
		cache: cache.NewInMemoryCache(zap.NewNop()),
		pub:   events.NewInMemoryPublisher(zap.NewNop()),
		idGen: &fixedIDGen{id: "corr-1"},
		now:   time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
	}
	f.tx.Repos = &AdjTxReposMock{products: f.pRepo, reservations: f.rRepo, histories: f.hRepo}
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.uc = usecase.NewAdjustmentUsecase(
		f.tx,
		validator.NewInventoryValidator(),
		f.cache,
		f.pub,
		f.idGen,
		testClock{f.now},
		zap.NewNop(),
	)
	return f
}

func redTeeProduct() model.Product {
	return model.Product{
		ID:                1,
		Name:              "Tee",
		Price:             1200,
		IsActive:          true,
		LowStockThreshold: 5,
		Variants: []model.ProductVariant{
			{ID: 10, ProductID: 1, Label: "red", Price: 1200, Inventory: 5, Position: 0},
		},
	}
}

// =====================
// Adjust: 基本系
// =====================

// 補充：差分適用 → 履歴 → キャッシュ破棄 → イベント発行まで通す
func TestAdjustmentUsecase_Adjust_RestockSuccess(t *testing.T) {
	ctx := context.Background()
	f := newAdjFixture()
	seedStockKeys(t, f.cache, 1, 10, "red")
	otherKey := cache.ProductStockKey(2)
	assert.NoError(t, f.cache.Set(ctx, otherKey, []byte("1"), time.Minute))

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(7)).Return(int64(12), true, nil)
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(1), mock.Anything, f.now).Return(int64(0), nil)

	f.hRepo.On("Create", mock.Anything, mock.MatchedBy(func(h model.InventoryHistory) bool {
		return h.ProductID == 1 &&
			h.VariantID != nil && *h.VariantID == 10 &&
			h.PreviousQuantity == 5 && h.NewQuantity == 12 && h.Delta == 7 &&
			h.Reason == model.ReasonRestock &&
			h.UserID == 42 &&
			h.CorrelationID == "corr-1" &&
			h.CreatedAt.Equal(f.now)
	})).Return(model.InventoryHistory{ID: 100, CorrelationID: "corr-1"}, nil)

	out, err := f.uc.Adjust(ctx, usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     7,
		Reason:    model.ReasonRestock,
		UserID:    42,
	})
	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, int64(5), out.PreviousQuantity)
	assert.Equal(t, int64(12), out.NewQuantity)
	assert.Equal(t, int64(12), out.AvailableStock)
	assert.Equal(t, model.StockStatusInStock, out.Status)
	assert.Equal(t, int64(100), out.History.ID)

	// 全形式のキーが破棄される。他商品のキーは残る
	assertStockKeysGone(t, f.cache, 1, 10, "red")
	_, err = f.cache.Get(ctx, otherKey)
	assert.NoError(t, err)

	evs := f.pub.Events()
	if assert.Equal(t, 1, len(evs)) {
		assert.Equal(t, int64(1), evs[0].ProductID)
		assert.Equal(t, int64(12), evs[0].TotalStock)
		assert.Equal(t, int64(12), evs[0].AvailableStock)
		assert.Equal(t, model.StockStatusInStock, evs[0].Status)
		assert.True(t, evs[0].OccurredAt.Equal(f.now))
	}

	f.pRepo.AssertExpectations(t)
	f.hRepo.AssertExpectations(t)
}

func TestAdjustmentUsecase_Adjust_ProductNotFound(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 99,
		Delta:     1,
		Reason:    model.ReasonRestock,
	})
	assertAppCode(t, err, usecase.CodeProductNotFound)
}

func TestAdjustmentUsecase_Adjust_RejectsZeroDelta(t *testing.T) {
	f := newAdjFixture()

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		Delta:     0,
		Reason:    model.ReasonRestock,
	})
	assertAppCode(t, err, usecase.CodeInvalidInput)
	f.pRepo.AssertNotCalled(t, "FindByID")
}

// =====================
// Adjust: saleはavailable（予約差し引き後）に対して検査する
// =====================

func TestAdjustmentUsecase_Adjust_SaleBlockedByReservations(t *testing.T) {
	ctx := context.Background()
	f := newAdjFixture()
	seedStockKeys(t, f.cache, 1, 10, "red")

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)

	// committed 5 のうち 4 が予約中 → available 1
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(1), mock.MatchedBy(func(v *int64) bool {
		return v != nil && *v == 10
	}), f.now).Return(int64(4), nil)

	_, err := f.uc.Adjust(ctx, usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     -2,
		Reason:    model.ReasonSale,
		UserID:    7,
	})

	var insErr *usecase.InsufficientStockError
	if assert.ErrorAs(t, err, &insErr) {
		assert.Equal(t, int64(2), insErr.Requested)
		assert.Equal(t, int64(1), insErr.Available)
		assert.Equal(t, int64(10), insErr.VariantID)
	}

	// 差分適用まで進まない。キャッシュもイベントも動かない
	f.pRepo.AssertNotCalled(t, "ApplyInventoryDelta")
	f.hRepo.AssertNotCalled(t, "Create")
	assert.Equal(t, 0, len(f.pub.Events()))
	_, cacheErr := f.cache.Get(ctx, cache.ProductStockKey(1))
	assert.NoError(t, cacheErr)
}

// saleでなければ予約は売り越し検査に関与しない（committedだけで判定）
func TestAdjustmentUsecase_Adjust_DecrementBelowZero(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(-10)).Return(int64(0), false, nil)
	f.pRepo.On("FindVariantByID", mock.Anything, int64(10)).Return(model.ProductVariant{ID: 10, ProductID: 1, Inventory: 5}, nil)

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     -10,
		Reason:    model.ReasonCorrection,
	})

	var insErr *usecase.InsufficientStockError
	if assert.ErrorAs(t, err, &insErr) {
		assert.Equal(t, int64(10), insErr.Requested)
		assert.Equal(t, int64(5), insErr.Available)
	}
	f.hRepo.AssertNotCalled(t, "Create")
}

func TestAdjustmentUsecase_Adjust_IncrementOverLimit(t *testing.T) {
	f := newAdjFixture()

	p := redTeeProduct()
	p.Variants[0].Inventory = 999990

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(p, nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(500000)).Return(int64(0), false, nil)
	f.pRepo.On("FindVariantByID", mock.Anything, int64(10)).Return(model.ProductVariant{ID: 10, ProductID: 1, Inventory: 999990}, nil)

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     500000,
		Reason:    model.ReasonRestock,
	})

	var limErr *usecase.StockLimitExceededError
	if assert.ErrorAs(t, err, &limErr) {
		assert.Equal(t, int64(500000), limErr.Requested)
		assert.Equal(t, model.MaxInventory, limErr.Limit)
	}
}

// 条件付きUPDATEが空振りした後の読み直しで行が消えていた
func TestAdjustmentUsecase_Adjust_VariantRowGone(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(1)).Return(int64(0), false, nil)
	f.pRepo.On("FindVariantByID", mock.Anything, int64(10)).Return(model.ProductVariant{}, repo.ErrNotFound)

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     1,
		Reason:    model.ReasonRestock,
	})
	assertAppCode(t, err, usecase.CodeVariantNotFound)
}

// =====================
// Adjust: 競合リトライ
// =====================

// 競合2回なら3回目で通り、相関IDは全attemptで同じ値のまま
func TestAdjustmentUsecase_Adjust_RetriesOnWriteConflict(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(7)).Return(int64(0), false, repo.ErrVersionConflict).Twice()
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(7)).Return(int64(12), true, nil).Once()
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(int64(0), nil)

	f.hRepo.On("Create", mock.Anything, mock.MatchedBy(func(h model.InventoryHistory) bool {
		return h.CorrelationID == "corr-1"
	})).Return(model.InventoryHistory{ID: 100}, nil)

	out, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     7,
		Reason:    model.ReasonRestock,
	})
	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, int64(12), out.NewQuantity)

	// 採番はリトライ前の1回だけ
	assert.Equal(t, 1, f.idGen.calls)
	f.tx.AssertNumberOfCalls(t, "WithinTx", 3)
	f.pRepo.AssertExpectations(t)
}

func TestAdjustmentUsecase_Adjust_ConflictRetriesExhausted(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{}, repo.ErrVersionConflict)

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     7,
		Reason:    model.ReasonRestock,
	})
	assertAppCode(t, err, usecase.CodeVersionConflict)

	// 初回 + リトライ3回
	f.tx.AssertNumberOfCalls(t, "WithinTx", 4)
	assert.Equal(t, 0, len(f.pub.Events()))
}

// =====================
// Adjust: デフォルトバリアントの遅延作成
// =====================

func TestAdjustmentUsecase_Adjust_CreatesDefaultVariantLazily(t *testing.T) {
	f := newAdjFixture()

	bare := model.Product{ID: 3, Name: "Mug", Price: 500, LowStockThreshold: 2}

	f.pRepo.On("FindByID", mock.Anything, int64(3)).Return(bare, nil)
	f.pRepo.On("FindByIDForUpdate", mock.Anything, int64(3)).Return(bare, nil)
	f.pRepo.On("CreateVariant", mock.Anything, mock.MatchedBy(func(v model.ProductVariant) bool {
		return v.ProductID == 3 && v.Label == model.DefaultVariantLabel && v.Inventory == 0 && v.Price == 500
	})).Return(model.ProductVariant{ID: 7, ProductID: 3, Label: model.DefaultVariantLabel, Price: 500}, nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(7), int64(3)).Return(int64(3), true, nil)
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(int64(0), nil)
	f.hRepo.On("Create", mock.Anything, mock.MatchedBy(func(h model.InventoryHistory) bool {
		return h.VariantID != nil && *h.VariantID == 7
	})).Return(model.InventoryHistory{ID: 101}, nil)

	out, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 3,
		Delta:     3,
		Reason:    model.ReasonRestock,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), out.NewQuantity)
	if assert.NotNil(t, out.VariantID) {
		assert.Equal(t, int64(7), *out.VariantID)
	}

	f.pRepo.AssertExpectations(t)
}

// 行ロック下の読み直しで既に他Txが作成済みなら再作成しない
func TestAdjustmentUsecase_Adjust_DefaultVariantAlreadyCreated(t *testing.T) {
	f := newAdjFixture()

	bare := model.Product{ID: 3, Name: "Mug", Price: 500, LowStockThreshold: 2}
	withDefault := bare
	withDefault.Variants = []model.ProductVariant{
		{ID: 7, ProductID: 3, Label: model.DefaultVariantLabel, Price: 500, Inventory: 4},
	}

	f.pRepo.On("FindByID", mock.Anything, int64(3)).Return(bare, nil)
	f.pRepo.On("FindByIDForUpdate", mock.Anything, int64(3)).Return(withDefault, nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(7), int64(3)).Return(int64(7), true, nil)
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(int64(0), nil)
	f.hRepo.On("Create", mock.Anything, mock.Anything).Return(model.InventoryHistory{ID: 102}, nil)

	out, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 3,
		Delta:     3,
		Reason:    model.ReasonRestock,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.NewQuantity)

	f.pRepo.AssertNotCalled(t, "CreateVariant")
}

// =====================
// BulkAdjust
// =====================

// 1件の失敗でバッチは止まらず、失敗行にも入力のreason/metadataが残る
func TestAdjustmentUsecase_BulkAdjust_IndependentItems(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(7)).Return(int64(12), true, nil)
	f.rRepo.On("SumActiveForVariant", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(int64(0), nil)

	// 実行者IDは全行に引き継がれる
	f.hRepo.On("Create", mock.Anything, mock.MatchedBy(func(h model.InventoryHistory) bool {
		return h.UserID == 42
	})).Return(model.InventoryHistory{ID: 100}, nil)

	outs, err := f.uc.BulkAdjust(context.Background(), []usecase.AdjustInput{
		{ProductID: 1, VariantID: 10, Delta: 7, Reason: model.ReasonRestock},
		{ProductID: 99, Delta: 1, Reason: model.ReasonRestock, Metadata: `{"po":"A-1"}`},
	}, 42)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(outs))

	assert.True(t, outs[0].Success)
	assert.Equal(t, int64(12), outs[0].NewQuantity)

	assert.False(t, outs[1].Success)
	assert.Equal(t, int64(99), outs[1].ProductID)
	assertErrContainsMessage(t, outs[1].Message, "product not found")
	assert.Equal(t, model.ReasonRestock, outs[1].History.Reason)
	assert.Equal(t, `{"po":"A-1"}`, outs[1].History.MetadataJSON)

	f.hRepo.AssertExpectations(t)
}

func assertErrContainsMessage(t *testing.T, got string, wantSubstr string) {
	t.Helper()
	assert.True(t, strings.Contains(got, wantSubstr), "message=%q want contains %q", got, wantSubstr)
}

// =====================
// AdjustWithin: DB障害はそのまま上げる
// =====================

func TestAdjustmentUsecase_Adjust_HistoryWriteFailure(t *testing.T) {
	f := newAdjFixture()

	f.pRepo.On("FindByID", mock.Anything, int64(1)).Return(redTeeProduct(), nil)
	f.pRepo.On("ApplyInventoryDelta", mock.Anything, int64(10), int64(7)).Return(int64(12), true, nil)
	f.hRepo.On("Create", mock.Anything, mock.Anything).Return(model.InventoryHistory{}, errors.New("db down"))

	_, err := f.uc.Adjust(context.Background(), usecase.AdjustInput{
		ProductID: 1,
		VariantID: 10,
		Delta:     7,
		Reason:    model.ReasonRestock,
	})
	assertErrContains(t, err, "db down")

	// 失敗したattemptの結果は外へ出ない
	assert.Equal(t, 0, len(f.pub.Events()))
	f.tx.AssertNumberOfCalls(t, "WithinTx", 1)
}
