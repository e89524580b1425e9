package model

import (
	"time"

	"gorm.io/gorm"
)

// 在庫数の上限。これを超える補充は拒否する。
const MaxInventory int64 = 999999

// 商品。在庫はProductではなくProductVariantが持つ。
// name/price等のカタログ編集はこのコアの外で行う。
type Product struct {
	ID                int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string           `gorm:"type:varchar(255);not null" json:"name"`
	Description       string           `gorm:"type:text" json:"description"`
	Price             int64            `gorm:"not null" json:"price"`
	IsActive          bool             `gorm:"not null;default:false" json:"is_active"`
	LowStockThreshold int64            `gorm:"not null;default:5" json:"low_stock_threshold"`
	AllowBackorder    bool             `gorm:"not null;default:false" json:"allow_backorder"`
	Variants          []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedAt         time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
}
