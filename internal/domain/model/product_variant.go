package model

import "time"

// バリアント未登録の旧商品に合成するデフォルトのラベル。
const DefaultVariantLabel = "default"

// 商品バリアント。
// Inventory（committed在庫）の書き換えは在庫調整の条件付きUPDATEだけが行う。
// Labelはidと並ぶ第二のアドレスで、同一商品内で一意に扱う。
type ProductVariant struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	Label     string    `gorm:"type:varchar(255);not null" json:"label"`
	SKU       string    `gorm:"type:varchar(100)" json:"sku"`
	ImageURL  string    `gorm:"type:varchar(500)" json:"image_url"`
	Price     int64     `gorm:"not null" json:"price"`
	Inventory int64     `gorm:"not null;default:0" json:"inventory"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// バリアント未登録の旧商品を在庫0のデフォルト1件として扱うための合成値。
// ID=0のまま返し、書き込みが起きるまで永続化しない。
func NewDefaultVariant(p Product) ProductVariant {
	return ProductVariant{
		ProductID: p.ID,
		Label:     DefaultVariantLabel,
		Price:     p.Price,
		Inventory: 0,
	}
}
