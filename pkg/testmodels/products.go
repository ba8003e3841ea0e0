package testmodels

import (
	"time"

	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/uptrace/bun"
)

// Address is where a producer is based
type Address struct {
	bun.BaseModel `bun:"table:tests_address" gorm:"-"`

	ID     int64  `json:"id" bun:"id,pk,autoincrement" gorm:"column:id;primaryKey;autoIncrement"`
	City   string `json:"city" bun:"city" gorm:"column:city"`
	Street string `json:"street" bun:"street" gorm:"column:street"`
}

func (Address) TableName() string {
	return "tests_address"
}

// Producer makes products
type Producer struct {
	bun.BaseModel `bun:"table:tests_producer" gorm:"-"`

	ID        int64    `json:"id" bun:"id,pk,autoincrement" gorm:"column:id;primaryKey;autoIncrement"`
	Name      string   `json:"name" bun:"name" gorm:"column:name"`
	AddressID *int64   `json:"address_id" bun:"address_id" gorm:"column:address_id"`
	Address   *Address `json:"address,omitempty" bun:"rel:belongs-to,join:address_id=id" gorm:"foreignKey:AddressID;references:ID"`
}

func (Producer) TableName() string {
	return "tests_producer"
}

// Product is the model most queries run against
type Product struct {
	bun.BaseModel `bun:"table:tests_product" gorm:"-"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement" gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `json:"name" bun:"name" gorm:"column:name"`
	Size        float64   `json:"size" bun:"size" gorm:"column:size"`
	SizeUnit    string    `json:"size_unit" bun:"size_unit" gorm:"column:size_unit"`
	CreatedTime time.Time `json:"created_time" bun:"created_time" gorm:"column:created_time"`
	IsOnsale    bool      `json:"is_onsale" bun:"is_onsale" gorm:"column:is_onsale"`
	ProducerID  int64     `json:"producer_id" bun:"producer_id" gorm:"column:producer_id"`
	Producer    *Producer `json:"producer,omitempty" bun:"rel:belongs-to,join:producer_id=id" gorm:"foreignKey:ProducerID;references:ID"`
}

func (Product) TableName() string {
	return "tests_product"
}

// RegisterTestModels registers all test models with the provided registry
func RegisterTestModels(registry *modelregistry.DefaultModelRegistry) {
	registry.RegisterModel("tests.Address", Address{})
	registry.RegisterModel("tests.Producer", Producer{})
	registry.RegisterModel("tests.Product", Product{})
}

// GetTestModels returns pointers to every test model, in dependency order
func GetTestModels() []interface{} {
	return []interface{}{
		&Address{},
		&Producer{},
		&Product{},
	}
}
