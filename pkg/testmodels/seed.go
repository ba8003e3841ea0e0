package testmodels

import (
	"context"
	"fmt"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
)

func create(ctx context.Context, db common.Database, model interface{}, what string) error {
	if _, err := db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("create %s: %w", what, err)
	}
	return nil
}

func createProducer(ctx context.Context, db common.Database, city, street string) (*Producer, error) {
	address := &Address{City: city, Street: street}
	if err := create(ctx, db, address, "address"); err != nil {
		return nil, err
	}
	producer := &Producer{Name: "Bob", AddressID: &address.ID}
	if err := create(ctx, db, producer, "producer"); err != nil {
		return nil, err
	}
	return producer, nil
}

// SeedProducts creates three products sized 1, 1 and 2 grams made by Bob
// from london.
func SeedProducts(ctx context.Context, db common.Database) error {
	producer, err := createProducer(ctx, db, "london", "")
	if err != nil {
		return err
	}

	products := []*Product{
		{Name: "a", Size: 1, SizeUnit: "g", ProducerID: producer.ID},
		{Name: "b", Size: 1, SizeUnit: "g", ProducerID: producer.ID},
		{Name: "c", Size: 2, SizeUnit: "g", ProducerID: producer.ID},
	}
	for _, p := range products {
		if err := create(ctx, db, p, "product "+p.Name); err != nil {
			return err
		}
	}
	return nil
}

// PivotTimes are the creation times used by SeedPivotProducts.
var PivotTimes = []time.Time{
	time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC),
	time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
	time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
}

// SeedPivotProducts creates one product per PivotTimes entry.
func SeedPivotProducts(ctx context.Context, db common.Database) error {
	producer, err := createProducer(ctx, db, "london", "bad")
	if err != nil {
		return err
	}

	for _, dt := range PivotTimes {
		p := &Product{CreatedTime: dt, Name: dt.Format(time.RFC3339), ProducerID: producer.ID}
		if err := create(ctx, db, p, "product "+p.Name); err != nil {
			return err
		}
	}
	return nil
}
