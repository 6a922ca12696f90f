package databases

// go generate: mockery --name SaleDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ventasimple/license-api/models"
)

const saleName = "sales"

// SaleDatabase contains the methods to use with the sales database
type SaleDatabase interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) ([]models.SalesSeriesPoint, error)
}

type saleDatabase struct {
	db DatabaseHelper
}

// NewSaleDatabase initializes a new instance of sale database with the provided db connection
func NewSaleDatabase(db DatabaseHelper) SaleDatabase {
	return &saleDatabase{
		db: db,
	}
}

func (c *saleDatabase) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) ([]models.SalesSeriesPoint, error) {
	cur, err := c.db.Collection(saleName).Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	var points []models.SalesSeriesPoint
	if err := cur.Decode(&points); err != nil {
		return nil, err
	}
	return points, nil
}
