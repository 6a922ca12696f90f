package databases

// go generate: mockery --name LicenseDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ventasimple/license-api/models"
)

const licenseName = "licenses"

// LicenseDatabase contains the methods to use with the license database
type LicenseDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.License, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.License, error)
	InsertOne(ctx context.Context, license models.License, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (UpdateResultHelper, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type licenseDatabase struct {
	db DatabaseHelper
}

// NewLicenseDatabase initializes a new instance of license database with the provided db connection
func NewLicenseDatabase(db DatabaseHelper) LicenseDatabase {
	return &licenseDatabase{
		db: db,
	}
}

func (c *licenseDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.License, error) {
	license := &models.License{}
	err := c.db.Collection(licenseName).FindOne(ctx, filter, opts...).Decode(&license)
	if err != nil {
		return nil, err
	}
	return license, nil
}

func (c *licenseDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.License, error) {
	var licenses []models.License
	cur := c.db.Collection(licenseName).Find(ctx, filter, opts...)
	err := cur.Decode(&licenses)
	if err != nil {
		return nil, err
	}
	return licenses, nil
}

func (c *licenseDatabase) InsertOne(ctx context.Context, license models.License, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(licenseName).InsertOne(ctx, license, opts...)
}

func (c *licenseDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (UpdateResultHelper, error) {
	return c.db.Collection(licenseName).UpdateOne(ctx, filter, update, opts...)
}

func (c *licenseDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(licenseName).CountDocuments(ctx, filter, opts...)
}

// EnsureIndexes creates the unique sparse indexes on license.token and
// license.preapprovalId. These are the last line of defense against
// concurrent writers racing token generation or subscription linking.
func (c *licenseDatabase) EnsureIndexes(ctx context.Context) error {
	unique := true
	sparse := true
	return c.db.Collection(licenseName).CreateIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "license.token", Value: 1}},
			Options: &options.IndexOptions{Unique: &unique, Sparse: &sparse},
		},
		{
			Keys:    bson.D{{Key: "license.preapprovalId", Value: 1}},
			Options: &options.IndexOptions{Unique: &unique, Sparse: &sparse},
		},
		{
			Keys: bson.D{{Key: "license.userID", Value: 1}},
		},
	})
}
