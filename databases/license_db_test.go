package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ventasimple/license-api/databases"
	"github.com/ventasimple/license-api/databases/mocks"
	"github.com/ventasimple/license-api/models"
)

func TestLicenseDatabaseFindOne(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	single := &mocks.SingleResultHelper{}

	single.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.License)
		(*arg).Details.Token = "VS-a1b2c3-xyz"
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(single)
	db.On("Collection", "licenses").Return(conn)

	licenseDB := databases.NewLicenseDatabase(db)
	lic, err := licenseDB.FindOne(context.Background(), bson.M{"license.token": "VS-a1b2c3-xyz"})

	require.NoError(t, err)
	assert.Equal(t, "VS-a1b2c3-xyz", lic.Details.Token)
}

func TestLicenseDatabaseFindOneError(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	single := &mocks.SingleResultHelper{}

	single.On("Decode", mock.Anything).Return(errors.New("mocked-error"))
	conn.On("FindOne", mock.Anything, mock.Anything).Return(single)
	db.On("Collection", "licenses").Return(conn)

	licenseDB := databases.NewLicenseDatabase(db)
	_, err := licenseDB.FindOne(context.Background(), bson.M{"_id": "nope"})

	assert.EqualError(t, err, "mocked-error")
}

func TestLicenseDatabaseEnsureIndexes(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	var gotModels []mongo.IndexModel
	conn.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		gotModels = args.Get(1).([]mongo.IndexModel)
	})
	db.On("Collection", "licenses").Return(conn)

	licenseDB := databases.NewLicenseDatabase(db)
	require.NoError(t, licenseDB.EnsureIndexes(context.Background()))

	require.Len(t, gotModels, 3)

	// token and preapprovalId must be unique and sparse so the indexes only
	// bite once the fields are assigned
	for _, m := range gotModels[:2] {
		require.NotNil(t, m.Options)
		assert.True(t, *m.Options.Unique)
		assert.True(t, *m.Options.Sparse)
	}
}

func TestSaleDatabaseAggregate(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.SalesSeriesPoint)
		*arg = []models.SalesSeriesPoint{{Amount: 100, Tickets: 2}}
	})
	conn.On("Aggregate", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "sales").Return(conn)

	saleDB := databases.NewSaleDatabase(db)
	points, err := saleDB.Aggregate(context.Background(), bson.A{})

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, float64(100), points[0].Amount)
}
