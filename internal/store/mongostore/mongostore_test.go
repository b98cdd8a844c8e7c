package mongostore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

func TestFilterDoc(t *testing.T) {
	lo := time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2019, 4, 30, 0, 0, 0, 0, time.UTC)

	got := filterDoc([]store.Cond{
		store.Where("last_trade_date", store.Gte, lo),
		store.Where("trading_code", store.NotContains, "A"),
		store.Where("last_trade_date", store.Lte, hi),
	})

	want := bson.D{
		{Key: "last_trade_date", Value: bson.D{{Key: "$gte", Value: lo}, {Key: "$lte", Value: hi}}},
		{Key: "trading_code", Value: bson.D{{Key: "$not", Value: primitive.Regex{Pattern: "A"}}}},
	}
	assert.Equal(t, want, got)
}

func TestFilterDocQuotesPattern(t *testing.T) {
	got := filterDoc([]store.Cond{store.Where("name", store.NotContains, "a.b")})
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`}, got[0].Value.(bson.D)[0].Value)
}

func TestFilterDocEmpty(t *testing.T) {
	assert.Equal(t, bson.D{}, filterDoc(nil))
}

func TestSortAndProjection(t *testing.T) {
	assert.Equal(t,
		bson.D{{Key: "code", Value: -1}, {Key: "datetime", Value: 1}},
		sortDoc([]store.SortField{store.Desc("code"), store.Asc("datetime")}),
	)
	assert.Equal(t,
		bson.D{{Key: "_id", Value: 0}, {Key: "code", Value: 1}},
		projectionDoc([]string{"code"}),
	)
}

func TestIndexModel(t *testing.T) {
	m := indexModel(store.Index{Fields: []string{"code", "date"}, Unique: true})
	assert.Equal(t, bson.D{{Key: "code", Value: 1}, {Key: "date", Value: 1}}, m.Keys)
	require.NotNil(t, m.Options.Name)
	assert.Equal(t, "code_date_uniq", *m.Options.Name)
	require.NotNil(t, m.Options.Unique)
	assert.True(t, *m.Options.Unique)
}

func TestWriteModels(t *testing.T) {
	day := time.Date(2019, 4, 19, 0, 0, 0, 0, time.UTC)
	docs := []any{
		model.DailyBar{Code: "10001313", Date: day, Close: decimal.RequireFromString("0.0455")},
		model.DailyBar{Code: "10001314", Date: day},
	}

	models, err := writeModels(model.DatasetDaily, docs)
	require.NoError(t, err)
	require.Len(t, models, 2)

	m, ok := models[0].(*mongo.UpdateOneModel)
	require.True(t, ok)
	require.NotNil(t, m.Upsert)
	assert.True(t, *m.Upsert)

	filter, ok := m.Filter.(bson.D)
	require.True(t, ok)
	require.Len(t, filter, 2)
	assert.Equal(t, "code", filter[0].Key)
	assert.Equal(t, "10001313", filter[0].Value.(bson.RawValue).StringValue())
	assert.Equal(t, "date", filter[1].Key)
	assert.Equal(t, day, filter[1].Value.(bson.RawValue).Time().UTC())

	update, ok := m.Update.(bson.D)
	require.True(t, ok)
	require.Len(t, update, 1)
	assert.Equal(t, "$setOnInsert", update[0].Key)
	set := update[0].Value.(bson.Raw)
	assert.Equal(t, bson.TypeDecimal128, set.Lookup("close").Type)
}

func TestWriteModelsKeepOrder(t *testing.T) {
	docs := []any{
		model.OptionContract{ID: 3},
		model.OptionContract{ID: 1},
		model.OptionContract{ID: 2},
	}
	models, err := writeModels(model.DatasetContracts, docs)
	require.NoError(t, err)

	var ids []int64
	for _, wm := range models {
		f := wm.(*mongo.UpdateOneModel).Filter.(bson.D)
		ids = append(ids, f[0].Value.(bson.RawValue).Int64())
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestWriteModelsMissingKey(t *testing.T) {
	_, err := writeModels(model.DatasetDaily, []any{bson.D{{Key: "code", Value: "10001313"}}})
	assert.ErrorContains(t, err, "doc 0: missing key field date")
}

func TestWriteModelsUnknownDataset(t *testing.T) {
	_, err := writeModels(model.Dataset("nope"), []any{bson.D{}})
	assert.ErrorContains(t, err, "no natural key")
}

func TestSupportsTransactions(t *testing.T) {
	assert.False(t, helloReply{}.supportsTransactions())
	assert.True(t, helloReply{SetName: "rs0"}.supportsTransactions())
	assert.True(t, helloReply{Msg: "isdbgrid"}.supportsTransactions())
	assert.False(t, (&Store{}).AtomicInserts())
	assert.True(t, (&Store{txn: true}).AtomicInserts())
}

func TestDecimalCodec(t *testing.T) {
	reg := Registry()
	in := model.DailyBar{
		Code:  "10001313",
		Date:  time.Date(2019, 4, 19, 0, 0, 0, 0, time.UTC),
		Open:  decimal.RequireFromString("0.0312"),
		Close: decimal.RequireFromString("0.0455"),
		Money: decimal.RequireFromString("123456.78"),
	}

	raw, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	val := bson.Raw(raw).Lookup("open")
	assert.Equal(t, bson.TypeDecimal128, val.Type)

	var out model.DailyBar
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.True(t, in.Open.Equal(out.Open))
	assert.True(t, in.Money.Equal(out.Money))
	assert.Equal(t, in.Date, out.Date)
}

func TestDecimalDecodesOtherNumbers(t *testing.T) {
	reg := Registry()
	raw, err := bson.Marshal(bson.D{
		{Key: "open", Value: 1.5},
		{Key: "high", Value: int32(2)},
		{Key: "low", Value: int64(1)},
		{Key: "close", Value: "1.75"},
	})
	require.NoError(t, err)

	var out model.IndexPoint
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.Equal(t, "1.5", out.Open.String())
	assert.Equal(t, "2", out.High.String())
	assert.Equal(t, "1", out.Low.String())
	assert.Equal(t, "1.75", out.Close.String())
}
