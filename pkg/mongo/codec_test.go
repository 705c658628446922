package mongo

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type pricedDoc struct {
	Price decimal.Decimal `bson:"price"`
}

func encodeWithRegistry(t *testing.T, v interface{}) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	enc := bson.NewEncoder(bson.NewDocumentWriter(buf))
	enc.SetRegistry(Registry())
	require.NoError(t, enc.Encode(v))
	return buf.Bytes()
}

func decodeWithRegistry(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(data)))
	dec.SetRegistry(Registry())
	require.NoError(t, dec.Decode(v))
}

func TestDecimalCodecStoresDecimal128(t *testing.T) {
	data := encodeWithRegistry(t, pricedDoc{Price: decimal.RequireFromString("5.50")})

	raw := bson.Raw(data)
	assert.Equal(t, bson.TypeDecimal128, raw.Lookup("price").Type)

	var out pricedDoc
	decodeWithRegistry(t, data, &out)
	assert.True(t, out.Price.Equal(decimal.RequireFromString("5.5")), "got %s", out.Price)
}

func TestDecimalCodecReadsLegacyNumbers(t *testing.T) {
	cases := map[string]struct {
		value    interface{}
		expected string
	}{
		"double": {value: 2.5, expected: "2.5"},
		"int32":  {value: int32(3), expected: "3"},
		"int64":  {value: int64(7), expected: "7"},
		"string": {value: "4.25", expected: "4.25"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := bson.Marshal(bson.D{{Key: "price", Value: tc.value}})
			require.NoError(t, err)

			var out pricedDoc
			decodeWithRegistry(t, data, &out)
			assert.True(t, out.Price.Equal(decimal.RequireFromString(tc.expected)), "got %s", out.Price)
		})
	}
}

func TestDecimalCodecRejectsBooleans(t *testing.T) {
	data, err := bson.Marshal(bson.D{{Key: "price", Value: true}})
	require.NoError(t, err)

	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(data)))
	dec.SetRegistry(Registry())
	var out pricedDoc
	assert.Error(t, dec.Decode(&out))
}
