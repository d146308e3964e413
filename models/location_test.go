package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLocationUnmarshalJSONLegacyString(t *testing.T) {
	var l Location
	require.NoError(t, json.Unmarshal([]byte(`"Beirut Waterfront"`), &l))
	assert.Equal(t, "Beirut Waterfront", l.Name)
	assert.Empty(t, l.City)
}

func TestLocationUnmarshalJSONStructured(t *testing.T) {
	var l Location
	payload := `{"name":"Forum Hall","city":"Beirut","lat":33.9,"lng":35.5}`
	require.NoError(t, json.Unmarshal([]byte(payload), &l))
	assert.Equal(t, "Forum Hall", l.Name)
	assert.Equal(t, "Beirut", l.City)
	assert.InDelta(t, 33.9, l.Lat, 0.001)
}

func TestLocationUnmarshalBSONLegacyString(t *testing.T) {
	type doc struct {
		Location *Location `bson:"location"`
	}

	raw, err := bson.Marshal(bson.M{"location": "Old Souk"})
	require.NoError(t, err)

	var d doc
	require.NoError(t, bson.Unmarshal(raw, &d))
	require.NotNil(t, d.Location)
	assert.Equal(t, "Old Souk", d.Location.Name)
}

func TestLocationUnmarshalBSONStructured(t *testing.T) {
	type doc struct {
		Location *Location `bson:"location"`
	}

	raw, err := bson.Marshal(bson.M{"location": bson.M{"name": "Forum Hall", "city": "Beirut"}})
	require.NoError(t, err)

	var d doc
	require.NoError(t, bson.Unmarshal(raw, &d))
	require.NotNil(t, d.Location)
	assert.Equal(t, "Forum Hall", d.Location.Name)
	assert.Equal(t, "Beirut", d.Location.City)
}
