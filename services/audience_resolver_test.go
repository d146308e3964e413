package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUniqueIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, []primitive.ObjectID{a, b}, uniqueIDs([]primitive.ObjectID{a, b, a, b, a}))
	assert.Empty(t, uniqueIDs(nil))
}

func TestExcludeID(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	sender := primitive.NewObjectID()

	assert.Equal(t, []primitive.ObjectID{a, b}, excludeID([]primitive.ObjectID{a, sender, b}, sender))
	assert.Empty(t, excludeID([]primitive.ObjectID{sender}, sender))
}
