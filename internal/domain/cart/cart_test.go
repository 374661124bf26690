package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
	"id": 3,
	"items": [
		{"id": 11, "product_id": 5, "product_title": "Tea", "product_image": "tea.png",
		 "product_price": 1075, "product_old_price": null, "quantity": 2, "subtotal": 2150}
	],
	"total_items": 2,
	"total_amount": 2150,
	"bonus_balance": 1000,
	"max_bonus_usage": 300,
	"bonus_will_earn": 107.5
}`

func TestSnapshotDecode(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(snapshotJSON), &s))

	require.Len(t, s.Items, 1)
	assert.Nil(t, s.Items[0].ProductOldPrice)
	assert.Equal(t, "2150", s.TotalAmount.String())
	assert.Equal(t, "107.5", s.BonusWillEarn.String())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, int64(300), s.BonusPolicy().Limit())
}

func TestSnapshotEmpty(t *testing.T) {
	var nilSnap *Snapshot
	assert.True(t, nilSnap.IsEmpty())
	assert.True(t, (&Snapshot{}).IsEmpty())
	assert.Equal(t, int64(0), nilSnap.BonusPolicy().Limit())
}

func TestPayloadValidation(t *testing.T) {
	assert.NoError(t, AddItem{ProductID: 1, Quantity: 1}.Validate())
	assert.ErrorIs(t, AddItem{ProductID: 0, Quantity: 1}.Validate(), ErrInvalidProduct)
	assert.ErrorIs(t, AddItem{ProductID: 1, Quantity: 0}.Validate(), ErrInvalidQuantity)

	assert.NoError(t, UpdateQuantity{ItemID: 1, Quantity: 3}.Validate())
	assert.ErrorIs(t, UpdateQuantity{ItemID: 0, Quantity: 3}.Validate(), ErrInvalidItem)
	assert.ErrorIs(t, UpdateQuantity{ItemID: 1, Quantity: 0}.Validate(), ErrInvalidQuantity)
}
