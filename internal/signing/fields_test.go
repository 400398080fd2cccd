package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signapi/internal/model"
)

func TestRemainingFields(t *testing.T) {
	fields := []model.Field{
		{ID: 1, RecipientID: 1, Type: model.FieldTypeSignature},
		{ID: 2, RecipientID: 1, Type: model.FieldTypeText},
		{ID: 3, RecipientID: 1, Type: model.FieldTypeText, Meta: model.FieldMeta{Required: true}},
		{ID: 4, RecipientID: 1, Type: model.FieldTypeDate, Inserted: true},
		{ID: 5, RecipientID: 1, Type: model.FieldTypeName, Meta: model.FieldMeta{ReadOnly: true}},
		{ID: 6, RecipientID: 2, Type: model.FieldTypeSignature},
	}

	var ids []int64
	for _, f := range RemainingFields(fields, 1) {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
	assert.Len(t, FieldsFor(fields, 1), 5)
	assert.True(t, HasSignableSignatureFields(fields, 2))
	assert.False(t, HasSignableSignatureFields([]model.Field{{RecipientID: 3, Type: model.FieldTypeText}}, 3))
	assert.False(t, HasSignableSignatureFields([]model.Field{
		{RecipientID: 4, Type: model.FieldTypeSignature, Inserted: true, Meta: model.FieldMeta{ReadOnly: true}},
	}, 4))
}

func TestAllRecipientsSigned(t *testing.T) {
	signed := model.Recipient{Role: model.RoleSigner, SigningStatus: model.SigningStatusSigned}
	cc := model.Recipient{Role: model.RoleCC, SigningStatus: model.SigningStatusNotSigned}
	viewer := model.Recipient{Role: model.RoleViewer, SigningStatus: model.SigningStatusNotSigned}

	assert.True(t, AllRecipientsSigned([]model.Recipient{signed, cc}))
	assert.False(t, AllRecipientsSigned([]model.Recipient{signed, viewer}))
}

func TestTransitions(t *testing.T) {
	assert.True(t, EnvelopeTransitions.Can(model.EnvelopeStatusPending, model.EnvelopeStatusCompleted))
	assert.Error(t, EnvelopeTransitions.Check(model.EnvelopeStatusCompleted, model.EnvelopeStatusPending))
	assert.Error(t, RecipientTransitions.Check(model.SigningStatusSigned, model.SigningStatusNotSigned))
	assert.NoError(t, FieldTransitions.Check(FieldSigned, FieldUnsigned))
	assert.Error(t, FieldTransitions.Check(FieldLocked, FieldSigned))
	assert.Error(t, FieldTransitions.Check(FieldLocked, FieldUnsigned))
	assert.Equal(t, FieldSigned, StateOf(&model.Field{Inserted: true}))
	assert.Equal(t, FieldUnsigned, StateOf(&model.Field{}))
	assert.Equal(t, FieldLocked, StateOf(&model.Field{Inserted: true, Meta: model.FieldMeta{ReadOnly: true}}))
}
