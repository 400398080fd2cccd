package signing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

func sequentialEnvelope(recipients ...model.Recipient) *model.Envelope {
	meta := model.DefaultDocumentMeta()
	meta.SigningOrder = model.SigningOrderSequential
	return &model.Envelope{ID: "env-1", Status: model.EnvelopeStatusPending, DocumentMeta: meta, Recipients: recipients}
}

func recipient(id int64, order *int, role model.RecipientRole) model.Recipient {
	return model.Recipient{ID: id, SigningOrder: order, Role: role, SigningStatus: model.SigningStatusNotSigned}
}

func TestSortRecipients(t *testing.T) {
	rs := []model.Recipient{
		recipient(5, nil, model.RoleSigner),
		recipient(4, intPtr(2), model.RoleSigner),
		recipient(3, nil, model.RoleSigner),
		recipient(2, intPtr(1), model.RoleSigner),
		recipient(1, intPtr(2), model.RoleSigner),
	}
	var ids []int64
	for _, r := range SortRecipients(rs) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 1, 4, 3, 5}, ids)
	assert.Equal(t, int64(5), rs[0].ID, "input must not be reordered")
}

func TestNextRecipient(t *testing.T) {
	env := sequentialEnvelope(
		recipient(30, intPtr(3), model.RoleSigner),
		recipient(10, intPtr(1), model.RoleSigner),
		recipient(20, intPtr(2), model.RoleSigner),
	)

	next := NextRecipient(env, 10)
	require.NotNil(t, next)
	assert.Equal(t, int64(20), next.ID)
	assert.Nil(t, NextRecipient(env, 30))
	assert.Nil(t, NextRecipient(env, 99))

	env.DocumentMeta.SigningOrder = model.SigningOrderParallel
	assert.Nil(t, NextRecipient(env, 10))
}

func TestIsRecipientTurn(t *testing.T) {
	first := recipient(1, intPtr(1), model.RoleSigner)
	cc := recipient(2, intPtr(2), model.RoleCC)
	third := recipient(3, intPtr(3), model.RoleSigner)
	env := sequentialEnvelope(first, cc, third)

	assert.True(t, IsRecipientTurn(env, &first))
	assert.False(t, IsRecipientTurn(env, &third))

	env.Recipients[0].SigningStatus = model.SigningStatusSigned
	assert.True(t, IsRecipientTurn(env, &third), "cc recipients do not block")

	env.Recipients[0].SigningStatus = model.SigningStatusNotSigned
	env.DocumentMeta.SigningOrder = model.SigningOrderParallel
	assert.True(t, IsRecipientTurn(env, &third))
}

func TestResolveAssistantScope(t *testing.T) {
	assistant := recipient(1, intPtr(1), model.RoleAssistant)
	downstream := recipient(2, intPtr(2), model.RoleSigner)
	signedDownstream := recipient(3, intPtr(3), model.RoleSigner)
	signedDownstream.SigningStatus = model.SigningStatusSigned
	upstream := recipient(4, intPtr(0), model.RoleSigner)

	env := sequentialEnvelope(assistant, downstream, signedDownstream, upstream)
	env.Fields = []model.Field{
		{ID: 100, RecipientID: 2, Type: model.FieldTypeText},
		{ID: 101, RecipientID: 2, Type: model.FieldTypeSignature},
		{ID: 102, RecipientID: 2, Type: model.FieldTypeFreeSignature},
		{ID: 103, RecipientID: 3, Type: model.FieldTypeText},
		{ID: 104, RecipientID: 4, Type: model.FieldTypeText},
		{ID: 105, RecipientID: 1, Type: model.FieldTypeName},
	}

	scope := ResolveAssistantScope(&assistant, env)
	assert.True(t, scope.CoversRecipient(2))
	assert.True(t, scope.CoversRecipient(3))
	assert.False(t, scope.CoversRecipient(4))
	assert.False(t, scope.CoversRecipient(1))

	assert.True(t, scope.CoversField(100))
	assert.False(t, scope.CoversField(101), "signature fields are never delegated")
	assert.False(t, scope.CoversField(102))
	assert.False(t, scope.CoversField(103), "owner already signed")
	assert.False(t, scope.CoversField(104))

	signer := recipient(2, intPtr(2), model.RoleSigner)
	assert.Empty(t, ResolveAssistantScope(&signer, env).DelegateRecipients)
}

func TestResolveDictatedNextSigner(t *testing.T) {
	env := sequentialEnvelope(
		recipient(1, intPtr(1), model.RoleSigner),
		recipient(2, intPtr(2), model.RoleSigner),
	)

	_, err := ResolveDictatedNextSigner(env, 1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest), "dictation disabled")

	env.DocumentMeta.AllowDictateNextSigner = true
	next, err := ResolveDictatedNextSigner(env, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)

	_, err = ResolveDictatedNextSigner(env, 2)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest), "no next recipient")

	env.Recipients[1].SigningStatus = model.SigningStatusSigned
	_, err = ResolveDictatedNextSigner(env, 1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest), "next already signed")
}
