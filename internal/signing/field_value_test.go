package signing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func TestDecodeFieldValue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FieldValue
		wantErr bool
	}{
		{name: "text", in: `{"type":"TEXT","value":"hello"}`, want: TextValue{Value: strPtr("hello")}},
		{name: "text null", in: `{"type":"TEXT","value":null}`, want: TextValue{}},
		{name: "signature", in: `{"type":"SIGNATURE","value":"data:image/png;base64,AAA"}`, want: SignatureValue{Value: strPtr("data:image/png;base64,AAA")}},
		{name: "radio", in: `{"type":"RADIO","value":2}`, want: RadioValue{Index: intPtr(2)}},
		{name: "radio null", in: `{"type":"RADIO","value":null}`, want: RadioValue{}},
		{name: "checkbox", in: `{"type":"CHECKBOX","value":[1,0]}`, want: CheckboxValue{Indices: []int{1, 0}}},
		{name: "date", in: `{"type":"DATE","value":true}`, want: DateValue{Insert: true}},
		{name: "unknown type", in: `{"type":"STAMP","value":"x"}`, wantErr: true},
		{name: "radio wrong shape", in: `{"type":"RADIO","value":"a"}`, wantErr: true},
		{name: "malformed", in: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFieldValue([]byte(tt.in))
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractInsertionValue_TypeMismatch(t *testing.T) {
	f := &model.Field{Type: model.FieldTypeSignature}
	_, err := ExtractInsertionValue(TextValue{Value: strPtr("x")}, f, model.DefaultDocumentMeta(), fixedNow)
	assert.True(t, errors.Is(err, apperr.ErrTypeMismatch))

	f = &model.Field{Type: model.FieldTypeText, Meta: model.FieldMeta{Type: model.FieldTypeNumber}}
	_, err = ExtractInsertionValue(TextValue{Value: strPtr("x")}, f, model.DefaultDocumentMeta(), fixedNow)
	assert.True(t, errors.Is(err, apperr.ErrTypeMismatch))
}

func TestExtractInsertionValue_Signature(t *testing.T) {
	f := &model.Field{Type: model.FieldTypeSignature}
	image := "data:image/png;base64,iVBOR"

	typedOnly := model.DocumentMeta{TypedSignatureEnabled: true}
	drawOnly := model.DocumentMeta{DrawSignatureEnabled: true}

	got, err := ExtractInsertionValue(SignatureValue{Value: &image}, f, drawOnly, fixedNow)
	require.NoError(t, err)
	assert.True(t, got.Inserted)
	assert.Equal(t, &SignatureInput{ImageAsBase64: image}, got.Signature)

	_, err = ExtractInsertionValue(SignatureValue{Value: &image}, f, typedOnly, fixedNow)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeSignatureTypeNotAllowed, e.Code)

	got, err = ExtractInsertionValue(SignatureValue{Value: strPtr("Jane Doe")}, f, typedOnly, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, &SignatureInput{Typed: "Jane Doe"}, got.Signature)

	_, err = ExtractInsertionValue(SignatureValue{Value: strPtr("Jane Doe")}, f, drawOnly, fixedNow)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))

	got, err = ExtractInsertionValue(SignatureValue{}, f, drawOnly, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{}, got)
}

func TestExtractInsertionValue_Strings(t *testing.T) {
	minV, maxV := 1.0, 10.0
	tests := []struct {
		name    string
		field   model.Field
		value   FieldValue
		want    InsertionValue
		wantErr bool
	}{
		{name: "text", field: model.Field{Type: model.FieldTypeText}, value: TextValue{Value: strPtr("abc")}, want: InsertionValue{Inserted: true, CustomText: "abc"}},
		{name: "text empty un-inserts", field: model.Field{Type: model.FieldTypeText}, value: TextValue{Value: strPtr("")}, want: InsertionValue{}},
		{name: "text over limit", field: model.Field{Type: model.FieldTypeText, Meta: model.FieldMeta{CharacterLimit: 2}}, value: TextValue{Value: strPtr("abc")}, wantErr: true},
		{name: "number ok", field: model.Field{Type: model.FieldTypeNumber, Meta: model.FieldMeta{MinValue: &minV, MaxValue: &maxV}}, value: NumberValue{Value: strPtr("5")}, want: InsertionValue{Inserted: true, CustomText: "5"}},
		{name: "number above max", field: model.Field{Type: model.FieldTypeNumber, Meta: model.FieldMeta{MaxValue: &maxV}}, value: NumberValue{Value: strPtr("11")}, wantErr: true},
		{name: "number not numeric", field: model.Field{Type: model.FieldTypeNumber}, value: NumberValue{Value: strPtr("five")}, wantErr: true},
		{name: "number NaN", field: model.Field{Type: model.FieldTypeNumber, Meta: model.FieldMeta{MaxValue: &maxV}}, value: NumberValue{Value: strPtr("NaN")}, wantErr: true},
		{name: "number Inf", field: model.Field{Type: model.FieldTypeNumber, Meta: model.FieldMeta{MinValue: &minV}}, value: NumberValue{Value: strPtr("Inf")}, wantErr: true},
		{name: "number negative infinity", field: model.Field{Type: model.FieldTypeNumber}, value: NumberValue{Value: strPtr("-Infinity")}, wantErr: true},
		{name: "number stored trimmed", field: model.Field{Type: model.FieldTypeNumber, Meta: model.FieldMeta{MinValue: &minV, MaxValue: &maxV}}, value: NumberValue{Value: strPtr(" 5 ")}, want: InsertionValue{Inserted: true, CustomText: "5"}},
		{name: "number blank clears", field: model.Field{Type: model.FieldTypeNumber}, value: NumberValue{Value: strPtr("   ")}, want: InsertionValue{}},
		{name: "email ok", field: model.Field{Type: model.FieldTypeEmail}, value: EmailValue{Value: strPtr("a@b.co")}, want: InsertionValue{Inserted: true, CustomText: "a@b.co"}},
		{name: "email invalid", field: model.Field{Type: model.FieldTypeEmail}, value: EmailValue{Value: strPtr("nope")}, wantErr: true},
		{name: "dropdown ok", field: model.Field{Type: model.FieldTypeDropdown, Meta: model.FieldMeta{Values: []model.FieldOption{{Value: "a"}, {Value: "b"}}}}, value: DropdownValue{Value: strPtr("b")}, want: InsertionValue{Inserted: true, CustomText: "b"}},
		{name: "dropdown unknown option", field: model.Field{Type: model.FieldTypeDropdown, Meta: model.FieldMeta{Values: []model.FieldOption{{Value: "a"}}}}, value: DropdownValue{Value: strPtr("z")}, wantErr: true},
		{name: "name", field: model.Field{Type: model.FieldTypeName}, value: NameValue{Value: strPtr("Jane")}, want: InsertionValue{Inserted: true, CustomText: "Jane"}},
		{name: "initials nil un-inserts", field: model.Field{Type: model.FieldTypeInitials}, value: InitialsValue{}, want: InsertionValue{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractInsertionValue(tt.value, &tt.field, model.DefaultDocumentMeta(), fixedNow)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractInsertionValue_RadioToggle(t *testing.T) {
	f := &model.Field{Type: model.FieldTypeRadio, Meta: model.FieldMeta{Values: []model.FieldOption{{Value: "X"}, {Value: "Y"}, {Value: ""}}}}
	meta := model.DefaultDocumentMeta()

	// select X
	got, err := ExtractInsertionValue(RadioValue{Index: intPtr(0)}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{Inserted: true, CustomText: "X"}, got)
	f.Inserted, f.CustomText = got.Inserted, got.CustomText

	// select X again clears
	got, err = ExtractInsertionValue(RadioValue{Index: intPtr(0)}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{}, got)

	// select Y while X is selected switches
	f.Inserted, f.CustomText = true, "X"
	got, err = ExtractInsertionValue(RadioValue{Index: intPtr(1)}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{Inserted: true, CustomText: "Y"}, got)

	// empty option value stores the index
	got, err = ExtractInsertionValue(RadioValue{Index: intPtr(2)}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2", got.CustomText)

	_, err = ExtractInsertionValue(RadioValue{Index: intPtr(3)}, f, meta, fixedNow)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
}

func TestExtractInsertionValue_Checkbox(t *testing.T) {
	opts := []model.FieldOption{{Value: "a"}, {Value: "b"}, {Value: "c"}}
	meta := model.DefaultDocumentMeta()

	f := &model.Field{Type: model.FieldTypeCheckbox, Meta: model.FieldMeta{Values: opts}}
	got, err := ExtractInsertionValue(CheckboxValue{Indices: []int{2, 0, 2}}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{Inserted: true, CustomText: "[0,2]"}, got)
	assert.Equal(t, []int{0, 2}, CheckboxSelection(got.CustomText))

	got, err = ExtractInsertionValue(CheckboxValue{}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.False(t, got.Inserted)

	_, err = ExtractInsertionValue(CheckboxValue{Indices: []int{5}}, f, meta, fixedNow)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))

	rules := []struct {
		rule    string
		length  int
		indices []int
		ok      bool
	}{
		{model.ValidationAtLeast, 2, []int{0}, false},
		{model.ValidationAtLeast, 2, []int{0, 1}, true},
		{model.ValidationAtMost, 1, []int{0, 1}, false},
		{model.ValidationExactly, 2, []int{0, 1}, true},
		{model.ValidationExactly, 2, []int{0, 1, 2}, false},
	}
	for _, r := range rules {
		f := &model.Field{Type: model.FieldTypeCheckbox, Meta: model.FieldMeta{Values: opts, ValidationRule: r.rule, ValidationLength: r.length}}
		_, err := ExtractInsertionValue(CheckboxValue{Indices: r.indices}, f, meta, fixedNow)
		if r.ok {
			assert.NoError(t, err, "%s %d %v", r.rule, r.length, r.indices)
		} else {
			assert.Error(t, err, "%s %d %v", r.rule, r.length, r.indices)
		}
	}
}

func TestExtractInsertionValue_DateUsesServerClock(t *testing.T) {
	f := &model.Field{Type: model.FieldTypeDate}
	meta := model.DocumentMeta{DateFormat: "yyyy-MM-dd HH:mm", Timezone: "Asia/Jakarta"}

	got, err := ExtractInsertionValue(DateValue{Insert: true}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{Inserted: true, CustomText: "2025-03-14 22:09"}, got)

	got, err = ExtractInsertionValue(DateValue{Insert: false}, f, meta, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, InsertionValue{}, got)
}

func TestFormatDate_Defaults(t *testing.T) {
	assert.Equal(t, "2025-03-14 03:09 PM", FormatDate(fixedNow, "", ""))
	assert.Equal(t, "14/03/2025", FormatDate(fixedNow, "dd/MM/yyyy", "Not/AZone"))
}
