package signing

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

// FieldValue is a typed submission for one field. The set of implementations is
// closed; each carries the payload shape of its field type.
type FieldValue interface {
	FieldType() model.FieldType
	isFieldValue()
}

// SignatureValue is either a data:image/ URL (drawn or uploaded) or typed text.
type SignatureValue struct{ Value *string }

// FreeSignatureValue behaves like SignatureValue for FREE_SIGNATURE fields.
type FreeSignatureValue struct{ Value *string }

type TextValue struct{ Value *string }
type NumberValue struct{ Value *string }
type EmailValue struct{ Value *string }
type NameValue struct{ Value *string }
type InitialsValue struct{ Value *string }
type DropdownValue struct{ Value *string }

// RadioValue selects one option by index; nil clears the selection.
type RadioValue struct{ Index *int }

// CheckboxValue selects a set of options by index.
type CheckboxValue struct{ Indices []int }

// DateValue inserts the server's current time when Insert is true.
type DateValue struct{ Insert bool }

func (SignatureValue) FieldType() model.FieldType     { return model.FieldTypeSignature }
func (FreeSignatureValue) FieldType() model.FieldType { return model.FieldTypeFreeSignature }
func (TextValue) FieldType() model.FieldType          { return model.FieldTypeText }
func (NumberValue) FieldType() model.FieldType        { return model.FieldTypeNumber }
func (EmailValue) FieldType() model.FieldType         { return model.FieldTypeEmail }
func (NameValue) FieldType() model.FieldType          { return model.FieldTypeName }
func (InitialsValue) FieldType() model.FieldType      { return model.FieldTypeInitials }
func (DropdownValue) FieldType() model.FieldType      { return model.FieldTypeDropdown }
func (RadioValue) FieldType() model.FieldType         { return model.FieldTypeRadio }
func (CheckboxValue) FieldType() model.FieldType      { return model.FieldTypeCheckbox }
func (DateValue) FieldType() model.FieldType          { return model.FieldTypeDate }

func (SignatureValue) isFieldValue()     {}
func (FreeSignatureValue) isFieldValue() {}
func (TextValue) isFieldValue()          {}
func (NumberValue) isFieldValue()        {}
func (EmailValue) isFieldValue()         {}
func (NameValue) isFieldValue()          {}
func (InitialsValue) isFieldValue()      {}
func (DropdownValue) isFieldValue()      {}
func (RadioValue) isFieldValue()         {}
func (CheckboxValue) isFieldValue()      {}
func (DateValue) isFieldValue()          {}

type rawFieldValue struct {
	Type  model.FieldType `json:"type"`
	Value json.RawMessage `json:"value"`
}

// DecodeFieldValue parses the wire form {"type": "...", "value": ...}.
func DecodeFieldValue(data []byte) (FieldValue, error) {
	var raw rawFieldValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.InvalidRequest("malformed field value")
	}
	isNull := len(raw.Value) == 0 || string(raw.Value) == "null"

	str := func() (*string, error) {
		if isNull {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return nil, apperr.InvalidRequest(fmt.Sprintf("%s value must be a string", raw.Type))
		}
		return &s, nil
	}

	switch raw.Type {
	case model.FieldTypeSignature, model.FieldTypeFreeSignature, model.FieldTypeText, model.FieldTypeNumber,
		model.FieldTypeEmail, model.FieldTypeName, model.FieldTypeInitials, model.FieldTypeDropdown:
		s, err := str()
		if err != nil {
			return nil, err
		}
		return stringValue(raw.Type, s), nil
	case model.FieldTypeRadio:
		if isNull {
			return RadioValue{}, nil
		}
		var idx int
		if err := json.Unmarshal(raw.Value, &idx); err != nil {
			return nil, apperr.InvalidRequest("RADIO value must be an option index")
		}
		return RadioValue{Index: &idx}, nil
	case model.FieldTypeCheckbox:
		var idx []int
		if !isNull {
			if err := json.Unmarshal(raw.Value, &idx); err != nil {
				return nil, apperr.InvalidRequest("CHECKBOX value must be a list of option indices")
			}
		}
		return CheckboxValue{Indices: idx}, nil
	case model.FieldTypeDate:
		var insert bool
		if !isNull {
			if err := json.Unmarshal(raw.Value, &insert); err != nil {
				return nil, apperr.InvalidRequest("DATE value must be a boolean")
			}
		}
		return DateValue{Insert: insert}, nil
	}
	return nil, apperr.InvalidRequest(fmt.Sprintf("unknown field type %q", raw.Type))
}

func stringValue(t model.FieldType, s *string) FieldValue {
	switch t {
	case model.FieldTypeSignature:
		return SignatureValue{Value: s}
	case model.FieldTypeFreeSignature:
		return FreeSignatureValue{Value: s}
	case model.FieldTypeNumber:
		return NumberValue{Value: s}
	case model.FieldTypeEmail:
		return EmailValue{Value: s}
	case model.FieldTypeName:
		return NameValue{Value: s}
	case model.FieldTypeInitials:
		return InitialsValue{Value: s}
	case model.FieldTypeDropdown:
		return DropdownValue{Value: s}
	}
	return TextValue{Value: s}
}

// SignatureInput is the Signature row content for an inserted signature-family field.
type SignatureInput struct {
	ImageAsBase64 string
	Typed         string
}

// InsertionValue is the canonical stored representation of a submission.
type InsertionValue struct {
	Inserted   bool
	CustomText string
	Signature  *SignatureInput
}

var validate = validator.New()

// ExtractInsertionValue validates v against f and computes what gets stored.
// now is only used for DATE fields; the stored date is never client supplied.
func ExtractInsertionValue(v FieldValue, f *model.Field, meta model.DocumentMeta, now time.Time) (InsertionValue, error) {
	if v == nil {
		return InsertionValue{}, apperr.InvalidRequest("field value is required")
	}
	if v.FieldType() != f.Type {
		return InsertionValue{}, apperr.TypeMismatch(fmt.Sprintf("submitted %s value for %s field", v.FieldType(), f.Type))
	}
	if f.Meta.Type != "" && f.Meta.Type != f.Type {
		return InsertionValue{}, apperr.TypeMismatch(fmt.Sprintf("field meta type %s does not match field type %s", f.Meta.Type, f.Type))
	}

	switch val := v.(type) {
	case SignatureValue:
		return extractSignature(val.Value, meta)
	case FreeSignatureValue:
		return extractSignature(val.Value, meta)
	case TextValue:
		return extractText(val.Value, f.Meta)
	case NumberValue:
		return extractNumber(val.Value, f.Meta)
	case EmailValue:
		return extractString(val.Value, func(s string) error {
			if err := validate.Var(s, "email"); err != nil {
				return apperr.InvalidRequest("value is not a valid email address")
			}
			return nil
		})
	case NameValue:
		return extractString(val.Value, nil)
	case InitialsValue:
		return extractString(val.Value, nil)
	case DropdownValue:
		return extractString(val.Value, func(s string) error {
			if len(f.Meta.Values) > 0 && !slices.ContainsFunc(f.Meta.Values, func(o model.FieldOption) bool { return o.Value == s }) {
				return apperr.InvalidRequest("value is not one of the dropdown options")
			}
			return nil
		})
	case RadioValue:
		return extractRadio(val.Index, f)
	case CheckboxValue:
		return extractCheckbox(val.Indices, f.Meta)
	case DateValue:
		if !val.Insert {
			return InsertionValue{}, nil
		}
		return InsertionValue{Inserted: true, CustomText: FormatDate(now, meta.DateFormat, meta.Timezone)}, nil
	}
	return InsertionValue{}, apperr.InvalidRequest(fmt.Sprintf("unsupported field type %s", v.FieldType()))
}

func extractString(v *string, check func(string) error) (InsertionValue, error) {
	if v == nil || *v == "" {
		return InsertionValue{}, nil
	}
	if check != nil {
		if err := check(*v); err != nil {
			return InsertionValue{}, err
		}
	}
	return InsertionValue{Inserted: true, CustomText: *v}, nil
}

func extractText(v *string, fm model.FieldMeta) (InsertionValue, error) {
	return extractString(v, func(s string) error {
		if fm.CharacterLimit > 0 && utf8.RuneCountInString(s) > fm.CharacterLimit {
			return apperr.InvalidRequest(fmt.Sprintf("value exceeds the character limit of %d", fm.CharacterLimit))
		}
		return nil
	})
}

func extractNumber(v *string, fm model.FieldMeta) (InsertionValue, error) {
	if v != nil {
		trimmed := strings.TrimSpace(*v)
		v = &trimmed
	}
	return extractString(v, func(s string) error {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return apperr.InvalidRequest("value is not a number")
		}
		if fm.MinValue != nil && n < *fm.MinValue {
			return apperr.InvalidRequest(fmt.Sprintf("value must be at least %v", *fm.MinValue))
		}
		if fm.MaxValue != nil && n > *fm.MaxValue {
			return apperr.InvalidRequest(fmt.Sprintf("value must be at most %v", *fm.MaxValue))
		}
		return nil
	})
}

const imageDataPrefix = "data:image/"

func extractSignature(v *string, meta model.DocumentMeta) (InsertionValue, error) {
	if v == nil || *v == "" {
		return InsertionValue{}, nil
	}
	if strings.HasPrefix(*v, imageDataPrefix) {
		if !meta.UploadSignatureEnabled && !meta.DrawSignatureEnabled {
			return InsertionValue{}, apperr.NewCode(apperr.KindInvalidRequest, apperr.CodeSignatureTypeNotAllowed, "image signatures are not allowed for this document")
		}
		return InsertionValue{Inserted: true, Signature: &SignatureInput{ImageAsBase64: *v}}, nil
	}
	if !meta.TypedSignatureEnabled {
		return InsertionValue{}, apperr.NewCode(apperr.KindInvalidRequest, apperr.CodeSignatureTypeNotAllowed, "typed signatures are not allowed for this document")
	}
	return InsertionValue{Inserted: true, Signature: &SignatureInput{Typed: *v}}, nil
}

// RadioOptionValue is what gets stored for the option at idx: its value, or the
// index itself when the option has no value.
func RadioOptionValue(fm model.FieldMeta, idx int) string {
	if v := fm.Values[idx].Value; v != "" {
		return v
	}
	return strconv.Itoa(idx)
}

// extractRadio toggles: choosing the option that is already stored clears the field.
func extractRadio(idx *int, f *model.Field) (InsertionValue, error) {
	if idx == nil {
		return InsertionValue{}, nil
	}
	if *idx < 0 || *idx >= len(f.Meta.Values) {
		return InsertionValue{}, apperr.InvalidRequest("radio option index out of range")
	}
	value := RadioOptionValue(f.Meta, *idx)
	if f.Inserted && f.CustomText == value {
		return InsertionValue{}, nil
	}
	return InsertionValue{Inserted: true, CustomText: value}, nil
}

func extractCheckbox(indices []int, fm model.FieldMeta) (InsertionValue, error) {
	selected := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(fm.Values) {
			return InsertionValue{}, apperr.InvalidRequest("checkbox option index out of range")
		}
		if !slices.Contains(selected, i) {
			selected = append(selected, i)
		}
	}
	if len(selected) == 0 {
		return InsertionValue{}, nil
	}
	slices.Sort(selected)

	if fm.ValidationLength > 0 {
		n, want := len(selected), fm.ValidationLength
		switch fm.ValidationRule {
		case model.ValidationAtLeast:
			if n < want {
				return InsertionValue{}, apperr.InvalidRequest(fmt.Sprintf("select at least %d options", want))
			}
		case model.ValidationAtMost:
			if n > want {
				return InsertionValue{}, apperr.InvalidRequest(fmt.Sprintf("select at most %d options", want))
			}
		case model.ValidationExactly:
			if n != want {
				return InsertionValue{}, apperr.InvalidRequest(fmt.Sprintf("select exactly %d options", want))
			}
		}
	}

	b, err := json.Marshal(selected)
	if err != nil {
		return InsertionValue{}, err
	}
	return InsertionValue{Inserted: true, CustomText: string(b)}, nil
}

// CheckboxSelection decodes the stored selection of a checkbox field.
func CheckboxSelection(customText string) []int {
	var out []int
	if customText == "" {
		return out
	}
	_ = json.Unmarshal([]byte(customText), &out)
	return out
}

var dateLayouts = map[string]string{
	"yyyy-MM-dd hh:mm a":           "2006-01-02 03:04 PM",
	"yyyy-MM-dd":                   "2006-01-02",
	"dd/MM/yyyy":                   "02/01/2006",
	"MM/dd/yyyy":                   "01/02/2006",
	"dd.MM.yyyy":                   "02.01.2006",
	"yy-MM-dd":                     "06-01-02",
	"MMMM dd, yyyy":                "January 02, 2006",
	"EEEE, MMMM dd, yyyy":          "Monday, January 02, 2006",
	"dd/MM/yyyy hh:mm a":           "02/01/2006 03:04 PM",
	"MM/dd/yyyy hh:mm a":           "01/02/2006 03:04 PM",
	"dd.MM.yyyy HH:mm":             "02.01.2006 15:04",
	"yyyy-MM-dd HH:mm":             "2006-01-02 15:04",
	"yyyy-MM-dd'T'HH:mm:ss.SSSXXX": "2006-01-02T15:04:05.000Z07:00",
}

// FormatDate renders t in the named format and IANA timezone, falling back to
// the defaults when either is empty or unknown.
func FormatDate(t time.Time, format, timezone string) string {
	layout, ok := dateLayouts[format]
	if !ok {
		layout = dateLayouts[model.DefaultDateFormat]
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}
