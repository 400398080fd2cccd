package model

// FieldType enumerates the kinds of fillable elements.
type FieldType string

const (
	FieldTypeSignature     FieldType = "SIGNATURE"
	FieldTypeFreeSignature FieldType = "FREE_SIGNATURE"
	FieldTypeText          FieldType = "TEXT"
	FieldTypeNumber        FieldType = "NUMBER"
	FieldTypeRadio         FieldType = "RADIO"
	FieldTypeCheckbox      FieldType = "CHECKBOX"
	FieldTypeDropdown      FieldType = "DROPDOWN"
	FieldTypeDate          FieldType = "DATE"
	FieldTypeEmail         FieldType = "EMAIL"
	FieldTypeName          FieldType = "NAME"
	FieldTypeInitials      FieldType = "INITIALS"
)

// IsSignature reports whether the type belongs to the signature family.
// Only the owning recipient may ever insert these.
func (t FieldType) IsSignature() bool {
	return t == FieldTypeSignature || t == FieldTypeFreeSignature
}

// AlwaysRequired reports whether the type is required regardless of its meta.
func (t FieldType) AlwaysRequired() bool {
	switch t {
	case FieldTypeSignature, FieldTypeFreeSignature, FieldTypeName, FieldTypeInitials, FieldTypeEmail, FieldTypeDate:
		return true
	}
	return false
}

// Checkbox validation rules.
const (
	ValidationAtLeast = "AT_LEAST"
	ValidationAtMost  = "AT_MOST"
	ValidationExactly = "EXACTLY"
)

// FieldOption is one choice of a radio, checkbox or dropdown field.
type FieldOption struct {
	Value   string `json:"value"`
	Checked bool   `json:"checked,omitempty"`
}

// FieldMeta is type-specific configuration. Type, when set, must equal the field's type.
type FieldMeta struct {
	Type             FieldType     `json:"type,omitempty"`
	Label            string        `json:"label,omitempty"`
	Placeholder      string        `json:"placeholder,omitempty"`
	Required         bool          `json:"required,omitempty"`
	ReadOnly         bool          `json:"readOnly,omitempty"`
	CharacterLimit   int           `json:"characterLimit,omitempty"`
	MinValue         *float64      `json:"minValue,omitempty"`
	MaxValue         *float64      `json:"maxValue,omitempty"`
	Values           []FieldOption `json:"values,omitempty"`
	ValidationRule   string        `json:"validationRule,omitempty"`
	ValidationLength int           `json:"validationLength,omitempty"`
}

// Field is a single fillable element bound to one recipient and one envelope item.
// Positions and sizes are percentages of the page (0-100).
type Field struct {
	ID             int64      `json:"id"`
	EnvelopeID     string     `json:"envelope_id"`
	EnvelopeItemID string     `json:"envelope_item_id"`
	RecipientID    int64      `json:"recipient_id"`
	Type           FieldType  `json:"type"`
	Page           int        `json:"page"`
	PositionX      float64    `json:"position_x"`
	PositionY      float64    `json:"position_y"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Meta           FieldMeta  `json:"field_meta"`
	CustomText     string     `json:"custom_text"`
	Inserted       bool       `json:"inserted"`
	Signature      *Signature `json:"signature,omitempty"`
}

// IsRequired reports whether the field must be inserted before its recipient can complete.
func (f *Field) IsRequired() bool {
	if f.Meta.ReadOnly {
		return false
	}
	return f.Type.AlwaysRequired() || f.Meta.Required
}
