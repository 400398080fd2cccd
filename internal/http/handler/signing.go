package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"signapi/internal/apperr"
	"signapi/internal/http/middleware"
	"signapi/internal/model"
	"signapi/internal/service"
	"signapi/internal/signing"
)

type authOptionsRequest struct {
	Type model.ActionAuth `json:"type" validate:"required,oneof=ACCOUNT TWO_FACTOR EXTERNAL_TWO_FACTOR EXPLICIT_NONE"`
	Code string           `json:"code" validate:"omitempty,max=32"`
}

func (r *authOptionsRequest) evidence() *model.AuthEvidence {
	if r == nil {
		return nil
	}
	return &model.AuthEvidence{Type: r.Type, Code: r.Code}
}

type signFieldRequest struct {
	Value       json.RawMessage     `json:"value" validate:"required"`
	AuthOptions *authOptionsRequest `json:"authOptions"`
}

type directRecipientRequest struct {
	Name        string                     `json:"name" validate:"max=255"`
	Email       string                     `json:"email" validate:"required,email"`
	FieldValues map[string]json.RawMessage `json:"fieldValues"`
}

func (r *directRecipientRequest) info() (*service.DirectRecipientInfo, error) {
	if r == nil {
		return nil, nil
	}
	info := &service.DirectRecipientInfo{
		Name:        r.Name,
		Email:       r.Email,
		FieldValues: make(map[int64]signing.FieldValue, len(r.FieldValues)),
	}
	for k, raw := range r.FieldValues {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, apperr.InvalidRequest("fieldValues keys must be field ids")
		}
		v, err := signing.DecodeFieldValue(raw)
		if err != nil {
			return nil, err
		}
		info.FieldValues[id] = v
	}
	return info, nil
}

type completeRequest struct {
	NextSigner          *signing.NextSigner     `json:"nextSigner"`
	AuthOptions         *authOptionsRequest     `json:"authOptions"`
	DelegateRecipientID *int64                  `json:"delegateRecipientId"`
	DirectRecipient     *directRecipientRequest `json:"directRecipient"`
}

func actorFromCtx(c *fiber.Ctx) service.Actor {
	return service.Actor{
		Identity:  middleware.IdentityFromCtx(c),
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// bind decodes the JSON body into dst and validates it. An empty body is
// accepted as the zero value.
func bind(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), dst); err != nil {
			return apperr.InvalidRequest("malformed request body")
		}
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.InvalidRequest("invalid field " + verrs[0].Namespace() + ": " + verrs[0].Tag())
		}
		return apperr.InvalidRequest("invalid request body")
	}
	return nil
}

// GetSigningView godoc
// @Summary Signing view for a recipient token
// @Tags signing
// @Produce json
// @Param token path string true "Recipient token"
// @Success 200 {object} service.SigningView
// @Failure 404 {object} errorPayload
// @Failure 410 {object} errorPayload
// @Router /api/v1/sign/{token} [get]
func GetSigningView(svc service.SigningService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.GetSigningView(c.UserContext(), c.Params("token"), middleware.IdentityFromCtx(c))
		if err != nil {
			return writeAppError(c, log, err)
		}
		return c.JSON(view)
	}
}

// SignField godoc
// @Summary Insert or un-insert a field value
// @Tags signing
// @Accept json
// @Produce json
// @Param token path string true "Recipient token"
// @Param fieldId path int true "Field ID"
// @Success 200 {object} model.Field
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/sign/{token}/fields/{fieldId} [post]
func SignField(svc service.SigningService, v *validator.Validate, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fieldID, err := strconv.ParseInt(c.Params("fieldId"), 10, 64)
		if err != nil || fieldID <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid field id")
		}
		var req signFieldRequest
		if err := bind(c, v, &req); err != nil {
			return writeAppError(c, log, err)
		}
		value, err := signing.DecodeFieldValue(req.Value)
		if err != nil {
			return writeAppError(c, log, err)
		}

		field, err := svc.SignField(c.UserContext(), service.SignFieldInput{
			Token:       c.Params("token"),
			FieldID:     fieldID,
			Value:       value,
			AuthOptions: req.AuthOptions.evidence(),
			Actor:       actorFromCtx(c),
		})
		if err != nil {
			return writeAppError(c, log, err)
		}
		return c.JSON(field)
	}
}

// CompleteDocument godoc
// @Summary Complete signing for a recipient
// @Tags signing
// @Accept json
// @Produce json
// @Param token path string true "Recipient token"
// @Success 200 {object} service.CompleteResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/sign/{token}/complete [post]
func CompleteDocument(svc service.SigningService, v *validator.Validate, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req completeRequest
		if err := bind(c, v, &req); err != nil {
			return writeAppError(c, log, err)
		}
		direct, err := req.DirectRecipient.info()
		if err != nil {
			return writeAppError(c, log, err)
		}

		res, err := svc.CompleteDocument(c.UserContext(), service.CompleteInput{
			Token:               c.Params("token"),
			NextSigner:          req.NextSigner,
			AuthOptions:         req.AuthOptions.evidence(),
			DelegateRecipientID: req.DelegateRecipientID,
			DirectRecipient:     direct,
			Actor:               actorFromCtx(c),
		})
		if err != nil {
			return writeAppError(c, log, err)
		}
		return c.JSON(res)
	}
}

// IssueTwoFactor godoc
// @Summary Send a two-factor code to the recipient
// @Tags signing
// @Produce json
// @Param token path string true "Recipient token"
// @Success 201 {object} service.IssuedTwoFactor
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/sign/{token}/two-factor [post]
func IssueTwoFactor(svc service.TwoFactorService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		issued, err := svc.Issue(c.UserContext(), c.Params("token"), actorFromCtx(c))
		if err != nil {
			return writeAppError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(issued)
	}
}
