// Package signing holds the pure rules of the signing flow. Nothing here
// performs I/O.
package signing

import (
	"context"
	"slices"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

// TwoFactorVerifier validates a submitted one-time code for a recipient of an envelope.
// It returns an *apperr.Error of kind TWO_FACTOR_AUTH_FAILED with a sub-code on failure.
type TwoFactorVerifier interface {
	Verify(ctx context.Context, envelopeID string, recipientID int64, code string) error
}

// EffectiveActionAuth combines envelope-wide and recipient-level action auth.
// A non-empty recipient list replaces the global one; EXPLICIT_NONE anywhere in it
// disables action auth entirely. The result never contains EXPLICIT_NONE.
func EffectiveActionAuth(env model.EnvelopeAuthOptions, r *model.Recipient) []model.ActionAuth {
	methods := env.GlobalActionAuth
	if r != nil && len(r.AuthOptions.ActionAuth) > 0 {
		if slices.Contains(r.AuthOptions.ActionAuth, model.ActionAuthExplicitNone) {
			return nil
		}
		methods = r.AuthOptions.ActionAuth
	}
	out := make([]model.ActionAuth, 0, len(methods))
	for _, m := range methods {
		if m != model.ActionAuthExplicitNone && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// EffectiveAccessAuth mirrors EffectiveActionAuth for access auth. Access auth is
// reported to callers but not enforced by any signing operation.
func EffectiveAccessAuth(env model.EnvelopeAuthOptions, r *model.Recipient) []model.AccessAuth {
	if r != nil && len(r.AuthOptions.AccessAuth) > 0 {
		return slices.Clone(r.AuthOptions.AccessAuth)
	}
	return slices.Clone(env.GlobalAccessAuth)
}

// AuthInput is everything the resolver needs for one gated action.
// Field is nil when the action is recipient completion.
type AuthInput struct {
	EnvelopeID  string
	AuthOptions model.EnvelopeAuthOptions
	Recipient   *model.Recipient
	Field       *model.Field
	Identity    model.Identity
	Evidence    *model.AuthEvidence
}

// AuthOutcome reports which method satisfied the gate. Method is empty when
// no auth was required.
type AuthOutcome struct {
	Required []model.ActionAuth
	Method   model.ActionAuth
}

// AuthPolicy resolves action auth for field insertion and recipient completion.
type AuthPolicy struct {
	twoFactor TwoFactorVerifier
}

func NewAuthPolicy(v TwoFactorVerifier) *AuthPolicy {
	return &AuthPolicy{twoFactor: v}
}

// ResolveFieldAuth checks the effective action auth against the caller's identity and
// evidence. Any one listed method satisfies the gate; when none does, the error of the
// first attempted method is returned.
func (p *AuthPolicy) ResolveFieldAuth(ctx context.Context, in AuthInput) (AuthOutcome, error) {
	required := EffectiveActionAuth(in.AuthOptions, in.Recipient)
	out := AuthOutcome{Required: required}
	if len(required) == 0 {
		return out, nil
	}
	if in.Recipient == nil {
		return out, apperr.NotFound("recipient not found")
	}

	var firstErr error
	for _, m := range required {
		err := p.check(ctx, m, in)
		if err == nil {
			out.Method = m
			return out, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return out, firstErr
}

func (p *AuthPolicy) check(ctx context.Context, m model.ActionAuth, in AuthInput) error {
	switch m {
	case model.ActionAuthAccount:
		if !in.Identity.Matches(in.Recipient.Email) {
			return apperr.Unauthorized("reauthentication is required to sign this field")
		}
		return nil
	case model.ActionAuthTwoFactor, model.ActionAuthExternalTwoFactor:
		if in.Evidence == nil || in.Evidence.Code == "" || !isTwoFactor(in.Evidence.Type) {
			return apperr.TwoFactor(apperr.CodeTwoFactorRequired, "two-factor authentication is required to sign this field")
		}
		if p.twoFactor == nil {
			return apperr.TwoFactor(apperr.CodeTwoFactorNotIssued, "two-factor authentication is not available")
		}
		return p.twoFactor.Verify(ctx, in.EnvelopeID, in.Recipient.ID, in.Evidence.Code)
	}
	return apperr.Unauthorized("unsupported auth method " + string(m))
}

func isTwoFactor(m model.ActionAuth) bool {
	return m == model.ActionAuthTwoFactor || m == model.ActionAuthExternalTwoFactor
}
