package token

// noopValidator accepts any token as an all-powerful caller.
type noopValidator struct {
	claims Claims
}

func newNoopValidator() Validator {
	return &noopValidator{claims: Claims{
		Subject:     "test-user",
		Permissions: []string{WildcardPermission},
		Type:        typeAccess,
	}}
}

// newStaticValidator returns claims for every token.
func newStaticValidator(claims Claims) Validator {
	return &noopValidator{claims: claims}
}

func (v *noopValidator) ValidateToken(string) (*Claims, error) {
	c := v.claims
	return &c, nil
}
