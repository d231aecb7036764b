package models

// Session is the authenticated caller, reconstructed per request from the
// bearer token the external auth provider issued. The portal never issues or
// refreshes these tokens.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	ThirdPartyID string `json:"third_party_id"` // supplier organization id
	Token        string `json:"-"`              // raw bearer, forwarded to the ERP
}

// SupplierScoped reports whether the session can run supplier-scoped queries
// (invitations, bids, profile). Buyer-side accounts have no third party id.
func (s *Session) SupplierScoped() bool {
	return s != nil && s.ThirdPartyID != ""
}
