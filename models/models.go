package models

import "time"

// Tender statuses as the portal emits them. Upstream sends several historical
// codes for the same status; services/normalize_service.go collapses them.
const (
	TenderStatusDraft     = "draft"
	TenderStatusPublished = "published"
	TenderStatusClosed    = "closed"
)

const (
	TenderTypeOpen       = "open"
	TenderTypeRestricted = "restricted"
)

const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationDeclined  = "declined"
	InvitationSubmitted = "submitted"
)

const (
	BidStatusDraft     = "draft"
	BidStatusSubmitted = "submitted"
	BidStatusEvaluated = "evaluated"
	BidStatusAwarded   = "awarded"
	BidStatusRejected  = "rejected"
)

const (
	ClarificationPending  = "pending"
	ClarificationAnswered = "answered"
	ClarificationClosed   = "closed"
)

const (
	RoundOpen   = "open"
	RoundClosed = "closed"
)

// ValidBidDocumentType reports whether t is one of the accepted document categories.
func ValidBidDocumentType(t string) bool {
	switch t {
	case "technical", "financial", "compliance", "bond", "other":
		return true
	default:
		return false
	}
}

// Tender is a procurement opportunity in canonical shape.
type Tender struct {
	ID                 string  `json:"id"`
	TenderNo           string  `json:"tender_no"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	TenderType         string  `json:"tender_type"`
	Category           string  `json:"category,omitempty"`
	Status             string  `json:"status"`
	SubmissionDeadline string  `json:"submission_deadline"`
	EstimatedValue     float64 `json:"estimated_value"`
	Currency           string  `json:"currency"`
}

// TenderWithInvitation is a tender enriched with the calling supplier's
// invitation, when one exists. Restricted tenders without an invitation are
// still listed; the UI decides what actions to show.
type TenderWithInvitation struct {
	Tender
	Invitation *TenderInvitation `json:"invitation,omitempty"`
}

type TenderInvitation struct {
	InvitationID   string `json:"invitation_id"`
	TenderID       int    `json:"tender_id"`
	SupplierID     string `json:"supplier_id"`
	ResponseStatus string `json:"response_status"`
	ResponseDate   string `json:"response_date,omitempty"`
	DeclineReason  string `json:"decline_reason,omitempty"`
}

// InvitationResponseRequest is the body of PUT /api/tender-invitations/:invitation_id/respond.
type InvitationResponseRequest struct {
	ResponseStatus string `json:"response_status"`
	DeclineReason  string `json:"decline_reason"`
}

type TenderBid struct {
	ID             string        `json:"id"`
	TenderID       int           `json:"tender_id"`
	BidAmount      float64       `json:"bid_amount"`
	Currency       string        `json:"currency"`
	ValidityPeriod int           `json:"validity_period"` // days
	DeliveryPeriod int           `json:"delivery_period"` // days
	Status         string        `json:"status"`
	Documents      []BidDocument `json:"documents"`
}

// BidDocument carries attachment metadata only. File content is stored and
// encrypted by the upstream document service and never passes through here.
type BidDocument struct {
	ID              string `json:"id"`
	DocumentType    string `json:"document_type"`
	FileName        string `json:"file_name"`
	Checksum        string `json:"checksum,omitempty"`
	EncryptionKeyID string `json:"encryption_key_id,omitempty"`
}

type TenderClarification struct {
	ID         string `json:"id"`
	TenderID   int    `json:"tender_id"`
	SupplierID string `json:"supplier_id,omitempty"` // asking supplier; gates non-public visibility
	Question   string `json:"question"`
	Response   string `json:"response,omitempty"`
	Status     string `json:"status"`
	IsPublic   bool   `json:"is_public"`
	AskedAt    string `json:"asked_at,omitempty"`
}

type ClarificationRequest struct {
	TenderID int    `json:"tender_id"`
	Question string `json:"question"`
	IsPublic bool   `json:"is_public"`
}

type RoundCategory struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	ApplicationStatus string `json:"application_status"` // per-supplier, independent per category
}

type PrequalificationRound struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Categories []RoundCategory `json:"categories"`
}

type RoundApplicationRequest struct {
	CategoryCodes []string `json:"category_codes"`
}

// SupplierProfile holds the supplier organization profile including bank
// details, edited on the portal profile page.
type SupplierProfile struct {
	SupplierID    string       `json:"supplier_id"`
	CompanyName   string       `json:"company_name"`
	ContactPerson string       `json:"contact_person"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Address       string       `json:"address,omitempty"`
	BankDetails   []BankDetail `json:"bank_details"`
	UpdatedAt     time.Time    `json:"updated_at,omitempty"`
}

type BankDetail struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
	Currency      string `json:"currency,omitempty"`
	IsPrimary     bool   `json:"is_primary"`
}
