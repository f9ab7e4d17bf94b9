package models

import (
	"time"
)

// Record is the data retrieved for one GSTIN. Every field is independently
// nullable: nil means the value was not found, never an error.
type Record struct {
	GSTIN         string  `json:"gstin" example:"27ABCDE1234F1Z5"`
	LegalName     *string `json:"legal_name" example:"ACME TRADING PRIVATE LIMITED"`
	TradeName     *string `json:"trade_name" example:"ACME TRADERS"`
	Address       *string `json:"address" example:"12, MG Road, Pune, Maharashtra, 411001"`
	Status        *string `json:"status" example:"Active"`
	EffectiveDate *string `json:"effective_date" example:"01/07/2017"`

	RegistrationDate     *string        `json:"registration_date,omitempty" example:"01/07/2017"`
	Constitution         *string        `json:"constitution,omitempty" example:"Private Limited Company"`
	TaxpayerType         *string        `json:"taxpayer_type,omitempty" example:"Regular"`
	Jurisdiction         *string        `json:"jurisdiction,omitempty"`
	CenterJurisdiction   *string        `json:"center_jurisdiction,omitempty"`
	CancellationDate     *string        `json:"cancellation_date,omitempty"`
	NatureOfBusiness     []string       `json:"nature_of_business,omitempty"`
	CompositionRate      *string        `json:"composition_rate,omitempty"`
	AadhaarVerified      *string        `json:"aadhaar_verified,omitempty" example:"Yes"`
	AadhaarVerifiedDate  *string        `json:"aadhaar_verified_date,omitempty"`
	EKYCVerified         *string        `json:"ekyc_verified,omitempty"`
	EInvoiceStatus       *string        `json:"einvoice_status,omitempty"`
	FieldVisitConducted  *string        `json:"field_visit_conducted,omitempty"`
	NatureOfCoreBusiness *string        `json:"nature_of_core_business,omitempty"`
	GoodsServices        []GoodsService `json:"goods_services,omitempty"`

	// Source is "payload" when the record came from the portal's JSON API
	// and "extraction" when it was scraped from the rendered page.
	Source string `json:"source,omitempty" example:"payload"`
}

// GoodsService is one line of the taxpayer's declared goods and services
type GoodsService struct {
	Code        string `json:"code" example:"8471"`
	Description string `json:"description" example:"Automatic data processing machines"`
}

// HasTargets reports whether any of legal name, trade name or address is set
func (r *Record) HasTargets() bool {
	return r.LegalName != nil || r.TradeName != nil || r.Address != nil
}

// CacheEntry is what the record store keeps per GSTIN
type CacheEntry struct {
	Record     Record    `json:"record"`
	CreatedAt  time.Time `json:"created_at"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Challenge is a CAPTCHA seen by the automation. Image is a data URI.
type Challenge struct {
	Detected bool   `json:"detected"`
	Image    string `json:"image,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or fallback when p is nil
func Deref(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
