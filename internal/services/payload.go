package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nexconsult/gstin-api/internal/models"
)

// flexString accepts strings, numbers and booleans from the portal JSON
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	if bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")) {
		b, _ := strconv.ParseBool(string(data))
		if b {
			*f = "Yes"
		} else {
			*f = "No"
		}
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) ptr() *string { return models.StringPtr(string(f)) }

// flexStrings accepts either a list or a single string
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}
		*f = out
		return nil
	}
	var one flexString
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != "" {
		*f = []string{string(one)}
	}
	return nil
}

type addressParts struct {
	BuildingNumber flexString `json:"bno"`
	Floor          flexString `json:"flno"`
	BuildingName   flexString `json:"bnm"`
	Street         flexString `json:"st"`
	Location       flexString `json:"loc"`
	City           flexString `json:"city"`
	District       flexString `json:"dst"`
	State          flexString `json:"stcd"`
	Pincode        flexString `json:"pncd"`
}

func (a *addressParts) String() string {
	parts := []flexString{a.BuildingNumber, a.Floor, a.BuildingName, a.Street, a.Location, a.City, a.District, a.State, a.Pincode}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, string(p))
		}
	}
	return strings.Join(out, ", ")
}

type taxpayerDetails struct {
	GSTIN              flexString  `json:"gstin"`
	LegalName          flexString  `json:"lgnm"`
	TradeName          flexString  `json:"tradeNam"`
	Status             flexString  `json:"sts"`
	RegistrationDate   flexString  `json:"rgdt"`
	Constitution       flexString  `json:"ctb"`
	TaxpayerType       flexString  `json:"dty"`
	Jurisdiction       flexString  `json:"stj"`
	CenterJurisdiction flexString  `json:"ctj"`
	CancellationDate   flexString  `json:"cxdt"`
	NatureOfBusiness   flexStrings `json:"nba"`
	CompositionRate    flexString  `json:"cmpRt"`
	AadhaarVerified    flexString  `json:"adhrVFlag"`
	AadhaarDate        flexString  `json:"adhrVdt"`
	EKYCVerified       flexString  `json:"ekycVFlag"`
	EInvoiceStatus     flexString  `json:"einvoiceStatus"`
	FieldVisit         flexString  `json:"isFieldVisitConducted"`
	CoreBusiness       flexString  `json:"ntcrbs"`
	PrincipalAddress   struct {
		Text  flexString    `json:"adr"`
		Parts *addressParts `json:"addr"`
	} `json:"pradr"`

	ErrorCode flexString `json:"errorCode"`
	Message   flexString `json:"message"`
}

type goodsServices struct {
	Items []struct {
		Code        flexString `json:"hsncd"`
		Description flexString `json:"gdes"`
	} `json:"bzgddtls"`
}

// RecordFromPayloads maps the intercepted API responses onto a record.
// secondary may be nil. An error code in the primary body is a PortalError.
func RecordFromPayloads(gstin string, primary, secondary *InterceptedPayload) (models.Record, error) {
	rec := models.Record{GSTIN: gstin, Source: "payload"}
	if primary == nil {
		return rec, fmt.Errorf("no primary payload")
	}

	var d taxpayerDetails
	if err := json.Unmarshal(primary.Body, &d); err != nil {
		return rec, fmt.Errorf("failed to decode taxpayer details: %w", err)
	}
	if d.ErrorCode != "" {
		msg := string(d.Message)
		if msg == "" {
			msg = string(d.ErrorCode)
		}
		return rec, newLookupError(KindPortal, "GST Portal Error: "+msg, nil)
	}

	if d.GSTIN != "" {
		rec.GSTIN = strings.ToUpper(string(d.GSTIN))
	}
	rec.LegalName = d.LegalName.ptr()
	rec.TradeName = d.TradeName.ptr()
	rec.Status = d.Status.ptr()
	rec.EffectiveDate = d.RegistrationDate.ptr()
	rec.RegistrationDate = d.RegistrationDate.ptr()
	rec.Constitution = d.Constitution.ptr()
	rec.TaxpayerType = d.TaxpayerType.ptr()
	rec.Jurisdiction = d.Jurisdiction.ptr()
	rec.CenterJurisdiction = d.CenterJurisdiction.ptr()
	rec.CancellationDate = d.CancellationDate.ptr()
	rec.NatureOfBusiness = []string(d.NatureOfBusiness)
	rec.CompositionRate = d.CompositionRate.ptr()
	rec.AadhaarVerified = d.AadhaarVerified.ptr()
	rec.AadhaarVerifiedDate = d.AadhaarDate.ptr()
	rec.EKYCVerified = d.EKYCVerified.ptr()
	rec.EInvoiceStatus = d.EInvoiceStatus.ptr()
	rec.FieldVisitConducted = d.FieldVisit.ptr()
	rec.NatureOfCoreBusiness = d.CoreBusiness.ptr()

	rec.Address = d.PrincipalAddress.Text.ptr()
	if rec.Address == nil && d.PrincipalAddress.Parts != nil {
		rec.Address = models.StringPtr(d.PrincipalAddress.Parts.String())
	}

	if secondary != nil {
		var gs goodsServices
		if err := json.Unmarshal(secondary.Body, &gs); err == nil {
			for _, it := range gs.Items {
				if it.Code == "" && it.Description == "" {
					continue
				}
				rec.GoodsServices = append(rec.GoodsServices, models.GoodsService{
					Code:        string(it.Code),
					Description: string(it.Description),
				})
			}
		}
	}

	return rec, nil
}
