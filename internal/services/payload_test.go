package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(kind PayloadKind, body string) *InterceptedPayload {
	return &InterceptedPayload{Kind: kind, Body: []byte(body)}
}

func TestRecordFromPayloads(t *testing.T) {
	primary := payload(PayloadPrimary, `{
		"gstin": "27abcde1234f1z5",
		"lgnm": " ACME TRADING PRIVATE LIMITED ",
		"tradeNam": "ACME TRADERS",
		"sts": "Active",
		"rgdt": "01/07/2017",
		"ctb": "Private Limited Company",
		"dty": "Regular",
		"nba": ["Wholesale Business", "Retail Business"],
		"adhrVFlag": true,
		"ekycVFlag": false,
		"cmpRt": 1.5,
		"pradr": {"addr": {"bno": "12", "st": "MG Road", "loc": "Camp", "city": "", "dst": "Pune", "stcd": "Maharashtra", "pncd": 411001}}
	}`)
	secondary := payload(PayloadSecondary, `{"bzgddtls":[{"hsncd":"8471","gdes":"Computers"},{"hsncd":"","gdes":""}]}`)

	rec, err := RecordFromPayloads("27ABCDE1234F1Z5", primary, secondary)
	require.NoError(t, err)

	want := models.Record{
		GSTIN:            "27ABCDE1234F1Z5",
		LegalName:        models.StringPtr("ACME TRADING PRIVATE LIMITED"),
		TradeName:        models.StringPtr("ACME TRADERS"),
		Address:          models.StringPtr("12, MG Road, Camp, Pune, Maharashtra, 411001"),
		Status:           models.StringPtr("Active"),
		EffectiveDate:    models.StringPtr("01/07/2017"),
		RegistrationDate: models.StringPtr("01/07/2017"),
		Constitution:     models.StringPtr("Private Limited Company"),
		TaxpayerType:     models.StringPtr("Regular"),
		NatureOfBusiness: []string{"Wholesale Business", "Retail Business"},
		CompositionRate:  models.StringPtr("1.5"),
		AadhaarVerified:  models.StringPtr("Yes"),
		EKYCVerified:     models.StringPtr("No"),
		GoodsServices:    []models.GoodsService{{Code: "8471", Description: "Computers"}},
		Source:           "payload",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("RecordFromPayloads() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFromPayloadsPrefersAddressText(t *testing.T) {
	primary := payload(PayloadPrimary, `{"lgnm":"ACME","pradr":{"adr":"12, MG Road, Pune","addr":{"bno":"99"}},"nba":"Retail Business"}`)

	rec, err := RecordFromPayloads("27ABCDE1234F1Z5", primary, nil)
	require.NoError(t, err)
	assert.Equal(t, "12, MG Road, Pune", *rec.Address)
	assert.Equal(t, []string{"Retail Business"}, rec.NatureOfBusiness)
	assert.Nil(t, rec.GoodsServices)
}

func TestRecordFromPayloadsPortalError(t *testing.T) {
	primary := payload(PayloadPrimary, `{"errorCode":"SWEB_9035","message":"Invalid GSTIN / UID"}`)

	_, err := RecordFromPayloads("27ABCDE1234F1Z5", primary, nil)
	require.ErrorIs(t, err, ErrPortal)
	assert.Contains(t, err.Error(), "Invalid GSTIN / UID")
}

func TestRecordFromPayloadsWithoutTargets(t *testing.T) {
	rec, err := RecordFromPayloads("27ABCDE1234F1Z5", payload(PayloadPrimary, `{"sts":"Active","lgnm":null,"pradr":{}}`), nil)
	require.NoError(t, err)
	assert.False(t, rec.HasTargets())
	assert.Equal(t, "Active", *rec.Status)
}

func TestRecordFromPayloadsBadInput(t *testing.T) {
	_, err := RecordFromPayloads("27ABCDE1234F1Z5", nil, nil)
	assert.Error(t, err)

	_, err = RecordFromPayloads("27ABCDE1234F1Z5", payload(PayloadPrimary, `[1,2]`), nil)
	assert.Error(t, err)
}
