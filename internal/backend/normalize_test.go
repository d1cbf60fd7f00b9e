package backend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/models"
)

func TestRecordAndApplicationIDs(t *testing.T) {
	assert.Equal(t, "65f0c0ffee", recordID(json.RawMessage(`{"$oid":"65f0c0ffee"}`)))
	assert.Equal(t, "plain", recordID(json.RawMessage(`"plain"`)))
	assert.Equal(t, "", recordID(nil))

	assert.Equal(t, "3b1f-uuid", applicationID(json.RawMessage(`"3b1f-uuid"`)))
	assert.Equal(t, "O0kT2xYzQ0u2m5rZ6m1xVg==",
		applicationID(json.RawMessage(`{"$binary":{"base64":"O0kT2xYzQ0u2m5rZ6m1xVg==","subType":"04"}}`)))
	assert.Equal(t, "", applicationID(json.RawMessage(`42`)))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-03-01T08:30:00Z"`, want},
		{"naive iso", `"2026-03-01T08:30:00"`, want},
		{"naive micro", `"2026-03-01T08:30:00.000000"`, want},
		{"epoch ms", `1772353800000`, want},
		{"$date string", `{"$date":"2026-03-01T08:30:00Z"}`, want},
		{"$date numberLong", `{"$date":{"$numberLong":"1772353800000"}}`, want},
		{"garbage", `"yesterday"`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTimestamp(json.RawMessage(tt.raw))), "got %v", parseTimestamp(json.RawMessage(tt.raw)))
		})
	}
}

func TestNormalizeDocuments(t *testing.T) {
	raw := map[string]interface{}{
		"profile_photo_url":    "https://s3/profile.png",
		"validId":              "https://s3/id.png",
		"brgy_cert":            "https://s3/brgy.png",
		"payslip_url":          nil,
		"company_id_url":       "",
		"proofofbilling_url":   "https://s3/bill.png",
		"e_signature_comaker":  "https://s3/sig.png",
		"unrelated":            "https://s3/x.png",
		"e_signature_personal": 42,
	}
	set := NormalizeDocuments(raw)

	assert.Equal(t, models.DocumentURLSet{
		models.SlotProfilePhoto:      "https://s3/profile.png",
		models.SlotValidID:           "https://s3/id.png",
		models.SlotBrgyCert:          "https://s3/brgy.png",
		models.SlotProofOfBilling:    "https://s3/bill.png",
		models.SlotESignatureCoMaker: "https://s3/sig.png",
	}, set)
}

func TestNormalizeDocuments_CanonicalKeyWins(t *testing.T) {
	for i := 0; i < 20; i++ { // map order varies
		set := NormalizeDocuments(map[string]interface{}{
			"valid_id":     "https://s3/old.png",
			"valid_id_url": "https://s3/new.png",
			"idPhoto":      "https://s3/older.png",
		})
		require.Equal(t, "https://s3/new.png", set[models.SlotValidID])
	}
}

func TestSlotForKey(t *testing.T) {
	slot, ok := SlotForKey("idPhoto")
	assert.True(t, ok)
	assert.Equal(t, models.SlotValidID, slot)

	_, ok = SlotForKey("nope")
	assert.False(t, ok)
}

func TestWireApplication_ToModel(t *testing.T) {
	raw := `{
		"_id": {"$oid": "rec-1"},
		"application_id": {"$binary": {"base64": "c2Vzc2lvbg==", "subType": "04"}},
		"timestamp": "2026-03-01T08:30:00Z",
		"status": "rejected",
		"loan_officer_id": "officer-7",
		"applicant_info": {"full_name": "Juan Dela Cruz", "contact_number": "0917", "address": "QC", "salary": "25000", "job": "Teacher"},
		"comaker_info": {"full_name": "Maria", "contact_number": "0918"},
		"model_input_data": {"Employment_Sector": "Public", "Employment_Tenure_Months": 36},
		"prediction_result": {"final_credit_score": 712.5, "default": 0, "status": "Approved",
			"loan_recommendation": [{"product_name": "Salary Loan", "is_top_recommendation": true}]},
		"documents": {"valid_id_url": "https://s3/id.png"}
	}`
	var wire wireApplication
	require.NoError(t, json.Unmarshal([]byte(raw), &wire))
	app := wire.toModel()

	assert.Equal(t, "rec-1", app.ID)
	assert.Equal(t, "c2Vzc2lvbg==", app.SessionID)
	assert.Equal(t, models.StatusDenied, app.Status)
	assert.Equal(t, "Juan Dela Cruz", app.Applicant.FullName)
	assert.Equal(t, 36.0, app.ModelInput.EmploymentTenureMonths)
	assert.Equal(t, "Salary Loan", app.Prediction.TopRecommendation().ProductName)
	assert.Equal(t, "https://s3/id.png", app.Documents[models.SlotValidID])
	assert.Equal(t, 2026, app.Timestamp.Year())
}

func TestWireApplication_SparseRecord(t *testing.T) {
	var wire wireApplication
	require.NoError(t, json.Unmarshal([]byte(`{"id": "x", "status": "weird"}`), &wire))
	app := wire.toModel()
	assert.Equal(t, "x", app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Nil(t, app.ModelInput)
	assert.Nil(t, app.Documents)
}
