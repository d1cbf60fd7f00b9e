package backend

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"loan-workbench/internal/models"
)

// wireApplication is the record shape the loan service returns. Ids and
// timestamps arrive in several encodings and are resolved by toModel.
type wireApplication struct {
	ID               json.RawMessage          `json:"_id"`
	PlainID          string                   `json:"id"`
	ApplicationID    json.RawMessage          `json:"application_id"`
	Timestamp        json.RawMessage          `json:"timestamp"`
	Status           string                   `json:"status"`
	LoanOfficerID    string                   `json:"loan_officer_id"`
	ApplicantInfo    *models.ApplicantInfo    `json:"applicant_info"`
	ComakerInfo      *models.ComakerInfo      `json:"comaker_info"`
	ModelInputData   *models.ModelInput       `json:"model_input_data"`
	PredictionResult *models.PredictionResult `json:"prediction_result"`
	Documents        map[string]interface{}   `json:"documents"`
}

func (w *wireApplication) toModel() models.Application {
	app := models.Application{
		ID:            recordID(w.ID),
		SessionID:     applicationID(w.ApplicationID),
		Timestamp:     parseTimestamp(w.Timestamp),
		LoanOfficerID: w.LoanOfficerID,
		ModelInput:    w.ModelInputData,
		Prediction:    w.PredictionResult,
	}
	if app.ID == "" {
		app.ID = w.PlainID
	}

	// Unknown statuses are shown as pending, the way the list always has.
	status, err := models.ParseStatus(w.Status)
	if err != nil {
		status = models.StatusPending
	}
	app.Status = status

	if w.ApplicantInfo != nil {
		app.Applicant = *w.ApplicantInfo
	}
	if w.ComakerInfo != nil {
		app.Comaker = *w.ComakerInfo
	}
	if w.Documents != nil {
		app.Documents = NormalizeDocuments(w.Documents)
	}
	return app
}

// recordID reads {"$oid": "..."} or a plain string.
func recordID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if json.Unmarshal(raw, &oid) == nil {
		return oid.OID
	}
	return ""
}

// applicationID reads a plain string or {"$binary": {"base64": "..."}}. The
// base64 text is kept as-is since the document endpoints accept it.
func applicationID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var bin struct {
		Binary struct {
			Base64 string `json:"base64"`
		} `json:"$binary"`
	}
	if json.Unmarshal(raw, &bin) == nil {
		return bin.Binary.Base64
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts an ISO string, epoch milliseconds or the
// {"$date": ...} wrapper. Unparseable values yield the zero time.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return time.Time{}
	}

	var ms float64
	if json.Unmarshal(raw, &ms) == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}

	var wrapped struct {
		Date json.RawMessage `json:"$date"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.Date) > 0 {
		var long struct {
			NumberLong string `json:"$numberLong"`
		}
		if json.Unmarshal(wrapped.Date, &long) == nil && long.NumberLong != "" {
			if n, err := strconv.ParseInt(long.NumberLong, 10, 64); err == nil {
				return time.UnixMilli(n).UTC()
			}
		}
		return parseTimestamp(wrapped.Date)
	}
	return time.Time{}
}

// documentKeys maps every key variant the document endpoints have used to
// its canonical slot.
var documentKeys = buildDocumentKeys()

func buildDocumentKeys() map[string]models.FileSlot {
	keys := make(map[string]models.FileSlot)
	for _, slot := range models.AllSlots {
		doc := slot.DocumentType()
		lower := strings.ToLower(string(slot))
		for _, k := range []string{doc + "_url", doc, string(slot), string(slot) + "Url", lower, lower + "_url"} {
			keys[k] = slot
		}
	}
	keys["idPhoto"] = models.SlotValidID
	return keys
}

// SlotForKey resolves a document response key to its slot.
func SlotForKey(key string) (models.FileSlot, bool) {
	slot, ok := documentKeys[key]
	return slot, ok
}

// NormalizeDocuments turns a document response into a slot-keyed set. Null,
// empty and non-string values are dropped; unknown keys are ignored.
func NormalizeDocuments(raw map[string]interface{}) models.DocumentURLSet {
	out := models.DocumentURLSet{}
	for k, v := range raw {
		slot, ok := documentKeys[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		// Prefer the canonical "<type>_url" key when several variants appear.
		if _, seen := out[slot]; seen && k != slot.DocumentType()+"_url" {
			continue
		}
		out[slot] = s
	}
	return out
}
