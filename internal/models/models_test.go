package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft_AllSectionsPresent(t *testing.T) {
	d := NewDraft()
	assert.True(t, d.IsEmpty())

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var sections map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &sections))
	for _, s := range []Section{SectionPersonal, SectionEmployment, SectionOther, SectionCoMaker} {
		assert.Contains(t, sections, string(s))
	}
	assert.Len(t, sections["personal"], 7)
	assert.Len(t, sections["employee"], 6)
	assert.Len(t, sections["other"], 4)
	assert.Len(t, sections["coMaker"], 6)
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in   string
		want FileSlot
		err  bool
	}{
		{"validId", SlotValidID, false},
		{"valid_id", SlotValidID, false},
		{"E_SIGNATURE_COMAKER", SlotESignatureCoMaker, false},
		{" payslip ", SlotPayslip, false},
		{"selfie", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlot(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, AllSlots, 8)
}

func TestAttachedFile_DataURL(t *testing.T) {
	f := &AttachedFile{Name: "id.png", ContentType: "image/png", Data: []byte("png")}
	assert.Equal(t, "data:image/png;base64,cG5n", f.DataURL())
	assert.Equal(t, int64(3), f.Size())

	files := Files{SlotPayslip: f, SlotProfilePhoto: f, SlotBrgyCert: nil}
	assert.Equal(t, []FileSlot{SlotProfilePhoto, SlotPayslip}, files.Present())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusCancelled, true},
		{StatusApproved, StatusPending, true},
		{StatusDenied, StatusPending, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusDenied, false},
		{StatusCancelled, StatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	s, err = ParseStatus("rejected")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}

func TestListQuery_Skip(t *testing.T) {
	assert.Equal(t, 0, ListQuery{Page: 1, PageSize: 10}.Skip())
	assert.Equal(t, 20, ListQuery{Page: 3, PageSize: 10}.Skip())
	assert.Equal(t, 0, ListQuery{Page: 0, PageSize: 10}.Skip())
}

func TestDocumentURLSet_Merge(t *testing.T) {
	old := DocumentURLSet{SlotValidID: "a", SlotPayslip: "b"}
	merged := old.Merge(DocumentURLSet{SlotValidID: "a2", SlotPayslip: ""})
	assert.Equal(t, "a2", merged[SlotValidID])
	assert.Equal(t, "b", merged[SlotPayslip])
	assert.Equal(t, "a", old[SlotValidID])
	assert.Equal(t, []FileSlot{SlotValidID, SlotPayslip}, merged.Slots())
}

func TestPredictionResult_TopRecommendation(t *testing.T) {
	var nilPred *PredictionResult
	assert.Nil(t, nilPred.TopRecommendation())

	p := &PredictionResult{LoanRecommendation: []LoanRecommendation{
		{ProductName: "Salary Loan"},
		{ProductName: "Emergency Loan", IsTopRecommendation: true},
	}}
	assert.Equal(t, "Emergency Loan", p.TopRecommendation().ProductName)
}
