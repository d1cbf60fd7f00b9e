package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Draft is the in-progress, unsubmitted application. All four sections are
// values, so a Draft can never be missing one.
type Draft struct {
	Personal   PersonalData   `json:"personal"`
	Employment EmploymentData `json:"employee"`
	Other      OtherData      `json:"other"`
	CoMaker    CoMakerData    `json:"coMaker"`
}

type PersonalData struct {
	FullName        string `json:"fullName"`
	ContactNo       string `json:"contactNo"`
	Address         string `json:"address"`
	HeadOfHousehold string `json:"headOfHousehold"`
	Dependents      string `json:"dependents"`
	YearsLivingHere string `json:"yearsLivingHere"`
	HousingStatus   string `json:"housingStatus"`
}

type EmploymentData struct {
	CompanyName        string `json:"companyName"`
	Sector             string `json:"sector"`
	Position           string `json:"position"`
	EmploymentDuration string `json:"employmentDuration"`
	Salary             string `json:"salary"`
	TypeOfSalary       string `json:"typeOfSalary"`
}

type OtherData struct {
	CommunityPosition            string `json:"communityPosition"`
	PaluwagaParticipation        string `json:"paluwagaParticipation"`
	OtherIncomeSources           string `json:"otherIncomeSources"`
	DisasterPreparednessStrategy string `json:"disasterPreparednessStrategy"`
}

type CoMakerData struct {
	FullName                  string `json:"fullName"`
	ContactNo                 string `json:"contactNo"`
	Address                   string `json:"address"`
	HowManyMonthsYears        string `json:"howManyMonthsYears"`
	Salary                    string `json:"salary"`
	RelationshipWithApplicant string `json:"relationshipWithApplicant"`
}

// NewDraft returns the all-blank draft.
func NewDraft() Draft {
	return Draft{}
}

// IsEmpty reports whether every field in every section is blank.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// Section names the four draft sections in step order.
type Section string

const (
	SectionPersonal   Section = "personal"
	SectionEmployment Section = "employee"
	SectionOther      Section = "other"
	SectionCoMaker    Section = "coMaker"
)

// ==========================
// File slots
// ==========================

// FileSlot is one of the eight named attachment positions. The value is the
// multipart field name the backend expects.
type FileSlot string

const (
	SlotProfilePhoto       FileSlot = "profilePhoto"
	SlotValidID            FileSlot = "validId"
	SlotBrgyCert           FileSlot = "brgyCert"
	SlotPayslip            FileSlot = "payslip"
	SlotCompanyID          FileSlot = "companyId"
	SlotProofOfBilling     FileSlot = "proofOfBilling"
	SlotESignaturePersonal FileSlot = "eSignaturePersonal"
	SlotESignatureCoMaker  FileSlot = "eSignatureCoMaker"
)

// AllSlots lists the slots in display order.
var AllSlots = []FileSlot{
	SlotProfilePhoto,
	SlotValidID,
	SlotBrgyCert,
	SlotPayslip,
	SlotCompanyID,
	SlotProofOfBilling,
	SlotESignaturePersonal,
	SlotESignatureCoMaker,
}

var slotDocumentTypes = map[FileSlot]string{
	SlotProfilePhoto:       "profile_photo",
	SlotValidID:            "valid_id",
	SlotBrgyCert:           "brgy_cert",
	SlotPayslip:            "payslip",
	SlotCompanyID:          "company_id",
	SlotProofOfBilling:     "proof_of_billing",
	SlotESignaturePersonal: "e_signature_personal",
	SlotESignatureCoMaker:  "e_signature_comaker",
}

// DocumentType is the snake_case name used by the document endpoints.
func (s FileSlot) DocumentType() string {
	return slotDocumentTypes[s]
}

func (s FileSlot) Valid() bool {
	_, ok := slotDocumentTypes[s]
	return ok
}

// ParseSlot accepts either the slot name or its document type.
func ParseSlot(name string) (FileSlot, error) {
	name = strings.TrimSpace(name)
	for slot, docType := range slotDocumentTypes {
		if strings.EqualFold(string(slot), name) || strings.EqualFold(docType, name) {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown file slot %q", name)
}

// AttachedFile is a file held in one slot, with the bytes needed both to
// upload it and to render a preview.
type AttachedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f *AttachedFile) Size() int64 {
	return int64(len(f.Data))
}

// DataURL renders the preview form persisted alongside the draft.
func (f *AttachedFile) DataURL() string {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Files maps each occupied slot to its file.
type Files map[FileSlot]*AttachedFile

// Present returns the occupied slots in display order.
func (f Files) Present() []FileSlot {
	out := make([]FileSlot, 0, len(f))
	for _, slot := range AllSlots {
		if file, ok := f[slot]; ok && file != nil {
			out = append(out, slot)
		}
	}
	return out
}
