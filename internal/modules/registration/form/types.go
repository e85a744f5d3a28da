package form

import "fmt"

type AccountType string

const (
	AccountClient AccountType = "CLIENT"
	AccountLawyer AccountType = "LAWYER"
)

func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountClient, AccountLawyer:
		return AccountType(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// DocumentSlot names one of the five lawyer document uploads. The string
// value is the field name used on the wire.
type DocumentSlot string

const (
	SlotIdentificationCard DocumentSlot = "id"
	SlotQualification      DocumentSlot = "qualification"
	SlotCurriculumVitae    DocumentSlot = "cv"
	SlotResume             DocumentSlot = "resume"
	SlotPhoto              DocumentSlot = "photo"
)

var DocumentSlots = []DocumentSlot{
	SlotIdentificationCard,
	SlotQualification,
	SlotCurriculumVitae,
	SlotResume,
	SlotPhoto,
}

func ParseDocumentSlot(s string) (DocumentSlot, error) {
	for _, slot := range DocumentSlots {
		if string(slot) == s {
			return slot, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

type DocumentURLs struct {
	IdentificationCard string `json:"id" validate:"required,url"`
	Qualification      string `json:"qualification" validate:"required,url"`
	CurriculumVitae    string `json:"cv" validate:"required,url"`
	Resume             string `json:"resume" validate:"required,url"`
	Photo              string `json:"photo" validate:"required,url"`
}

func (d *DocumentURLs) ptr(slot DocumentSlot) *string {
	switch slot {
	case SlotIdentificationCard:
		return &d.IdentificationCard
	case SlotQualification:
		return &d.Qualification
	case SlotCurriculumVitae:
		return &d.CurriculumVitae
	case SlotResume:
		return &d.Resume
	case SlotPhoto:
		return &d.Photo
	}
	return nil
}

func (d DocumentURLs) Get(slot DocumentSlot) string {
	if p := d.ptr(slot); p != nil {
		return *p
	}
	return ""
}

func (d *DocumentURLs) Set(slot DocumentSlot, url string) {
	if p := d.ptr(slot); p != nil {
		*p = url
	}
}

// Missing lists the slots that have no URL yet, in display order.
func (d DocumentURLs) Missing() []DocumentSlot {
	var out []DocumentSlot
	for _, slot := range DocumentSlots {
		if d.Get(slot) == "" {
			out = append(out, slot)
		}
	}
	return out
}

// URLs returns the filled slots' URLs.
func (d DocumentURLs) URLs() []string {
	var out []string
	for _, slot := range DocumentSlots {
		if url := d.Get(slot); url != "" {
			out = append(out, url)
		}
	}
	return out
}

type SelectionGroup string

const (
	GroupLanguages   SelectionGroup = "languages"
	GroupSpecialties SelectionGroup = "specialties"
	GroupCourts      SelectionGroup = "courts"
)

var SelectionGroups = []SelectionGroup{GroupLanguages, GroupSpecialties, GroupCourts}

func ParseSelectionGroup(s string) (SelectionGroup, error) {
	for _, g := range SelectionGroups {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroup, s)
}

// Prefill carries the email/password remembered from a previous screen.
type Prefill struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Fields is the flat state of one registration form session.
type Fields struct {
	Email           string       `json:"email"`
	Password        string       `json:"password"`
	ConfirmPassword string       `json:"confirm_password"`
	PhoneNumber     string       `json:"phone_number"`
	FullName        string       `json:"full_name"`
	AccountType     AccountType  `json:"account_type"`
	Description     string       `json:"description"`
	Languages       []string     `json:"languages"`
	Specialties     []string     `json:"specialties"`
	Courts          []string     `json:"courts"`
	Documents       DocumentURLs `json:"documents"`
}

// DefaultFields mirrors the initial selections shown to a new registrant.
func DefaultFields() Fields {
	return Fields{
		Languages:   []string{"Amharic"},
		Specialties: []string{"criminal_law"},
		Courts:      []string{"administrative_court"},
	}
}

func (f Fields) Clone() Fields {
	out := f
	out.Languages = append([]string(nil), f.Languages...)
	out.Specialties = append([]string(nil), f.Specialties...)
	out.Courts = append([]string(nil), f.Courts...)
	return out
}

func (f *Fields) selection(group SelectionGroup) *[]string {
	switch group {
	case GroupLanguages:
		return &f.Languages
	case GroupSpecialties:
		return &f.Specialties
	case GroupCourts:
		return &f.Courts
	}
	return nil
}

func (f Fields) Selection(group SelectionGroup) []string {
	if p := f.selection(group); p != nil {
		return append([]string(nil), (*p)...)
	}
	return nil
}

// FieldsPatch is a partial edit. Nil members are left unchanged; selection
// slices replace the whole set when non-nil.
type FieldsPatch struct {
	Email           *string  `json:"email"`
	Password        *string  `json:"password"`
	ConfirmPassword *string  `json:"confirm_password"`
	PhoneNumber     *string  `json:"phone_number"`
	FullName        *string  `json:"full_name"`
	AccountType     *string  `json:"account_type"`
	Description     *string  `json:"description"`
	Languages       []string `json:"languages"`
	Specialties     []string `json:"specialties"`
	Courts          []string `json:"courts"`
}

// FieldErrors maps a wire field name to a readable message. Empty means valid.
type FieldErrors map[string]string

// UploadResult is one file reported by the upload provider.
type UploadResult struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Toast is a transient, non-blocking notification for the registrant.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
}

const VariantDestructive = "destructive"
