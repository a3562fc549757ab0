package domain

// PersonalInfo holds contact details of the CV owner.
type PersonalInfo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
}

// FullName joins first and last name.
func (p PersonalInfo) FullName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Experience is a single employment entry.
type Experience struct {
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Years    int    `json:"years,omitempty"`
}

// Education is a single qualification entry.
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Institution string `json:"institution,omitempty"`
}

// CVData is the CV half of the extracted profile.
type CVData struct {
	Personal   *PersonalInfo `json:"personal,omitempty"`
	Experience []Experience  `json:"experience,omitempty"`
	Skills     []string      `json:"skills,omitempty"`
	Education  []Education   `json:"education,omitempty"`
}

// RecipientInfo describes who a cover letter is addressed to.
type RecipientInfo struct {
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
}

// LetterData is the cover-letter half of the extracted profile.
type LetterData struct {
	SenderInfo    *PersonalInfo  `json:"senderInfo,omitempty"`
	RecipientInfo *RecipientInfo `json:"recipientInfo,omitempty"`
	Body          string         `json:"body,omitempty"`
}

// ExtractedData is the best-effort profile accumulated over a session.
type ExtractedData struct {
	CV     *CVData     `json:"cv,omitempty"`
	Letter *LetterData `json:"letter,omitempty"`
}

// IsEmpty reports whether nothing has been extracted.
func (d ExtractedData) IsEmpty() bool { return d.CV == nil && d.Letter == nil }

// Clone returns a deep copy.
func (d ExtractedData) Clone() ExtractedData {
	var out ExtractedData
	if d.CV != nil {
		cv := *d.CV
		if d.CV.Personal != nil {
			p := *d.CV.Personal
			cv.Personal = &p
		}
		cv.Experience = append([]Experience(nil), d.CV.Experience...)
		cv.Skills = append([]string(nil), d.CV.Skills...)
		cv.Education = append([]Education(nil), d.CV.Education...)
		out.CV = &cv
	}
	if d.Letter != nil {
		l := *d.Letter
		if d.Letter.SenderInfo != nil {
			p := *d.Letter.SenderInfo
			l.SenderInfo = &p
		}
		if d.Letter.RecipientInfo != nil {
			r := *d.Letter.RecipientInfo
			l.RecipientInfo = &r
		}
		out.Letter = &l
	}
	return out
}

// Merge applies partial on top of d and returns the result. Scalar fields are
// last-write-wins when the incoming value is non-empty; slices are replaced
// wholesale when the incoming slice is non-empty. Nothing is ever cleared.
func (d ExtractedData) Merge(partial ExtractedData) ExtractedData {
	out := d.Clone()
	if partial.CV != nil {
		if out.CV == nil {
			out.CV = &CVData{}
		}
		out.CV.Personal = mergePersonal(out.CV.Personal, partial.CV.Personal)
		if len(partial.CV.Experience) > 0 {
			out.CV.Experience = append([]Experience(nil), partial.CV.Experience...)
		}
		if len(partial.CV.Skills) > 0 {
			out.CV.Skills = append([]string(nil), partial.CV.Skills...)
		}
		if len(partial.CV.Education) > 0 {
			out.CV.Education = append([]Education(nil), partial.CV.Education...)
		}
	}
	if partial.Letter != nil {
		if out.Letter == nil {
			out.Letter = &LetterData{}
		}
		out.Letter.SenderInfo = mergePersonal(out.Letter.SenderInfo, partial.Letter.SenderInfo)
		if r := partial.Letter.RecipientInfo; r != nil {
			if out.Letter.RecipientInfo == nil {
				out.Letter.RecipientInfo = &RecipientInfo{}
			}
			dst := out.Letter.RecipientInfo
			setIf(&dst.Name, r.Name)
			setIf(&dst.Company, r.Company)
			setIf(&dst.Position, r.Position)
		}
		setIf(&out.Letter.Body, partial.Letter.Body)
	}
	return out
}

func mergePersonal(dst, src *PersonalInfo) *PersonalInfo {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = &PersonalInfo{}
	}
	setIf(&dst.FirstName, src.FirstName)
	setIf(&dst.LastName, src.LastName)
	setIf(&dst.Email, src.Email)
	setIf(&dst.Phone, src.Phone)
	setIf(&dst.Location, src.Location)
	return dst
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
