package core

// TextAvatar is the text record key holding the avatar url.
const (
	TextAvatar = "avatar"
	TextName   = "name"
)

// Subname is a claimed child name under a parent name
type Subname struct {
	ID          string            `json:"id"`
	FullName    string            `json:"fullName"`
	ParentName  string            `json:"parentName"`
	Label       string            `json:"label"`
	Texts       map[string]string `json:"texts"`
	Addresses   map[string]string `json:"addresses"`
	Metadata    map[string]string `json:"metadata"`
	ContentHash string            `json:"contenthash,omitempty"`
	Namehash    string            `json:"namehash"`
	Owner       Address           `json:"owner,omitempty"`
}

// Avatar returns the avatar text record.
func (s *Subname) Avatar() string {
	if s == nil {
		return ""
	}
	return s.Texts[TextAvatar]
}

// SubnamePage is one page of a filtered subname search
type SubnamePage struct {
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalItems int       `json:"totalItems"`
	Items      []Subname `json:"items"`
}

// First returns the first item of the page, or nil.
func (p *SubnamePage) First() *Subname {
	if p == nil || len(p.Items) == 0 {
		return nil
	}
	return &p.Items[0]
}

// Clone returns a deep copy of the page.
func (p *SubnamePage) Clone() *SubnamePage {
	if p == nil {
		return nil
	}
	out := *p
	if p.Items != nil {
		out.Items = make([]Subname, len(p.Items))
		for i, item := range p.Items {
			out.Items[i] = item.Clone()
		}
	}
	return &out
}

// Clone returns a copy of s that shares no maps with it.
func (s Subname) Clone() Subname {
	s.Texts = cloneStrings(s.Texts)
	s.Addresses = cloneStrings(s.Addresses)
	s.Metadata = cloneStrings(s.Metadata)
	return s
}

func cloneStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SubnameFilter narrows a subname search
type SubnameFilter struct {
	ParentName string
	Owner      Address
}

// Record is a key/value pair written when creating a subname.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AddressRecord maps a coin type to an address.
type AddressRecord struct {
	Chain string `json:"chain"`
	Value string `json:"value"`
}

// NewSubname describes a subname to create
type NewSubname struct {
	Label      string          `json:"label"`
	ParentName string          `json:"parentName"`
	Addresses  []AddressRecord `json:"addresses"`
	Texts      []Record        `json:"texts"`
	Metadata   []Record        `json:"metadata"`
	Owner      Address         `json:"owner"`
}

// UploadResult is the metadata service response to an avatar upload
type UploadResult struct {
	Subname    string  `json:"subname"`
	Network    Network `json:"network"`
	AvatarURL  string  `json:"avatarUrl"`
	UploadedAt string  `json:"uploadedAt"`
	FileSize   int64   `json:"fileSize"`
	IsUpdate   bool    `json:"isUpdate"`
}

// DeleteResult is the metadata service response to an avatar deletion
type DeleteResult struct {
	Subname   string  `json:"subname"`
	Network   Network `json:"network"`
	Message   string  `json:"message"`
	DeletedAt string  `json:"deletedAt"`
}

// Identity is the best known display identity for an address
type Identity struct {
	Name        string   `json:"name"`
	AvatarSrc   string   `json:"avatarSrc,omitempty"`
	HasSubnames bool     `json:"hasSubnames"`
	IsLoading   bool     `json:"isLoading"`
	Subname     *Subname `json:"subname,omitempty"`
}
