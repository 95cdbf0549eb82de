package models

// ImageFile is an in-memory image with its declared media type.
type ImageFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

func (f ImageFile) Empty() bool {
	return len(f.Data) == 0
}
