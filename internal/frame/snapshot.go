package frame

import (
	"encoding/base64"
	"time"
)

const MimeJPEG = "image/jpeg"

// Snapshot is one encoded still taken from the live camera image.
type Snapshot struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

func (s *Snapshot) MimeType() string {
	return MimeJPEG
}

func (s *Snapshot) Base64() string {
	if s == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.Data)
}
