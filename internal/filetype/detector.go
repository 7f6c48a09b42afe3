// Package filetype identifies candidate documents by magic bytes
// rather than filename extension.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info describes a detected file.
type Info struct {
	MIMEType  string
	Extension string
	IsPDF     bool
}

// Detect sniffs the file's content type. Research archives are full
// of mislabeled files, so the extension is never trusted.
func Detect(filePath string) (Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return Info{}, fmt.Errorf("detect file type: %w", err)
	}

	info := Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		IsPDF:     mtype.Is("application/pdf"),
	}
	log.Debug().Str("mime", info.MIMEType).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// IsPDF reports whether the file's content is a PDF.
func IsPDF(filePath string) bool {
	info, err := Detect(filePath)
	if err != nil {
		return false
	}
	return info.IsPDF
}
