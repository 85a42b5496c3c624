package dto

import "encoding/json"

// MigrationValidateRequest carries a candidate import payload for
// validation without committing it.
type MigrationValidateRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// MigrationValidateResponse reports payload validity and encryption
// compatibility.
type MigrationValidateResponse struct {
	Valid                bool `json:"valid"`
	EncryptionCompatible bool `json:"encryptionCompatible"`
	NoteCount            int  `json:"noteCount"`
	DomainCount          int  `json:"domainCount"`
	HasEncryptedNotes    bool `json:"hasEncryptedNotes"`
}
