// Package audit implements the hash-chained, write-ahead-logged audit
// trail: one JSON line per entry, each linked to the previous entry's hash,
// with crash-safe append, rotation, and integrity verification.
package audit

import (
	"time"

	"github.com/tech4242/aquaman-broker/internal/audit/redact"
	"github.com/tech4242/aquaman-broker/internal/cryptoutil"
)

// EntryType identifies the kind of audit record.
type EntryType string

const (
	ToolCall          EntryType = "tool_call"
	ToolResult        EntryType = "tool_result"
	CredentialAccess  EntryType = "credential_access"
	PolicyViolation   EntryType = "policy_violation"
	ApprovalRequest   EntryType = "approval_request"
)

// GenesisHash is the previousHash value of the first entry in a segment
// chain: 64 ASCII '0' characters.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000000000000000"[:64]

// CredentialAccessOperation enumerates the operation field of
// CredentialAccessData.
type CredentialAccessOperation string

const (
	OpRead   CredentialAccessOperation = "read"
	OpUse    CredentialAccessOperation = "use"
	OpRotate CredentialAccessOperation = "rotate"
)

// CredentialAccessData is the type-discriminated data payload for
// CredentialAccess entries.
type CredentialAccessData struct {
	Service   string                    `json:"service"`
	Operation CredentialAccessOperation `json:"operation"`
	Success   bool                      `json:"success"`
	Error     string                    `json:"error,omitempty"`
}

// Entry is one record in the hash-chained audit log. Field names and JSON
// tags follow spec exactly: the whole record minus Hash is what gets
// canonicalized and hashed.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Type         EntryType `json:"type"`
	SessionID    string    `json:"sessionId"`
	AgentID      string    `json:"agentId"`
	Data         any       `json:"data"`
	PreviousHash string    `json:"previousHash"`
	Hash         string    `json:"hash"`
}

// newEntry builds, redacts, and hashes a new entry. data is redacted
// in-place (via redact.Redact, which returns a new, scrubbed value) before
// it is ever serialized — redaction happens in exactly one place,
// immediately before hashing, per the design notes.
func newEntry(id string, ts time.Time, entryType EntryType, sessionID, agentID string, data any, previousHash string) (*Entry, error) {
	e := &Entry{
		ID:           id,
		Timestamp:    ts,
		Type:         entryType,
		SessionID:    sessionID,
		AgentID:      agentID,
		Data:         redact.Redact(data),
		PreviousHash: previousHash,
	}

	body, err := canonicalRecordBytes(e)
	if err != nil {
		return nil, err
	}
	e.Hash = cryptoutil.ChainedHash(body, previousHash)
	return e, nil
}

// Verify recomputes the entry's hash from its current fields and reports
// whether it matches the stored Hash.
func (e *Entry) Verify() (bool, error) {
	body, err := canonicalRecordBytes(e)
	if err != nil {
		return false, err
	}
	return cryptoutil.ChainedHash(body, e.PreviousHash) == e.Hash, nil
}
