package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	dErrors "condo/pkg/domain-errors"
)

// addressHexLen is the number of hex digits in a canonical 20-byte address.
const addressHexLen = 40

// ParticipantID is the opaque, globally unique identity of a caller or resident.
// Invariant: a parsed ParticipantID is the lower-cased "0x" + 40 hex digit form.
//
// Usage: construct via ParseParticipantID at trust boundaries; the zero value
// means "no participant" and is rejected by every guarded operation.
type ParticipantID string

// Address identifies a deployed backend or adapter instance on the host.
// It shares the canonical form of ParticipantID.
type Address string

// ParseParticipantID validates and canonicalizes external input.
//
// Errors: returns CodeInvalidParticipant when the value is empty, the zero
// address, or not 20 hex-encoded bytes.
func ParseParticipantID(s string) (ParticipantID, error) {
	canonical, err := canonicalAddress(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidParticipant, "invalid participant: "+err.Error())
	}
	return ParticipantID(canonical), nil
}

// ParseAddress validates and canonicalizes a backend address.
//
// Errors: returns CodeInvalidAddress for the same conditions as ParseParticipantID.
func ParseAddress(s string) (Address, error) {
	canonical, err := canonicalAddress(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "invalid address: "+err.Error())
	}
	return Address(canonical), nil
}

// AddressFromBytes renders the last 20 bytes of b as an Address.
func AddressFromBytes(b []byte) Address {
	if len(b) > addressHexLen/2 {
		b = b[len(b)-addressHexLen/2:]
	}
	return Address("0x" + hex.EncodeToString(b))
}

func canonicalAddress(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", errString("value is empty")
	}
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != addressHexLen {
		return "", errString("expected 40 hex digits")
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", errString("not hex encoded")
	}
	if strings.Trim(raw, "0") == "" {
		return "", errString("zero address")
	}
	return "0x" + raw, nil
}

type errString string

func (e errString) Error() string { return string(e) }

// IsNil reports whether the participant is unset.
func (p ParticipantID) IsNil() bool { return p == "" }

func (p ParticipantID) String() string { return string(p) }

// IsNil reports whether the address is unset.
func (a Address) IsNil() bool { return a == "" }

func (a Address) String() string { return string(a) }

// ResidenceID identifies a housing unit, encoded as block*1000 + floor*100 + unit.
// Zero is reserved for the management seat and is never a directory entry.
type ResidenceID int

// ManagementSeat is the unit a manager without a residence votes for.
const ManagementSeat ResidenceID = 0

// ParseResidenceID parses a decimal residence identifier.
//
// Errors: returns CodeUnknownResidence for non-numeric or non-positive input.
// Membership in the directory is checked separately.
func ParseResidenceID(s string) (ResidenceID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeUnknownResidence, "invalid residence id: "+s)
	}
	return ResidenceID(n), nil
}

func (r ResidenceID) String() string { return strconv.Itoa(int(r)) }

// Block returns the block component of the residence id.
func (r ResidenceID) Block() int { return int(r) / 1000 }

// Floor returns the floor component of the residence id.
func (r ResidenceID) Floor() int { return (int(r) % 1000) / 100 }

// Unit returns the unit-on-floor component of the residence id.
func (r ResidenceID) Unit() int { return int(r) % 100 }
