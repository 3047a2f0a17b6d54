//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseParticipantID tests that parsing never panics on arbitrary input
// and always returns either a canonical ID or an error.
func FuzzParseParticipantID(f *testing.F) {
	f.Add("")
	f.Add("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("not-an-address")
	f.Add("'; DROP TABLE residents;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseParticipantID(input)
		if err == nil {
			roundTrip, err2 := ParseParticipantID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAddressMatchesParticipant ensures both identity types share validation.
func FuzzParseAddressMatchesParticipant(f *testing.F) {
	f.Add("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errParticipant := ParseParticipantID(input)
		_, errAddress := ParseAddress(input)
		if (errParticipant == nil) != (errAddress == nil) {
			t.Error("inconsistent parsing across identity types")
		}
	})
}
