package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// Look-alike characters (0/O, 1/I/L) are left out so codes can be read aloud
const familyCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultFamilyCodeLength sits inside the accepted 6-8 range
const DefaultFamilyCodeLength = 6

// GenerateFamilyCode returns a random upper-case alphanumeric code of the given length
func GenerateFamilyCode(length int) (string, error) {
	code := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(familyCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = familyCodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// GenerateInvitationToken generates a random 32 character hex token
func GenerateInvitationToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
