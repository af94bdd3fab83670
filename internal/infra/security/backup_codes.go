package security

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes produces count single-use recovery codes in the form
// XXXX-XXXX. The raw values are shown to the user exactly once; callers
// persist only their hashes.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, nil
}

func randomBackupCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}

	var b strings.Builder
	for i, v := range buf {
		if i == 4 {
			b.WriteByte('-')
		}
		b.WriteByte(backupCodeAlphabet[int(v)%len(backupCodeAlphabet)])
	}

	return b.String(), nil
}

// NormalizeBackupCode strips separators and whitespace so user input matches
// the generated form regardless of formatting.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}

// HashBackupCode hashes a normalized backup code for storage.
func HashBackupCode(code string) string {
	return HashToken(NormalizeBackupCode(code))
}
