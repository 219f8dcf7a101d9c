package secure

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/table"
	"spendlens/internal/config"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, keySize)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func secureFixture() *table.Table {
	tbl := table.New("Vendor", "Annual Spend", "Notes")
	tbl.AppendRow("Acme Corp", "120000.00", "renewal pending")
	tbl.AppendRow("Globex", "45000.00", "")
	return tbl
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	enc, err := h.EncryptValue("Acme Corp")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(enc))
	assert.NotEqual(t, "Acme Corp", enc)

	plain, err := h.DecryptValue(enc)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", plain)
}

func TestEncryptValueIdempotent(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	enc, err := h.EncryptValue("secret")
	require.NoError(t, err)
	again, err := h.EncryptValue(enc)
	require.NoError(t, err)
	assert.Equal(t, enc, again, "already-encrypted cells must pass through")

	empty, err := h.EncryptValue("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestDecryptPassesThroughPlaintext(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	plain, err := h.DecryptValue("not encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not encrypted", plain)
}

func TestEncryptColumnsRoundTrip(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	src := secureFixture()
	enc, err := h.EncryptColumns(src, []string{"Vendor", "Annual Spend", "No Such Column"})
	require.NoError(t, err)

	// Source untouched
	assert.Equal(t, "Acme Corp", src.Value(0, "Vendor"))
	assert.True(t, IsEncrypted(enc.Value(0, "Vendor")))
	assert.True(t, IsEncrypted(enc.Value(1, "Annual Spend")))
	assert.Equal(t, "renewal pending", enc.Value(0, "Notes"))
	assert.Equal(t, "", enc.Value(1, "Notes"), "empty cells stay empty")

	dec, err := h.DecryptColumns(enc, []string{"Vendor", "Annual Spend"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", dec.Value(0, "Vendor"))
	assert.Equal(t, "45000.00", dec.Value(1, "Annual Spend"))
}

func TestPassphraseHandlersInteroperate(t *testing.T) {
	first, err := NewHandler(config.CryptoConfig{Passphrase: "college-it-2025"})
	require.NoError(t, err)
	second, err := NewHandler(config.CryptoConfig{Passphrase: "college-it-2025"})
	require.NoError(t, err)

	enc, err := first.EncryptValue("confidential")
	require.NoError(t, err)

	// Different handler instance, different salt, same passphrase
	plain, err := second.DecryptValue(enc)
	require.NoError(t, err)
	assert.Equal(t, "confidential", plain)
}

func TestWrongPassphraseFails(t *testing.T) {
	first, err := NewHandler(config.CryptoConfig{Passphrase: "right"})
	require.NoError(t, err)
	second, err := NewHandler(config.CryptoConfig{Passphrase: "wrong"})
	require.NoError(t, err)

	enc, err := first.EncryptValue("confidential")
	require.NoError(t, err)
	_, err = second.DecryptValue(enc)
	require.Error(t, err)
}

func TestNewHandlerRejectsBadKey(t *testing.T) {
	_, err := NewHandler(config.CryptoConfig{Key: "not base64!!!"})
	require.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewHandler(config.CryptoConfig{Key: short})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestDetectSensitive(t *testing.T) {
	columns := []string{"Vendor", "Annual Spend", "Notes", "Contact Email", "Contract_Number", "Row ID"}
	sensitive := DetectSensitive(columns)
	assert.Equal(t, []string{"Vendor", "Annual Spend", "Contact Email", "Contract_Number"}, sensitive)
}

func TestAssessLevels(t *testing.T) {
	none := Assess([]string{"id", "status"})
	assert.Equal(t, "none", none.Level)

	high := Assess([]string{"Vendor", "Annual Spend", "Contact Email", "flag"})
	assert.Equal(t, "high", high.Level)
	assert.Equal(t, 3, high.SensitiveColumns)
	assert.Contains(t, high.ByCategory[CategoryFinancial], "Annual Spend")
	assert.Contains(t, high.ByCategory[CategoryVendor], "Vendor")
}

func TestMaskModes(t *testing.T) {
	assert.Equal(t, "Ac*****rp", MaskValue("Acme Corp", MaskPartial))
	assert.Equal(t, "****", MaskValue("Acme", MaskPartial), "short values mask fully")
	assert.Equal(t, strings.Repeat("*", 9), MaskValue("Acme Corp", MaskFull))
	assert.Equal(t, "", MaskValue("", MaskFull))

	hashed := MaskValue("Acme Corp", MaskHash)
	assert.True(t, strings.HasPrefix(hashed, "sha256:"))
	assert.Equal(t, hashed, MaskValue("Acme Corp", MaskHash), "hash masking is deterministic")
	assert.NotEqual(t, hashed, MaskValue("Globex", MaskHash))
}

func TestMaskColumns(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	masked := MaskColumns(h, secureFixture(), []string{"Vendor"}, MaskPartial)
	assert.Equal(t, "Ac*****rp", masked.Value(0, "Vendor"))
	assert.Equal(t, "120000.00", masked.Value(0, "Annual Spend"))

	ops := h.Audit().Entries()
	require.Len(t, ops, 1)
	assert.Equal(t, "mask:partial", ops[0].Operation)
}

func TestVerifyIntegrity(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	before := secureFixture()
	after, err := h.EncryptColumns(before, []string{"Vendor"})
	require.NoError(t, err)

	assert.Empty(t, VerifyIntegrity(before, after, []string{"Vendor"}))

	after.SetValue(0, "Notes", "tampered")
	changed := VerifyIntegrity(before, after, []string{"Vendor"})
	assert.Equal(t, []string{"Notes"}, changed)
}

func TestAuditRecordsOperations(t *testing.T) {
	h, err := NewHandler(config.CryptoConfig{Key: testKey(t)})
	require.NoError(t, err)

	tbl := secureFixture()
	enc, err := h.EncryptColumns(tbl, []string{"Vendor"})
	require.NoError(t, err)
	_, err = h.DecryptColumns(enc, []string{"Vendor"})
	require.NoError(t, err)

	entries := h.Audit().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "encrypt", entries[0].Operation)
	assert.Equal(t, "decrypt", entries[1].Operation)
	assert.Equal(t, 2, entries[0].Rows)
	assert.NotEmpty(t, entries[0].ID)

	exported, err := h.Audit().Export()
	require.NoError(t, err)
	assert.Contains(t, string(exported), "\"operation\": \"encrypt\"")
	assert.Contains(t, string(exported), "\"total_operations\": 2")
}
