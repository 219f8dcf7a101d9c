package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"spendlens/domain/table"
	"spendlens/internal/config"
	apperrors "spendlens/internal/errors"
)

const (
	keySize        = 32 // AES-256
	saltSize       = 16
	pbkdf2Iters    = 100_000
	cipherPrefix   = "enc:"
	defaultKeySeed = "spendlens-dev-only-key"
)

// Handler performs column-level AES-256-GCM encryption on tables.
// Key material comes from a base64 key or is derived from a passphrase
// with PBKDF2-HMAC-SHA256; the per-handler salt is prepended to every
// ciphertext so a passphrase-derived handler can decrypt later.
type Handler struct {
	key        []byte
	salt       []byte
	passphrase string
	aead       cipher.AEAD
	audit      *Audit
}

// NewHandler builds a handler from the crypto config. A base64 key takes
// precedence over a passphrase. With neither configured a development
// key is derived so local runs still work; production deployments set
// SPENDLENS_ENCRYPTION_KEY.
func NewHandler(cfg config.CryptoConfig) (*Handler, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, apperrors.CryptoError("generate salt", err)
	}

	var key []byte
	passphrase := ""
	switch {
	case cfg.Key != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.Key)
		if err != nil {
			return nil, apperrors.CryptoError("decode encryption key", err)
		}
		if len(decoded) != keySize {
			return nil, apperrors.CryptoError(fmt.Sprintf("encryption key must be %d bytes, got %d", keySize, len(decoded)), nil)
		}
		key = decoded
	case cfg.Passphrase != "":
		passphrase = cfg.Passphrase
		key = deriveKey(passphrase, salt)
	default:
		log.Printf("[SecureHandler] no key configured, deriving development key")
		passphrase = defaultKeySeed
		key = deriveKey(passphrase, salt)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Handler{key: key, salt: salt, passphrase: passphrase, aead: aead, audit: NewAudit()}, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, keySize, sha256.New)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.CryptoError("init cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.CryptoError("init gcm", err)
	}
	return aead, nil
}

// Audit exposes the operation log accumulated by this handler
func (h *Handler) Audit() *Audit { return h.audit }

// ExportAudit serializes the operation log. Implements ports.AuditExporter.
func (h *Handler) ExportAudit() ([]byte, error) { return h.audit.Export() }

// EncryptValue encrypts one cell. Output is "enc:" + base64(salt nonce ct)
// so encrypted cells survive CSV round-trips and are recognizable.
func (h *Handler) EncryptValue(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	nonce := make([]byte, h.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperrors.CryptoError("generate nonce", err)
	}
	sealed := h.aead.Seal(nil, nonce, []byte(plaintext), nil)

	buf := make([]byte, 0, len(h.salt)+len(nonce)+len(sealed))
	buf = append(buf, h.salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)
	return cipherPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// DecryptValue reverses EncryptValue. Cells without the prefix pass
// through untouched so mixed tables decrypt safely.
func (h *Handler) DecryptValue(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value[len(cipherPrefix):])
	if err != nil {
		return "", apperrors.CryptoError("decode ciphertext", err)
	}
	nonceSize := h.aead.NonceSize()
	if len(raw) < saltSize+nonceSize {
		return "", apperrors.CryptoError("ciphertext too short", nil)
	}
	salt, nonce, sealed := raw[:saltSize], raw[saltSize:saltSize+nonceSize], raw[saltSize+nonceSize:]

	aead := h.aead
	if !bytesEqual(salt, h.salt) {
		// Written by another handler instance; re-derive when possible
		rederived, err := newAEAD(deriveKeyForSalt(h, salt))
		if err != nil {
			return "", err
		}
		aead = rederived
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperrors.CryptoError("decrypt value", err)
	}
	return string(plain), nil
}

// deriveKeyForSalt returns the key to use for a foreign salt. Handlers
// with an explicit key reuse it; passphrase handlers re-derive.
func deriveKeyForSalt(h *Handler, salt []byte) []byte {
	if h.passphrase == "" {
		return h.key
	}
	return deriveKey(h.passphrase, salt)
}

// IsEncrypted reports whether a cell already holds ciphertext
func IsEncrypted(value string) bool {
	return len(value) > len(cipherPrefix) && value[:len(cipherPrefix)] == cipherPrefix
}

// EncryptColumns implements ports.TableCipher. It returns a copy of the
// table with the named columns' cells encrypted; unknown columns are
// skipped rather than failing the batch.
func (h *Handler) EncryptColumns(t *table.Table, columns []string) (*table.Table, error) {
	start := time.Now()
	out := t.Clone()
	touched := 0
	for _, col := range columns {
		idx := out.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for r := range out.Rows {
			enc, err := h.EncryptValue(out.Rows[r][idx])
			if err != nil {
				return nil, fmt.Errorf("encrypt column %q row %d: %w", col, r, err)
			}
			out.Rows[r][idx] = enc
		}
		touched++
	}
	h.audit.Record("encrypt", columns, out.NumRows())
	log.Printf("[SecureHandler] encrypted %d columns across %d rows in %v", touched, out.NumRows(), time.Since(start))
	return out, nil
}

// DecryptColumns implements ports.TableCipher
func (h *Handler) DecryptColumns(t *table.Table, columns []string) (*table.Table, error) {
	out := t.Clone()
	for _, col := range columns {
		idx := out.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for r := range out.Rows {
			plain, err := h.DecryptValue(out.Rows[r][idx])
			if err != nil {
				return nil, fmt.Errorf("decrypt column %q row %d: %w", col, r, err)
			}
			out.Rows[r][idx] = plain
		}
	}
	h.audit.Record("decrypt", columns, out.NumRows())
	return out, nil
}

// SensitiveColumns implements ports.TableCipher
func (h *Handler) SensitiveColumns(t *table.Table) []string {
	return DetectSensitive(t.Columns)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
