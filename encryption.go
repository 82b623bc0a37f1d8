package driftwatch

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// encryptionNonceSize is the nonce size for AES-GCM.
	encryptionNonceSize = 12
	// encryptionSaltSize is the salt size for key derivation.
	encryptionSaltSize = 32
	// encryptionKeySize is the AES-256 key size.
	encryptionKeySize = 32
	// pbkdf2Iterations is the number of iterations for key derivation.
	pbkdf2Iterations = 100000
)

// reportEncryptor encrypts exported report payloads with AES-256-GCM using
// a PBKDF2-derived key. Exported files carry the salt in their header so
// decryption only needs the password.
type reportEncryptor struct {
	gcm  cipher.AEAD
	salt []byte
}

// newReportEncryptor derives a fresh salt and key from a password.
func newReportEncryptor(password string) (*reportEncryptor, error) {
	if password == "" {
		return nil, errors.New("encryption password required")
	}
	salt := make([]byte, encryptionSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return newReportEncryptorWithSalt(password, salt)
}

// newReportEncryptorWithSalt derives the key from a password and an
// existing salt (used for decryption).
func newReportEncryptorWithSalt(password string, salt []byte) (*reportEncryptor, error) {
	if len(salt) != encryptionSaltSize {
		return nil, errors.New("invalid salt size")
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, encryptionKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &reportEncryptor{gcm: gcm, salt: salt}, nil
}

// encrypt returns ciphertext with the nonce prepended.
func (e *reportEncryptor) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, encryptionNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt reverses encrypt.
func (e *reportEncryptor) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < encryptionNonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:encryptionNonceSize]
	return e.gcm.Open(nil, nonce, ciphertext[encryptionNonceSize:], nil)
}

// magicEncryptedReport marks encrypted report files.
var magicEncryptedReport = [4]byte{'D', 'W', 'E', 'N'}

// encryptedReportVersion is the current header version.
const encryptedReportVersion byte = 1

// encryptedHeaderSize is magic + version + salt.
const encryptedHeaderSize = 4 + 1 + encryptionSaltSize

// writeEncryptedHeader frames an encrypted report with its salt.
func writeEncryptedHeader(w io.Writer, salt []byte) error {
	header := make([]byte, 0, encryptedHeaderSize)
	header = append(header, magicEncryptedReport[:]...)
	header = append(header, encryptedReportVersion)
	header = append(header, salt...)
	_, err := w.Write(header)
	return err
}

// readEncryptedHeader validates the frame and returns the salt.
func readEncryptedHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, encryptedHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if [4]byte(header[:4]) != magicEncryptedReport {
		return nil, errors.New("not an encrypted report")
	}
	if header[4] != encryptedReportVersion {
		return nil, errors.New("unsupported encrypted report version")
	}
	return header[5:], nil
}
